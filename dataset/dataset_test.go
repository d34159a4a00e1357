// Copyright 2024 irec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataset_AddFeedback(t *testing.T) {
	d := NewDataset()
	d.AddFeedback("alice", "apple", 1)
	d.AddFeedback("alice", "banana", 2)
	d.AddFeedback("bob", "apple", 1)
	assert.Equal(t, 2, d.Users())
	assert.Equal(t, 2, d.Items())
	assert.Equal(t, 3, d.Count())
	assert.Equal(t, []int32{0, 1}, d.UserFeedback[0])
	assert.Equal(t, []float32{1, 2}, d.UserValues[0])
	assert.Equal(t, []int32{0, 1}, d.ItemFeedback[0])
}

func TestDataset_PivotAccumulates(t *testing.T) {
	d := NewDataset()
	d.AddFeedback("alice", "apple", 1)
	d.AddFeedback("alice", "apple", 1)
	d.AddFeedback("alice", "apple", 3)
	assert.Equal(t, 1, d.Count())
	assert.Equal(t, []float32{5}, d.UserValues[0])
}

func TestDataset_Row(t *testing.T) {
	d := NewDataset()
	d.AddFeedback("alice", "apple", 1)
	d.AddFeedback("alice", "banana", 2)
	d.AddUser("carol")
	visited := make(map[int32]float32)
	d.Row(0).ForEach(func(itemIndex int32, value float32) {
		visited[itemIndex] = value
	})
	assert.Equal(t, map[int32]float32{0: 1, 1: 2}, visited)
	// user without feedback has an empty row
	count := 0
	d.Row(1).ForEach(func(itemIndex int32, value float32) {
		count++
	})
	assert.Zero(t, count)
}

func TestDenseMatrix(t *testing.T) {
	m := NewDenseMatrix([][]float32{{0, 1, 0}, {2, 0, 3}})
	assert.Equal(t, 2, m.Users())
	assert.Equal(t, 3, m.Items())
	row, ok := m.Row(1).(DenseRow)
	assert.True(t, ok)
	assert.Equal(t, []float32{2, 0, 3}, row.Dense())
	visited := make(map[int32]float32)
	row.ForEach(func(itemIndex int32, value float32) {
		visited[itemIndex] = value
	})
	assert.Equal(t, map[int32]float32{0: 2, 1: 0, 2: 3}, visited)
}
