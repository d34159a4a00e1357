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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newSplitFixture() *Dataset {
	d := NewDataset()
	for u := 0; u < 10; u++ {
		for i := 0; i < 5; i++ {
			d.AddFeedback(fmt.Sprintf("user%d", u), fmt.Sprintf("item%d", (u+i)%8), 1)
		}
	}
	return d
}

func TestDataset_Split(t *testing.T) {
	d := newSplitFixture()
	train, test := d.Split(0, 0)
	// indexers are shared
	assert.Equal(t, d.Users(), train.Users())
	assert.Equal(t, d.Users(), test.Users())
	assert.Equal(t, d.Items(), train.Items())
	// one interaction per user is held out
	assert.Equal(t, d.Count()-d.Users(), train.Count())
	assert.Equal(t, d.Users(), test.Count())
	for u := 0; u < d.Users(); u++ {
		assert.Equal(t, 1, len(test.UserFeedback[u]))
		assert.Equal(t, len(d.UserFeedback[u])-1, len(train.UserFeedback[u]))
	}
}

func TestDataset_SplitTestUsers(t *testing.T) {
	d := newSplitFixture()
	train, test := d.Split(3, 0)
	testUsers := 0
	for u := 0; u < d.Users(); u++ {
		if len(test.UserFeedback[u]) > 0 {
			testUsers++
		} else {
			assert.Equal(t, len(d.UserFeedback[u]), len(train.UserFeedback[u]))
		}
	}
	assert.Equal(t, 3, testUsers)
	assert.Equal(t, d.Count(), train.Count()+test.Count())
}

func TestDataset_SplitDeterministic(t *testing.T) {
	d := newSplitFixture()
	_, test1 := d.Split(0, 42)
	_, test2 := d.Split(0, 42)
	assert.Equal(t, test1.UserFeedback, test2.UserFeedback)
	_, test3 := d.Split(0, 43)
	assert.NotEqual(t, test1.UserFeedback, test3.UserFeedback)
}

func TestDataset_NegativeSample(t *testing.T) {
	d := newSplitFixture()
	train, test := d.Split(0, 0)
	negatives := test.NegativeSample(train, 3, 0)
	assert.Equal(t, d.Users(), len(negatives))
	for u, sample := range negatives {
		assert.Equal(t, 3, len(sample))
		for _, itemIndex := range sample {
			assert.NotContains(t, train.UserFeedback[u], itemIndex)
			assert.NotContains(t, test.UserFeedback[u], itemIndex)
		}
	}
	// samples are cached
	assert.Equal(t, negatives, test.NegativeSample(train, 3, 0))
}
