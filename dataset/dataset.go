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
	"github.com/samber/lo"
)

// Matrix is read-only access to a user-item interaction matrix. Rows are users and
// columns are items, both in the stable order assigned by the indexers that built the
// matrix. Implementations must keep this ordering identical between the matrices used
// for ground truth and for predictions.
type Matrix interface {
	Users() int
	Items() int
	Row(userIndex int) Row
}

// Row is a single user's interaction row.
type Row interface {
	// ForEach visits the stored entries of the row.
	ForEach(fn func(itemIndex int32, value float32))
}

// DenseRow is implemented by rows that can materialize a dense vector. Consumers
// should prefer the dense form when available and drop it right after use.
type DenseRow interface {
	Row
	// Dense returns the row as a dense vector indexed by item.
	Dense() []float32
}

// Dataset is a sparse non-negative interaction matrix with user and item indexers.
// Duplicate (user, item) feedback accumulates into a single weighted cell, which is
// how raw event logs are pivoted into an interaction matrix.
type Dataset struct {
	UserIndex    *FreqDict
	ItemIndex    *FreqDict
	UserFeedback [][]int32
	UserValues   [][]float32
	ItemFeedback [][]int32
	positions    map[uint64]int
	negatives    [][]int32
	count        int
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		UserIndex:    NewFreqDict(),
		ItemIndex:    NewFreqDict(),
		UserFeedback: make([][]int32, 0),
		UserValues:   make([][]float32, 0),
		ItemFeedback: make([][]int32, 0),
		positions:    make(map[uint64]int),
	}
}

// newSharedIndexDataset creates an empty dataset sharing the indexers of another
// dataset, so both keep identical row and column orderings.
func newSharedIndexDataset(parent *Dataset) *Dataset {
	d := &Dataset{
		UserIndex:    parent.UserIndex,
		ItemIndex:    parent.ItemIndex,
		UserFeedback: make([][]int32, parent.Users()),
		UserValues:   make([][]float32, parent.Users()),
		ItemFeedback: make([][]int32, parent.Items()),
		positions:    make(map[uint64]int),
	}
	return d
}

// Users returns the number of users.
func (d *Dataset) Users() int {
	return d.UserIndex.Count()
}

// Items returns the number of items.
func (d *Dataset) Items() int {
	return d.ItemIndex.Count()
}

// Count returns the number of non-zero cells.
func (d *Dataset) Count() int {
	return d.count
}

// AddUser inserts a user without feedback.
func (d *Dataset) AddUser(userId string) {
	userIndex := d.UserIndex.Id(userId)
	d.growUsers(userIndex)
}

// AddItem inserts an item without feedback.
func (d *Dataset) AddItem(itemId string) {
	itemIndex := d.ItemIndex.Id(itemId)
	d.growItems(itemIndex)
}

// AddFeedback inserts one interaction. Repeated (user, item) pairs accumulate their
// values in place.
func (d *Dataset) AddFeedback(userId, itemId string, value float32) {
	userIndex := d.UserIndex.Id(userId)
	itemIndex := d.ItemIndex.Id(itemId)
	d.addIndexed(userIndex, itemIndex, value)
}

func (d *Dataset) addIndexed(userIndex, itemIndex int32, value float32) {
	d.growUsers(userIndex)
	d.growItems(itemIndex)
	key := uint64(uint32(userIndex))<<32 | uint64(uint32(itemIndex))
	if pos, exist := d.positions[key]; exist {
		d.UserValues[userIndex][pos] += value
		return
	}
	d.positions[key] = len(d.UserFeedback[userIndex])
	d.UserFeedback[userIndex] = append(d.UserFeedback[userIndex], itemIndex)
	d.UserValues[userIndex] = append(d.UserValues[userIndex], value)
	d.ItemFeedback[itemIndex] = append(d.ItemFeedback[itemIndex], userIndex)
	d.count++
}

func (d *Dataset) growUsers(userIndex int32) {
	for int(userIndex) >= len(d.UserFeedback) {
		d.UserFeedback = append(d.UserFeedback, nil)
		d.UserValues = append(d.UserValues, nil)
	}
}

func (d *Dataset) growItems(itemIndex int32) {
	for int(itemIndex) >= len(d.ItemFeedback) {
		d.ItemFeedback = append(d.ItemFeedback, nil)
	}
}

// Row returns the sparse row of a user.
func (d *Dataset) Row(userIndex int) Row {
	return sparseRow{indices: d.UserFeedback[userIndex], values: d.UserValues[userIndex]}
}

// RowCounts returns the number of stored interactions per user.
func (d *Dataset) RowCounts() []int {
	return lo.Map(d.UserFeedback, func(row []int32, _ int) int {
		return len(row)
	})
}

type sparseRow struct {
	indices []int32
	values  []float32
}

func (r sparseRow) ForEach(fn func(itemIndex int32, value float32)) {
	for i, index := range r.indices {
		fn(index, r.values[i])
	}
}

// DenseMatrix is a dense interaction matrix. Its rows expose dense materialization.
type DenseMatrix struct {
	Values [][]float32
}

// NewDenseMatrix creates a dense matrix from row vectors.
func NewDenseMatrix(values [][]float32) *DenseMatrix {
	return &DenseMatrix{Values: values}
}

func (m *DenseMatrix) Users() int {
	return len(m.Values)
}

func (m *DenseMatrix) Items() int {
	if len(m.Values) == 0 {
		return 0
	}
	return len(m.Values[0])
}

func (m *DenseMatrix) Row(userIndex int) Row {
	return denseRow(m.Values[userIndex])
}

type denseRow []float32

func (r denseRow) ForEach(fn func(itemIndex int32, value float32)) {
	for i, v := range r {
		fn(int32(i), v)
	}
}

func (r denseRow) Dense() []float32 {
	return r
}
