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
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/irec-io/irec/base"
)

// Split divides the dataset by the user-leave-one-out method: one random interaction
// per test user is held out, the rest goes to the train set. `numTestUsers` bounds the
// number of users with held-out interactions; if it is not positive or not less than
// the user count, every user is a test user. Both halves share the indexers of the
// receiver, so row and column orderings stay identical across train, test and the
// original matrix. The seed is explicit so splits are reproducible.
func (d *Dataset) Split(numTestUsers int, seed int64) (*Dataset, *Dataset) {
	trainSet, testSet := newSharedIndexDataset(d), newSharedIndexDataset(d)
	rng := base.NewRandomGenerator(seed)
	leaveOneOut := func(userIndex int32) {
		row := d.UserFeedback[userIndex]
		if len(row) == 0 {
			return
		}
		k := rng.Intn(len(row))
		for position, itemIndex := range row {
			if position == k {
				testSet.addIndexed(userIndex, itemIndex, d.UserValues[userIndex][position])
			} else {
				trainSet.addIndexed(userIndex, itemIndex, d.UserValues[userIndex][position])
			}
		}
	}
	if numTestUsers >= d.Users() || numTestUsers <= 0 {
		for userIndex := int32(0); userIndex < int32(d.Users()); userIndex++ {
			leaveOneOut(userIndex)
		}
	} else {
		testUsers := rng.SampleInt32(0, int32(d.Users()), numTestUsers)
		for _, userIndex := range testUsers {
			leaveOneOut(userIndex)
		}
		testUserSet := mapset.NewSet(testUsers...)
		for userIndex := int32(0); userIndex < int32(d.Users()); userIndex++ {
			if !testUserSet.Contains(userIndex) {
				for position, itemIndex := range d.UserFeedback[userIndex] {
					trainSet.addIndexed(userIndex, itemIndex, d.UserValues[userIndex][position])
				}
			}
		}
	}
	return trainSet, testSet
}

// NegativeSample draws candidate items per user that appear neither in the receiver
// nor in excludeSet. Samples are drawn once and cached, so repeated evaluations rank
// the same candidates.
func (d *Dataset) NegativeSample(excludeSet *Dataset, numCandidates int, seed int64) [][]int32 {
	if len(d.negatives) == 0 {
		rng := base.NewRandomGenerator(seed)
		d.negatives = make([][]int32, d.Users())
		for userIndex := 0; userIndex < d.Users(); userIndex++ {
			s1 := mapset.NewSet(d.UserFeedback[userIndex]...)
			s2 := mapset.NewSet(excludeSet.UserFeedback[userIndex]...)
			d.negatives[userIndex] = rng.SampleInt32(0, int32(d.Items()), numCandidates, s1, s2)
		}
	}
	return d.negatives
}
