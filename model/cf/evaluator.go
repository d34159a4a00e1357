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

package cf

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"

	"github.com/irec-io/irec/base"
	"github.com/irec-io/irec/base/parallel"
	"github.com/irec-io/irec/dataset"
	"github.com/irec-io/irec/eval"
	"github.com/irec-io/irec/model"
)

// EvaluateModel ranks sampled candidates for every test user and averages the given
// metrics at topK. Candidates are the user's test items plus numCandidates negatives
// unseen in both sets, drawn with the estimator's random state. Users without test
// feedback are skipped.
func EvaluateModel(estimator MatrixFactorization, testSet, trainSet *dataset.Dataset, topK, numCandidates, nJobs int, scorers ...eval.Metric) []float32 {
	partSum := make([][]float32, nJobs)
	partCount := make([]float32, nJobs)
	for i := 0; i < nJobs; i++ {
		partSum[i] = make([]float32, len(scorers))
	}
	seed := estimator.GetParams().GetInt64(model.RandomState, 0)
	negatives := testSet.NegativeSample(trainSet, numCandidates, seed)
	_ = parallel.Parallel(testSet.Users(), nJobs, func(workerId, userIndex int) error {
		targetSet := mapset.NewThreadUnsafeSet(testSet.UserFeedback[userIndex]...)
		if targetSet.Cardinality() > 0 {
			negativeSample := negatives[userIndex]
			candidates := make([]int32, 0, targetSet.Cardinality()+len(negativeSample))
			candidates = append(candidates, testSet.UserFeedback[userIndex]...)
			candidates = append(candidates, negativeSample...)
			rankList, _ := Rank(estimator, int32(userIndex), candidates, topK)
			partCount[workerId]++
			for i, metric := range scorers {
				partSum[workerId][i] += metric(targetSet, rankList, topK)
			}
		}
		return nil
	})
	sum := make([]float32, len(scorers))
	for i := 0; i < nJobs; i++ {
		for j := range partSum[i] {
			sum[j] += partSum[i][j]
		}
	}
	count := lo.Sum(partCount)
	if count == 0 {
		return sum
	}
	for i := range sum {
		sum[i] /= count
	}
	return sum
}

// Rank scores candidates for a user and returns the top n with their scores, ordered
// by descending score.
func Rank(estimator MatrixFactorization, userIndex int32, candidates []int32, n int) ([]int32, []float32) {
	filter := base.NewTopKFilter(n)
	for _, itemIndex := range candidates {
		filter.Push(itemIndex, estimator.InternalPredict(userIndex, itemIndex))
	}
	return filter.PopAll()
}
