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

// Package eval scores top-k recommendations against held-out interactions.
//
// Both evaluators take a held-out interaction matrix and per-user ranked
// recommendation rows. Row i of the predictions must describe the same user as row i
// of the matrix; the engine trusts this positional contract, and ValidateAlignment
// turns a violation into a loud error at the boundary.
package eval

import (
	"math"

	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"modernc.org/mathutil"

	"github.com/irec-io/irec/base/parallel"
	"github.com/irec-io/irec/dataset"
)

/* Evaluate Item Ranking */

// Metric scores a single user's ranked recommendations against the target set.
type Metric func(targetSet mapset.Set[int32], rankList []int32, k int) float32

// RelevantSet returns the items of a user's held-out row with a value strictly
// greater than zero. Rows that can materialize a dense vector are thresholded in
// dense form, other rows are scanned entry by entry. The result may be empty.
func RelevantSet(testSet dataset.Matrix, userIndex int) (mapset.Set[int32], error) {
	if userIndex < 0 || userIndex >= testSet.Users() {
		return nil, errors.Errorf("user index %d out of range [0,%d)", userIndex, testSet.Users())
	}
	targetSet := mapset.NewThreadUnsafeSet[int32]()
	row := testSet.Row(userIndex)
	if dense, ok := row.(dataset.DenseRow); ok {
		for itemIndex, value := range dense.Dense() {
			if value > 0 {
				targetSet.Add(int32(itemIndex))
			}
		}
	} else {
		row.ForEach(func(itemIndex int32, value float32) {
			if value > 0 {
				targetSet.Add(itemIndex)
			}
		})
	}
	return targetSet, nil
}

// Precision is the fraction of relevant items among the first k recommended items.
// The divisor is always the requested k, not the available list length, so
// under-filled recommendation lists are penalized rather than forgiven.
func Precision(targetSet mapset.Set[int32], rankList []int32, k int) float32 {
	hit := 0
	for _, itemId := range truncate(rankList, k) {
		if targetSet.Contains(itemId) {
			hit++
		}
	}
	return float32(hit) / float32(k)
}

// Recall is the fraction of relevant items that appear among the first k recommended
// items. A user without relevant items scores zero.
func Recall(targetSet mapset.Set[int32], rankList []int32, k int) float32 {
	if targetSet.Cardinality() == 0 {
		return 0
	}
	hit := 0
	for _, itemId := range truncate(rankList, k) {
		if targetSet.Contains(itemId) {
			hit++
		}
	}
	return float32(hit) / float32(targetSet.Cardinality())
}

// AP is the average precision over the first k recommended items. The accumulator is
// normalized by the full target set size, never by min(k, |target|): a user with more
// relevant items than recommendation slots can never reach 1.
//
// mAP: http://sdsawtelle.github.io/blog/output/mean-average-precision-MAP-for-recommender-systems.html
func AP(targetSet mapset.Set[int32], rankList []int32, k int) float32 {
	if targetSet.Cardinality() == 0 {
		return 0
	}
	sumPrecision := float32(0)
	hit := 0
	for i, itemId := range truncate(rankList, k) {
		if targetSet.Contains(itemId) {
			hit++
			sumPrecision += float32(hit) / float32(i+1)
		}
	}
	return sumPrecision / float32(targetSet.Cardinality())
}

// NDCG means Normalized Discounted Cumulative Gain. Relevance is binary: each hit at
// 1-indexed position i contributes 1/log2(i+1). The ideal DCG assumes the first
// min(k, |target|) slots are all hits. Returns 0 when the ideal DCG is 0.
func NDCG(targetSet mapset.Set[int32], rankList []int32, k int) float32 {
	// IDCG = \sum^{min(|REL|,k)}_{i=1} \frac {1} {\log_2(i+1)}
	idcg := float32(0)
	for i := 0; i < mathutil.Min(targetSet.Cardinality(), k); i++ {
		idcg += 1.0 / math32.Log2(float32(i)+2.0)
	}
	if idcg == 0 {
		return 0
	}
	// DCG = \sum^{k}_{i=1} \frac {2^{rel_i}-1} {\log_2(i+1)}
	dcg := float32(0)
	for i, itemId := range truncate(rankList, k) {
		if targetSet.Contains(itemId) {
			dcg += 1.0 / math32.Log2(float32(i)+2.0)
		}
	}
	return dcg / idcg
}

// Evaluate computes the average Precision@k and Recall@k over every prediction row.
// Users without held-out interactions are kept in the average and contribute zero to
// both metrics, unlike EvaluateRank which skips them. With zero prediction rows both
// averages are NaN; callers detect pipeline misconfiguration from that, so it is
// surfaced rather than masked.
func Evaluate(testSet dataset.Matrix, predictions [][]int32, k, nJobs int) (precision, recall float32, err error) {
	if err := validate(testSet, predictions, k); err != nil {
		return 0, 0, errors.Trace(err)
	}
	nJobs = mathutil.Max(nJobs, 1)
	partPrecision := make([]float32, nJobs)
	partRecall := make([]float32, nJobs)
	err = parallel.Parallel(len(predictions), nJobs, func(workerId, userIndex int) error {
		targetSet, err := RelevantSet(testSet, userIndex)
		if err != nil {
			return errors.Trace(err)
		}
		partPrecision[workerId] += Precision(targetSet, predictions[userIndex], k)
		partRecall[workerId] += Recall(targetSet, predictions[userIndex], k)
		return nil
	})
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	count := float32(len(predictions))
	return lo.Sum(partPrecision) / count, lo.Sum(partRecall) / count, nil
}

// EvaluateRank computes the mean AP@k and mean NDCG@k over the prediction rows whose
// held-out row is non-empty. Users without held-out interactions are skipped, not
// zero-scored; this asymmetry with Evaluate matches two independently grown
// evaluation conventions and is kept on purpose. When no user qualifies both means
// are 0, a defined neutral value rather than NaN.
func EvaluateRank(testSet dataset.Matrix, predictions [][]int32, k, nJobs int) (meanAP, meanNDCG float32, err error) {
	if err := validate(testSet, predictions, k); err != nil {
		return 0, 0, errors.Trace(err)
	}
	nJobs = mathutil.Max(nJobs, 1)
	partAP := make([]float32, nJobs)
	partNDCG := make([]float32, nJobs)
	partCount := make([]float32, nJobs)
	err = parallel.Parallel(len(predictions), nJobs, func(workerId, userIndex int) error {
		targetSet, err := RelevantSet(testSet, userIndex)
		if err != nil {
			return errors.Trace(err)
		}
		if targetSet.Cardinality() == 0 {
			return nil
		}
		partAP[workerId] += AP(targetSet, predictions[userIndex], k)
		partNDCG[workerId] += NDCG(targetSet, predictions[userIndex], k)
		partCount[workerId]++
		return nil
	})
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	count := lo.Sum(partCount)
	if count == 0 {
		return 0, 0, nil
	}
	return lo.Sum(partAP) / count, lo.Sum(partNDCG) / count, nil
}

// ValidateAlignment checks that prediction rows reference the same users, in the same
// order, as the rows of the held-out matrix. The positional contract between the two
// structures is otherwise unchecked and a silent mismatch corrupts every metric.
func ValidateAlignment(testSet *dataset.Dataset, users []string) error {
	if len(users) != testSet.Users() {
		return errors.Errorf("prediction rows describe %d users but the held-out matrix has %d", len(users), testSet.Users())
	}
	for i, userId := range users {
		expected, ok := testSet.UserIndex.String(int32(i))
		if !ok || expected != userId {
			return errors.Errorf("prediction row %d describes user %q but the held-out matrix row is %q", i, userId, expected)
		}
	}
	return nil
}

func validate(testSet dataset.Matrix, predictions [][]int32, k int) error {
	if k <= 0 {
		return errors.NotValidf("top k = %d", k)
	}
	if len(predictions) > testSet.Users() {
		return errors.Errorf("prediction row %d exceeds the held-out matrix (%d rows)", testSet.Users(), testSet.Users())
	}
	if len(predictions) > 0 && lo.EveryBy(predictions, func(row []int32) bool { return len(row) == 0 }) {
		return errors.NotValidf("prediction rows with zero columns")
	}
	return nil
}

func truncate(rankList []int32, k int) []int32 {
	return rankList[:mathutil.Min(k, len(rankList))]
}

// NaN reports whether a mean is undefined, which Evaluate yields for an empty cohort.
func NaN(v float32) bool {
	return math.IsNaN(float64(v))
}
