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
	"fmt"
	"io"
	"time"

	"github.com/bits-and-blooms/bitset"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/irec-io/irec/base"
	"github.com/irec-io/irec/base/encoding"
	"github.com/irec-io/irec/base/log"
	"github.com/irec-io/irec/base/parallel"
	"github.com/irec-io/irec/dataset"
	"github.com/irec-io/irec/eval"
	"github.com/irec-io/irec/model"
)

// Score is the validation result of a fitted model.
type Score struct {
	NDCG      float32
	Precision float32
	Recall    float32
}

type FitConfig struct {
	Jobs       int
	Verbose    int
	Candidates int
	TopK       int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:       1,
		Verbose:    10,
		Candidates: 100,
		TopK:       10,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}

func (config *FitConfig) SetTopK(topK int) *FitConfig {
	config.TopK = topK
	return config
}

func (config *FitConfig) SetCandidates(candidates int) *FitConfig {
	config.Candidates = candidates
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// MatrixFactorization is a model scoring (user, item) pairs by the dot product of
// latent factors.
type MatrixFactorization interface {
	model.Model
	// Fit a model with a train set and validate with a validation set.
	Fit(trainSet, valSet *dataset.Dataset, config *FitConfig) Score
	// Predict the preference of a user (userId) for an item (itemId).
	Predict(userId, itemId string) float32
	// InternalPredict predicts the preference given a user index and an item index.
	InternalPredict(userIndex, itemIndex int32) float32
	// GetUserIndex returns the user indexer.
	GetUserIndex() *dataset.FreqDict
	// GetItemIndex returns the item indexer.
	GetItemIndex() *dataset.FreqDict
	// IsUserPredictable returns false if the user had no feedback and its factors were never trained.
	IsUserPredictable(userIndex int32) bool
	// IsItemPredictable returns false if the item had no feedback and its factors were never trained.
	IsItemPredictable(itemIndex int32) bool
	// Marshal model into byte stream.
	Marshal(w io.Writer) error
	// Unmarshal model from byte stream.
	Unmarshal(r io.Reader) error
	// Invalid reports whether the model misses weights.
	Invalid() bool
}

type BaseMatrixFactorization struct {
	model.BaseModel
	UserIndex       *dataset.FreqDict
	ItemIndex       *dataset.FreqDict
	UserPredictable *bitset.BitSet
	ItemPredictable *bitset.BitSet
}

func (baseModel *BaseMatrixFactorization) Init(trainSet *dataset.Dataset) {
	baseModel.UserIndex = trainSet.UserIndex
	baseModel.ItemIndex = trainSet.ItemIndex
	// set user trained flags
	baseModel.UserPredictable = bitset.New(uint(trainSet.Users()))
	for userIndex := 0; userIndex < trainSet.Users(); userIndex++ {
		if len(trainSet.UserFeedback[userIndex]) > 0 {
			baseModel.UserPredictable.Set(uint(userIndex))
		}
	}
	// set item trained flags
	baseModel.ItemPredictable = bitset.New(uint(trainSet.Items()))
	for itemIndex := 0; itemIndex < trainSet.Items(); itemIndex++ {
		if len(trainSet.ItemFeedback[itemIndex]) > 0 {
			baseModel.ItemPredictable.Set(uint(itemIndex))
		}
	}
}

func (baseModel *BaseMatrixFactorization) GetUserIndex() *dataset.FreqDict {
	return baseModel.UserIndex
}

func (baseModel *BaseMatrixFactorization) GetItemIndex() *dataset.FreqDict {
	return baseModel.ItemIndex
}

// IsUserPredictable returns false if the user had no feedback and its factors were never trained.
func (baseModel *BaseMatrixFactorization) IsUserPredictable(userIndex int32) bool {
	if userIndex < 0 || int(userIndex) >= baseModel.UserIndex.Count() {
		return false
	}
	return baseModel.UserPredictable.Test(uint(userIndex))
}

// IsItemPredictable returns false if the item had no feedback and its factors were never trained.
func (baseModel *BaseMatrixFactorization) IsItemPredictable(itemIndex int32) bool {
	if itemIndex < 0 || int(itemIndex) >= baseModel.ItemIndex.Count() {
		return false
	}
	return baseModel.ItemPredictable.Test(uint(itemIndex))
}

// Marshal model into byte stream.
func (baseModel *BaseMatrixFactorization) Marshal(w io.Writer) error {
	if err := baseModel.UserIndex.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := baseModel.ItemIndex.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	userBits, err := baseModel.UserPredictable.MarshalBinary()
	if err != nil {
		return errors.Trace(err)
	}
	if err = encoding.WriteBytes(w, userBits); err != nil {
		return errors.Trace(err)
	}
	itemBits, err := baseModel.ItemPredictable.MarshalBinary()
	if err != nil {
		return errors.Trace(err)
	}
	if err = encoding.WriteBytes(w, itemBits); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (baseModel *BaseMatrixFactorization) Unmarshal(r io.Reader) error {
	baseModel.UserIndex = dataset.NewFreqDict()
	if err := baseModel.UserIndex.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	baseModel.ItemIndex = dataset.NewFreqDict()
	if err := baseModel.ItemIndex.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	userBits, err := encoding.ReadBytes(r)
	if err != nil {
		return errors.Trace(err)
	}
	baseModel.UserPredictable = new(bitset.BitSet)
	if err = baseModel.UserPredictable.UnmarshalBinary(userBits); err != nil {
		return errors.Trace(err)
	}
	itemBits, err := encoding.ReadBytes(r)
	if err != nil {
		return errors.Trace(err)
	}
	baseModel.ItemPredictable = new(bitset.BitSet)
	if err = baseModel.ItemPredictable.UnmarshalBinary(itemBits); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// ALS is the Weighted Regularized Matrix Factorization, which exploits
// unique properties of implicit feedback datasets. It treats the data as
// indication of positive and negative preference associated with vastly
// varying confidence levels. This leads to a factor model especially
// tailored for implicit feedback recommenders.
// Hyper-parameters:
//
//	NFactors   - The number of latent factors. Default is 16.
//	NEpochs    - The number of training epochs. Default is 10.
//	InitMean   - The mean of initial latent factors. Default is 0.
//	InitStdDev - The standard deviation of initial latent factors. Default is 0.1.
//	Reg        - The strength of regularization. Default is 0.06.
//	Alpha      - The weight of negative samples. Default is 0.001.
type ALS struct {
	BaseMatrixFactorization
	// Model parameters
	UserFactor *mat.Dense // p_u
	ItemFactor *mat.Dense // q_i
	// Hyper parameters
	nFactors   int
	nEpochs    int
	reg        float64
	initMean   float64
	initStdDev float64
	weight     float64
}

// NewALS creates an ALS model.
func NewALS(params model.Params) *ALS {
	als := new(ALS)
	als.SetParams(params)
	return als
}

// SetParams sets hyper-parameters for the ALS model.
func (als *ALS) SetParams(params model.Params) {
	als.BaseMatrixFactorization.SetParams(params)
	als.nFactors = als.Params.GetInt(model.NFactors, 16)
	als.nEpochs = als.Params.GetInt(model.NEpochs, 10)
	als.initMean = float64(als.Params.GetFloat32(model.InitMean, 0))
	als.initStdDev = float64(als.Params.GetFloat32(model.InitStdDev, 0.1))
	als.reg = float64(als.Params.GetFloat32(model.Reg, 0.06))
	als.weight = float64(als.Params.GetFloat32(model.Alpha, 0.001))
}

func (als *ALS) GetParamsGrid() model.ParamsGrid {
	return model.ParamsGrid{
		model.NFactors:   {8, 16, 32, 64},
		model.InitMean:   {0},
		model.InitStdDev: {0.001, 0.005, 0.01, 0.05, 0.1},
		model.Reg:        {0.001, 0.005, 0.01, 0.05, 0.1},
		model.Alpha:      {0.001, 0.005, 0.01, 0.05, 0.1},
	}
}

// Predict by the ALS model.
func (als *ALS) Predict(userId, itemId string) float32 {
	userIndex := als.UserIndex.Lookup(userId)
	itemIndex := als.ItemIndex.Lookup(itemId)
	if userIndex == base.NotId {
		log.Logger().Info("unknown user", zap.String("user_id", userId))
		return 0
	}
	if itemIndex == base.NotId {
		log.Logger().Info("unknown item", zap.String("item_id", itemId))
		return 0
	}
	return als.InternalPredict(userIndex, itemIndex)
}

func (als *ALS) InternalPredict(userIndex, itemIndex int32) float32 {
	ret := float32(0.0)
	if userIndex != base.NotId && itemIndex != base.NotId {
		ret = float32(mat.Dot(als.UserFactor.RowView(int(userIndex)),
			als.ItemFactor.RowView(int(itemIndex))))
	} else {
		log.Logger().Warn("unknown user or item")
	}
	return ret
}

func (als *ALS) Init(trainSet *dataset.Dataset) {
	als.UserFactor = mat.NewDense(trainSet.Users(), als.nFactors,
		als.GetRandomGenerator().NormalVector64(trainSet.Users()*als.nFactors, als.initMean, als.initStdDev))
	als.ItemFactor = mat.NewDense(trainSet.Items(), als.nFactors,
		als.GetRandomGenerator().NormalVector64(trainSet.Items()*als.nFactors, als.initMean, als.initStdDev))
	als.BaseMatrixFactorization.Init(trainSet)
}

// Fit the ALS model. The best snapshot by validation NDCG is restored after the last
// epoch.
func (als *ALS) Fit(trainSet, valSet *dataset.Dataset, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit als",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Int("test_set_size", valSet.Count()),
		zap.Any("params", als.GetParams()),
		zap.Any("config", config))
	als.Init(trainSet)
	// Create temporary matrices
	temp1 := make([]*mat.Dense, config.Jobs)
	temp2 := make([]*mat.VecDense, config.Jobs)
	a := make([]*mat.Dense, config.Jobs)
	for i := 0; i < config.Jobs; i++ {
		temp1[i] = mat.NewDense(als.nFactors, als.nFactors, nil)
		temp2[i] = mat.NewVecDense(als.nFactors, nil)
		a[i] = mat.NewDense(als.nFactors, als.nFactors, nil)
	}
	c := mat.NewDense(als.nFactors, als.nFactors, nil)
	// Create regularization matrix
	regs := make([]float64, als.nFactors)
	for i := range regs {
		regs[i] = als.reg
	}
	regI := mat.NewDiagDense(als.nFactors, regs)
	snapshots := snapshotManager{}
	evalStart := time.Now()
	scores := EvaluateModel(als, valSet, trainSet, config.TopK, config.Candidates, config.Jobs,
		eval.NDCG, eval.Precision, eval.Recall)
	evalTime := time.Since(evalStart)
	log.Logger().Debug(fmt.Sprintf("fit als %v/%v", 0, als.nEpochs),
		zap.String("eval_time", evalTime.String()),
		zap.Float32(fmt.Sprintf("NDCG@%v", config.TopK), scores[0]),
		zap.Float32(fmt.Sprintf("Precision@%v", config.TopK), scores[1]),
		zap.Float32(fmt.Sprintf("Recall@%v", config.TopK), scores[2]))
	snapshots.add(Score{NDCG: scores[0], Precision: scores[1], Recall: scores[2]}, als.UserFactor, als.ItemFactor)
	bar := progressbar.NewOptions(als.nEpochs,
		progressbar.OptionSetDescription("fit als"),
		progressbar.OptionSetVisibility(config.Verbose > 0))
	for ep := 1; ep <= als.nEpochs; ep++ {
		fitStart := time.Now()
		// Recompute all user factors: x_u = (Y^T C^u Y + \lambda I)^{-1} Y^T C^u p(u)
		// Y^T Y
		c.Mul(als.ItemFactor.T(), als.ItemFactor)
		c.Scale(als.weight, c)
		err := parallel.Parallel(trainSet.Users(), config.Jobs, func(workerId, userIndex int) error {
			a[workerId].Copy(c)
			b := mat.NewVecDense(als.nFactors, nil)
			for _, itemIndex := range trainSet.UserFeedback[userIndex] {
				// Y^T (C^u-I) Y
				temp1[workerId].Outer(1, als.ItemFactor.RowView(int(itemIndex)), als.ItemFactor.RowView(int(itemIndex)))
				a[workerId].Add(a[workerId], temp1[workerId])
				// Y^T C^u p(u)
				temp2[workerId].ScaleVec(1+als.weight, als.ItemFactor.RowView(int(itemIndex)))
				b.AddVec(b, temp2[workerId])
			}
			a[workerId].Add(a[workerId], regI)
			err := temp1[workerId].Inverse(a[workerId])
			temp2[workerId].MulVec(temp1[workerId], b)
			als.UserFactor.SetRow(userIndex, temp2[workerId].RawVector().Data)
			return errors.Trace(err)
		})
		if err != nil {
			log.Logger().Error("failed to inverse matrix", zap.Error(err))
		}
		// Recompute all item factors: y_i = (X^T C^i X + \lambda I)^{-1} X^T C^i p(i)
		// X^T X
		c.Mul(als.UserFactor.T(), als.UserFactor)
		c.Scale(als.weight, c)
		err = parallel.Parallel(trainSet.Items(), config.Jobs, func(workerId, itemIndex int) error {
			a[workerId].Copy(c)
			b := mat.NewVecDense(als.nFactors, nil)
			for _, userIndex := range trainSet.ItemFeedback[itemIndex] {
				// X^T (C^i-I) X
				temp1[workerId].Outer(1, als.UserFactor.RowView(int(userIndex)), als.UserFactor.RowView(int(userIndex)))
				a[workerId].Add(a[workerId], temp1[workerId])
				// X^T C^i p(i)
				temp2[workerId].ScaleVec(1+als.weight, als.UserFactor.RowView(int(userIndex)))
				b.AddVec(b, temp2[workerId])
			}
			a[workerId].Add(a[workerId], regI)
			err := temp1[workerId].Inverse(a[workerId])
			temp2[workerId].MulVec(temp1[workerId], b)
			als.ItemFactor.SetRow(itemIndex, temp2[workerId].RawVector().Data)
			return errors.Trace(err)
		})
		if err != nil {
			log.Logger().Error("failed to inverse matrix", zap.Error(err))
		}
		fitTime := time.Since(fitStart)
		// Cross validation
		if ep == als.nEpochs || (config.Verbose > 0 && ep%config.Verbose == 0) {
			evalStart = time.Now()
			scores = EvaluateModel(als, valSet, trainSet, config.TopK, config.Candidates, config.Jobs,
				eval.NDCG, eval.Precision, eval.Recall)
			evalTime = time.Since(evalStart)
			log.Logger().Debug(fmt.Sprintf("fit als %v/%v", ep, als.nEpochs),
				zap.String("fit_time", fitTime.String()),
				zap.String("eval_time", evalTime.String()),
				zap.Float32(fmt.Sprintf("NDCG@%v", config.TopK), scores[0]),
				zap.Float32(fmt.Sprintf("Precision@%v", config.TopK), scores[1]),
				zap.Float32(fmt.Sprintf("Recall@%v", config.TopK), scores[2]))
			snapshots.add(Score{NDCG: scores[0], Precision: scores[1], Recall: scores[2]}, als.UserFactor, als.ItemFactor)
		}
		_ = bar.Add(1)
	}
	// restore best snapshot
	als.UserFactor = snapshots.bestUserFactor
	als.ItemFactor = snapshots.bestItemFactor
	log.Logger().Info("fit als complete",
		zap.Float32(fmt.Sprintf("NDCG@%v", config.TopK), snapshots.bestScore.NDCG),
		zap.Float32(fmt.Sprintf("Precision@%v", config.TopK), snapshots.bestScore.Precision),
		zap.Float32(fmt.Sprintf("Recall@%v", config.TopK), snapshots.bestScore.Recall))
	return snapshots.bestScore
}

// Recommend ranks all items for every user of the train set, excluding the items the
// user already interacted with, and returns the top n item indexes per user ordered by
// descending score. Rows are aligned with the train set's user indexes.
func (als *ALS) Recommend(trainSet *dataset.Dataset, n, nJobs int) ([][]int32, error) {
	if n <= 0 {
		return nil, errors.NotValidf("n = %v", n)
	}
	predictions := make([][]int32, trainSet.Users())
	err := parallel.Parallel(trainSet.Users(), nJobs, func(_, userIndex int) error {
		excluded := mapset.NewThreadUnsafeSet(trainSet.UserFeedback[userIndex]...)
		filter := base.NewTopKFilter(n)
		for itemIndex := int32(0); itemIndex < int32(trainSet.Items()); itemIndex++ {
			if !excluded.Contains(itemIndex) {
				filter.Push(itemIndex, als.InternalPredict(int32(userIndex), itemIndex))
			}
		}
		predictions[userIndex], _ = filter.PopAll()
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return predictions, nil
}

// Marshal model into byte stream.
func (als *ALS) Marshal(w io.Writer) error {
	if err := als.BaseMatrixFactorization.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteDense(w, als.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteDense(w, als.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (als *ALS) Unmarshal(r io.Reader) error {
	if err := als.BaseMatrixFactorization.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	var err error
	if als.UserFactor, err = encoding.ReadDense(r); err != nil {
		return errors.Trace(err)
	}
	if als.ItemFactor, err = encoding.ReadDense(r); err != nil {
		return errors.Trace(err)
	}
	_, als.nFactors = als.UserFactor.Dims()
	return nil
}

func (als *ALS) Clear() {
	als.UserIndex = nil
	als.ItemIndex = nil
	als.UserFactor = nil
	als.ItemFactor = nil
}

func (als *ALS) Invalid() bool {
	return als == nil ||
		als.UserIndex == nil ||
		als.ItemIndex == nil ||
		als.UserFactor == nil ||
		als.ItemFactor == nil
}

// snapshotManager keeps the weights of the best epoch by validation NDCG.
type snapshotManager struct {
	bestScore      Score
	bestUserFactor *mat.Dense
	bestItemFactor *mat.Dense
}

func (sm *snapshotManager) add(score Score, userFactor, itemFactor *mat.Dense) {
	if sm.bestUserFactor == nil || score.NDCG > sm.bestScore.NDCG {
		sm.bestScore = score
		sm.bestUserFactor = mat.DenseCopyOf(userFactor)
		sm.bestItemFactor = mat.DenseCopyOf(itemFactor)
	}
}
