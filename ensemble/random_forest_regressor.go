// Package ensemble implements random forests of CART trees for the
// cold-chain models: a regressor for shipper temperature prediction and a
// classifier for fruit edibility. Trees are fitted in parallel on bootstrap
// samples with per-tree seeds derived from the forest seed, so a fixed
// RandomState reproduces the forest exactly.
package ensemble

import (
	"math/rand"
	"time"

	"github.com/coldchain-ml/coldchain/core/model"
	"github.com/coldchain-ml/coldchain/core/parallel"
	"github.com/coldchain-ml/coldchain/metrics"
	"github.com/coldchain-ml/coldchain/pkg/errors"
	"github.com/coldchain-ml/coldchain/pkg/log"
	"github.com/coldchain-ml/coldchain/tree"
	"gonum.org/v1/gonum/mat"
)

// RandomForestRegressor averages the predictions of bagged regression
// trees.
type RandomForestRegressor struct {
	model.BaseEstimator

	// Hyperparameters.
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 uses all features at each split
	Bootstrap       bool
	RandomState     int64

	// Fitted state.
	Trees     []*tree.DecisionTreeRegressor
	NFeatures int
}

// NewRandomForestRegressor creates a regressor with 100 trees and
// bootstrap sampling, seeded from the clock until WithRandomState is set.
func NewRandomForestRegressor() *RandomForestRegressor {
	return &RandomForestRegressor{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
	}
}

// WithNEstimators sets the number of trees.
func (rf *RandomForestRegressor) WithNEstimators(n int) *RandomForestRegressor {
	rf.NEstimators = n
	return rf
}

// WithMaxDepth limits the depth of each tree; 0 disables the limit.
func (rf *RandomForestRegressor) WithMaxDepth(d int) *RandomForestRegressor {
	rf.MaxDepth = d
	return rf
}

// WithMinSamplesSplit sets the minimum samples required to split a node.
func (rf *RandomForestRegressor) WithMinSamplesSplit(n int) *RandomForestRegressor {
	rf.MinSamplesSplit = n
	return rf
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf.
func (rf *RandomForestRegressor) WithMinSamplesLeaf(n int) *RandomForestRegressor {
	rf.MinSamplesLeaf = n
	return rf
}

// WithMaxFeatures sets the features sampled per split; 0 uses all.
func (rf *RandomForestRegressor) WithMaxFeatures(k int) *RandomForestRegressor {
	rf.MaxFeatures = k
	return rf
}

// WithBootstrap toggles bootstrap sampling of training rows.
func (rf *RandomForestRegressor) WithBootstrap(b bool) *RandomForestRegressor {
	rf.Bootstrap = b
	return rf
}

// WithRandomState seeds the forest for reproducible training.
func (rf *RandomForestRegressor) WithRandomState(seed int64) *RandomForestRegressor {
	rf.RandomState = seed
	return rf
}

// Fit trains the forest on X (n_samples x n_features) and continuous
// targets y (n_samples x 1).
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("RandomForestRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return errors.NewDimensionError("RandomForestRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestRegressor.Fit", 1, yCols, 1)
	}
	if rf.NEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", rf.NEstimators)
	}

	logger := log.GetLoggerWithName("ensemble.regressor")
	logger.Debug("fitting forest",
		log.OperationKey, "fit",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"n_estimators", rf.NEstimators)

	rf.NFeatures = cols
	rf.Trees = make([]*tree.DecisionTreeRegressor, rf.NEstimators)
	errs := make([]error, rf.NEstimators)

	parallel.Parallelize(rf.NEstimators, func(start, end int) {
		for i := start; i < end; i++ {
			seed := rf.RandomState + int64(i)
			t := tree.NewDecisionTreeRegressor(
				tree.WithMaxDepth(rf.MaxDepth),
				tree.WithMinSamplesSplit(rf.MinSamplesSplit),
				tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
				tree.WithMaxFeatures(rf.MaxFeatures),
				tree.WithRandomState(seed),
			)
			errs[i] = t.FitSubset(X, y, rf.sampleIndices(rows, seed))
			rf.Trees[i] = t
		}
	})

	for _, fitErr := range errs {
		if fitErr != nil {
			return fitErr
		}
	}

	rf.SetFitted()
	return nil
}

func (rf *RandomForestRegressor) sampleIndices(n int, seed int64) []int {
	if !rf.Bootstrap {
		return nil
	}
	rnd := rand.New(rand.NewSource(seed))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rnd.Intn(n)
	}
	return idx
}

// Predict returns the forest mean for each row of X.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}

	r, c := X.Dims()
	if c != rf.NFeatures {
		return nil, errors.NewDimensionError("RandomForestRegressor.Predict", rf.NFeatures, c, 1)
	}

	// Per-tree results are reduced sequentially afterwards so the floating
	// point sum order does not depend on goroutine scheduling.
	treePreds := make([]mat.Matrix, len(rf.Trees))
	errs := make([]error, len(rf.Trees))

	parallel.ParallelizeWithThreshold(len(rf.Trees), 4, func(start, end int) {
		for t := start; t < end; t++ {
			treePreds[t], errs[t] = rf.Trees[t].Predict(X)
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		sum := 0.0
		for _, pred := range treePreds {
			sum += pred.At(i, 0)
		}
		out.Set(i, 0, sum/float64(len(rf.Trees)))
	}
	return out, nil
}

// Score returns the coefficient of determination R^2 on X against y.
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !rf.IsFitted() {
		return 0, errors.NewNotFittedError("RandomForestRegressor", "Score")
	}

	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	yVec := mat.NewVecDense(r, nil)
	predVec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, pred.At(i, 0))
	}
	return metrics.R2Score(yVec, predVec)
}

// FeatureImportances averages the normalized importances of all trees.
func (rf *RandomForestRegressor) FeatureImportances() []float64 {
	if len(rf.Trees) == 0 {
		return nil
	}
	out := make([]float64, rf.NFeatures)
	for _, t := range rf.Trees {
		for j, v := range t.FeatureImportances() {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(rf.Trees))
	}
	return out
}

// GetParams returns the forest's hyperparameters.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.NEstimators,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"max_features":      rf.MaxFeatures,
		"bootstrap":         rf.Bootstrap,
		"random_state":      rf.RandomState,
	}
}

// Save writes the forest to a file with gob encoding.
func (rf *RandomForestRegressor) Save(path string) error {
	if !rf.IsFitted() {
		return errors.NewNotFittedError("RandomForestRegressor", "Save")
	}
	return model.SaveModel(rf, path)
}

// Load restores a forest written by Save.
func (rf *RandomForestRegressor) Load(path string) error {
	if err := model.LoadModel(rf, path); err != nil {
		return err
	}
	if len(rf.Trees) == 0 {
		return errors.NewModelError("RandomForestRegressor.Load", "decoded forest has no trees", nil)
	}
	rf.SetFitted()
	return nil
}
