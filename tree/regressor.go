package tree

import (
	"math"
	"math/rand"

	"github.com/coldchain-ml/coldchain/core/model"
	"github.com/coldchain-ml/coldchain/metrics"
	"github.com/coldchain-ml/coldchain/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeRegressor is a CART regressor. Splits maximize variance
// reduction and leaves predict the mean target of their training samples.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	// Hyperparameters.
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MaxFeatures         int
	MinImpurityDecrease float64
	Criterion           string // "mse"
	RandomState         int64

	// Fitted state.
	Root        *Node
	NFeatures   int
	Importances []float64
}

// NewDecisionTreeRegressor creates a regressor with variance-reduction
// splitting and no depth limit by default.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	o := defaultOptions("mse")
	for _, opt := range opts {
		opt(&o)
	}
	return &DecisionTreeRegressor{
		MaxDepth:            o.maxDepth,
		MinSamplesSplit:     o.minSamplesSplit,
		MinSamplesLeaf:      o.minSamplesLeaf,
		MaxFeatures:         o.maxFeatures,
		MinImpurityDecrease: o.minImpurityDecrease,
		Criterion:           o.criterion,
		RandomState:         o.randomState,
	}
}

// Fit grows the tree on X (n_samples x n_features) and continuous targets
// y (n_samples x 1).
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	return t.FitSubset(X, y, nil)
}

// FitSubset grows the tree on the rows of X selected by indices; nil uses
// every row. Repeated indices feed bootstrap samples from the ensemble
// package.
func (t *DecisionTreeRegressor) FitSubset(X, y mat.Matrix, indices []int) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	yr, yc := y.Dims()
	if yr != r {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", r, yr, 0)
	}
	if yc != 1 {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", 1, yc, 1)
	}
	if t.Criterion != "mse" {
		return errors.NewValidationError("criterion", "must be \"mse\"", t.Criterion)
	}

	rows := matrixRows(X)
	yv := columnVector(y)

	if indices == nil {
		indices = make([]int, r)
		for i := range indices {
			indices[i] = i
		}
	}

	t.NFeatures = c
	t.Importances = make([]float64, c)

	g := &regressorGrower{
		tree:   t,
		rows:   rows,
		y:      yv,
		nTotal: len(indices),
		rnd:    rand.New(rand.NewSource(t.RandomState)),
	}
	t.Root = g.grow(indices, 0)

	normalizeImportances(t.Importances)
	t.SetFitted()
	return nil
}

// Predict returns the leaf mean for each row of X.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}

	r, c := X.Dims()
	if c != t.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeRegressor.Predict", t.NFeatures, c, 1)
	}

	out := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		out.Set(i, 0, t.Root.leafFor(row).Value)
	}
	return out, nil
}

// Score returns the coefficient of determination R^2 on X against y.
func (t *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := t.Predict(X)
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

// FeatureImportances returns normalized impurity-decrease importances.
func (t *DecisionTreeRegressor) FeatureImportances() []float64 {
	out := make([]float64, len(t.Importances))
	copy(out, t.Importances)
	return out
}

// GetParams returns the tree's hyperparameters.
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":             t.MaxDepth,
		"min_samples_split":     t.MinSamplesSplit,
		"min_samples_leaf":      t.MinSamplesLeaf,
		"max_features":          t.MaxFeatures,
		"min_impurity_decrease": t.MinImpurityDecrease,
		"criterion":             t.Criterion,
		"random_state":          t.RandomState,
	}
}

type regressorGrower struct {
	tree   *DecisionTreeRegressor
	rows   [][]float64
	y      []float64
	nTotal int
	rnd    *rand.Rand
}

func (g *regressorGrower) grow(idx []int, depth int) *Node {
	t := g.tree
	node := &Node{NSamples: len(idx)}

	sum, sumSq := 0.0, 0.0
	for _, ii := range idx {
		sum += g.y[ii]
		sumSq += g.y[ii] * g.y[ii]
	}
	n := float64(len(idx))
	mean := sum / n
	parentVar := sumSq/n - mean*mean

	makeLeaf := func() *Node {
		node.IsLeaf = true
		node.Value = mean
		return node
	}

	if len(idx) < t.MinSamplesSplit || parentVar <= 1e-12 {
		return makeLeaf()
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return makeLeaf()
	}

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	for _, f := range sampleFeatures(t.NFeatures, t.MaxFeatures, g.rnd) {
		gain, thr, ok := g.bestSplitForFeature(idx, f, sum, sumSq, parentVar)
		if ok && gain > bestGain {
			bestGain, bestFeature, bestThreshold = gain, f, thr
		}
	}

	if bestFeature < 0 || bestGain <= t.MinImpurityDecrease {
		return makeLeaf()
	}

	leftIdx := make([]int, 0, len(idx))
	rightIdx := make([]int, 0, len(idx))
	for _, ii := range idx {
		v := g.rows[ii][bestFeature]
		if math.IsNaN(v) || v <= bestThreshold {
			leftIdx = append(leftIdx, ii)
		} else {
			rightIdx = append(rightIdx, ii)
		}
	}

	t.Importances[bestFeature] += float64(len(idx)) / float64(g.nTotal) * bestGain

	node.Feature = bestFeature
	node.Threshold = bestThreshold
	node.Left = g.grow(leftIdx, depth+1)
	node.Right = g.grow(rightIdx, depth+1)
	return node
}

// bestSplitForFeature scans thresholds keeping running sums on both sides,
// so each candidate's variance is O(1). Missing values always join the
// left child.
func (g *regressorGrower) bestSplitForFeature(idx []int, f int, totalSum, totalSumSq, parentVar float64) (gain, threshold float64, ok bool) {
	t := g.tree
	valid, missing := sortedPairs(g.rows, idx, f)
	if len(valid) < 2 {
		return 0, 0, false
	}

	leftSum, leftSumSq := 0.0, 0.0
	for _, ii := range missing {
		leftSum += g.y[ii]
		leftSumSq += g.y[ii] * g.y[ii]
	}

	n := float64(len(idx))
	for s := 1; s < len(valid); s++ {
		yv := g.y[valid[s-1].i]
		leftSum += yv
		leftSumSq += yv * yv

		if valid[s].v == valid[s-1].v {
			continue
		}

		nL := s + len(missing)
		nR := len(valid) - s
		if nL < t.MinSamplesLeaf || nR < t.MinSamplesLeaf {
			continue
		}

		fL, fR := float64(nL), float64(nR)
		meanL := leftSum / fL
		varL := leftSumSq/fL - meanL*meanL
		rightSum := totalSum - leftSum
		rightSumSq := totalSumSq - leftSumSq
		meanR := rightSum / fR
		varR := rightSumSq/fR - meanR*meanR

		weighted := fL/n*varL + fR/n*varR
		if gn := parentVar - weighted; gn > gain {
			gain = gn
			threshold = (valid[s-1].v + valid[s].v) / 2.0
			ok = true
		}
	}
	return gain, threshold, ok
}
