package tree

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/coldchain-ml/coldchain/core/model"
	"github.com/coldchain-ml/coldchain/metrics"
	"github.com/coldchain-ml/coldchain/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeClassifier is a CART classifier. Splits are numeric
// thresholds chosen to maximize impurity decrease under the configured
// criterion; categorical features are expected as integer codes from
// preprocessing.LabelEncoder.
type DecisionTreeClassifier struct {
	model.BaseEstimator

	// Hyperparameters.
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MaxFeatures         int
	MinImpurityDecrease float64
	Criterion           string // "gini" or "entropy"
	RandomState         int64

	// Fitted state.
	Root        *Node
	ClassLabels []int
	NFeatures   int
	Importances []float64
}

// NewDecisionTreeClassifier creates a classifier with gini splitting and no
// depth limit by default.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	o := defaultOptions("gini")
	for _, opt := range opts {
		opt(&o)
	}
	return &DecisionTreeClassifier{
		MaxDepth:            o.maxDepth,
		MinSamplesSplit:     o.minSamplesSplit,
		MinSamplesLeaf:      o.minSamplesLeaf,
		MaxFeatures:         o.maxFeatures,
		MinImpurityDecrease: o.minImpurityDecrease,
		Criterion:           o.criterion,
		RandomState:         o.randomState,
	}
}

// Fit grows the tree on X (n_samples x n_features) and integer class
// labels y (n_samples x 1).
func (t *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return t.FitSubset(X, y, nil)
}

// FitSubset grows the tree on the rows of X selected by indices. A nil
// indices slice uses every row; repeated indices are allowed, which is how
// the ensemble package feeds bootstrap samples to its base trees.
func (t *DecisionTreeClassifier) FitSubset(X, y mat.Matrix, indices []int) error {
	rows, yv, err := t.validateFitInputs(X, y)
	if err != nil {
		return err
	}

	if indices == nil {
		indices = make([]int, len(rows))
		for i := range indices {
			indices[i] = i
		}
	}

	labels := make([]int, len(yv))
	for i, v := range yv {
		if math.IsNaN(v) || v != math.Trunc(v) {
			return errors.NewValueError("DecisionTreeClassifier.Fit",
				fmt.Sprintf("class labels must be integers, got %v at row %d", v, i))
		}
		labels[i] = int(v)
	}

	// Collect the distinct labels reachable through indices, ascending.
	seen := map[int]bool{}
	t.ClassLabels = t.ClassLabels[:0]
	for _, ii := range indices {
		if !seen[labels[ii]] {
			seen[labels[ii]] = true
			t.ClassLabels = append(t.ClassLabels, labels[ii])
		}
	}
	sort.Ints(t.ClassLabels)

	classIdx := make(map[int]int, len(t.ClassLabels))
	for i, lab := range t.ClassLabels {
		classIdx[lab] = i
	}
	yIdx := make([]int, len(labels))
	for i, lab := range labels {
		if ci, ok := classIdx[lab]; ok {
			yIdx[i] = ci
		}
	}

	impurity := giniFromCounts
	switch t.Criterion {
	case "gini":
	case "entropy":
		impurity = entropyFromCounts
	default:
		return errors.NewValidationError("criterion", "must be \"gini\" or \"entropy\"", t.Criterion)
	}

	t.NFeatures = len(rows[0])
	t.Importances = make([]float64, t.NFeatures)
	rnd := rand.New(rand.NewSource(t.RandomState))

	g := &classifierGrower{
		tree:     t,
		rows:     rows,
		yIdx:     yIdx,
		nClasses: len(t.ClassLabels),
		nTotal:   len(indices),
		impurity: impurity,
		rnd:      rnd,
	}
	t.Root = g.grow(indices, 0)

	normalizeImportances(t.Importances)
	t.SetFitted()
	return nil
}

func (t *DecisionTreeClassifier) validateFitInputs(X, y mat.Matrix) ([][]float64, []float64, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, nil, errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	yr, yc := y.Dims()
	if yr != r {
		return nil, nil, errors.NewDimensionError("DecisionTreeClassifier.Fit", r, yr, 0)
	}
	if yc != 1 {
		return nil, nil, errors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yc, 1)
	}
	return matrixRows(X), columnVector(y), nil
}

// Predict returns the majority-class label for each row of X.
func (t *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := t.PredictProba(X)
	if err != nil {
		return nil, err
	}

	r, k := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(t.ClassLabels[best]))
	}
	return out, nil
}

// PredictProba returns per-class probabilities, columns aligned with
// Classes.
func (t *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "PredictProba")
	}

	r, c := X.Dims()
	if c != t.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.PredictProba", t.NFeatures, c, 1)
	}

	out := mat.NewDense(r, len(t.ClassLabels), nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		leaf := t.Root.leafFor(row)
		out.SetRow(i, leaf.Probas)
	}
	return out, nil
}

// Classes returns the class labels seen during Fit, ascending.
func (t *DecisionTreeClassifier) Classes() []int {
	out := make([]int, len(t.ClassLabels))
	copy(out, t.ClassLabels)
	return out
}

// Score returns the accuracy of Predict on X against y.
func (t *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, pred)
}

// FeatureImportances returns normalized impurity-decrease importances.
func (t *DecisionTreeClassifier) FeatureImportances() []float64 {
	out := make([]float64, len(t.Importances))
	copy(out, t.Importances)
	return out
}

// GetParams returns the tree's hyperparameters.
func (t *DecisionTreeClassifier) GetParams() map[string]interface{} {
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

// classifierGrower carries the shared state of one Fit call so the
// recursion only passes indices and depth.
type classifierGrower struct {
	tree     *DecisionTreeClassifier
	rows     [][]float64
	yIdx     []int
	nClasses int
	nTotal   int
	impurity func([]int) float64
	rnd      *rand.Rand
}

func (g *classifierGrower) grow(idx []int, depth int) *Node {
	t := g.tree
	node := &Node{NSamples: len(idx)}

	counts := make([]int, g.nClasses)
	for _, ii := range idx {
		counts[g.yIdx[ii]]++
	}

	makeLeaf := func() *Node {
		node.IsLeaf = true
		node.Probas = countsToProbas(counts)
		node.Value = float64(t.ClassLabels[argmaxInt(counts)])
		return node
	}

	if isPure(counts) || len(idx) < t.MinSamplesSplit {
		return makeLeaf()
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return makeLeaf()
	}

	parentImpurity := g.impurity(counts)
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	for _, f := range sampleFeatures(t.NFeatures, t.MaxFeatures, g.rnd) {
		gain, thr, ok := g.bestSplitForFeature(idx, f, counts, parentImpurity)
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

// bestSplitForFeature scans the midpoints between sorted distinct values of
// feature f, maintaining left/right class counts incrementally. Missing
// values always join the left child.
func (g *classifierGrower) bestSplitForFeature(idx []int, f int, totalCounts []int, parentImpurity float64) (gain, threshold float64, ok bool) {
	t := g.tree
	valid, missing := sortedPairs(g.rows, idx, f)
	if len(valid) < 2 {
		return 0, 0, false
	}

	leftCounts := make([]int, g.nClasses)
	rightCounts := make([]int, g.nClasses)
	for _, ii := range missing {
		leftCounts[g.yIdx[ii]]++
	}
	for ci := range totalCounts {
		rightCounts[ci] = totalCounts[ci] - leftCounts[ci]
	}

	n := float64(len(idx))
	for s := 1; s < len(valid); s++ {
		ci := g.yIdx[valid[s-1].i]
		leftCounts[ci]++
		rightCounts[ci]--

		if valid[s].v == valid[s-1].v {
			continue
		}

		nL := s + len(missing)
		nR := len(valid) - s
		if nL < t.MinSamplesLeaf || nR < t.MinSamplesLeaf {
			continue
		}

		weighted := float64(nL)/n*g.impurity(leftCounts) + float64(nR)/n*g.impurity(rightCounts)
		if gn := parentImpurity - weighted; gn > gain {
			gain = gn
			threshold = (valid[s-1].v + valid[s].v) / 2.0
			ok = true
		}
	}
	return gain, threshold, ok
}
