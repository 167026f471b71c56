package ensemble

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/coldchain-ml/coldchain/core/model"
	"github.com/coldchain-ml/coldchain/core/parallel"
	"github.com/coldchain-ml/coldchain/metrics"
	"github.com/coldchain-ml/coldchain/pkg/errors"
	"github.com/coldchain-ml/coldchain/pkg/log"
	"github.com/coldchain-ml/coldchain/tree"
	"gonum.org/v1/gonum/mat"
)

// RandomForestClassifier predicts by averaging class probabilities over
// bagged classification trees.
type RandomForestClassifier struct {
	model.BaseEstimator

	// Hyperparameters.
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 samples sqrt(n_features) per split
	Criterion       string
	Bootstrap       bool
	RandomState     int64

	// Fitted state.
	Trees       []*tree.DecisionTreeClassifier
	ClassLabels []int
	NFeatures   int
}

// NewRandomForestClassifier creates a classifier with 100 gini trees and
// bootstrap sampling, seeded from the clock until WithRandomState is set.
func NewRandomForestClassifier() *RandomForestClassifier {
	return &RandomForestClassifier{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Criterion:       "gini",
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
	}
}

// WithNEstimators sets the number of trees.
func (rf *RandomForestClassifier) WithNEstimators(n int) *RandomForestClassifier {
	rf.NEstimators = n
	return rf
}

// WithMaxDepth limits the depth of each tree; 0 disables the limit.
func (rf *RandomForestClassifier) WithMaxDepth(d int) *RandomForestClassifier {
	rf.MaxDepth = d
	return rf
}

// WithMinSamplesSplit sets the minimum samples required to split a node.
func (rf *RandomForestClassifier) WithMinSamplesSplit(n int) *RandomForestClassifier {
	rf.MinSamplesSplit = n
	return rf
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf.
func (rf *RandomForestClassifier) WithMinSamplesLeaf(n int) *RandomForestClassifier {
	rf.MinSamplesLeaf = n
	return rf
}

// WithMaxFeatures sets the features sampled per split; 0 samples
// sqrt(n_features).
func (rf *RandomForestClassifier) WithMaxFeatures(k int) *RandomForestClassifier {
	rf.MaxFeatures = k
	return rf
}

// WithCriterion selects the split criterion, "gini" or "entropy".
func (rf *RandomForestClassifier) WithCriterion(c string) *RandomForestClassifier {
	rf.Criterion = c
	return rf
}

// WithBootstrap toggles bootstrap sampling of training rows.
func (rf *RandomForestClassifier) WithBootstrap(b bool) *RandomForestClassifier {
	rf.Bootstrap = b
	return rf
}

// WithRandomState seeds the forest for reproducible training.
func (rf *RandomForestClassifier) WithRandomState(seed int64) *RandomForestClassifier {
	rf.RandomState = seed
	return rf
}

// Fit trains the forest on X (n_samples x n_features) and integer class
// labels y (n_samples x 1).
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return errors.NewDimensionError("RandomForestClassifier.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestClassifier.Fit", 1, yCols, 1)
	}
	if rf.NEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", rf.NEstimators)
	}

	// Forest-level class set, so trees whose bootstrap misses a class
	// still vote in a consistently shaped probability matrix.
	seen := map[int]bool{}
	rf.ClassLabels = rf.ClassLabels[:0]
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != math.Trunc(v) {
			return errors.NewValueError("RandomForestClassifier.Fit",
				"class labels must be integers")
		}
		if lab := int(v); !seen[lab] {
			seen[lab] = true
			rf.ClassLabels = append(rf.ClassLabels, lab)
		}
	}
	sort.Ints(rf.ClassLabels)

	maxFeatures := rf.MaxFeatures
	if maxFeatures == 0 && cols > 1 {
		maxFeatures = int(math.Sqrt(float64(cols)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	logger := log.GetLoggerWithName("ensemble.classifier")
	logger.Debug("fitting forest",
		log.OperationKey, "fit",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"n_estimators", rf.NEstimators,
		"n_classes", len(rf.ClassLabels))

	rf.NFeatures = cols
	rf.Trees = make([]*tree.DecisionTreeClassifier, rf.NEstimators)
	errs := make([]error, rf.NEstimators)

	parallel.Parallelize(rf.NEstimators, func(start, end int) {
		for i := start; i < end; i++ {
			seed := rf.RandomState + int64(i)
			t := tree.NewDecisionTreeClassifier(
				tree.WithCriterion(rf.Criterion),
				tree.WithMaxDepth(rf.MaxDepth),
				tree.WithMinSamplesSplit(rf.MinSamplesSplit),
				tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
				tree.WithMaxFeatures(maxFeatures),
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

func (rf *RandomForestClassifier) sampleIndices(n int, seed int64) []int {
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

// PredictProba returns forest-averaged class probabilities, columns aligned
// with Classes.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}

	r, c := X.Dims()
	if c != rf.NFeatures {
		return nil, errors.NewDimensionError("RandomForestClassifier.PredictProba", rf.NFeatures, c, 1)
	}

	colOf := make(map[int]int, len(rf.ClassLabels))
	for j, lab := range rf.ClassLabels {
		colOf[lab] = j
	}

	// Per-tree results are reduced sequentially afterwards so the floating
	// point sum order does not depend on goroutine scheduling.
	treeProbas := make([]mat.Matrix, len(rf.Trees))
	errs := make([]error, len(rf.Trees))

	parallel.ParallelizeWithThreshold(len(rf.Trees), 4, func(start, end int) {
		for t := start; t < end; t++ {
			treeProbas[t], errs[t] = rf.Trees[t].PredictProba(X)
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	k := len(rf.ClassLabels)
	sums := make([]float64, r*k)
	for t, proba := range treeProbas {
		treeClasses := rf.Trees[t].Classes()
		for i := 0; i < r; i++ {
			for tc, lab := range treeClasses {
				sums[i*k+colOf[lab]] += proba.At(i, tc)
			}
		}
	}

	out := mat.NewDense(r, k, sums)
	out.Scale(1/float64(len(rf.Trees)), out)
	return out, nil
}

// Predict returns the label with the highest averaged probability per row.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
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
		out.Set(i, 0, float64(rf.ClassLabels[best]))
	}
	return out, nil
}

// Classes returns the class labels seen during Fit, ascending.
func (rf *RandomForestClassifier) Classes() []int {
	out := make([]int, len(rf.ClassLabels))
	copy(out, rf.ClassLabels)
	return out
}

// Score returns the accuracy of Predict on X against y.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	if !rf.IsFitted() {
		return 0, errors.NewNotFittedError("RandomForestClassifier", "Score")
	}
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, pred)
}

// FeatureImportances averages the normalized importances of all trees.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
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
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.NEstimators,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"max_features":      rf.MaxFeatures,
		"criterion":         rf.Criterion,
		"bootstrap":         rf.Bootstrap,
		"random_state":      rf.RandomState,
	}
}

// Save writes the forest to a file with gob encoding.
func (rf *RandomForestClassifier) Save(path string) error {
	if !rf.IsFitted() {
		return errors.NewNotFittedError("RandomForestClassifier", "Save")
	}
	return model.SaveModel(rf, path)
}

// Load restores a forest written by Save.
func (rf *RandomForestClassifier) Load(path string) error {
	if err := model.LoadModel(rf, path); err != nil {
		return err
	}
	if len(rf.Trees) == 0 {
		return errors.NewModelError("RandomForestClassifier.Load", "decoded forest has no trees", nil)
	}
	rf.SetFitted()
	return nil
}
