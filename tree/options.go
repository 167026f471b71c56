package tree

import "time"

// Option configures a decision tree at construction time.
type Option func(*treeOptions)

type treeOptions struct {
	maxDepth            int
	minSamplesSplit     int
	minSamplesLeaf      int
	maxFeatures         int
	minImpurityDecrease float64
	criterion           string
	randomState         int64
}

func defaultOptions(criterion string) treeOptions {
	return treeOptions{
		maxDepth:            0, // 0 means no depth limit
		minSamplesSplit:     2,
		minSamplesLeaf:      1,
		maxFeatures:         0, // 0 means all features
		minImpurityDecrease: 0.0,
		criterion:           criterion,
		randomState:         time.Now().UnixNano(),
	}
}

// WithMaxDepth limits tree depth; 0 disables the limit.
func WithMaxDepth(d int) Option {
	return func(o *treeOptions) { o.maxDepth = d }
}

// WithMinSamplesSplit sets the minimum number of samples required to
// attempt a split.
func WithMinSamplesSplit(n int) Option {
	return func(o *treeOptions) { o.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples required in each
// child of a split.
func WithMinSamplesLeaf(n int) Option {
	return func(o *treeOptions) { o.minSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features sampled at each split; 0 uses
// all features.
func WithMaxFeatures(k int) Option {
	return func(o *treeOptions) { o.maxFeatures = k }
}

// WithMinImpurityDecrease sets the minimal impurity decrease a split must
// achieve to be accepted.
func WithMinImpurityDecrease(v float64) Option {
	return func(o *treeOptions) { o.minImpurityDecrease = v }
}

// WithCriterion selects the split criterion: "gini" or "entropy" for
// classification, "mse" for regression.
func WithCriterion(c string) Option {
	return func(o *treeOptions) { o.criterion = c }
}

// WithRandomState seeds feature subsampling for reproducible trees.
func WithRandomState(seed int64) Option {
	return func(o *treeOptions) { o.randomState = seed }
}
