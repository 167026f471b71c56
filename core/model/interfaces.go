// Package model defines the estimator contracts shared by every learner and
// transformer in coldchain, together with the fitted-state bookkeeping and
// gob persistence helpers they rely on.
package model

import "gonum.org/v1/gonum/mat"

// Fitter is implemented by anything that learns from a training set.
type Fitter interface {
	// Fit trains the estimator on X (n_samples x n_features) and y.
	Fit(X, y mat.Matrix) error
}

// Predictor is implemented by fitted estimators that produce predictions.
type Predictor interface {
	// Predict returns one prediction row per input row.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Transformer is the interface for stateless-after-fit data transforms such
// as scalers and encoders.
type Transformer interface {
	// Fit learns the parameters needed by Transform.
	Fit(X mat.Matrix) error

	// Transform applies the fitted transform to X.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform fits on X and transforms the same data.
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a goodness score.
type Scorer interface {
	// Score returns a model-appropriate score: R^2 for regressors,
	// accuracy for classifiers.
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor combines the interfaces a regression model must satisfy.
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// Classifier combines the interfaces a classification model must satisfy.
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// PredictProba returns per-class probability estimates, one row per
	// input row, columns aligned with Classes.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique class labels seen during fitting.
	Classes() []int
}

// ParameterGetter is implemented by estimators that expose their
// hyperparameters.
type ParameterGetter interface {
	// GetParams returns the estimator's hyperparameters.
	GetParams() map[string]interface{}
}

// Persistable is implemented by estimators that can round-trip through disk.
type Persistable interface {
	// Save writes the estimator to a file.
	Save(path string) error

	// Load restores the estimator from a file.
	Load(path string) error
}
