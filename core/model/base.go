package model

// EstimatorState tracks whether an estimator has been fitted.
type EstimatorState int

const (
	// NotFitted is the state of an estimator before Fit has succeeded.
	NotFitted EstimatorState = iota
	// Fitted is the state of an estimator after a successful Fit.
	Fitted
)

// BaseEstimator is embedded by every estimator and transformer in the
// library. It carries the fitted-state flag that guards Predict and
// Transform calls. State is exported so estimator snapshots survive gob
// encoding.
type BaseEstimator struct {
	State EstimatorState
}

// IsFitted reports whether the estimator has been fitted.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to the unfitted state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
