package log

// Standard attribute keys for ML operations. Using these keys keeps logs
// filterable across the training and inference paths.
const (
	// ModelNameKey identifies the estimator type, e.g. "RandomForestRegressor".
	ModelNameKey = "model.name"

	// ComponentKey identifies the package or component emitting the record.
	ComponentKey = "ml.component"

	// OperationKey names the ML operation: "fit", "predict", "transform", "score".
	OperationKey = "ml.operation"

	// RunIDKey carries the training run identifier recorded in artifacts.
	RunIDKey = "run.id"
)

// Data shape attributes.
const (
	// SamplesKey is the number of rows in the dataset being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// DatasetKey names the dataset, e.g. "vaccine" or "fruit".
	DatasetKey = "data.name"
)

// Metric and performance attributes.
const (
	// DurationMsKey is the wall time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// MSEKey is the mean squared error on the held-out split.
	MSEKey = "metrics.mse"

	// AccuracyKey is the classification accuracy on the held-out split.
	AccuracyKey = "metrics.accuracy"

	// R2ScoreKey is the coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"
)
