// Package coldchain implements the two production pipelines: vaccine shipper
// temperature regression from warehouse room conditions, and fruit edibility
// ranking from storage conditions. Each pipeline trains on a CSV of sensor
// readings, persists an artifact bundle, and serves single-shot predictions
// from a reloaded bundle.
package coldchain

import (
	"fmt"
	"time"

	"github.com/coldchain-ml/coldchain/artifact"
	"github.com/coldchain-ml/coldchain/dataset"
	"github.com/coldchain-ml/coldchain/ensemble"
	"github.com/coldchain-ml/coldchain/metrics"
	"github.com/coldchain-ml/coldchain/pkg/errors"
	"github.com/coldchain-ml/coldchain/pkg/log"
	"github.com/coldchain-ml/coldchain/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// Vaccine dataset columns.
const (
	VaccineTargetColumn = "thermal_shipper_temp_reading"
)

// VaccineFeatureColumns are the model inputs, in training order.
var VaccineFeatureColumns = []string{"room_temp_reading", "room_humidity_reading"}

// Default safe holding range for vaccine shipper contents, in °C.
const (
	DefaultSafeMinTemp = -2.0
	DefaultSafeMaxTemp = 5.0
)

// VaccineTrainConfig configures a vaccine training run.
type VaccineTrainConfig struct {
	DataPath     string
	ArtifactPath string
	NEstimators  int
	RandomState  int64
	TestSize     float64
}

// VaccineTrainResult summarizes a completed vaccine training run.
type VaccineTrainResult struct {
	RunID        string
	ArtifactPath string
	MSE          float64
	NTrain       int
	NTest        int
	Importances  map[string]float64

	// Test-set predictions alongside actual readings, for reporting.
	TestActual    []float64
	TestPredicted []float64
}

// TrainVaccine runs the vaccine shipper temperature pipeline: load readings,
// forward-fill gaps, scale the room condition features, fit a random forest
// regressor on the chronologically earlier portion, evaluate MSE on the
// held-out tail, and persist the model with its scaler.
func TrainVaccine(cfg VaccineTrainConfig) (*VaccineTrainResult, error) {
	logger := log.GetLoggerWithName("vaccine")
	start := time.Now()

	table, err := dataset.LoadCSV(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	keep := append([]string{VaccineTargetColumn}, VaccineFeatureColumns...)
	table, err = table.Select(keep...)
	if err != nil {
		return nil, err
	}
	if err := table.ForwardFill(); err != nil {
		return nil, err
	}

	X, err := table.Matrix(VaccineFeatureColumns...)
	if err != nil {
		return nil, err
	}
	y, err := table.Vector(VaccineTargetColumn)
	if err != nil {
		return nil, err
	}

	scaler := preprocessing.NewStandardScalerDefault()
	XScaled, err := scaler.FitTransform(X)
	if err != nil {
		return nil, err
	}

	// Sensor readings are time ordered, so the split is chronological:
	// the model never trains on readings taken after its test window.
	XTrain, XTest, yTrain, yTest, err := dataset.TrainTestSplit(XScaled, y, cfg.TestSize, false, cfg.RandomState)
	if err != nil {
		return nil, err
	}

	forest := ensemble.NewRandomForestRegressor().
		WithNEstimators(cfg.NEstimators).
		WithRandomState(cfg.RandomState)
	if err := forest.Fit(XTrain, yTrain); err != nil {
		return nil, err
	}

	pred, err := forest.Predict(XTest)
	if err != nil {
		return nil, err
	}
	mse, err := metrics.MSEMatrix(yTest, pred)
	if err != nil {
		return nil, err
	}

	meta := artifact.NewMetadata("vaccine_temp_model", cfg.DataPath, VaccineFeatureColumns, VaccineTargetColumn)
	meta.Metrics["mse"] = mse
	meta.SetParams(forest.GetParams())

	bundle := &artifact.Bundle{
		Meta:      meta,
		Estimator: forest,
		Scaler:    scaler,
	}
	if err := bundle.Save(cfg.ArtifactPath); err != nil {
		return nil, err
	}

	nTrain, _ := XTrain.Dims()
	nTest, _ := XTest.Dims()
	result := &VaccineTrainResult{
		RunID:         meta.RunID,
		ArtifactPath:  cfg.ArtifactPath,
		MSE:           mse,
		NTrain:        nTrain,
		NTest:         nTest,
		Importances:   namedImportances(VaccineFeatureColumns, forest.FeatureImportances()),
		TestActual:    make([]float64, nTest),
		TestPredicted: make([]float64, nTest),
	}
	for i := 0; i < nTest; i++ {
		result.TestActual[i] = yTest.AtVec(i)
		result.TestPredicted[i] = pred.At(i, 0)
	}

	logger.Info("vaccine model trained",
		log.RunIDKey, meta.RunID,
		log.DatasetKey, cfg.DataPath,
		log.SamplesKey, nTrain+nTest,
		log.FeaturesKey, len(VaccineFeatureColumns),
		log.MSEKey, mse,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// RangeAssessment classifies a predicted shipper temperature against the
// safe holding range.
type RangeAssessment string

const (
	RangeSafe    RangeAssessment = "safe"
	RangeTooCold RangeAssessment = "too_cold"
	RangeTooWarm RangeAssessment = "too_warm"
)

// Advice returns the operator guidance for the assessment.
func (a RangeAssessment) Advice() string {
	switch a {
	case RangeTooCold:
		return "below safe range, raise the storage temperature"
	case RangeTooWarm:
		return "above safe range, lower the storage temperature"
	default:
		return "within safe range"
	}
}

// VaccinePrediction is a single shipper temperature prediction.
type VaccinePrediction struct {
	ShipperTemp float64
	Assessment  RangeAssessment
}

// VaccinePredictor serves shipper temperature predictions from a persisted
// training bundle.
type VaccinePredictor struct {
	Meta artifact.Metadata

	forest  *ensemble.RandomForestRegressor
	scaler  *preprocessing.StandardScaler
	safeMin float64
	safeMax float64
}

// LoadVaccinePredictor loads a vaccine bundle and prepares it for inference.
// The safe range bounds are in °C.
func LoadVaccinePredictor(artifactPath string, safeMin, safeMax float64) (*VaccinePredictor, error) {
	if safeMin >= safeMax {
		return nil, errors.NewValueError("coldchain.LoadVaccinePredictor",
			fmt.Sprintf("safe range min %g must be below max %g", safeMin, safeMax))
	}

	bundle, err := artifact.Load(artifactPath)
	if err != nil {
		return nil, err
	}
	forest, ok := bundle.Estimator.(*ensemble.RandomForestRegressor)
	if !ok {
		return nil, errors.NewValueError("coldchain.LoadVaccinePredictor",
			fmt.Sprintf("artifact %s holds a %T, want a regression forest", artifactPath, bundle.Estimator))
	}

	return &VaccinePredictor{
		Meta:    bundle.Meta,
		forest:  forest,
		scaler:  bundle.Scaler,
		safeMin: safeMin,
		safeMax: safeMax,
	}, nil
}

// Predict scales the given room conditions with the persisted scaler and
// predicts the shipper temperature.
func (p *VaccinePredictor) Predict(roomTemp, roomHumidity float64) (*VaccinePrediction, error) {
	input := mat.NewDense(1, 2, []float64{roomTemp, roomHumidity})
	scaled, err := p.scaler.Transform(input)
	if err != nil {
		return nil, err
	}

	pred, err := p.forest.Predict(scaled)
	if err != nil {
		return nil, err
	}
	temp := pred.At(0, 0)

	assessment := RangeSafe
	switch {
	case temp < p.safeMin:
		assessment = RangeTooCold
	case temp > p.safeMax:
		assessment = RangeTooWarm
	}
	return &VaccinePrediction{ShipperTemp: temp, Assessment: assessment}, nil
}

// namedImportances zips feature names with forest importances.
func namedImportances(names []string, importances []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		if i < len(importances) {
			out[name] = importances[i]
		}
	}
	return out
}
