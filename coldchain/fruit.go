package coldchain

import (
	"fmt"
	"sort"
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

// Fruit dataset columns.
const (
	FruitTargetColumn = "Spoiled"
	FruitLabelColumn  = "Fruit"

	// Target codes: readings labelled "No" (not spoiled) are edible.
	EdibleClass  = 1
	SpoiledClass = 0
)

// FruitNumericColumns are the scaled sensor features, in training order.
var FruitNumericColumns = []string{"Temp", "Humidity", "CO2"}

// FruitFeatureColumns is the full model input order: the encoded fruit code
// followed by the scaled sensor readings.
var FruitFeatureColumns = []string{FruitLabelColumn, "Temp", "Humidity", "CO2"}

// fruitDropColumns are bookkeeping columns excluded from training.
var fruitDropColumns = []string{"Sno", "Days"}

// FruitTrainConfig configures a fruit edibility training run.
type FruitTrainConfig struct {
	DataPath     string
	ArtifactPath string

	// ProcessedPath, when set, receives the cleaned and scaled dataset CSV.
	ProcessedPath string

	NEstimators int
	RandomState int64
	TestSize    float64
}

// FruitTrainResult summarizes a completed fruit training run.
type FruitTrainResult struct {
	RunID         string
	ArtifactPath  string
	ProcessedPath string
	Accuracy      float64
	Report        *metrics.Report
	NTrain        int
	NTest         int
	Classes       []string
	Importances   map[string]float64
}

// TrainFruit runs the fruit edibility pipeline: load readings, drop
// bookkeeping columns, forward-fill gaps, encode the spoilage target and the
// fruit labels, scale the sensor features, fit a random forest classifier on
// a shuffled split, and persist the model with its scaler and encoder.
func TrainFruit(cfg FruitTrainConfig) (*FruitTrainResult, error) {
	logger := log.GetLoggerWithName("fruit")
	start := time.Now()

	table, err := dataset.LoadCSV(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	table = table.Drop(fruitDropColumns...)
	if err := table.ForwardFill(); err != nil {
		return nil, err
	}

	if err := encodeSpoilage(table); err != nil {
		return nil, err
	}

	fruits, err := table.StringColumn(FruitLabelColumn)
	if err != nil {
		return nil, err
	}
	encoder := preprocessing.NewLabelEncoder()
	codes, err := encoder.FitTransform(fruits)
	if err != nil {
		return nil, err
	}
	codeVals := make([]float64, len(codes))
	for i, c := range codes {
		codeVals[i] = float64(c)
	}
	if err := table.SetColumn(FruitLabelColumn, codeVals); err != nil {
		return nil, err
	}

	// The fruit code is a category, not a magnitude; only the sensor
	// readings are scaled.
	numeric, err := table.Matrix(FruitNumericColumns...)
	if err != nil {
		return nil, err
	}
	scaler := preprocessing.NewStandardScalerDefault()
	numericScaled, err := scaler.FitTransform(numeric)
	if err != nil {
		return nil, err
	}
	for j, name := range FruitNumericColumns {
		col := make([]float64, table.NumRows())
		for i := range col {
			col[i] = numericScaled.At(i, j)
		}
		if err := table.SetColumn(name, col); err != nil {
			return nil, err
		}
	}

	if cfg.ProcessedPath != "" {
		if err := table.SaveCSV(cfg.ProcessedPath); err != nil {
			return nil, err
		}
	}

	X, err := table.Matrix(FruitFeatureColumns...)
	if err != nil {
		return nil, err
	}
	y, err := table.Vector(FruitTargetColumn)
	if err != nil {
		return nil, err
	}

	XTrain, XTest, yTrain, yTest, err := dataset.TrainTestSplit(X, y, cfg.TestSize, true, cfg.RandomState)
	if err != nil {
		return nil, err
	}

	forest := ensemble.NewRandomForestClassifier().
		WithNEstimators(cfg.NEstimators).
		WithRandomState(cfg.RandomState)
	if err := forest.Fit(XTrain, yTrain); err != nil {
		return nil, err
	}

	pred, err := forest.Predict(XTest)
	if err != nil {
		return nil, err
	}
	accuracy, err := metrics.AccuracyMatrix(yTest, pred)
	if err != nil {
		return nil, err
	}
	report, err := metrics.ClassificationReport(yTest, columnAsVector(pred), nil)
	if err != nil {
		return nil, err
	}

	meta := artifact.NewMetadata("fruit_edible_model", cfg.DataPath, FruitFeatureColumns, FruitTargetColumn)
	meta.Metrics["accuracy"] = accuracy
	meta.SetParams(forest.GetParams())

	bundle := &artifact.Bundle{
		Meta:      meta,
		Estimator: forest,
		Scaler:    scaler,
		Encoder:   encoder,
	}
	if err := bundle.Save(cfg.ArtifactPath); err != nil {
		return nil, err
	}

	nTrain, _ := XTrain.Dims()
	nTest, _ := XTest.Dims()
	result := &FruitTrainResult{
		RunID:         meta.RunID,
		ArtifactPath:  cfg.ArtifactPath,
		ProcessedPath: cfg.ProcessedPath,
		Accuracy:      accuracy,
		Report:        report,
		NTrain:        nTrain,
		NTest:         nTest,
		Classes:       encoder.Classes(),
		Importances:   namedImportances(FruitFeatureColumns, forest.FeatureImportances()),
	}

	logger.Info("fruit model trained",
		log.RunIDKey, meta.RunID,
		log.DatasetKey, cfg.DataPath,
		log.SamplesKey, nTrain+nTest,
		log.FeaturesKey, len(FruitFeatureColumns),
		log.AccuracyKey, accuracy,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// encodeSpoilage maps the Spoiled column to integer codes: "No" means the
// produce is still edible.
func encodeSpoilage(table *dataset.Table) error {
	labels, err := table.StringColumn(FruitTargetColumn)
	if err != nil {
		return err
	}
	codes := make([]float64, len(labels))
	for i, label := range labels {
		switch label {
		case "No":
			codes[i] = EdibleClass
		case "Yes":
			codes[i] = SpoiledClass
		default:
			return errors.NewValueError("coldchain.TrainFruit",
				fmt.Sprintf("row %d: unexpected %s value %q, want Yes or No", i, FruitTargetColumn, label))
		}
	}
	return table.SetColumn(FruitTargetColumn, codes)
}

// FruitScore is one fruit's edibility probability under given conditions.
type FruitScore struct {
	Fruit             string
	EdibleProbability float64
}

// FruitRanker ranks fruit types by edibility probability from a persisted
// training bundle.
type FruitRanker struct {
	Meta artifact.Metadata

	forest  *ensemble.RandomForestClassifier
	scaler  *preprocessing.StandardScaler
	encoder *preprocessing.LabelEncoder
}

// LoadFruitRanker loads a fruit bundle and prepares it for inference.
func LoadFruitRanker(artifactPath string) (*FruitRanker, error) {
	bundle, err := artifact.Load(artifactPath)
	if err != nil {
		return nil, err
	}
	forest, ok := bundle.Estimator.(*ensemble.RandomForestClassifier)
	if !ok {
		return nil, errors.NewValueError("coldchain.LoadFruitRanker",
			fmt.Sprintf("artifact %s holds a %T, want a classification forest", artifactPath, bundle.Estimator))
	}
	if bundle.Encoder == nil {
		return nil, errors.NewValueError("coldchain.LoadFruitRanker",
			fmt.Sprintf("artifact %s has no fruit label encoder", artifactPath))
	}

	return &FruitRanker{
		Meta:    bundle.Meta,
		forest:  forest,
		scaler:  bundle.Scaler,
		encoder: bundle.Encoder,
	}, nil
}

// Rank evaluates every known fruit type against the given storage conditions
// and returns them sorted by edibility probability, highest first.
func (r *FruitRanker) Rank(temp, humidity, co2 float64) ([]FruitScore, error) {
	scaled, err := r.scaler.Transform(mat.NewDense(1, 3, []float64{temp, humidity, co2}))
	if err != nil {
		return nil, err
	}

	edibleCol := -1
	for i, class := range r.forest.Classes() {
		if class == EdibleClass {
			edibleCol = i
		}
	}
	if edibleCol < 0 {
		return nil, errors.NewValueError("coldchain.Rank", "model was trained without an edible class")
	}

	classes := r.encoder.Classes()
	scores := make([]FruitScore, len(classes))
	for code, fruit := range classes {
		input := mat.NewDense(1, 4, []float64{
			float64(code), scaled.At(0, 0), scaled.At(0, 1), scaled.At(0, 2),
		})
		proba, err := r.forest.PredictProba(input)
		if err != nil {
			return nil, err
		}
		scores[code] = FruitScore{Fruit: fruit, EdibleProbability: proba.At(0, edibleCol)}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].EdibleProbability > scores[j].EdibleProbability
	})
	return scores, nil
}

// columnAsVector copies the first column of a prediction matrix into a
// vector for the metrics helpers.
func columnAsVector(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
