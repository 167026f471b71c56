package artifact

import (
	"path/filepath"
	"testing"

	"github.com/coldchain-ml/coldchain/ensemble"
	"github.com/coldchain-ml/coldchain/preprocessing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func fittedRegressorBundle(t *testing.T) (*Bundle, *mat.Dense) {
	t.Helper()

	X := mat.NewDense(10, 2, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(10-i))
		y.Set(i, 0, float64(3*i))
	}

	scaler := preprocessing.NewStandardScalerDefault()
	XScaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	forest := ensemble.NewRandomForestRegressor().
		WithNEstimators(5).
		WithRandomState(42)
	require.NoError(t, forest.Fit(XScaled, y))

	meta := NewMetadata("shipper_temp", "sensors.csv", []string{"room_temp", "room_humidity"}, "shipper_temp_reading")
	meta.Metrics["mse"] = 0.5
	meta.SetParams(forest.GetParams())

	dense, ok := XScaled.(*mat.Dense)
	require.True(t, ok)
	return &Bundle{Meta: meta, Estimator: forest, Scaler: scaler}, dense
}

func TestBundleSaveLoadRoundTrip(t *testing.T) {
	bundle, XScaled := fittedRegressorBundle(t)
	forest := bundle.Estimator.(*ensemble.RandomForestRegressor)

	want, err := forest.Predict(XScaled)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bundle.gob")
	require.NoError(t, bundle.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, bundle.Meta.RunID, loaded.Meta.RunID)
	assert.Equal(t, bundle.Meta.ModelName, loaded.Meta.ModelName)
	assert.Equal(t, bundle.Meta.FeatureNames, loaded.Meta.FeatureNames)
	assert.Equal(t, bundle.Meta.Metrics["mse"], loaded.Meta.Metrics["mse"])

	loadedForest, ok := loaded.Estimator.(*ensemble.RandomForestRegressor)
	require.True(t, ok, "estimator type lost in round trip")
	require.True(t, loadedForest.IsFitted(), "loaded forest lost fitted state")
	require.True(t, loaded.Scaler.IsFitted(), "loaded scaler lost fitted state")

	got, err := loadedForest.Predict(XScaled)
	require.NoError(t, err)

	r, _ := want.Dims()
	for i := 0; i < r; i++ {
		assert.Equal(t, want.At(i, 0), got.At(i, 0), "prediction %d changed after reload", i)
	}
}

func TestBundleWithEncoderRoundTrip(t *testing.T) {
	bundle, _ := fittedRegressorBundle(t)

	encoder := preprocessing.NewLabelEncoder()
	_, err := encoder.FitTransform([]string{"Mango", "Apple", "Banana"})
	require.NoError(t, err)
	bundle.Encoder = encoder

	path := filepath.Join(t.TempDir(), "bundle.gob")
	require.NoError(t, bundle.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded.Encoder)

	codes, err := loaded.Encoder.Transform([]string{"Banana"})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, codes)
}

func TestBundleSaveUnfitted(t *testing.T) {
	bundle := &Bundle{
		Meta:      NewMetadata("m", "d.csv", nil, "y"),
		Estimator: ensemble.NewRandomForestRegressor(),
		Scaler:    preprocessing.NewStandardScalerDefault(),
	}
	err := bundle.Save(filepath.Join(t.TempDir(), "bundle.gob"))
	assert.Error(t, err)
}

func TestBundleSaveWithoutEstimator(t *testing.T) {
	bundle := &Bundle{Meta: NewMetadata("m", "d.csv", nil, "y")}
	err := bundle.Save(filepath.Join(t.TempDir(), "bundle.gob"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.gob"))
	assert.Error(t, err)
}
