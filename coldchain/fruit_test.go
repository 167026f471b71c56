package coldchain

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/coldchain-ml/coldchain/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFruitCSV writes a synthetic storage log where spoilage follows the
// temperature: cold storage keeps produce edible.
func writeFruitCSV(t *testing.T, n int) string {
	t.Helper()

	fruits := []string{"Apple", "Banana", "Mango"}

	var b strings.Builder
	b.WriteString("Sno,Fruit,Temp,Humidity,CO2,Days,Spoiled\n")
	for i := 0; i < n; i++ {
		fruit := fruits[i%len(fruits)]
		temp := 4.0 + float64(i%2)*16.0 // alternate cold and warm storage
		humidity := 60.0 + float64(i%7)
		co2 := 400.0 + 10.0*float64(i%11)
		spoiled := "No"
		if temp > 15 {
			spoiled = "Yes"
		}

		humidityField := fmt.Sprintf("%.1f", humidity)
		if i == 5 {
			humidityField = ""
		}
		fmt.Fprintf(&b, "%d,%s,%.1f,%s,%.1f,%d,%s\n", i, fruit, temp, humidityField, co2, i%30, spoiled)
	}

	path := filepath.Join(t.TempDir(), "Dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestTrainFruit(t *testing.T) {
	dataPath := writeFruitCSV(t, 60)
	dir := t.TempDir()
	artifactPath := filepath.Join(dir, "fruit.gob")
	processedPath := filepath.Join(dir, "fruits_cleaned.csv")

	result, err := TrainFruit(FruitTrainConfig{
		DataPath:      dataPath,
		ArtifactPath:  artifactPath,
		ProcessedPath: processedPath,
		NEstimators:   15,
		RandomState:   42,
		TestSize:      0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, 48, result.NTrain)
	assert.Equal(t, 12, result.NTest)
	assert.GreaterOrEqual(t, result.Accuracy, 0.5, "spoilage is separable on temperature")
	assert.LessOrEqual(t, result.Accuracy, 1.0)
	require.NotNil(t, result.Report)
	assert.Equal(t, []string{"Apple", "Banana", "Mango"}, result.Classes)

	// The preprocessed dataset keeps the feature and target columns but
	// not the bookkeeping ones.
	processed, err := dataset.LoadCSV(processedPath)
	require.NoError(t, err)
	assert.False(t, processed.HasColumn("Sno"))
	assert.False(t, processed.HasColumn("Days"))
	for _, col := range []string{"Fruit", "Temp", "Humidity", "CO2", "Spoiled"} {
		assert.True(t, processed.HasColumn(col), "processed CSV missing %s", col)
	}

	// Fruit codes and the 0/1 target are numeric after preprocessing.
	codes, err := processed.Column("Fruit")
	require.NoError(t, err)
	for _, c := range codes {
		assert.Contains(t, []float64{0, 1, 2}, c)
	}
	target, err := processed.Column("Spoiled")
	require.NoError(t, err)
	for _, v := range target {
		assert.Contains(t, []float64{0, 1}, v)
	}
}

func TestTrainFruitUnexpectedSpoiledValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	data := "Fruit,Temp,Humidity,CO2,Spoiled\nApple,4,60,400,Maybe\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := TrainFruit(FruitTrainConfig{
		DataPath:     path,
		ArtifactPath: filepath.Join(t.TempDir(), "fruit.gob"),
		NEstimators:  5,
		RandomState:  42,
		TestSize:     0.2,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Maybe")
}

func TestFruitRanker(t *testing.T) {
	dataPath := writeFruitCSV(t, 60)
	artifactPath := filepath.Join(t.TempDir(), "fruit.gob")

	_, err := TrainFruit(FruitTrainConfig{
		DataPath:     dataPath,
		ArtifactPath: artifactPath,
		NEstimators:  15,
		RandomState:  42,
		TestSize:     0.2,
	})
	require.NoError(t, err)

	ranker, err := LoadFruitRanker(artifactPath)
	require.NoError(t, err)
	assert.Equal(t, "fruit_edible_model", ranker.Meta.ModelName)

	cold, err := ranker.Rank(4.0, 62.0, 420.0)
	require.NoError(t, err)
	require.Len(t, cold, 3)

	sorted := sort.SliceIsSorted(cold, func(i, j int) bool {
		return cold[i].EdibleProbability > cold[j].EdibleProbability
	})
	assert.True(t, sorted, "scores not in descending order: %v", cold)

	names := map[string]bool{}
	for _, s := range cold {
		assert.GreaterOrEqual(t, s.EdibleProbability, 0.0)
		assert.LessOrEqual(t, s.EdibleProbability, 1.0)
		names[s.Fruit] = true
	}
	assert.Equal(t, map[string]bool{"Apple": true, "Banana": true, "Mango": true}, names)

	warm, err := ranker.Rank(20.0, 62.0, 420.0)
	require.NoError(t, err)

	// Cold storage should look at least as edible as warm storage.
	assert.GreaterOrEqual(t, cold[0].EdibleProbability, warm[0].EdibleProbability)
}

func TestLoadFruitRankerWrongArtifact(t *testing.T) {
	dataPath := writeVaccineCSV(t, 40)
	artifactPath := filepath.Join(t.TempDir(), "vaccine.gob")

	_, err := TrainVaccine(VaccineTrainConfig{
		DataPath:     dataPath,
		ArtifactPath: artifactPath,
		NEstimators:  5,
		RandomState:  42,
		TestSize:     0.2,
	})
	require.NoError(t, err)

	_, err = LoadFruitRanker(artifactPath)
	require.Error(t, err)
}
