package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/coldchain-ml/coldchain/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TrainTestSplit splits feature matrix X and target vector y into train and
// test partitions. testSize is the test fraction, rounded up to a whole
// number of rows. With shuffle off the split is chronological: the first
// rows train, the last rows test, which keeps time-ordered sensor readings
// from leaking future data into training. With shuffle on the rows are
// permuted with the given seed first.
func TrainTestSplit(X mat.Matrix, y mat.Vector, testSize float64, shuffle bool, seed int64) (XTrain, XTest *mat.Dense, yTrain, yTest *mat.VecDense, err error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, nil, nil, nil, errors.NewModelError("dataset.TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != r {
		return nil, nil, nil, nil, errors.NewDimensionError("dataset.TrainTestSplit", r, y.Len(), 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, errors.NewValueError("dataset.TrainTestSplit",
			fmt.Sprintf("testSize must be in (0, 1), got %g", testSize))
	}

	nTest := int(math.Ceil(float64(r) * testSize))
	nTrain := r - nTest
	if nTrain < 1 {
		return nil, nil, nil, nil, errors.NewValueError("dataset.TrainTestSplit",
			fmt.Sprintf("testSize %g leaves no training rows for %d samples", testSize, r))
	}

	order := make([]int, r)
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(r, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	XTrain = mat.NewDense(nTrain, c, nil)
	XTest = mat.NewDense(nTest, c, nil)
	yTrain = mat.NewVecDense(nTrain, nil)
	yTest = mat.NewVecDense(nTest, nil)

	for i, src := range order[:nTrain] {
		for j := 0; j < c; j++ {
			XTrain.Set(i, j, X.At(src, j))
		}
		yTrain.SetVec(i, y.AtVec(src))
	}
	for i, src := range order[nTrain:] {
		for j := 0; j < c; j++ {
			XTest.Set(i, j, X.At(src, j))
		}
		yTest.SetVec(i, y.AtVec(src))
	}

	return XTrain, XTest, yTrain, yTest, nil
}
