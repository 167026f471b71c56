package preprocessing

import (
	"fmt"
	"math"

	"github.com/coldchain-ml/coldchain/core/model"
	"github.com/coldchain-ml/coldchain/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ForwardFillImputer fills missing values (NaN) column-wise with the last
// observed value, the standard treatment for gaps in sensor time series.
// Leading NaNs, which have no prior observation, take the first observed
// value in the column instead.
type ForwardFillImputer struct {
	model.BaseEstimator

	// NFeatures is the number of features seen during Fit.
	NFeatures int
}

// NewForwardFillImputer creates a ForwardFillImputer.
func NewForwardFillImputer() *ForwardFillImputer {
	return &ForwardFillImputer{}
}

// Fit records the expected feature count. Forward fill has no statistics to
// learn; Fit exists so the imputer composes with the Transformer interface.
func (f *ForwardFillImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("ForwardFillImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	f.NFeatures = c
	f.SetFitted()
	return nil
}

// Transform returns a copy of X with NaN cells forward-filled per column.
// A column containing only NaN cannot be filled and produces an error.
func (f *ForwardFillImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError("ForwardFillImputer", "Transform")
	}

	r, c := X.Dims()
	if c != f.NFeatures {
		return nil, errors.NewDimensionError("ForwardFillImputer.Transform", f.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		firstObserved := math.NaN()
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				firstObserved = v
				break
			}
		}
		if math.IsNaN(firstObserved) {
			return nil, errors.NewValueError("ForwardFillImputer.Transform",
				fmt.Sprintf("column %d contains no observed values", j))
		}

		last := firstObserved
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				v = last
			} else {
				last = v
			}
			result.Set(i, j, v)
		}
	}

	return result, nil
}

// FitTransform fits on X and fills the same data.
func (f *ForwardFillImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := f.Fit(X); err != nil {
		return nil, err
	}
	return f.Transform(X)
}
