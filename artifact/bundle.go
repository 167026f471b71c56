// Package artifact persists a trained estimator together with the
// preprocessing components and run metadata it was trained with, so that
// inference loads one self-describing file instead of loose parts.
package artifact

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"github.com/coldchain-ml/coldchain/ensemble"
	"github.com/coldchain-ml/coldchain/pkg/errors"
	"github.com/coldchain-ml/coldchain/preprocessing"
	"github.com/google/uuid"
)

func init() {
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&ensemble.RandomForestClassifier{})
}

// Metadata describes the training run that produced a bundle.
type Metadata struct {
	RunID        string
	ModelName    string
	Dataset      string
	CreatedAt    time.Time
	FeatureNames []string
	TargetName   string
	Metrics      map[string]float64
	Params       map[string]string
}

// NewMetadata creates run metadata with a fresh run ID and timestamp.
func NewMetadata(modelName, dataset string, featureNames []string, targetName string) Metadata {
	return Metadata{
		RunID:        uuid.NewString(),
		ModelName:    modelName,
		Dataset:      dataset,
		CreatedAt:    time.Now().UTC(),
		FeatureNames: append([]string(nil), featureNames...),
		TargetName:   targetName,
		Metrics:      map[string]float64{},
		Params:       map[string]string{},
	}
}

// SetParams records estimator hyperparameters in string form.
func (m *Metadata) SetParams(params map[string]interface{}) {
	for k, v := range params {
		m.Params[k] = fmt.Sprint(v)
	}
}

// Bundle holds a trained estimator with its preprocessing chain. Encoder is
// nil for models whose features are all numeric.
type Bundle struct {
	Meta      Metadata
	Estimator interface{}
	Scaler    *preprocessing.StandardScaler
	Encoder   *preprocessing.LabelEncoder
}

type fittedChecker interface {
	IsFitted() bool
}

// Save writes the bundle to a gob file. The estimator and scaler must be
// fitted.
func (b *Bundle) Save(path string) error {
	est, ok := b.Estimator.(fittedChecker)
	if !ok || b.Estimator == nil {
		return errors.NewValueError("artifact.Save", "bundle has no estimator")
	}
	if !est.IsFitted() {
		return errors.NewNotFittedError(b.Meta.ModelName, "Save")
	}
	if b.Scaler == nil || !b.Scaler.IsFitted() {
		return errors.NewNotFittedError("StandardScaler", "Save")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create artifact %s", path)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(b); err != nil {
		return errors.Wrapf(err, "failed to encode artifact %s", path)
	}
	return nil
}

// Load reads a bundle from a gob file and validates the decoded
// components.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open artifact %s", path)
	}
	defer f.Close()

	var b Bundle
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, errors.Wrapf(err, "failed to decode artifact %s", path)
	}
	if err := b.rehydrate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// rehydrate checks that the decoded components are usable for inference.
func (b *Bundle) rehydrate() error {
	switch est := b.Estimator.(type) {
	case *ensemble.RandomForestRegressor:
		if len(est.Trees) == 0 || !est.IsFitted() {
			return errors.NewModelError("artifact.Load", "decoded regressor is not fitted", nil)
		}
	case *ensemble.RandomForestClassifier:
		if len(est.Trees) == 0 || !est.IsFitted() {
			return errors.NewModelError("artifact.Load", "decoded classifier is not fitted", nil)
		}
	default:
		return errors.NewValueError("artifact.Load",
			fmt.Sprintf("unsupported estimator type %T", b.Estimator))
	}

	if b.Scaler == nil || !b.Scaler.IsFitted() {
		return errors.NewValueError("artifact.Load", "bundle has no fitted scaler")
	}
	return nil
}
