package preprocessing

import (
	"fmt"
	"sort"

	"github.com/coldchain-ml/coldchain/core/model"
	"github.com/coldchain-ml/coldchain/pkg/errors"
)

// LabelEncoder maps categorical string labels to integer codes and back.
// Classes are assigned codes in lexicographic order, so the mapping is
// deterministic regardless of the order labels appear in the data.
type LabelEncoder struct {
	model.BaseEstimator

	// ClassLabels is the sorted list of distinct labels seen during Fit.
	// The code of a label is its index in this slice.
	ClassLabels []string

	codeByLabel map[string]int
}

// NewLabelEncoder creates an unfitted LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit learns the label-to-code mapping from the given labels.
func (le *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	seen := make(map[string]struct{}, len(labels))
	le.ClassLabels = le.ClassLabels[:0]
	for _, lab := range labels {
		if _, ok := seen[lab]; !ok {
			seen[lab] = struct{}{}
			le.ClassLabels = append(le.ClassLabels, lab)
		}
	}
	sort.Strings(le.ClassLabels)

	le.rebuildIndex()
	le.SetFitted()
	return nil
}

// Transform converts labels to their integer codes. Labels not seen during
// Fit produce a ValueError.
func (le *LabelEncoder) Transform(labels []string) ([]int, error) {
	if !le.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	if le.codeByLabel == nil {
		// Index is not persisted; rebuild after a gob round trip.
		le.rebuildIndex()
	}

	codes := make([]int, len(labels))
	for i, lab := range labels {
		code, ok := le.codeByLabel[lab]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform",
				fmt.Sprintf("y contains previously unseen label %q", lab))
		}
		codes[i] = code
	}
	return codes, nil
}

// FitTransform fits on labels and returns their codes.
func (le *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if err := le.Fit(labels); err != nil {
		return nil, err
	}
	return le.Transform(labels)
}

// InverseTransform converts integer codes back to labels.
func (le *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if !le.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}

	labels := make([]string, len(codes))
	for i, code := range codes {
		if code < 0 || code >= len(le.ClassLabels) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform",
				fmt.Sprintf("y contains previously unseen code %d", code))
		}
		labels[i] = le.ClassLabels[code]
	}
	return labels, nil
}

// Classes returns the sorted labels learned by Fit.
func (le *LabelEncoder) Classes() []string {
	out := make([]string, len(le.ClassLabels))
	copy(out, le.ClassLabels)
	return out
}

// String returns a human-readable description of the encoder.
func (le *LabelEncoder) String() string {
	if !le.IsFitted() {
		return "LabelEncoder()"
	}
	return fmt.Sprintf("LabelEncoder(n_classes=%d)", len(le.ClassLabels))
}

func (le *LabelEncoder) rebuildIndex() {
	le.codeByLabel = make(map[string]int, len(le.ClassLabels))
	for i, lab := range le.ClassLabels {
		le.codeByLabel[lab] = i
	}
}
