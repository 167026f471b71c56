package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coldchain-ml/coldchain/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Accuracy computes the fraction of exactly matching labels.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// AccuracyMatrix computes accuracy for matrix inputs, using the first
// column.
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AccuracyMatrix", "nil matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, _ := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("AccuracyMatrix", "empty matrix")
	}
	if rPred != rTrue {
		return 0, errors.NewDimensionError("AccuracyMatrix", rTrue, rPred, 0)
	}

	yt := mat.NewVecDense(rTrue, nil)
	yp := mat.NewVecDense(rTrue, nil)
	for i := 0; i < rTrue; i++ {
		yt.SetVec(i, yTrue.At(i, 0))
		yp.SetVec(i, yPred.At(i, 0))
	}
	return Accuracy(yt, yp)
}

// ConfusionMatrix returns counts[i][j] of samples with true label labels[i]
// predicted as labels[j]. A nil labels slice uses the sorted union of
// labels present in yTrue and yPred.
func ConfusionMatrix(yTrue, yPred *mat.VecDense, labels []int) ([][]int, []int, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "empty vector")
	}
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError("ConfusionMatrix", n, yPred.Len(), 0)
	}

	if labels == nil {
		seen := map[int]bool{}
		for i := 0; i < n; i++ {
			seen[int(yTrue.AtVec(i))] = true
			seen[int(yPred.AtVec(i))] = true
		}
		for lab := range seen {
			labels = append(labels, lab)
		}
		sort.Ints(labels)
	}

	idx := make(map[int]int, len(labels))
	for i, lab := range labels {
		idx[lab] = i
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := 0; i < n; i++ {
		ti, tok := idx[int(yTrue.AtVec(i))]
		pi, pok := idx[int(yPred.AtVec(i))]
		if tok && pok {
			counts[ti][pi]++
		}
	}
	return counts, labels, nil
}

// ClassMetrics holds per-class precision, recall, F1 and support.
type ClassMetrics struct {
	Label     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarizes a classifier's per-class and averaged performance, in
// the shape of sklearn's classification_report.
type Report struct {
	Classes  []ClassMetrics
	Accuracy float64

	MacroPrecision    float64
	MacroRecall       float64
	MacroF1           float64
	WeightedPrecision float64
	WeightedRecall    float64
	WeightedF1        float64

	TotalSupport int
}

// ClassificationReport computes per-class precision/recall/F1 plus macro
// and support-weighted averages. Ill-defined metrics (a class with no
// predicted or no true samples) emit an UndefinedMetricWarning and score 0.
func ClassificationReport(yTrue, yPred *mat.VecDense, labels []int) (*Report, error) {
	counts, labels, err := ConfusionMatrix(yTrue, yPred, labels)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for i, lab := range labels {
		tp := counts[i][i]
		predicted, actual := 0, 0
		for j := range labels {
			predicted += counts[j][i]
			actual += counts[i][j]
		}

		var precision, recall float64
		if predicted == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0.0))
		} else {
			precision = float64(tp) / float64(predicted)
		}
		if actual == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0.0))
		} else {
			recall = float64(tp) / float64(actual)
		}

		var f1 float64
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		report.Classes = append(report.Classes, ClassMetrics{
			Label:     lab,
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   actual,
		})
		report.TotalSupport += actual
	}

	for _, cm := range report.Classes {
		report.MacroPrecision += cm.Precision
		report.MacroRecall += cm.Recall
		report.MacroF1 += cm.F1

		w := float64(cm.Support) / float64(report.TotalSupport)
		report.WeightedPrecision += w * cm.Precision
		report.WeightedRecall += w * cm.Recall
		report.WeightedF1 += w * cm.F1
	}
	k := float64(len(report.Classes))
	report.MacroPrecision /= k
	report.MacroRecall /= k
	report.MacroF1 /= k

	report.Accuracy, err = Accuracy(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// String renders the report as a fixed-width table.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	b.WriteString("\n")
	for _, cm := range r.Classes {
		fmt.Fprintf(&b, "%14d %9.2f %9.2f %9.2f %9d\n", cm.Label, cm.Precision, cm.Recall, cm.F1, cm.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%14s %9s %9s %9.2f %9d\n", "accuracy", "", "", r.Accuracy, r.TotalSupport)
	fmt.Fprintf(&b, "%14s %9.2f %9.2f %9.2f %9d\n", "macro avg", r.MacroPrecision, r.MacroRecall, r.MacroF1, r.TotalSupport)
	fmt.Fprintf(&b, "%14s %9.2f %9.2f %9.2f %9d\n", "weighted avg", r.WeightedPrecision, r.WeightedRecall, r.WeightedF1, r.TotalSupport)
	return b.String()
}
