// Package plot renders training-report charts to PNG files.
package plot

import (
	"sort"

	"github.com/coldchain-ml/coldchain/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PredictedActualScatter draws test-set predictions against actual readings
// with a y=x reference line and saves the chart as a PNG.
func PredictedActualScatter(actual, predicted []float64, title, path string) error {
	if len(actual) != len(predicted) {
		return errors.NewDimensionError("plot.PredictedActualScatter", len(actual), len(predicted), 0)
	}
	if len(actual) == 0 {
		return errors.NewModelError("plot.PredictedActualScatter", "empty data", errors.ErrEmptyData)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "actual (°C)"
	p.Y.Label.Text = "predicted (°C)"

	pts := make(plotter.XYs, len(actual))
	lo, hi := actual[0], actual[0]
	for i := range actual {
		pts[i].X = actual[i]
		pts[i].Y = predicted[i]
		for _, v := range []float64{actual[i], predicted[i]} {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "failed to build scatter")
	}

	ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "failed to build reference line")
	}

	p.Add(scatter, ref)
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot %s", path)
	}
	return nil
}

// FeatureImportanceBar draws forest feature importances as a bar chart and
// saves it as a PNG. Features are ordered by descending importance.
func FeatureImportanceBar(importances map[string]float64, title, path string) error {
	if len(importances) == 0 {
		return errors.NewModelError("plot.FeatureImportanceBar", "empty data", errors.ErrEmptyData)
	}

	names := make([]string, 0, len(importances))
	for name := range importances {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if importances[names[i]] != importances[names[j]] {
			return importances[names[i]] > importances[names[j]]
		}
		return names[i] < names[j]
	})

	values := make(plotter.Values, len(names))
	for i, name := range names {
		values[i] = importances[name]
	}

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return errors.Wrap(err, "failed to build bar chart")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "importance"
	p.NominalX(names...)
	p.Add(bars)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot %s", path)
	}
	return nil
}
