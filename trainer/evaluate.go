package trainer

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/tasador/core/frame"
	"github.com/ezoic/tasador/dataset"
	"github.com/ezoic/tasador/metrics"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/sklearn/compose"
	"github.com/ezoic/tasador/sklearn/linear_model"
	"github.com/ezoic/tasador/sklearn/pipeline"
	"github.com/ezoic/tasador/vehicle"
)

// Holdout holds prices in euros for the rows kept out of training.
type Holdout struct {
	Actual    []float64
	Predicted []float64
	Metrics   metrics.Regression
	// Baseline scores a ridge regression on the same split; nil when
	// BaselineAlpha is 0.
	Baseline *metrics.Regression
}

// Evaluate fits on a seeded train split of samples and scores the
// remaining rows in euros.
func Evaluate(ctx context.Context, samples []dataset.Sample, o Options) (*Holdout, error) {
	trainIdx, testIdx, err := dataset.TrainTestSplit(len(samples), o.TestRatio, o.Seed)
	if err != nil {
		return nil, err
	}
	p, err := Fit(ctx, pick(samples, trainIdx), o)
	if err != nil {
		return nil, errors.Wrap(err, "fit on train split")
	}

	test := pick(samples, testIdx)
	_, records := Design(test)
	f, err := vehicle.ToFrame(records)
	if err != nil {
		return nil, err
	}

	h := &Holdout{Actual: make([]float64, len(test))}
	for i, s := range test {
		h.Actual[i] = s.Price
	}
	if h.Predicted, h.Metrics, err = score(p, f, h.Actual); err != nil {
		return nil, errors.Wrap(err, "score hold-out")
	}

	if o.BaselineAlpha > 0 {
		base, err := fitBaseline(pick(samples, trainIdx), o)
		if err != nil {
			return nil, errors.Wrap(err, "fit baseline")
		}
		_, m, err := score(base, f, h.Actual)
		if err != nil {
			return nil, errors.Wrap(err, "score baseline")
		}
		h.Baseline = &m
	}
	return h, nil
}

// fitBaseline fits the same preprocessing in front of a ridge regression.
func fitBaseline(samples []dataset.Sample, o Options) (*pipeline.Pipeline, error) {
	ct, err := compose.New(vehicle.NumericColumns, vehicle.CategoricalColumns, o.Scaler)
	if err != nil {
		return nil, err
	}
	p := pipeline.New(
		pipeline.Step{Name: "preprocessor", Estimator: ct},
		pipeline.Step{Name: "regressor", Estimator: linear_model.NewRidge(o.BaselineAlpha)},
	)
	y, records := Design(samples)
	f, err := vehicle.ToFrame(records)
	if err != nil {
		return nil, err
	}
	if err := p.Fit(f, y); err != nil {
		return nil, err
	}
	return p, nil
}

// score predicts f with p, inverts the log target and compares with actual.
func score(p *pipeline.Pipeline, f *frame.Frame, actual []float64) ([]float64, metrics.Regression, error) {
	pred, err := p.Predict(f)
	if err != nil {
		return nil, metrics.Regression{}, err
	}
	prices := make([]float64, len(actual))
	for i := range prices {
		prices[i] = math.Expm1(pred.At(i, 0))
	}
	m, err := metrics.Evaluate(
		mat.NewVecDense(len(actual), actual),
		mat.NewVecDense(len(prices), prices),
	)
	return prices, m, err
}

func pick(samples []dataset.Sample, idx []int) []dataset.Sample {
	out := make([]dataset.Sample, len(idx))
	for i, j := range idx {
		out[i] = samples[j]
	}
	return out
}

// Plot saves a predicted-vs-actual scatter with the identity line. The
// format follows the file extension.
func (h *Holdout) Plot(path string) error {
	p := plot.New()
	p.Title.Text = "Hold-out: predicted vs actual price"
	p.X.Label.Text = "actual (€)"
	p.Y.Label.Text = "predicted (€)"

	pts := make(plotter.XYs, len(h.Actual))
	for i := range h.Actual {
		pts[i].X = h.Actual[i]
		pts[i].Y = h.Predicted[i]
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "scatter plot")
	}
	scatter.GlyphStyle.Radius = vg.Points(2)

	identity := plotter.NewFunction(func(x float64) float64 { return x })
	identity.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(scatter, identity, plotter.NewGrid())
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
