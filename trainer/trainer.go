// Package trainer fits the price pipeline from a listings CSV and writes the
// artifact the estimator loads.
package trainer

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/dataset"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/pkg/log"
	"github.com/ezoic/tasador/sklearn/compose"
	"github.com/ezoic/tasador/sklearn/pipeline"
	"github.com/ezoic/tasador/sklearn/svm"
	"github.com/ezoic/tasador/valuation"
	"github.com/ezoic/tasador/vehicle"
)

// Options configures a training run.
type Options struct {
	Input  string // listings CSV
	Output string // artifact path
	Report string // optional JSON report path
	Plot   string // optional hold-out scatter plot (png, svg or pdf)

	TopModels     int
	ReferenceYear int
	TestRatio     float64
	Seed          uint64
	Rules         dataset.Rules

	// BaselineAlpha is the ridge penalty of the hold-out baseline; 0 skips it.
	BaselineAlpha float64

	Scaler  string
	C       float64
	Epsilon float64
	Gamma   string
	Tol     float64
	CacheMB float64
	MaxIter int
}

// DefaultOptions returns the production configuration.
func DefaultOptions() Options {
	return Options{
		Output:        "modelo_svm.gob",
		TopModels:     dataset.DefaultTopModels,
		ReferenceYear: 2026,
		Seed:          42,
		Rules:         dataset.DefaultRules(),
		BaselineAlpha: 1,
		Scaler:        "robust",
		C:             10,
		Epsilon:       0.05,
		Gamma:         svm.GammaScale,
		Tol:           1e-3,
		CacheMB:       200,
		MaxIter:       -1,
	}
}

// Validate checks the options before any data is read.
func (o Options) Validate() error {
	switch {
	case o.Input == "":
		return errors.NewValidationError("input", "is required", o.Input)
	case o.Output == "":
		return errors.NewValidationError("output", "is required", o.Output)
	case o.TopModels < 1:
		return errors.NewValidationError("top_models", "must be positive", o.TopModels)
	case o.ReferenceYear <= 0:
		return errors.NewValidationError("reference_year", "must be positive", o.ReferenceYear)
	case o.TestRatio < 0 || o.TestRatio >= 1:
		return errors.NewValidationError("test_ratio", "must be in [0, 1)", o.TestRatio)
	case o.BaselineAlpha < 0:
		return errors.NewValidationError("baseline_alpha", "must be non-negative", o.BaselineAlpha)
	}
	return nil
}

// BuildPipeline assembles the unfitted preprocessing and SVR chain.
func BuildPipeline(o Options) (*pipeline.Pipeline, error) {
	ct, err := compose.New(vehicle.NumericColumns, vehicle.CategoricalColumns, o.Scaler)
	if err != nil {
		return nil, err
	}
	svr := svm.NewSVR(
		svm.WithKernel(svm.KernelRBF),
		svm.WithC(o.C),
		svm.WithEpsilon(o.Epsilon),
		svm.WithGamma(o.Gamma),
		svm.WithTol(o.Tol),
		svm.WithCacheMB(o.CacheMB),
		svm.WithMaxIter(o.MaxIter),
	)
	p := pipeline.New(
		pipeline.Step{Name: "preprocessor", Estimator: ct},
		pipeline.Step{Name: "regressor", Estimator: svr},
	)
	p.Verbose = true
	return p, nil
}

// Design turns samples into the pipeline input and the log1p(price) target.
func Design(samples []dataset.Sample) (*mat.Dense, []vehicle.Record) {
	records := make([]vehicle.Record, len(samples))
	y := mat.NewDense(len(samples), 1, nil)
	for i, s := range samples {
		records[i] = s.Record
		y.Set(i, 0, math.Log1p(s.Price))
	}
	return y, records
}

// Fit fits a fresh pipeline on samples.
func Fit(ctx context.Context, samples []dataset.Sample, o Options) (*pipeline.Pipeline, error) {
	if len(samples) == 0 {
		return nil, errors.NewModelError("trainer.Fit", "no samples left after cleaning", errors.ErrEmptyData)
	}
	p, err := BuildPipeline(o)
	if err != nil {
		return nil, err
	}
	y, records := Design(samples)
	f, err := vehicle.ToFrame(records)
	if err != nil {
		return nil, err
	}
	if err := p.FitContext(ctx, f, y); err != nil {
		return nil, err
	}
	return p, nil
}

// Result is the outcome of Train.
type Result struct {
	Artifact *valuation.Artifact
	// Holdout lists actual and predicted prices when TestRatio > 0.
	Holdout *Holdout
}

// Train runs the whole training job: load, clean, fold models, optionally
// evaluate on a hold-out split, fit on every clean row and write the
// artifact, report and plot.
func Train(ctx context.Context, o Options) (*Result, error) {
	logger := log.GetLoggerWithName("trainer")
	start := time.Now()
	if err := o.Validate(); err != nil {
		return nil, err
	}

	listings, err := dataset.LoadListings(o.Input)
	if err != nil {
		return nil, err
	}
	samples, stats := dataset.Clean(listings, o.Rules, o.ReferenceYear)
	logger.Info("Listings cleaned",
		log.PhaseKey, log.PhasePreprocessing,
		"read", stats.Read,
		"kept", stats.Kept,
	)
	if len(samples) == 0 {
		return nil, errors.NewModelError("trainer.Train", "no samples left after cleaning", errors.ErrEmptyData)
	}

	catalog := dataset.BuildCatalog(samples)
	models := make([]string, len(samples))
	for i, s := range samples {
		models[i] = s.Record.ModeloAgrupado
	}
	vocab := dataset.BuildVocabulary(models, o.TopModels)
	vocab.Apply(samples)

	var holdout *Holdout
	if o.TestRatio > 0 {
		holdout, err = Evaluate(ctx, samples, o)
		if err != nil {
			return nil, err
		}
		logger.Info("Hold-out evaluation",
			"r2", holdout.Metrics.R2,
			"mae", holdout.Metrics.MAE,
			"rmse", holdout.Metrics.RMSE,
			"mape", holdout.Metrics.MAPE,
		)
		if b := holdout.Baseline; b != nil {
			logger.Info("Hold-out ridge baseline",
				"r2", b.R2,
				"mae", b.MAE,
				"rmse", b.RMSE,
			)
		}
	}

	p, err := Fit(ctx, samples, o)
	if err != nil {
		return nil, err
	}

	svr, _ := p.Steps[len(p.Steps)-1].Estimator.(*svm.SVR)
	artifact := &valuation.Artifact{
		Pipeline:      p,
		ReferenceYear: o.ReferenceYear,
		Vocabulary:    vocab,
		Catalog:       catalog,
		Summary: valuation.Summary{
			ID:        uuid.NewString(),
			TrainedAt: time.Now().UTC(),
			Rows:      stats,
			Features:  p.State.NFeatures,
			Params: valuation.Hyperparameters{
				Scaler:    o.Scaler,
				C:         o.C,
				Epsilon:   o.Epsilon,
				Gamma:     o.Gamma,
				Tol:       o.Tol,
				TopModels: o.TopModels,
			},
		},
	}
	if svr != nil {
		artifact.Summary.SupportVectors = svr.NSupport()
		artifact.Summary.Iterations = svr.NIter
		artifact.Summary.Params.GammaValue = svr.GammaValue
	}
	if holdout != nil {
		m := holdout.Metrics
		artifact.Summary.Holdout = &m
		artifact.Summary.Baseline = holdout.Baseline
	}

	if err := artifact.Save(o.Output); err != nil {
		return nil, err
	}
	logger.Info("Artifact written",
		log.OperationKey, log.OperationSave,
		"path", o.Output,
		"id", artifact.Summary.ID,
		log.SamplesKey, stats.Kept,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if o.Report != "" {
		if err := WriteReport(o.Report, artifact.Summary); err != nil {
			return nil, err
		}
	}
	if o.Plot != "" && holdout != nil {
		if err := holdout.Plot(o.Plot); err != nil {
			return nil, err
		}
	}
	return &Result{Artifact: artifact, Holdout: holdout}, nil
}
