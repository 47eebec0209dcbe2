// Package pipeline chains a frame preprocessor, optional matrix transformers
// and a final regressor, like sklearn.pipeline.Pipeline.
//
// A fitted Pipeline is a plain value: every step keeps its learned state in
// exported fields, so the whole chain round-trips through model.SaveModel and
// model.LoadModel.
package pipeline

import (
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/core/frame"
	"github.com/ezoic/tasador/core/model"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/pkg/log"
)

func init() {
	gob.Register(&Pipeline{})
}

// Step represents a single step in the pipeline.
// Each step is a tuple of (name, transformer/estimator).
type Step struct {
	Name      string      // Name of this step (for identification)
	Estimator interface{} // FrameTransformer, Transformer or Regressor
}

// Pipeline chains transforms and a final regressor.
//
// The first step receives the raw frame. If it is a model.FrameTransformer it
// produces the design matrix; otherwise the frame must be all numeric and is
// converted column by column. Intermediate steps must be model.Transformer
// and the last step must be a model.Regressor.
type Pipeline struct {
	State model.StateManager
	Steps []Step

	// Verbose logs the time spent fitting each step.
	Verbose bool

	logger log.Logger
}

// New creates a new Pipeline with the given steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{Steps: steps}
}

// Make names the steps step1, step2, ... like sklearn.pipeline.make_pipeline.
func Make(estimators ...interface{}) *Pipeline {
	steps := make([]Step, len(estimators))
	for i, estimator := range estimators {
		steps[i] = Step{Name: fmt.Sprintf("step%d", i+1), Estimator: estimator}
	}
	return New(steps...)
}

func (p *Pipeline) log() log.Logger {
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("Pipeline")
	}
	return p.logger
}

// SetLogger replaces the pipeline logger.
func (p *Pipeline) SetLogger(logger log.Logger) {
	p.logger = logger
}

// Fit fits every transformer in order on the output of the previous one,
// then fits the final regressor on the transformed data and y.
func (p *Pipeline) Fit(X *frame.Frame, y mat.Matrix) error {
	return p.FitContext(context.Background(), X, y)
}

// FitContext is Fit with ctx passed to a final regressor that supports
// cancellation.
func (p *Pipeline) FitContext(ctx context.Context, X *frame.Frame, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Pipeline.Fit")
	if len(p.Steps) == 0 {
		return errors.NewValidationError("steps", "pipeline has no steps", 0)
	}
	if X == nil || X.Rows() == 0 {
		return errors.NewModelError("Pipeline.Fit", "empty frame", errors.ErrEmptyData)
	}

	Xt, err := p.run(X, true)
	if err != nil {
		return err
	}

	final := p.Steps[len(p.Steps)-1]
	regressor, ok := final.Estimator.(model.Regressor)
	if !ok {
		return errors.NewValidationError(
			"pipeline final step",
			"final step must be a regressor",
			final.Name,
		)
	}
	start := time.Now()
	if fc, ok := regressor.(interface {
		FitContext(context.Context, mat.Matrix, mat.Matrix) error
	}); ok {
		err = fc.FitContext(ctx, Xt, y)
	} else {
		err = regressor.Fit(Xt, y)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to fit final step '%s'", final.Name)
	}
	p.logStep(final.Name, start)

	_, c := Xt.Dims()
	p.State.SetDimensions(c, X.Rows())
	p.State.SetFitted()
	return nil
}

// Predict transforms X through every step and predicts with the final
// regressor. The result is n×1.
func (p *Pipeline) Predict(X *frame.Frame) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "Pipeline.Predict")
	if !p.State.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}

	Xt, err := p.run(X, false)
	if err != nil {
		return nil, err
	}
	final := p.Steps[len(p.Steps)-1]
	regressor, ok := final.Estimator.(model.Regressor)
	if !ok {
		return nil, errors.NewValidationError(
			"pipeline final step",
			"final step must be a regressor",
			final.Name,
		)
	}
	return regressor.Predict(Xt)
}

// Transform applies every step except the final regressor.
func (p *Pipeline) Transform(X *frame.Frame) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "Pipeline.Transform")
	if !p.State.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Transform")
	}
	return p.run(X, false)
}

// Score returns the score of the final estimator on the transformed X.
func (p *Pipeline) Score(X *frame.Frame, y mat.Matrix) (float64, error) {
	Xt, err := p.Transform(X)
	if err != nil {
		return 0, err
	}
	final := p.Steps[len(p.Steps)-1]
	if scorer, ok := final.Estimator.(interface {
		Score(mat.Matrix, mat.Matrix) (float64, error)
	}); ok {
		return scorer.Score(Xt, y)
	}
	return 0, errors.NewValidationError(
		"pipeline final step",
		"final step must have Score method",
		final.Name,
	)
}

// run pushes X through all steps but the last, fitting them first when fit
// is true.
func (p *Pipeline) run(X *frame.Frame, fit bool) (mat.Matrix, error) {
	if len(p.Steps) == 0 {
		return nil, errors.NewValidationError("steps", "pipeline has no steps", 0)
	}
	if X == nil || X.Rows() == 0 {
		return nil, errors.NewModelError("Pipeline", "empty frame", errors.ErrEmptyData)
	}

	var Xt mat.Matrix
	first := 0
	if ft, ok := p.Steps[0].Estimator.(model.FrameTransformer); ok && len(p.Steps) > 1 {
		start := time.Now()
		if fit {
			if err := ft.Fit(X); err != nil {
				return nil, errors.Wrapf(err, "failed to fit step '%s'", p.Steps[0].Name)
			}
		}
		out, err := ft.Transform(X)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", p.Steps[0].Name)
		}
		if fit {
			p.logStep(p.Steps[0].Name, start)
		}
		Xt = out
		first = 1
	} else {
		dense, err := X.Dense(X.Names()...)
		if err != nil {
			return nil, errors.Wrap(err, "pipeline input must be numeric without a frame transformer")
		}
		Xt = dense
	}

	for i := first; i < len(p.Steps)-1; i++ {
		step := p.Steps[i]
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return nil, errors.NewValidationError(
				"pipeline step",
				"intermediate steps must be transformers",
				step.Name,
			)
		}
		start := time.Now()
		if fit {
			if err := transformer.Fit(Xt); err != nil {
				return nil, errors.Wrapf(err, "failed to fit step '%s'", step.Name)
			}
		}
		out, err := transformer.Transform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
		if fit {
			p.logStep(step.Name, start)
		}
		Xt = out
	}
	return Xt, nil
}

func (p *Pipeline) logStep(name string, start time.Time) {
	if !p.Verbose {
		return
	}
	p.log().Info("Pipeline step fitted",
		"step", name,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
}

// GetParams returns the parameters of every step, prefixed with the step
// name as in scikit-learn ("svr__C").
func (p *Pipeline) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"verbose": p.Verbose,
	}
	names := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		names[i] = step.Name
		if getter, ok := step.Estimator.(interface {
			GetParams() map[string]interface{}
		}); ok {
			for key, value := range getter.GetParams() {
				params[fmt.Sprintf("%s__%s", step.Name, key)] = value
			}
		}
	}
	params["steps"] = names
	return params
}

// NamedStep returns the estimator of the named step.
func (p *Pipeline) NamedStep(name string) (interface{}, bool) {
	for _, step := range p.Steps {
		if step.Name == name {
			return step.Estimator, true
		}
	}
	return nil, false
}
