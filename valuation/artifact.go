// Package valuation loads the trained artifact and turns form input into a
// price estimate.
package valuation

import (
	"time"

	"github.com/ezoic/tasador/core/model"
	"github.com/ezoic/tasador/dataset"
	"github.com/ezoic/tasador/metrics"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/sklearn/pipeline"
)

// ErrModelUnavailable is matched by every error that leaves the estimator
// without a usable artifact.
var ErrModelUnavailable = errors.New("price model unavailable")

// Hyperparameters records how the pipeline was configured.
type Hyperparameters struct {
	Scaler     string  `json:"scaler"`
	C          float64 `json:"C"`
	Epsilon    float64 `json:"epsilon"`
	Gamma      string  `json:"gamma"`
	GammaValue float64 `json:"gamma_value"`
	Tol        float64 `json:"tol"`
	TopModels  int     `json:"top_models"`
}

// Summary describes a training run.
type Summary struct {
	ID             string              `json:"id"`
	TrainedAt      time.Time           `json:"trained_at"`
	Rows           dataset.CleanStats  `json:"rows"`
	Features       int                 `json:"features"`
	SupportVectors int                 `json:"support_vectors"`
	Iterations     int                 `json:"iterations"`
	Params         Hyperparameters     `json:"params"`
	Holdout        *metrics.Regression `json:"holdout,omitempty"`
	Baseline       *metrics.Regression `json:"baseline,omitempty"`
}

// Artifact is everything the estimator needs, written as one gob file.
// It is never modified after training.
type Artifact struct {
	Pipeline      *pipeline.Pipeline
	ReferenceYear int
	Vocabulary    *dataset.Vocabulary
	Catalog       *dataset.Catalog
	Summary       Summary
}

// Save writes the artifact atomically to path.
func (a *Artifact) Save(path string) error {
	if err := a.validate(); err != nil {
		return err
	}
	return model.SaveModel(a, path)
}

func (a *Artifact) validate() error {
	switch {
	case a.Pipeline == nil:
		return errors.NewValueError("Artifact", "pipeline is missing")
	case !a.Pipeline.State.IsFitted():
		return errors.NewNotFittedError("Pipeline", "Save")
	case a.ReferenceYear <= 0:
		return errors.NewValidationError("reference_year", "must be positive", a.ReferenceYear)
	}
	return nil
}

// Load reads an artifact. Any failure, including a missing or corrupt file,
// matches ErrModelUnavailable.
func Load(path string) (*Artifact, error) {
	var a Artifact
	if err := model.LoadModel(&a, path); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "load artifact"), ErrModelUnavailable)
	}
	if err := a.validate(); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "artifact %s", path), ErrModelUnavailable)
	}
	return &a, nil
}
