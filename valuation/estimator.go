package valuation

import (
	"fmt"
	"math"
	"time"

	"github.com/ezoic/tasador/dataset"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/pkg/log"
	"github.com/ezoic/tasador/vehicle"
)

// DefaultErrorMargin is the ± band shown around an estimate, in euros.
const DefaultErrorMargin = 1270.0

// Input is what the user enters in the form.
type Input struct {
	Brand      string  `json:"brand" form:"brand" validate:"required"`
	Model      string  `json:"model" form:"model"`
	Engine     string  `json:"engine" form:"engine" validate:"required,engine"`
	Year       int     `json:"year" form:"year" validate:"gte=1990"`
	Kilometros float64 `json:"kilometros" form:"kilometros" validate:"gte=0,lte=500000"`
	ExtCV      float64 `json:"ext_cv" form:"ext_cv" validate:"gte=50,lte=800"`
}

// Result is a price estimate with its error band.
type Result struct {
	Price  float64        `json:"price"`
	Low    float64        `json:"low"`
	High   float64        `json:"high"`
	Record vehicle.Record `json:"record"`
}

// PredictionError is returned when the pipeline fails on a record. It
// carries the record so the caller can show what was sent to the model.
type PredictionError struct {
	Record vehicle.Record
	Err    error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithErrorMargin sets the ± band in euros.
func WithErrorMargin(margin float64) Option {
	return func(e *Estimator) {
		e.margin = margin
	}
}

// WithCatalog replaces the menu catalog stored in the artifact.
func WithCatalog(c *dataset.Catalog) Option {
	return func(e *Estimator) {
		e.catalog = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(e *Estimator) {
		e.logger = logger
	}
}

// Estimator prices vehicles with a loaded artifact. It is safe for
// concurrent use; the artifact is only read.
type Estimator struct {
	artifact *Artifact
	catalog  *dataset.Catalog
	margin   float64
	logger   log.Logger
}

// NewEstimator wraps an artifact. A nil artifact gives an estimator whose
// Estimate always fails with ErrModelUnavailable, so a server can still
// start and report the problem.
func NewEstimator(a *Artifact, options ...Option) *Estimator {
	e := &Estimator{
		artifact: a,
		margin:   DefaultErrorMargin,
		logger:   log.GetLoggerWithName("valuation"),
	}
	if a != nil {
		e.catalog = a.Catalog
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Available reports whether an artifact is loaded.
func (e *Estimator) Available() bool {
	return e.artifact != nil
}

// Artifact returns the loaded artifact, or nil.
func (e *Estimator) Artifact() *Artifact {
	return e.artifact
}

// ErrorMargin returns the ± band in euros.
func (e *Estimator) ErrorMargin() float64 {
	return e.margin
}

// Brands returns the brand menu.
func (e *Estimator) Brands() []string {
	return e.catalog.Brands()
}

// Models returns the model menu of brand.
func (e *Estimator) Models(brand string) []string {
	return e.catalog.ModelsFor(brand)
}

// MaxYear is the latest registration year the artifact can price: its
// reference year, or 0 without an artifact.
func (e *Estimator) MaxYear() int {
	if e.artifact == nil {
		return 0
	}
	return e.artifact.ReferenceYear
}

// Record builds the model input for in, the same way the trainer does.
// Models outside the training vocabulary fold to vehicle.OtherModel, and an
// empty model name becomes vehicle.OtherModel too.
//
// Errors:
//   - ErrModelUnavailable: no artifact is loaded
//   - ValidationError: the year is after the artifact's reference year
func (e *Estimator) Record(in Input) (vehicle.Record, error) {
	if e.artifact == nil {
		return vehicle.Record{}, ErrModelUnavailable
	}
	if in.Year > e.artifact.ReferenceYear {
		return vehicle.Record{}, errors.NewValidationError("year",
			fmt.Sprintf("lte=%d", e.artifact.ReferenceYear), in.Year)
	}
	r := vehicle.NewRecord(in.Brand, in.Model, in.Engine, in.Year, in.Kilometros, in.ExtCV, e.artifact.ReferenceYear)
	r.ModeloAgrupado = e.artifact.Vocabulary.Fold(r.ModeloAgrupado)
	return r, nil
}

// Estimate predicts the price for in. The pipeline predicts log1p(price),
// so the result is expm1 of its output with the error margin on both sides.
//
// Errors:
//   - ErrModelUnavailable: no artifact is loaded
//   - *PredictionError: the pipeline failed or produced a non-finite value
func (e *Estimator) Estimate(in Input) (*Result, error) {
	record, err := e.Record(in)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	raw, err := e.predict(record)
	if err != nil {
		e.logger.Warn("Estimate failed",
			log.OperationKey, log.OperationPredict,
			"record", record.Fields(),
			"error", err,
		)
		return nil, &PredictionError{Record: record, Err: err}
	}

	price := math.Expm1(raw)
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, &PredictionError{Record: record, Err: errors.NewValueError("Estimate",
			fmt.Sprintf("non-finite price from raw prediction %g", raw))}
	}

	e.logger.Debug("Estimate computed",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		"price", price,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &Result{
		Price:  price,
		Low:    price - e.margin,
		High:   price + e.margin,
		Record: record,
	}, nil
}

// predict runs the pipeline on one record, turning panics into errors.
func (e *Estimator) predict(record vehicle.Record) (_ float64, err error) {
	defer errors.Recover(&err, "Estimator.predict")
	f, err := vehicle.ToFrame([]vehicle.Record{record})
	if err != nil {
		return 0, err
	}
	pred, err := e.artifact.Pipeline.Predict(f)
	if err != nil {
		return 0, err
	}
	return pred.At(0, 0), nil
}
