// Package svm implements epsilon-support vector regression compatible with
// scikit-learn's sklearn.svm.SVR.
package svm

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/core/model"
	"github.com/ezoic/tasador/core/parallel"
	"github.com/ezoic/tasador/metrics"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/pkg/log"
)

// prediction rows below this are evaluated on one goroutine
const parallelPredictThreshold = 64

func init() {
	gob.Register(&SVR{})
}

// SVR is an epsilon-support vector regressor.
//
// Hyperparameters and learned state are exported so a fitted SVR can be
// written with model.SaveModel and restored with model.LoadModel.
type SVR struct {
	State model.StateManager

	// Hyperparameters
	Kernel  string  // rbf, linear or poly
	C       float64 // penalty on errors outside the epsilon tube
	Epsilon float64 // half-width of the insensitive tube
	Gamma   string  // scale, auto or a positive number
	Degree  int     // poly kernel only
	Coef0   float64 // poly kernel only
	Tol     float64 // stopping tolerance on the KKT gap
	CacheMB float64 // kernel row cache budget in MB
	MaxIter int     // -1 picks max(10_000_000, 100*n_samples)

	// Learned parameters
	GammaValue     float64
	SupportVectors [][]float64
	DualCoef       []float64
	Intercept      float64
	NIter          int
	Converged      bool

	logger log.Logger
}

// Option configures an SVR.
type Option func(*SVR)

// NewSVR creates an SVR with scikit-learn's defaults: rbf kernel, C=1,
// epsilon=0.1, gamma=scale, tol=1e-3.
//
// Example:
//
//	svr := svm.NewSVR(svm.WithC(10), svm.WithEpsilon(0.05))
//	if err := svr.Fit(X, y); err != nil {
//	    return err
//	}
func NewSVR(options ...Option) *SVR {
	s := &SVR{
		Kernel:  KernelRBF,
		C:       1.0,
		Epsilon: 0.1,
		Gamma:   GammaScale,
		Degree:  3,
		Tol:     1e-3,
		CacheMB: 200,
		MaxIter: -1,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// WithKernel sets the kernel.
func WithKernel(kernel string) Option {
	return func(s *SVR) {
		s.Kernel = kernel
	}
}

// WithC sets the regularization parameter.
func WithC(c float64) Option {
	return func(s *SVR) {
		s.C = c
	}
}

// WithEpsilon sets the width of the insensitive tube.
func WithEpsilon(epsilon float64) Option {
	return func(s *SVR) {
		s.Epsilon = epsilon
	}
}

// WithGamma sets the kernel coefficient: scale, auto or a number.
func WithGamma(gamma string) Option {
	return func(s *SVR) {
		s.Gamma = gamma
	}
}

// WithDegree sets the poly kernel degree.
func WithDegree(degree int) Option {
	return func(s *SVR) {
		s.Degree = degree
	}
}

// WithTol sets the stopping tolerance.
func WithTol(tol float64) Option {
	return func(s *SVR) {
		s.Tol = tol
	}
}

// WithCacheMB sets the kernel cache size.
func WithCacheMB(mb float64) Option {
	return func(s *SVR) {
		s.CacheMB = mb
	}
}

// WithMaxIter caps solver iterations. -1 means the solver's own limit.
func WithMaxIter(maxIter int) Option {
	return func(s *SVR) {
		s.MaxIter = maxIter
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *SVR) {
		s.logger = logger
	}
}

func (s *SVR) log() log.Logger {
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("SVR")
	}
	return s.logger
}

// Fit trains the model. y must be an n×1 column.
func (s *SVR) Fit(X, y mat.Matrix) error {
	return s.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation between solver iterations.
//
// Errors:
//   - ErrEmptyData: if X is empty
//   - DimensionError: if y does not have one value per row of X
//   - ValidationError: for an invalid hyperparameter
func (s *SVR) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SVR.Fit")
	start := time.Now()

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SVR.Fit", "empty data", errors.ErrEmptyData)
	}
	yr, yc := y.Dims()
	if yr != r {
		return errors.NewDimensionError("SVR.Fit", r, yr, 0)
	}
	if yc != 1 {
		return errors.NewDimensionError("SVR.Fit", 1, yc, 1)
	}
	if err := s.validate(); err != nil {
		return err
	}

	gamma, err := resolveGamma(s.Gamma, X)
	if err != nil {
		return err
	}
	kernel, err := newKernel(s.Kernel, gamma, s.Coef0, s.Degree)
	if err != nil {
		return err
	}

	x := rows(X)
	z := make([]float64, r)
	for i := range z {
		z[i] = y.At(i, 0)
	}

	cache, err := newKernelCache(x, kernel, s.CacheMB)
	if err != nil {
		return err
	}
	maxIter := s.MaxIter
	if maxIter < 0 {
		maxIter = 10_000_000
		if 100*r > maxIter {
			maxIter = 100 * r
		}
	}

	s.log().Debug("Fitting SVR",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"gamma", gamma,
	)

	res, err := newSMO(cache, z, s.C, s.Epsilon, s.Tol).solve(ctx, maxIter)
	if err != nil {
		return err
	}
	if !res.converged {
		s.log().Warn("SVR solver reached max_iter before converging",
			"max_iter", maxIter,
		)
	}

	s.SupportVectors = s.SupportVectors[:0]
	s.DualCoef = s.DualCoef[:0]
	for i, coef := range res.coef {
		if coef != 0 {
			s.SupportVectors = append(s.SupportVectors, x[i])
			s.DualCoef = append(s.DualCoef, coef)
		}
	}
	s.GammaValue = gamma
	s.Intercept = -res.rho
	s.NIter = res.iterations
	s.Converged = res.converged
	s.State.SetDimensions(c, r)
	s.State.SetFitted()

	s.log().Info("SVR fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		"support_vectors", len(s.DualCoef),
		"iterations", res.iterations,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *SVR) validate() error {
	if !(s.C > 0) {
		return errors.NewValidationError("C", "must be positive", s.C)
	}
	if s.Epsilon < 0 || math.IsNaN(s.Epsilon) {
		return errors.NewValidationError("epsilon", "must be non-negative", s.Epsilon)
	}
	if !(s.Tol > 0) {
		return errors.NewValidationError("tol", "must be positive", s.Tol)
	}
	if s.MaxIter == 0 {
		return errors.NewValidationError("max_iter", "must be -1 or positive", s.MaxIter)
	}
	if s.Kernel == KernelPoly && s.Degree < 1 {
		return errors.NewValidationError("degree", "must be at least 1", s.Degree)
	}
	return nil
}

// Predict returns an n×1 matrix of f(x) = Σ dual_coef·K(sv, x) + intercept.
func (s *SVR) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "SVR.Predict")
	if !s.State.IsFitted() {
		return nil, errors.NewNotFittedError("SVR", "Predict")
	}
	r, c := X.Dims()
	if c != s.State.NFeatures {
		return nil, errors.NewDimensionError("SVR.Predict", s.State.NFeatures, c, 1)
	}
	kernel, err := newKernel(s.Kernel, s.GammaValue, s.Coef0, s.Degree)
	if err != nil {
		return nil, err
	}

	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, parallelPredictThreshold, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			f := s.Intercept
			for k, sv := range s.SupportVectors {
				f += s.DualCoef[k] * kernel(sv, row)
			}
			out[i] = f
		}
	})
	return mat.NewDense(r, 1, out), nil
}

// Score returns the R² of the predictions on X against y.
func (s *SVR) Score(X, y mat.Matrix) (float64, error) {
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := metrics.ColumnVector(y)
	if err != nil {
		return 0, err
	}
	yPred, err := metrics.ColumnVector(pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yPred)
}

// NSupport returns the number of support vectors.
func (s *SVR) NSupport() int {
	return len(s.DualCoef)
}

// GetParams returns the hyperparameters.
func (s *SVR) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel":     s.Kernel,
		"C":          s.C,
		"epsilon":    s.Epsilon,
		"gamma":      s.Gamma,
		"degree":     s.Degree,
		"coef0":      s.Coef0,
		"tol":        s.Tol,
		"cache_size": s.CacheMB,
		"max_iter":   s.MaxIter,
	}
}

func (s *SVR) String() string {
	if !s.State.IsFitted() {
		return fmt.Sprintf("SVR(kernel=%s, C=%g, epsilon=%g, gamma=%s)", s.Kernel, s.C, s.Epsilon, s.Gamma)
	}
	return fmt.Sprintf("SVR(kernel=%s, C=%g, epsilon=%g, gamma=%g, n_support=%d)",
		s.Kernel, s.C, s.Epsilon, s.GammaValue, s.NSupport())
}
