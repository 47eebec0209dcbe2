// Package linear_model provides a ridge regressor used as a baseline next to
// the SVR when evaluating a training run.
package linear_model

import (
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

// rows below this are centered on one goroutine
const parallelThreshold = 1000

func init() {
	gob.Register(&Ridge{})
}

// Ridge is least squares with an L2 penalty, like sklearn.linear_model.Ridge.
// The intercept is not penalized. One-hot blocks make X^T X singular, so
// Alpha must be positive.
type Ridge struct {
	State model.StateManager
	Alpha float64

	Coef      []float64
	Intercept float64

	logger log.Logger
}

// NewRidge creates a ridge regressor with the given penalty.
func NewRidge(alpha float64) *Ridge {
	return &Ridge{Alpha: alpha}
}

func (r *Ridge) log() log.Logger {
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("Ridge")
	}
	return r.logger
}

// Fit solves (Xc^T Xc + αI) w = Xc^T yc on centered data with a Cholesky
// factorization, then recovers the intercept from the means.
//
// Errors:
//   - ErrEmptyData: if X is empty
//   - DimensionError: if y does not have one value per row of X
//   - ValidationError: if Alpha is not positive
func (r *Ridge) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Ridge.Fit")
	start := time.Now()

	n, c := X.Dims()
	if n == 0 || c == 0 {
		return errors.NewModelError("Ridge.Fit", "empty data", errors.ErrEmptyData)
	}
	yr, ycols := y.Dims()
	if yr != n {
		return errors.NewDimensionError("Ridge.Fit", n, yr, 0)
	}
	if ycols != 1 {
		return errors.NewDimensionError("Ridge.Fit", 1, ycols, 1)
	}
	if !(r.Alpha > 0) || math.IsInf(r.Alpha, 0) {
		return errors.NewValidationError("alpha", "must be positive", r.Alpha)
	}

	xMean := make([]float64, c)
	var yMean float64
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			xMean[j] += X.At(i, j)
		}
		yMean += y.At(i, 0)
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}
	yMean /= float64(n)

	xc := mat.NewDense(n, c, nil)
	yc := mat.NewVecDense(n, nil)
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				xc.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.SetVec(i, y.At(i, 0)-yMean)
		}
	})

	gram := mat.NewSymDense(c, nil)
	gram.SymOuterK(1, xc.T())
	for j := 0; j < c; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Alpha)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return errors.NewModelError("Ridge.Fit", "penalized gram matrix is not positive definite", nil)
	}

	var xty, w mat.VecDense
	xty.MulVec(xc.T(), yc)
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return errors.Wrap(err, "solve ridge system")
	}

	r.Coef = make([]float64, c)
	r.Intercept = yMean
	for j := 0; j < c; j++ {
		r.Coef[j] = w.AtVec(j)
		r.Intercept -= r.Coef[j] * xMean[j]
	}
	r.State.SetDimensions(c, n)
	r.State.SetFitted()

	r.log().Info("Ridge fitted",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, n,
		log.FeaturesKey, c,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns an n×1 matrix of X·coef + intercept.
func (r *Ridge) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "Ridge.Predict")
	if !r.State.IsFitted() {
		return nil, errors.NewNotFittedError("Ridge", "Predict")
	}
	n, c := X.Dims()
	if c != r.State.NFeatures {
		return nil, errors.NewDimensionError("Ridge.Predict", r.State.NFeatures, c, 1)
	}

	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(c, r.Coef))
	pred := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		pred.Set(i, 0, out.AtVec(i)+r.Intercept)
	}
	return pred, nil
}

// Score returns the R² of the predictions on X against y.
func (r *Ridge) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
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

// GetParams returns the hyperparameters.
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": r.Alpha}
}

func (r *Ridge) String() string {
	return fmt.Sprintf("Ridge(alpha=%g)", r.Alpha)
}
