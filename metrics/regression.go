// Package metrics provides regression metrics used to evaluate price models.
//
// Regression Metrics:
//   - MSE and RMSE: squared error, RMSE in the units of the target
//   - MAE: mean absolute error
//   - R2Score: coefficient of determination
//   - MAPE: mean absolute percentage error
//
// Evaluate bundles all of them into a Regression summary, which is what the
// trainer writes into its hold-out report.
//
// Example usage:
//
//	summary, err := metrics.Evaluate(yTrue, yPred)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("R²=%.3f MAE=%.0f €\n", summary.R2, summary.MAE)
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/pkg/errors"
)

// Regression summarizes prediction quality on a labelled sample.
type Regression struct {
	N    int     `json:"n"`
	R2   float64 `json:"r2"`
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	MAPE float64 `json:"mape"`
}

// Evaluate computes every regression metric for yTrue against yPred.
// When yTrue has no variance R2 is 1 for perfect predictions and 0
// otherwise, as scikit-learn's force_finite does.
func Evaluate(yTrue, yPred *mat.VecDense) (Regression, error) {
	n, err := checkLengths("Evaluate", yTrue, yPred)
	if err != nil {
		return Regression{}, err
	}

	out := Regression{N: n}
	if out.MAE, err = MAE(yTrue, yPred); err != nil {
		return Regression{}, err
	}
	if out.RMSE, err = RMSE(yTrue, yPred); err != nil {
		return Regression{}, err
	}
	if out.MAPE, err = MAPE(yTrue, yPred); err != nil && !errors.Is(err, errZeroTargets) {
		return Regression{}, err
	}
	if r2, err := R2Score(yTrue, yPred); err == nil {
		out.R2 = r2
	} else if out.RMSE == 0 {
		out.R2 = 1
	}
	return out, nil
}

// MSE calculates the Mean Squared Error between true and predicted values.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values as a vector
//
// Errors:
//   - ValueError: if input vectors are empty
//   - DimensionError: if yTrue and yPred have different lengths
//
// Example:
//
//	mse, err := metrics.MSE(yTrue, yPred)
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkLengths("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE is the square root of MSE, in the units of the target.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE calculates the Mean Absolute Error between true and predicted values.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkLengths("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score calculates the coefficient of determination.
//
// 1 means perfect predictions, 0 means no better than predicting the mean,
// and negative values are worse than the mean.
//
// Errors:
//   - ValueError: if all yTrue values are identical
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkLengths("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

var errZeroTargets = errors.New("all yTrue values are zero")

// MAPE calculates the Mean Absolute Percentage Error, as a percentage.
// Rows whose true value is zero are skipped.
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkLengths("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	valid := 0
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		if t == 0 {
			continue
		}
		sum += math.Abs(t-yPred.AtVec(i)) / math.Abs(t)
		valid++
	}
	if valid == 0 {
		return 0, errors.Wrap(errZeroTargets, "MAPE")
	}
	return sum / float64(valid) * 100, nil
}

// ColumnVector copies the first column of m into a vector, so that n×1
// prediction matrices can be passed to the metrics above.
func ColumnVector(m mat.Matrix) (*mat.VecDense, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError("ColumnVector", "empty matrix")
	}
	if c != 1 {
		return nil, errors.NewValueError("ColumnVector", "must be a column vector (n×1 matrix)")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}

func checkLengths(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != yTrue.Len() {
		return 0, errors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return yTrue.Len(), nil
}
