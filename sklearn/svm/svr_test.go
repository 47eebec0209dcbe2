package svm_test

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/core/model"
	"github.com/ezoic/tasador/sklearn/svm"
)

// sine samples y = sin(x) on [0, 2π].
func sine(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := 2 * math.Pi * float64(i) / float64(n-1)
		X.Set(i, 0, x)
		y.Set(i, 0, math.Sin(x))
	}
	return X, y
}

func TestSVR_FitsSmoothFunction(t *testing.T) {
	X, y := sine(60)
	svr := svm.NewSVR(svm.WithC(10), svm.WithEpsilon(0.05))
	require.NoError(t, svr.Fit(X, y))

	assert.True(t, svr.Converged)
	assert.Greater(t, svr.NSupport(), 0)
	assert.LessOrEqual(t, svr.NSupport(), 60)

	score, err := svr.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.95)

	// the epsilon tube bounds training residuals of free support vectors
	pred, err := svr.Predict(X)
	require.NoError(t, err)
	maxResidual := 0.0
	for i := 0; i < 60; i++ {
		maxResidual = math.Max(maxResidual, math.Abs(pred.At(i, 0)-y.At(i, 0)))
	}
	assert.Less(t, maxResidual, 0.25)
}

func TestSVR_DualCoefBoxConstraint(t *testing.T) {
	X, y := sine(30)
	svr := svm.NewSVR(svm.WithC(0.5), svm.WithEpsilon(0.01))
	require.NoError(t, svr.Fit(X, y))

	sum := 0.0
	for _, c := range svr.DualCoef {
		assert.LessOrEqual(t, math.Abs(c), 0.5+1e-12)
		sum += c
	}
	// equality constraint of the dual
	assert.InDelta(t, 0, sum, 1e-6)
}

func TestSVR_LinearKernel(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4})
	y := mat.NewDense(5, 1, []float64{1, 3, 5, 7, 9})
	svr := svm.NewSVR(svm.WithKernel(svm.KernelLinear), svm.WithC(100), svm.WithEpsilon(0.01))
	require.NoError(t, svr.Fit(X, y))

	pred, err := svr.Predict(mat.NewDense(1, 1, []float64{2.5}))
	require.NoError(t, err)
	assert.InDelta(t, 6.0, pred.At(0, 0), 0.05)
}

func TestSVR_EpsilonTubeCoversConstantTarget(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{2, 2, 2, 2})
	svr := svm.NewSVR()
	require.NoError(t, svr.Fit(X, y))

	assert.Equal(t, 0, svr.NSupport())
	pred, err := svr.Predict(mat.NewDense(1, 1, []float64{10}))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pred.At(0, 0), 0.1)
}

func TestSVR_Errors(t *testing.T) {
	svr := svm.NewSVR()

	_, err := svr.Predict(mat.NewDense(1, 1, []float64{1}))
	assert.Error(t, err, "not fitted")

	X, y := sine(10)
	assert.Error(t, svr.Fit(X, mat.NewDense(9, 1, nil)), "row mismatch")
	assert.Error(t, svr.Fit(&mat.Dense{}, y), "empty")

	for _, opt := range []svm.Option{
		svm.WithC(0),
		svm.WithEpsilon(-1),
		svm.WithTol(0),
		svm.WithMaxIter(0),
		svm.WithKernel("sigmoid"),
		svm.WithGamma("tiny"),
		svm.WithGamma("-2"),
	} {
		assert.Error(t, svm.NewSVR(opt).Fit(X, y))
	}

	require.NoError(t, svr.Fit(X, y))
	_, err = svr.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.Error(t, err, "feature mismatch")
}

func TestSVR_MaxIterStopsEarly(t *testing.T) {
	X, y := sine(40)
	svr := svm.NewSVR(svm.WithC(10), svm.WithMaxIter(3))
	require.NoError(t, svr.Fit(X, y))
	assert.Equal(t, 3, svr.NIter)
	assert.False(t, svr.Converged)
}

func TestSVR_FitContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	X, y := sine(20)
	assert.ErrorIs(t, svm.NewSVR().FitContext(ctx, X, y), context.Canceled)
}

func TestSVR_GammaSettings(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 0, 2, 2})
	y := mat.NewDense(2, 1, []float64{0, 1})

	// X.var() over all elements is 1, two features
	svr := svm.NewSVR()
	require.NoError(t, svr.Fit(X, y))
	assert.InDelta(t, 0.5, svr.GammaValue, 1e-12)

	svr = svm.NewSVR(svm.WithGamma(svm.GammaAuto))
	require.NoError(t, svr.Fit(X, y))
	assert.InDelta(t, 0.5, svr.GammaValue, 1e-12)

	svr = svm.NewSVR(svm.WithGamma("0.25"))
	require.NoError(t, svr.Fit(X, y))
	assert.InDelta(t, 0.25, svr.GammaValue, 1e-12)
}

func TestSVR_GobRoundTrip(t *testing.T) {
	X, y := sine(25)
	svr := svm.NewSVR(svm.WithC(10), svm.WithEpsilon(0.05))
	require.NoError(t, svr.Fit(X, y))
	want, err := svr.Predict(X)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(svr, &buf))
	var loaded svm.SVR
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))

	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}
