package linear_model_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/core/model"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/sklearn/linear_model"
)

func plane() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 2, []float64{
		0, 1,
		1, 0,
		2, 3,
		3, 1,
		4, 4,
		5, 2,
	})
	y := mat.NewDense(6, 1, nil)
	for i := 0; i < 6; i++ {
		y.Set(i, 0, 3+2*X.At(i, 0)-X.At(i, 1))
	}
	return X, y
}

func TestRidge_RecoversPlane(t *testing.T) {
	X, y := plane()
	r := linear_model.NewRidge(1e-9)
	require.NoError(t, r.Fit(X, y))

	assert.InDelta(t, 2, r.Coef[0], 1e-6)
	assert.InDelta(t, -1, r.Coef[1], 1e-6)
	assert.InDelta(t, 3, r.Intercept, 1e-6)

	score, err := r.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1, score, 1e-9)
}

func TestRidge_ShrinksSingleFeature(t *testing.T) {
	// centered x = [-1 0 1], centered y = [-2 0 2]: w = Sxy / (Sxx + α) = 4 / 4
	X := mat.NewDense(3, 1, []float64{0, 1, 2})
	y := mat.NewDense(3, 1, []float64{1, 3, 5})
	r := linear_model.NewRidge(2)
	require.NoError(t, r.Fit(X, y))

	assert.InDelta(t, 1, r.Coef[0], 1e-12)
	assert.InDelta(t, 2, r.Intercept, 1e-12)
}

func TestRidge_CollinearColumns(t *testing.T) {
	// two complementary one-hot columns
	X := mat.NewDense(4, 2, []float64{1, 0, 0, 1, 1, 0, 0, 1})
	y := mat.NewDense(4, 1, []float64{10, 20, 10, 20})
	r := linear_model.NewRidge(1)
	require.NoError(t, r.Fit(X, y))

	pred, err := r.Predict(X)
	require.NoError(t, err)
	assert.Less(t, pred.At(0, 0), pred.At(1, 0))
}

func TestRidge_Errors(t *testing.T) {
	X, y := plane()

	_, err := linear_model.NewRidge(1).Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = linear_model.NewRidge(0).Fit(X, y)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	err = linear_model.NewRidge(1).Fit(X, mat.NewDense(5, 1, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	r := linear_model.NewRidge(1)
	require.NoError(t, r.Fit(X, y))
	_, err = r.Predict(mat.NewDense(1, 3, nil))
	assert.True(t, errors.As(err, &de))
}

func TestRidge_GobRoundTrip(t *testing.T) {
	X, y := plane()
	r := linear_model.NewRidge(0.5)
	require.NoError(t, r.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(r, &buf))
	var loaded linear_model.Ridge
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))

	want, err := r.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}
