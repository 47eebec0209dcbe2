package svm

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/pkg/errors"
)

// Kernel names.
const (
	KernelRBF    = "rbf"
	KernelLinear = "linear"
	KernelPoly   = "poly"
)

// Gamma modes. Any other value must parse as a positive float.
const (
	GammaScale = "scale"
	GammaAuto  = "auto"
)

// kernelFunc evaluates the kernel on two rows of equal length.
type kernelFunc func(a, b []float64) float64

func newKernel(name string, gamma, coef0 float64, degree int) (kernelFunc, error) {
	switch name {
	case KernelRBF:
		return func(a, b []float64) float64 {
			var d float64
			for k := range a {
				diff := a[k] - b[k]
				d += diff * diff
			}
			return math.Exp(-gamma * d)
		}, nil
	case KernelLinear:
		return dot, nil
	case KernelPoly:
		return func(a, b []float64) float64 {
			return math.Pow(gamma*dot(a, b)+coef0, float64(degree))
		}, nil
	default:
		return nil, errors.NewValidationError("kernel", "expected rbf, linear or poly", name)
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for k := range a {
		s += a[k] * b[k]
	}
	return s
}

// resolveGamma turns the gamma setting into a number for X.
// scale is 1 / (n_features * X.var()) over every element of X; auto is
// 1 / n_features.
func resolveGamma(setting string, X mat.Matrix) (float64, error) {
	r, c := X.Dims()
	switch setting {
	case GammaScale, "":
		n := float64(r * c)
		var sum, sumSq float64
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				v := X.At(i, j)
				sum += v
				sumSq += v * v
			}
		}
		mean := sum / n
		variance := sumSq/n - mean*mean
		if variance <= 0 {
			return 1.0, nil
		}
		return 1.0 / (float64(c) * variance), nil
	case GammaAuto:
		return 1.0 / float64(c), nil
	default:
		g, err := strconv.ParseFloat(setting, 64)
		if err != nil || g <= 0 || math.IsNaN(g) || math.IsInf(g, 0) {
			return 0, errors.NewValidationError("gamma", "expected scale, auto or a positive number", setting)
		}
		return g, nil
	}
}

// rows copies X into row slices.
func rows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	out := make([][]float64, r)
	for i := range out {
		row := make([]float64, c)
		for j := range row {
			row[j] = X.At(i, j)
		}
		out[i] = row
	}
	return out
}
