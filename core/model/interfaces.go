package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/core/frame"
)

// Fitter is anything that learns from a feature matrix alone.
type Fitter interface {
	Fit(X mat.Matrix) error
}

// Transformer learns from X and maps matrices to matrices.
type Transformer interface {
	Fitter
	Transform(X mat.Matrix) (mat.Matrix, error)
}

// FrameTransformer turns a mixed-type frame into a numeric design matrix.
// It is the first step of a pipeline fed with raw feature records.
type FrameTransformer interface {
	Fit(X *frame.Frame) error
	Transform(X *frame.Frame) (mat.Matrix, error)
}

// Regressor learns a mapping from X to a single continuous target column.
type Regressor interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
}
