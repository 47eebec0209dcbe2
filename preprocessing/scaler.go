// Package preprocessing provides the feature transformers used ahead of the
// regressor.
//
// It implements scikit-learn style components:
//
//   - SimpleImputer / CategoricalImputer: fill missing numeric (NaN) and
//     categorical ("") values
//   - RobustScaler: center on the median and scale by the interquartile range
//   - StandardScaler / MinMaxScaler: mean/variance and range scaling
//   - OneHotEncoder: categorical strings to indicator columns, with a
//     configurable policy for categories never seen during Fit
//
// All components follow the Fit / Transform / FitTransform pattern, embed
// model.BaseEstimator and keep their learned state in exported fields so a
// fitted pipeline can be gob-encoded as a whole.
//
// Example usage:
//
//	scaler := preprocessing.NewRobustScaler()
//	scaled, err := scaler.FitTransform(X)
//	if err != nil {
//		return err
//	}
package preprocessing

import (
	"encoding/gob"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/core/model"
	tasadorErrors "github.com/ezoic/tasador/pkg/errors"
)

// Scaler names accepted by NewScaler.
const (
	ScalerRobust   = "robust"
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

func init() {
	gob.Register(&RobustScaler{})
	gob.Register(&StandardScaler{})
	gob.Register(&MinMaxScaler{})
}

// NewScaler returns the scaler registered under name.
func NewScaler(name string) (model.Transformer, error) {
	switch name {
	case ScalerRobust, "":
		return NewRobustScaler(), nil
	case ScalerStandard:
		return NewStandardScalerDefault(), nil
	case ScalerMinMax:
		return NewMinMaxScalerDefault(), nil
	default:
		return nil, tasadorErrors.NewValidationError("scaler", "expected robust, standard or minmax", name)
	}
}

// RobustScaler removes the median and scales by the interquartile range
// (25th to 75th percentile), which keeps odometer outliers from dominating
// the scale.
type RobustScaler struct {
	model.BaseEstimator

	// Center holds the per-feature median.
	Center []float64

	// Scale holds the per-feature IQR (1 for constant features).
	Scale []float64

	NFeatures int

	// QuantileRange is the percentile pair used for the scale, default {25, 75}.
	QuantileRange [2]float64
}

// NewRobustScaler creates a RobustScaler with the (25, 75) quantile range.
func NewRobustScaler() *RobustScaler {
	return &RobustScaler{QuantileRange: [2]float64{25, 75}}
}

// Fit computes the per-feature median and interquartile range. NaN values
// are ignored.
func (s *RobustScaler) Fit(X mat.Matrix) (err error) {
	defer tasadorErrors.Recover(&err, "RobustScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return tasadorErrors.NewModelError("RobustScaler.Fit", "empty data", tasadorErrors.ErrEmptyData)
	}
	lo, hi := s.QuantileRange[0], s.QuantileRange[1]
	if lo < 0 || hi > 100 || lo >= hi {
		return tasadorErrors.NewValidationError("quantile_range", "must satisfy 0 <= q_min < q_max <= 100", s.QuantileRange)
	}

	s.NFeatures = c
	s.Center = make([]float64, c)
	s.Scale = make([]float64, c)

	col := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		col = col[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		if len(col) == 0 {
			s.Center[j] = 0
			s.Scale[j] = 1
			continue
		}
		sort.Float64s(col)
		s.Center[j] = quantile(col, 0.5)
		iqr := quantile(col, hi/100) - quantile(col, lo/100)
		if math.Abs(iqr) < 1e-12 {
			iqr = 1
		}
		s.Scale[j] = iqr
	}

	s.SetFitted()
	return nil
}

// Transform applies (x - median) / IQR.
func (s *RobustScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer tasadorErrors.Recover(&err, "RobustScaler.Transform")
	if !s.IsFitted() {
		return nil, tasadorErrors.NewNotFittedError("RobustScaler", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, tasadorErrors.NewDimensionError("RobustScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Center[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits the scaler and transforms X.
func (s *RobustScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps scaled values back to the original units.
func (s *RobustScaler) InverseTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer tasadorErrors.Recover(&err, "RobustScaler.InverseTransform")
	if !s.IsFitted() {
		return nil, tasadorErrors.NewNotFittedError("RobustScaler", "InverseTransform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, tasadorErrors.NewDimensionError("RobustScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Center[j])
		}
	}
	return result, nil
}

// GetParams returns the scaler parameters.
func (s *RobustScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"quantile_range": s.QuantileRange,
	}
}

func (s *RobustScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("RobustScaler(quantile_range=(%.0f, %.0f))", s.QuantileRange[0], s.QuantileRange[1])
	}
	return fmt.Sprintf("RobustScaler(quantile_range=(%.0f, %.0f), n_features=%d)",
		s.QuantileRange[0], s.QuantileRange[1], s.NFeatures)
}

// quantile returns the p-quantile of sorted using linear interpolation
// between the closest ranks (numpy's default definition).
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// StandardScaler standardizes features to zero mean and unit variance.
type StandardScaler struct {
	model.BaseEstimator

	// Mean holds the per-feature mean.
	Mean []float64

	// Scale holds the per-feature standard deviation.
	Scale []float64

	NFeatures int

	// WithMean centers the data before scaling (default: true)
	WithMean bool

	// WithStd scales the data to unit variance (default: true)
	WithStd bool
}

// NewStandardScaler creates a StandardScaler.
//
// Parameters:
//   - withMean: whether to center the data at zero by removing the mean
//   - withStd: whether to divide by the standard deviation
//
// Example:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(XTrain)
//	XScaled, err := scaler.Transform(XTest)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault creates a StandardScaler that centers and scales.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit computes the per-feature mean and standard deviation.
//
// Errors:
//   - ErrEmptyData: if X is empty
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer tasadorErrors.Recover(&err, "StandardScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return tasadorErrors.NewModelError("StandardScaler.Fit", "empty data", tasadorErrors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	if s.WithMean {
		for j := 0; j < c; j++ {
			sum := 0.0
			for i := 0; i < r; i++ {
				sum += X.At(i, j)
			}
			s.Mean[j] = sum / float64(r)
		}
	}

	for j := 0; j < c; j++ {
		s.Scale[j] = 1.0
		if !s.WithStd {
			continue
		}
		sumSquares := 0.0
		for i := 0; i < r; i++ {
			diff := X.At(i, j) - s.Mean[j]
			sumSquares += diff * diff
		}
		// constant features keep a unit scale
		if std := math.Sqrt(sumSquares / float64(r)); std >= 1e-8 {
			s.Scale[j] = std
		}
	}

	s.SetFitted()
	return nil
}

// Transform applies (x - mean) / std.
func (s *StandardScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer tasadorErrors.Recover(&err, "StandardScaler.Transform")
	if !s.IsFitted() {
		return nil, tasadorErrors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, tasadorErrors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits the scaler and transforms X.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform reverses the standardization: x * std + mean.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer tasadorErrors.Recover(&err, "StandardScaler.InverseTransform")
	if !s.IsFitted() {
		return nil, tasadorErrors.NewNotFittedError("StandardScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, tasadorErrors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return result, nil
}

// GetParams returns the scaler parameters.
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures)
}

// MinMaxScaler scales each feature to FeatureRange.
type MinMaxScaler struct {
	model.BaseEstimator

	DataMin []float64
	DataMax []float64

	// Scale holds max - min per feature (1 for constant features).
	Scale []float64

	NFeatures int

	// FeatureRange is the target range [min, max].
	FeatureRange [2]float64
}

// NewMinMaxScaler creates a MinMaxScaler for the given target range.
//
// Example:
//
//	scaler := preprocessing.NewMinMaxScaler([2]float64{-1.0, 1.0})
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		FeatureRange: featureRange,
	}
}

// NewMinMaxScalerDefault creates a MinMaxScaler targeting [0, 1].
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0.0, 1.0})
}

// Fit records the per-feature minimum and maximum.
func (m *MinMaxScaler) Fit(X mat.Matrix) (err error) {
	defer tasadorErrors.Recover(&err, "MinMaxScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return tasadorErrors.NewModelError("MinMaxScaler.Fit", "empty data", tasadorErrors.ErrEmptyData)
	}

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		lo, hi := X.At(0, j), X.At(0, j)
		for i := 1; i < r; i++ {
			v := X.At(i, j)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		m.DataMin[j] = lo
		m.DataMax[j] = hi
		m.Scale[j] = hi - lo
		if math.Abs(m.Scale[j]) < 1e-8 {
			m.Scale[j] = 1.0
		}
	}

	m.SetFitted()
	return nil
}

// Transform scales X into FeatureRange.
func (m *MinMaxScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer tasadorErrors.Recover(&err, "MinMaxScaler.Transform")
	if !m.IsFitted() {
		return nil, tasadorErrors.NewNotFittedError("MinMaxScaler", "Transform")
	}

	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, tasadorErrors.NewDimensionError("MinMaxScaler.Transform", m.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	width := m.FeatureRange[1] - m.FeatureRange[0]
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-m.DataMin[j])/m.Scale[j]*width+m.FeatureRange[0])
		}
	}
	return result, nil
}

// FitTransform fits the scaler and transforms X.
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform maps scaled values back to the original range.
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer tasadorErrors.Recover(&err, "MinMaxScaler.InverseTransform")
	if !m.IsFitted() {
		return nil, tasadorErrors.NewNotFittedError("MinMaxScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, tasadorErrors.NewDimensionError("MinMaxScaler.InverseTransform", m.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	width := m.FeatureRange[1] - m.FeatureRange[0]
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-m.FeatureRange[0])/width*m.Scale[j]+m.DataMin[j])
		}
	}
	return result, nil
}

// GetParams returns the scaler parameters.
func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"feature_range": m.FeatureRange,
	}
}

func (m *MinMaxScaler) String() string {
	if !m.IsFitted() {
		return fmt.Sprintf("MinMaxScaler(feature_range=[%.1f, %.1f])",
			m.FeatureRange[0], m.FeatureRange[1])
	}
	return fmt.Sprintf("MinMaxScaler(feature_range=[%.1f, %.1f], n_features=%d)",
		m.FeatureRange[0], m.FeatureRange[1], m.NFeatures)
}
