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

// Imputation strategies.
const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMostFrequent = "most_frequent"
	StrategyConstant     = "constant"
)

// Missing is the categorical missing-value marker.
const Missing = ""

func init() {
	gob.Register(&SimpleImputer{})
}

// SimpleImputer replaces NaN in numeric columns with a per-column statistic.
type SimpleImputer struct {
	model.BaseEstimator

	// Strategy is one of mean, median, most_frequent or constant.
	Strategy string

	// FillValue is used by the constant strategy and for columns that are
	// entirely missing during Fit.
	FillValue float64

	// Statistics holds the learned fill value per column.
	Statistics []float64

	NFeatures int
}

// NewSimpleImputer creates a numeric imputer.
//
// Example:
//
//	imp := preprocessing.NewSimpleImputer(preprocessing.StrategyMedian, 0)
//	filled, err := imp.FitTransform(X)
func NewSimpleImputer(strategy string, fillValue float64) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy, FillValue: fillValue}
}

// Fit learns one statistic per column, ignoring NaN values.
func (s *SimpleImputer) Fit(X mat.Matrix) (err error) {
	defer tasadorErrors.Recover(&err, "SimpleImputer.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return tasadorErrors.NewModelError("SimpleImputer.Fit", "empty data", tasadorErrors.ErrEmptyData)
	}
	switch s.Strategy {
	case StrategyMean, StrategyMedian, StrategyMostFrequent, StrategyConstant:
	default:
		return tasadorErrors.NewValidationError("strategy", "unsupported numeric strategy", s.Strategy)
	}

	s.NFeatures = c
	s.Statistics = make([]float64, c)
	col := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		col = col[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		if s.Strategy == StrategyConstant || len(col) == 0 {
			s.Statistics[j] = s.FillValue
			continue
		}
		switch s.Strategy {
		case StrategyMean:
			sum := 0.0
			for _, v := range col {
				sum += v
			}
			s.Statistics[j] = sum / float64(len(col))
		case StrategyMedian:
			sort.Float64s(col)
			s.Statistics[j] = quantile(col, 0.5)
		case StrategyMostFrequent:
			s.Statistics[j] = mostFrequentFloat(col)
		}
	}

	s.SetFitted()
	return nil
}

// Transform returns a copy of X with NaN replaced by the learned statistic.
func (s *SimpleImputer) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer tasadorErrors.Recover(&err, "SimpleImputer.Transform")
	if !s.IsFitted() {
		return nil, tasadorErrors.NewNotFittedError("SimpleImputer", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, tasadorErrors.NewDimensionError("SimpleImputer.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				v = s.Statistics[j]
			}
			result.Set(i, j, v)
		}
	}
	return result, nil
}

// FitTransform fits the imputer and fills X.
func (s *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

func (s *SimpleImputer) String() string {
	return fmt.Sprintf("SimpleImputer(strategy=%s)", s.Strategy)
}

// mostFrequentFloat returns the mode, smallest value first on ties.
func mostFrequentFloat(values []float64) float64 {
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := 0.0, -1
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}

// CategoricalImputer replaces missing ("") categorical values.
type CategoricalImputer struct {
	model.BaseEstimator

	// Strategy is constant or most_frequent.
	Strategy string

	// FillValue is used by the constant strategy.
	FillValue string

	// Statistics holds the learned fill value per column.
	Statistics []string

	NFeatures int
}

// NewCategoricalImputer creates a categorical imputer.
//
// Example:
//
//	imp := preprocessing.NewCategoricalImputer(preprocessing.StrategyConstant, "Unknown")
func NewCategoricalImputer(strategy, fillValue string) *CategoricalImputer {
	return &CategoricalImputer{Strategy: strategy, FillValue: fillValue}
}

// Fit learns one fill value per column.
func (c *CategoricalImputer) Fit(data [][]string) (err error) {
	defer tasadorErrors.Recover(&err, "CategoricalImputer.Fit")
	if len(data) == 0 || len(data[0]) == 0 {
		return tasadorErrors.NewModelError("CategoricalImputer.Fit", "empty data", tasadorErrors.ErrEmptyData)
	}
	nFeatures := len(data[0])
	for i, row := range data {
		if len(row) != nFeatures {
			return tasadorErrors.NewDimensionError("CategoricalImputer.Fit", nFeatures, len(row), i)
		}
	}

	c.NFeatures = nFeatures
	c.Statistics = make([]string, nFeatures)
	switch c.Strategy {
	case StrategyConstant:
		if c.FillValue == Missing {
			return tasadorErrors.NewValidationError("fill_value", "constant strategy needs a non-empty fill value", c.FillValue)
		}
		for j := range c.Statistics {
			c.Statistics[j] = c.FillValue
		}
	case StrategyMostFrequent:
		for j := 0; j < nFeatures; j++ {
			counts := make(map[string]int)
			for _, row := range data {
				if row[j] != Missing {
					counts[row[j]]++
				}
			}
			best, bestCount := c.FillValue, 0
			for v, n := range counts {
				if n > bestCount || (n == bestCount && v < best) {
					best, bestCount = v, n
				}
			}
			c.Statistics[j] = best
		}
	default:
		return tasadorErrors.NewValidationError("strategy", "unsupported categorical strategy", c.Strategy)
	}

	c.SetFitted()
	return nil
}

// Transform returns a copy of data with missing values filled.
func (c *CategoricalImputer) Transform(data [][]string) (_ [][]string, err error) {
	defer tasadorErrors.Recover(&err, "CategoricalImputer.Transform")
	if !c.IsFitted() {
		return nil, tasadorErrors.NewNotFittedError("CategoricalImputer", "Transform")
	}

	out := make([][]string, len(data))
	for i, row := range data {
		if len(row) != c.NFeatures {
			return nil, tasadorErrors.NewDimensionError("CategoricalImputer.Transform", c.NFeatures, len(row), 1)
		}
		filled := make([]string, len(row))
		for j, v := range row {
			if v == Missing {
				v = c.Statistics[j]
			}
			filled[j] = v
		}
		out[i] = filled
	}
	return out, nil
}

// FitTransform fits the imputer and fills data.
func (c *CategoricalImputer) FitTransform(data [][]string) ([][]string, error) {
	if err := c.Fit(data); err != nil {
		return nil, err
	}
	return c.Transform(data)
}
