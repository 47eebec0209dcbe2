package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/core/model"
	tasadorErrors "github.com/ezoic/tasador/pkg/errors"
)

// Unknown-category policies for OneHotEncoder.
const (
	// HandleUnknownIgnore encodes an unseen category as an all-zero block.
	HandleUnknownIgnore = "ignore"
	// HandleUnknownError makes Transform fail on an unseen category.
	HandleUnknownError = "error"
)

// OneHotEncoder turns categorical string columns into 0/1 indicator columns.
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories holds the sorted categories of each input column.
	Categories [][]string

	// CategoryToIdx maps category → position within its column block.
	CategoryToIdx []map[string]int

	// HandleUnknown is HandleUnknownIgnore (default) or HandleUnknownError.
	HandleUnknown string

	NFeatures int

	// NOutputs is the total number of indicator columns.
	NOutputs int
}

// NewOneHotEncoder creates an encoder that ignores unknown categories.
//
// Example:
//
//	encoder := preprocessing.NewOneHotEncoder()
//	encoded, err := encoder.FitTransform(data)
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{HandleUnknown: HandleUnknownIgnore}
}

// Fit collects the distinct categories of every column.
//
// Parameters:
//   - data: n_samples × n_features strings
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer tasadorErrors.Recover(&err, "OneHotEncoder.Fit")
	if len(data) == 0 {
		return tasadorErrors.NewModelError("OneHotEncoder.Fit", "empty data", tasadorErrors.ErrEmptyData)
	}
	if len(data[0]) == 0 {
		return tasadorErrors.NewModelError("OneHotEncoder.Fit", "empty features", tasadorErrors.ErrEmptyData)
	}
	switch e.HandleUnknown {
	case "":
		e.HandleUnknown = HandleUnknownIgnore
	case HandleUnknownIgnore, HandleUnknownError:
	default:
		return tasadorErrors.NewValidationError("handle_unknown", "expected ignore or error", e.HandleUnknown)
	}

	nFeatures := len(data[0])
	for i, row := range data {
		if len(row) != nFeatures {
			return tasadorErrors.NewDimensionError("OneHotEncoder.Fit", nFeatures, len(row), i)
		}
	}

	e.NFeatures = nFeatures
	e.Categories = make([][]string, nFeatures)
	e.CategoryToIdx = make([]map[string]int, nFeatures)
	e.NOutputs = 0

	for j := 0; j < nFeatures; j++ {
		seen := make(map[string]bool)
		for _, row := range data {
			seen[row[j]] = true
		}
		categories := make([]string, 0, len(seen))
		for category := range seen {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		idx := make(map[string]int, len(categories))
		for k, category := range categories {
			idx[category] = k
		}
		e.Categories[j] = categories
		e.CategoryToIdx[j] = idx
		e.NOutputs += len(categories)
	}

	e.SetFitted()
	return nil
}

// Transform encodes data with the learned categories.
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer tasadorErrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.IsFitted() {
		return nil, tasadorErrors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(data) == 0 {
		return &mat.Dense{}, nil
	}
	if len(data[0]) != e.NFeatures {
		return nil, tasadorErrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(data[0]), 1)
	}

	result := mat.NewDense(len(data), e.NOutputs, nil)
	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, tasadorErrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(row), 1)
		}
		offset := 0
		for j, category := range row {
			if k, ok := e.CategoryToIdx[j][category]; ok {
				result.Set(i, offset+k, 1.0)
			} else if e.HandleUnknown == HandleUnknownError {
				return nil, tasadorErrors.NewValueError("OneHotEncoder.Transform",
					fmt.Sprintf("unknown category %q in column %d", category, j))
			}
			offset += len(e.Categories[j])
		}
	}
	return result, nil
}

// FitTransform fits the encoder and encodes data.
func (e *OneHotEncoder) FitTransform(data [][]string) (mat.Matrix, error) {
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// GetFeatureNamesOut returns "<input>_<category>" for every output column.
// Missing input names default to x0, x1, ...
func (e *OneHotEncoder) GetFeatureNamesOut(inputFeatures []string) []string {
	if !e.IsFitted() {
		return nil
	}

	var out []string
	for i, categories := range e.Categories {
		name := fmt.Sprintf("x%d", i)
		if i < len(inputFeatures) {
			name = inputFeatures[i]
		}
		for _, category := range categories {
			out = append(out, fmt.Sprintf("%s_%s", name, category))
		}
	}
	return out
}
