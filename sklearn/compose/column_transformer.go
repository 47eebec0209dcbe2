// Package compose applies different preprocessing to numeric and categorical
// columns of a frame and stacks the results into one design matrix, like
// sklearn.compose.ColumnTransformer.
package compose

import (
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/core/frame"
	"github.com/ezoic/tasador/core/model"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/preprocessing"
)

// UnknownCategory is the default fill value for missing categorical values.
const UnknownCategory = "Unknown"

func init() {
	gob.Register(&ColumnTransformer{})
}

// NumericBranch imputes then scales a set of numeric columns.
type NumericBranch struct {
	Columns []string
	Imputer *preprocessing.SimpleImputer
	Scaler  model.Transformer
}

// CategoricalBranch imputes then one-hot encodes a set of categorical columns.
type CategoricalBranch struct {
	Columns []string
	Imputer *preprocessing.CategoricalImputer
	Encoder *preprocessing.OneHotEncoder
}

// ColumnTransformer routes frame columns through a numeric and a categorical
// branch. Output columns are the numeric block followed by the one-hot block.
type ColumnTransformer struct {
	model.BaseEstimator

	Numeric     NumericBranch
	Categorical CategoricalBranch

	// NOutputs is the width of the transformed matrix.
	NOutputs int
}

// New builds the standard branches: median imputation and the given scaler
// for numeric columns, constant "Unknown" imputation and one-hot encoding
// that ignores unseen categories for categorical columns.
//
// Parameters:
//   - numeric: names of numeric frame columns
//   - categorical: names of categorical frame columns
//   - scaler: robust, standard or minmax ("" means robust)
//
// Example:
//
//	ct, err := compose.New([]string{"kilometros"}, []string{"motor"}, preprocessing.ScalerRobust)
//	X, err := ct.FitTransform(f)
func New(numeric, categorical []string, scaler string) (*ColumnTransformer, error) {
	if len(numeric)+len(categorical) == 0 {
		return nil, errors.NewValidationError("columns", "at least one column is required", 0)
	}
	s, err := preprocessing.NewScaler(scaler)
	if err != nil {
		return nil, err
	}
	return &ColumnTransformer{
		BaseEstimator: model.BaseEstimator{ModelType: "ColumnTransformer"},
		Numeric: NumericBranch{
			Columns: numeric,
			Imputer: preprocessing.NewSimpleImputer(preprocessing.StrategyMedian, 0),
			Scaler:  s,
		},
		Categorical: CategoricalBranch{
			Columns: categorical,
			Imputer: preprocessing.NewCategoricalImputer(preprocessing.StrategyConstant, UnknownCategory),
			Encoder: preprocessing.NewOneHotEncoder(),
		},
	}, nil
}

// Fit learns the imputation statistics, scaling and categories.
func (c *ColumnTransformer) Fit(X *frame.Frame) (err error) {
	defer errors.Recover(&err, "ColumnTransformer.Fit")
	if X == nil || X.Rows() == 0 {
		return errors.NewModelError("ColumnTransformer.Fit", "empty frame", errors.ErrEmptyData)
	}

	width := 0
	if len(c.Numeric.Columns) > 0 {
		num, err := X.Dense(c.Numeric.Columns...)
		if err != nil {
			return err
		}
		filled, err := c.Numeric.Imputer.FitTransform(num)
		if err != nil {
			return errors.Wrap(err, "numeric imputer")
		}
		if err := c.Numeric.Scaler.Fit(filled); err != nil {
			return errors.Wrap(err, "numeric scaler")
		}
		width += len(c.Numeric.Columns)
	}

	if len(c.Categorical.Columns) > 0 {
		cat, err := X.Strings(c.Categorical.Columns...)
		if err != nil {
			return err
		}
		filled, err := c.Categorical.Imputer.FitTransform(cat)
		if err != nil {
			return errors.Wrap(err, "categorical imputer")
		}
		if err := c.Categorical.Encoder.Fit(filled); err != nil {
			return errors.Wrap(err, "categorical encoder")
		}
		width += c.Categorical.Encoder.NOutputs
	}

	c.NOutputs = width
	c.SetFitted()
	c.LogDebug("ColumnTransformer fitted", "samples", X.Rows(), "features", width)
	return nil
}

// Transform maps X to the fitted design matrix. Categories not seen during
// Fit encode as all-zero indicator blocks.
func (c *ColumnTransformer) Transform(X *frame.Frame) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "ColumnTransformer.Transform")
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	if X == nil || X.Rows() == 0 {
		return nil, errors.NewModelError("ColumnTransformer.Transform", "empty frame", errors.ErrEmptyData)
	}

	rows := X.Rows()
	out := mat.NewDense(rows, c.NOutputs, nil)
	offset := 0

	if len(c.Numeric.Columns) > 0 {
		num, err := X.Dense(c.Numeric.Columns...)
		if err != nil {
			return nil, err
		}
		filled, err := c.Numeric.Imputer.Transform(num)
		if err != nil {
			return nil, err
		}
		scaled, err := c.Numeric.Scaler.Transform(filled)
		if err != nil {
			return nil, err
		}
		offset = copyBlock(out, scaled, offset)
	}

	if len(c.Categorical.Columns) > 0 {
		cat, err := X.Strings(c.Categorical.Columns...)
		if err != nil {
			return nil, err
		}
		filled, err := c.Categorical.Imputer.Transform(cat)
		if err != nil {
			return nil, err
		}
		encoded, err := c.Categorical.Encoder.Transform(filled)
		if err != nil {
			return nil, err
		}
		offset = copyBlock(out, encoded, offset)
	}

	if offset != c.NOutputs {
		return nil, errors.NewDimensionError("ColumnTransformer.Transform", c.NOutputs, offset, 1)
	}
	return out, nil
}

// FitTransform fits the transformer and transforms X.
func (c *ColumnTransformer) FitTransform(X *frame.Frame) (mat.Matrix, error) {
	if err := c.Fit(X); err != nil {
		return nil, err
	}
	return c.Transform(X)
}

// GetFeatureNamesOut returns the output column names: numeric column names
// followed by "<column>_<category>" for each indicator.
func (c *ColumnTransformer) GetFeatureNamesOut() []string {
	if !c.IsFitted() {
		return nil
	}
	names := append([]string(nil), c.Numeric.Columns...)
	if len(c.Categorical.Columns) > 0 {
		names = append(names, c.Categorical.Encoder.GetFeatureNamesOut(c.Categorical.Columns)...)
	}
	return names
}

// GetParams returns the branch configuration.
func (c *ColumnTransformer) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"numeric":     c.Numeric.Columns,
		"categorical": c.Categorical.Columns,
	}
	if c.Numeric.Scaler != nil {
		params["scaler"] = fmt.Sprintf("%T", c.Numeric.Scaler)
	}
	if c.Categorical.Encoder != nil {
		params["handle_unknown"] = c.Categorical.Encoder.HandleUnknown
	}
	return params
}

func copyBlock(dst *mat.Dense, src mat.Matrix, offset int) int {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(i, offset+j, src.At(i, j))
		}
	}
	return offset + c
}
