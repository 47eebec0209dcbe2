// Package frame provides a small typed table used to feed mixed numeric and
// categorical columns into the preprocessing pipeline.
//
// Numeric columns hold float64 values with NaN marking a missing value.
// Categorical columns hold strings with "" marking a missing value. Column
// order is preserved and column names are unique.
package frame

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/tasador/pkg/errors"
)

// Kind is the type of a column.
type Kind int

const (
	// Numeric columns hold float64 values.
	Numeric Kind = iota
	// Categorical columns hold string values.
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Column is a single named column.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	if c.Kind == Categorical {
		return len(c.Strings)
	}
	return len(c.Floats)
}

// Frame is an ordered set of equally long columns.
type Frame struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New creates an empty frame with the given number of rows.
func New(rows int) *Frame {
	return &Frame{index: make(map[string]int), rows: rows}
}

// Rows returns the number of rows.
func (f *Frame) Rows() int {
	return f.rows
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// AddFloats appends a numeric column. The slice is not copied.
func (f *Frame) AddFloats(name string, values []float64) error {
	return f.add(&Column{Name: name, Kind: Numeric, Floats: values})
}

// AddStrings appends a categorical column. The slice is not copied.
func (f *Frame) AddStrings(name string, values []string) error {
	return f.add(&Column{Name: name, Kind: Categorical, Strings: values})
}

func (f *Frame) add(c *Column) error {
	if c.Name == "" {
		return errors.NewValueError("Frame.Add", "column name is required")
	}
	if _, dup := f.index[c.Name]; dup {
		return errors.NewValueError("Frame.Add", fmt.Sprintf("duplicate column %q", c.Name))
	}
	if c.Len() != f.rows {
		return errors.NewDimensionError("Frame.Add", f.rows, c.Len(), 0)
	}
	f.index[c.Name] = len(f.columns)
	f.columns = append(f.columns, c)
	return nil
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.NewValueError("Frame.Column", fmt.Sprintf("unknown column %q", name))
	}
	return f.columns[i], nil
}

// Dense returns the named numeric columns as a rows × len(names) matrix.
func (f *Frame) Dense(names ...string) (*mat.Dense, error) {
	if f.rows == 0 || len(names) == 0 {
		return nil, errors.NewModelError("Frame.Dense", "empty selection", errors.ErrEmptyData)
	}
	out := mat.NewDense(f.rows, len(names), nil)
	for j, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if c.Kind != Numeric {
			return nil, errors.NewValueError("Frame.Dense", fmt.Sprintf("column %q is %s", name, c.Kind))
		}
		for i, v := range c.Floats {
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// Strings returns the named categorical columns row-major.
func (f *Frame) Strings(names ...string) ([][]string, error) {
	cols := make([]*Column, len(names))
	for j, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if c.Kind != Categorical {
			return nil, errors.NewValueError("Frame.Strings", fmt.Sprintf("column %q is %s", name, c.Kind))
		}
		cols[j] = c
	}
	out := make([][]string, f.rows)
	for i := range out {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.Strings[i]
		}
		out[i] = row
	}
	return out, nil
}
