// Package errors provides the typed errors used across tasador.
//
// The error values follow the Go 1.13 wrapping conventions so they can be
// inspected with errors.Is and errors.As. Stack traces and wrapping helpers
// come from github.com/cockroachdb/errors; printing an error with %+v shows
// the captured stack.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

const prefix = "tasador"

// Sentinel errors.
var (
	// ErrEmptyData is returned when an operation receives no samples.
	ErrEmptyData = errors.New("empty data")
	// ErrNotFound is returned when a required file or resource is absent.
	ErrNotFound = errors.New("not found")
)

// Re-exported helpers so callers only need a single errors import.
var (
	New   = errors.New
	Newf  = errors.Newf
	Wrap  = errors.Wrap
	Wrapf = errors.Wrapf
	Is    = errors.Is
	As    = errors.As
	Mark  = errors.Mark
)

// NotFittedError reports use of an estimator before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s: model is not fitted, call Fit before %s", prefix, e.ModelName, e.Method)
}

// NewNotFittedError creates a NotFittedError.
func NewNotFittedError(modelName, method string) error {
	return &NotFittedError{ModelName: modelName, Method: method}
}

// DimensionError reports a shape mismatch along Axis (0 = rows, 1 = columns).
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	axis := "rows"
	if e.Axis == 1 {
		axis = "columns"
	}
	return fmt.Sprintf("%s: %s: dimension mismatch in %s: expected %d, got %d", prefix, e.Op, axis, e.Expected, e.Got)
}

// NewDimensionError creates a DimensionError.
func NewDimensionError(op string, expected, got, axis int) error {
	return &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
}

// ValueError reports an invalid argument value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
}

// NewValueError creates a ValueError.
func NewValueError(op, message string) error {
	return &ValueError{Op: op, Message: message}
}

// ValidationError reports a parameter that failed validation.
type ValidationError struct {
	Param  string
	Reason string
	Value  interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s (%v): %s", prefix, e.Param, e.Value, e.Reason)
}

// NewValidationError creates a ValidationError.
func NewValidationError(param, reason string, value interface{}) error {
	return &ValidationError{Param: param, Reason: reason, Value: value}
}

// ModelError wraps a lower level cause with the failing operation.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %v", prefix, e.Op, e.Message, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError.
func NewModelError(op, message string, err error) error {
	return &ModelError{Op: op, Message: message, Err: err}
}

// Recover converts a panic in the calling function into an error stored in
// *err. It must be deferred directly:
//
//	func (m *Model) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
//		defer errors.Recover(&err, "Model.Predict")
//		...
//	}
func Recover(err *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	if cause, ok := r.(error); ok {
		*err = errors.Wrapf(cause, "%s: %s: panic", prefix, op)
		return
	}
	*err = errors.Newf("%s: %s: panic: %v", prefix, op, r)
}
