package server

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/vehicle"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (e FieldError) String() string {
	if e.Param == "" {
		return e.Field + ": " + e.Rule
	}
	return e.Field + ": " + e.Rule + "=" + e.Param
}

// newValidator returns a validator that reports fields by their JSON name
// and knows the "engine" rule.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("engine", func(fl validator.FieldLevel) bool {
		return vehicle.IsEngineType(vehicle.NormalizeEngine(fl.Field().String()))
	})
	return v
}

// fieldErrors flattens a validator error or an estimator ValidationError,
// whose Reason reads "rule=param". Other errors yield nil.
func fieldErrors(err error) []FieldError {
	var verr *errors.ValidationError
	if errors.As(err, &verr) {
		rule, param, _ := strings.Cut(verr.Reason, "=")
		return []FieldError{{Field: verr.Param, Rule: rule, Param: param}}
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		out[i] = FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	return out
}
