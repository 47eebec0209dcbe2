// Package model provides the core abstractions shared by tasador estimators.
//
// It contains:
//
//   - BaseEstimator and StateManager: fitted-state tracking embedded in or
//     composed into every transformer and regressor
//   - Transformer and Regressor: the interfaces the pipeline chains together
//   - Model persistence: gob encoding of fitted estimators to files or writers
//   - Training reports: a versioned JSON envelope for training summaries
//
// Every fitted component keeps its learned parameters in exported fields so
// that a whole pipeline can be written with SaveModel and read back with
// LoadModel without any custom encoding.
package model

import (
	"github.com/ezoic/tasador/pkg/log"
)

// EstimatorState represents the learning state of a model
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained
	Fitted
)

// BaseEstimator is embedded by the preprocessing transformers.
type BaseEstimator struct {
	// State holds the learning state. Public for gob encoding.
	State EstimatorState

	// ModelType identifies the type of model
	ModelType string

	logger log.Logger
}

// IsFitted returns whether the estimator has been fitted.
//
// Example:
//
//	if !scaler.IsFitted() {
//	    if err := scaler.Fit(X); err != nil {
//	        return err
//	    }
//	}
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted. Called by Fit implementations only.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to its untrained state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}

// SetLogger sets the logger used by LogDebug.
func (e *BaseEstimator) SetLogger(logger log.Logger) {
	e.logger = logger
}

// LogDebug logs at debug level. Without SetLogger it uses a logger named
// after ModelType.
func (e *BaseEstimator) LogDebug(msg string, fields ...interface{}) {
	if e.logger == nil {
		name := e.ModelType
		if name == "" {
			name = "estimator"
		}
		e.logger = log.GetLoggerWithName(name)
	}
	e.logger.Debug(msg, fields...)
}
