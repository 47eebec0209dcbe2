package model

// StateManager tracks the fitted state and training dimensions of an
// estimator. Regressors and the pipeline compose it as a field rather than
// embedding BaseEstimator. Fields are exported for gob encoding.
type StateManager struct {
	Fitted    bool
	NFeatures int
	NSamples  int
}

// NewStateManager creates an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether SetFitted has been called since the last Reset.
func (s *StateManager) IsFitted() bool {
	return s != nil && s.Fitted
}

// SetFitted marks the owner as fitted.
func (s *StateManager) SetFitted() {
	s.Fitted = true
}

// SetDimensions records the training shape.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// Reset clears the fitted state and dimensions.
func (s *StateManager) Reset() {
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}
