package ai

import "github.com/kiranshivaraju/jobpilot/pkg/models"

// Provider errors are defined in models so provider packages can return them
// without importing ai.
var (
	ErrProviderUnavailable = models.ErrProviderUnavailable
	ErrInferenceTimeout    = models.ErrInferenceTimeout
	ErrInvalidResponse     = models.ErrInvalidResponse
)
