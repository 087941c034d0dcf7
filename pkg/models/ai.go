package models

import (
	"context"
	"errors"
)

// AskRequest is the body of POST /assistant/ask.
type AskRequest struct {
	Question string  `json:"question" validate:"required,max=2000"`
	JobIDs   []int64 `json:"jobIds,omitempty" validate:"max=50,dive,gt=0"`
}

// AskResponse carries the assistant's answer.
type AskResponse struct {
	Answer   string `json:"answer"`
	Provider string `json:"provider"`
}

// AIProvider is implemented by every text-generation backend.
type AIProvider interface {
	Name() string
	// Generate returns the model's completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Ready reports whether the backend is reachable and serving.
	Ready(ctx context.Context) error
}

var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
)
