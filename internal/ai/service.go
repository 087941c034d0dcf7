package ai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"github.com/kiranshivaraju/jobpilot/pkg/prompt"
)

// FallbackAnswer is returned when the model backend cannot produce an answer.
const FallbackAnswer = "I'm having trouble connecting to my AI brain right now. " +
	"Please check that Ollama is running with the Mistral model. Run: 'ollama run mistral'"

// maxAnswerBytes bounds what the assistant returns to a client.
const maxAnswerBytes = 8000

var ErrEmptyQuestion = errors.New("question is required")

// Advisor answers questions about job listings using an AI provider.
type Advisor struct {
	provider models.AIProvider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAdvisor creates an Advisor. A nil logger uses slog.Default.
func NewAdvisor(provider models.AIProvider, timeout time.Duration, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{provider: provider, timeout: timeout, logger: logger}
}

// Ask builds the job prompt and queries the provider under the inference timeout.
// Provider failures are logged and answered with FallbackAnswer; only an empty
// question is an error.
func (a *Advisor) Ask(ctx context.Context, question string, jobs []models.JobSearchResult) (*models.AskResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	p := prompt.Builder{}.BuildJobPrompt(question, jobs)

	askCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		askCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	answer, err := a.provider.Generate(askCtx, p)
	if err != nil {
		if errors.Is(askCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrInferenceTimeout) {
			err = errors.Join(ErrInferenceTimeout, err)
		}
		a.logger.Warn("assistant fell back to canned answer",
			"provider", a.provider.Name(), "jobs", len(jobs), "error", err)
		return &models.AskResponse{Answer: FallbackAnswer, Provider: a.provider.Name()}, nil
	}

	return &models.AskResponse{
		Answer:   truncateString(strings.TrimSpace(answer), maxAnswerBytes),
		Provider: a.provider.Name(),
	}, nil
}

// Ready reports whether the underlying provider is serving.
func (a *Advisor) Ready(ctx context.Context) error {
	return a.provider.Ready(ctx)
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
