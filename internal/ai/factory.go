package ai

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kiranshivaraju/jobpilot/internal/ai/mock"
	"github.com/kiranshivaraju/jobpilot/internal/ai/ollama"
	"github.com/kiranshivaraju/jobpilot/internal/config"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

type constructor func(cfg config.AIConfig) (models.AIProvider, error)

var providers = map[string]constructor{
	"ollama": func(cfg config.AIConfig) (models.AIProvider, error) {
		if strings.TrimSpace(cfg.Ollama.Model) == "" {
			return nil, fmt.Errorf("ollama provider requires a model name")
		}
		return ollama.NewProvider(cfg.Ollama), nil
	},
	"mock": func(config.AIConfig) (models.AIProvider, error) {
		return mock.NewMockProvider(), nil
	},
}

// Providers lists the provider names NewProvider accepts, sorted.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewProvider constructs the assistant backend named by cfg.Provider.
// Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.AIProvider, error) {
	build, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown AI provider %q: must be one of %s",
			cfg.Provider, strings.Join(Providers(), ", "))
	}
	return build(cfg)
}
