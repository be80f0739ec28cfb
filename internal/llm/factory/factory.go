// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/llm"
	"github.com/akshayg/coach/internal/llm/claude"
	"github.com/akshayg/coach/internal/llm/openai"
)

// New creates an LLM provider for one role (ideas or critic) based on
// configuration. An empty provider returns nil with no error: the caller
// runs with that role disabled.
func New(cfg config.ProviderConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		return claude.New(cfg.APIKey, cfg.Model)
	case "openai":
		return openai.New(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
