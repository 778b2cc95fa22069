package llm

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stellarlinkco/cotbench/internal/config"
)

// NewFromConfig builds the named provider. An empty name falls back to the
// config default; an empty model falls back to the provider's configured one.
func NewFromConfig(cfg *config.Config, name string, model string) (Provider, error) {
	if cfg == nil {
		return nil, errors.New("llm: nil config")
	}

	name = normalizeProvider(name)
	if name == "" {
		name = normalizeProvider(cfg.LLM.DefaultProvider)
	}
	if name == "" {
		return nil, errors.New("llm: missing provider")
	}

	pcfg, ok := cfg.LLM.Providers[name]
	if !ok {
		available := make([]string, 0, len(cfg.LLM.Providers))
		for k := range cfg.LLM.Providers {
			available = append(available, k)
		}
		sort.Strings(available)
		return nil, fmt.Errorf("llm: provider %q not configured (available: %s)", name, strings.Join(available, ", "))
	}

	if strings.TrimSpace(model) == "" {
		model = pcfg.Model
	}

	switch name {
	case "openai":
		return NewOpenAIProvider(pcfg.APIKey, pcfg.BaseURL, model), nil
	case "claude":
		return NewClaudeProvider(pcfg.APIKey, pcfg.BaseURL, model), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", name)
	}
}

func normalizeProvider(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "anthropic" {
		return "claude"
	}
	return name
}
