package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Download   DownloadConfig   `yaml:"download"`
	History    HistoryConfig    `yaml:"history"`
}

type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider,omitempty"`
	Providers       map[string]ProviderConfig `yaml:"providers,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type EvaluationConfig struct {
	MismatchLimit int    `yaml:"mismatch_limit,omitempty"`
	OutputFormat  string `yaml:"output_format,omitempty"`
}

type DownloadConfig struct {
	Dir     string        `yaml:"dir,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Retries int           `yaml:"retries,omitempty"`
	Delay   time.Duration `yaml:"delay,omitempty"`
}

type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Load reads the YAML config and applies environment API-key overrides.
// A missing file at the default path is not an error; evaluation commands
// must run without any config present.
func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	usingDefault := path == ""
	if usingDefault {
		path = DefaultPath
	}

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	case os.IsNotExist(err) && usingDefault:
		// Fall through to defaults.
	default:
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]ProviderConfig)
	}
	if strings.TrimSpace(cfg.LLM.DefaultProvider) == "" {
		cfg.LLM.DefaultProvider = "openai"
	}

	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		p := cfg.LLM.Providers["openai"]
		p.APIKey = v
		cfg.LLM.Providers["openai"] = p
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		p := cfg.LLM.Providers["claude"]
		p.APIKey = v
		cfg.LLM.Providers["claude"] = p
	} else if v := strings.TrimSpace(os.Getenv("ANTHROPIC_AUTH_TOKEN")); v != "" {
		p := cfg.LLM.Providers["claude"]
		p.APIKey = v
		cfg.LLM.Providers["claude"] = p
	}

	return &cfg, nil
}
