// Package config resolves the runtime configuration from the environment and
// manages persisted user preferences.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ModelOptions are the Groq models offered to users. The first entry is the
// default and most capable option.
var ModelOptions = []string{
	"llama3-70b-8192",
	"llama3-8b-8192",
	"mistral-saba-24b",
	"compound-beta",
}

// DefaultTemperature is the sampling temperature used when none is supplied.
const DefaultTemperature float32 = 0.0

// Config is the process-wide runtime configuration, populated from the
// environment. A .env file in the working directory is honored when present.
type Config struct {
	GroqAPIKey   string  `env:"GROQ_API_KEY"`
	Provider     string  `env:"LLM_PROVIDER" envDefault:"groq"`
	Model        string  `env:"MODEL"`
	BaseURL      string  `env:"LLM_BASE_URL"`
	Temperature  float32 `env:"TEMPERATURE" envDefault:"0.0"`
	MaxRows      int     `env:"MAX_ROWS" envDefault:"1000000"`
	MaxPlotFiles int     `env:"MAX_PLOT_FILES" envDefault:"10"`
	ListenAddr   string  `env:"LISTEN_ADDR" envDefault:":8080"`
	DataDir      string  `env:"DATA_DIR" envDefault:"data"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = ModelOptions[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and the model enum.
func (c *Config) Validate() error {
	if c.Temperature < 0.0 || c.Temperature > 1.0 {
		return fmt.Errorf("TEMPERATURE must be in [0.0, 1.0], got %g", c.Temperature)
	}
	if c.MaxRows <= 0 {
		return fmt.Errorf("MAX_ROWS must be positive, got %d", c.MaxRows)
	}
	if c.MaxPlotFiles <= 0 {
		return fmt.Errorf("MAX_PLOT_FILES must be positive, got %d", c.MaxPlotFiles)
	}
	// The model enum only binds the default Groq provider; other providers
	// accept arbitrary model names.
	if c.Provider == "" || c.Provider == "groq" {
		if !IsSupportedModel(c.Model) {
			return fmt.Errorf("unsupported model %q (supported: %s)", c.Model, strings.Join(ModelOptions, ", "))
		}
	}
	return nil
}

// IsSupportedModel reports whether name is in the Groq model list.
func IsSupportedModel(name string) bool {
	for _, m := range ModelOptions {
		if m == name {
			return true
		}
	}
	return false
}
