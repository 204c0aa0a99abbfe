// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Config represents the pipeline configuration that can be loaded from a
// JSON file. All fields are optional; missing values use defaults or must
// be provided via CLI flags.
type Config struct {
	// Paths
	DataPath string `json:"data_path,omitempty"` // Data root holding index, crawl and out folders

	// Behavior
	APIKey     string `json:"api_key,omitempty" validate:"omitempty,min=8"` // Gemini API key
	Model      string `json:"model,omitempty"`                              // Gemini model name
	UseBrowser bool   `json:"use_browser,omitempty"`                        // Enable the headless-browser fallback
	Verbose    bool   `json:"verbose,omitempty"`                            // Print detailed debug information

	// Limits
	BatchSize   int `json:"batch_size,omitempty" validate:"omitempty,gte=1,lte=100"` // Concurrent fetches per batch
	MaxAttempts int `json:"max_attempts,omitempty" validate:"omitempty,gte=1"`       // Fetch/parse retry attempts

	// Domains whose <title> tags are navigation chrome, not document titles
	ExcludedTitleDomains []string `json:"excluded_title_domains,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DataPath:    "data",
		Model:       "gemini-2.5-flash",
		BatchSize:   10,
		MaxAttempts: 3,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv fills unset fields from the environment. Environment values
// never override an explicit config file or flag value.
func (c *Config) FromEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.DataPath == "" {
		c.DataPath = os.Getenv("CORPUS_DATA_PATH")
	}
	if c.Model == "" {
		c.Model = os.Getenv("CORPUS_MODEL")
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DataPath == "" {
		result.DataPath = defaults.DataPath
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if len(result.ExcludedTitleDomains) == 0 {
		result.ExcludedTitleDomains = defaults.ExcludedTitleDomains
	}

	// Bool fields: cannot distinguish unset from false, so flags always win.

	return result
}
