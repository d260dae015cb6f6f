// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// legacyConfigPath is the path to the configuration file used in previous versions.
	legacyConfigPath = "config.json"
	// defaultRequestTimeout is the default timeout for HTTP requests.
	defaultRequestTimeout = 600 * time.Second
	// defaultMaxTokens bounds generation when a model config omits a token cap.
	defaultMaxTokens = 1000
	// DefaultChartMaxPoints caps the live chart buffer when the config omits a value.
	DefaultChartMaxPoints = 100
)

// Config represents the top-level application configuration.
type Config struct {
	Models           []ModelConfig `json:"models"`
	Debug            bool          `json:"debug"`
	TimeoutSeconds   int           `json:"timeout,omitempty"`
	ListenAddr       string        `json:"listen,omitempty"`
	ChartMaxPoints   int           `json:"chartMaxPoints,omitempty"`
	SmoothingPercent int           `json:"smoothingPercent,omitempty"`
	LogFile          string        `json:"logFile,omitempty"`
	ConfigPath       string        `json:"-"`
}

// ModelConfig describes one model endpoint that can take part in a comparison.
type ModelConfig struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Enabled     bool     `json:"enabled"`
	Type        string   `json:"type"`
	URL         string   `json:"url"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	ContextSize int      `json:"contextSize,omitempty"`
	Threads     int      `json:"threads,omitempty"`
	APIKey      string   `json:"apiKey,omitempty"`
}

// MaxTokensOrDefault returns the configured generation cap, falling back to the default.
func (m ModelConfig) MaxTokensOrDefault() int {
	if m.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return m.MaxTokens
}

// DisplayName returns the user-facing name for the model, falling back to the model identifier.
func (m ModelConfig) DisplayName() string {
	if name := strings.TrimSpace(m.Name); name != "" {
		return name
	}
	return m.Model
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MaxPoints returns the chart buffer capacity, applying the default when unset.
func (c Config) MaxPoints() int {
	if c.ChartMaxPoints <= 0 {
		return DefaultChartMaxPoints
	}
	return c.ChartMaxPoints
}

// ListenAddress returns the dashboard HTTP listen address, applying a default if not set.
func (c Config) ListenAddress() string {
	if addr := strings.TrimSpace(c.ListenAddr); addr != "" {
		return addr
	}
	return ":8311"
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "gollamadash.log"
}

// EnabledModels returns the subset of configured models that are enabled for comparison.
func (c Config) EnabledModels() []ModelConfig {
	var enabled []ModelConfig
	for _, m := range c.Models {
		if m.Enabled {
			enabled = append(enabled, m)
		}
	}
	return enabled
}

// Load reads the application configuration from the specified path, with fallback to a legacy path.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err == nil {
		if len(config.Models) == 0 {
			return Config{}, errors.New("config must contain at least one model")
		}
		config.ConfigPath = path
		return config, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		if path == DefaultConfigPath {
			config, legacyErr := loadFromPath(legacyConfigPath)
			if legacyErr == nil {
				if len(config.Models) == 0 {
					return Config{}, errors.New("config must contain at least one model")
				}
				config.ConfigPath = legacyConfigPath
				return config, nil
			}
			if errors.Is(legacyErr, os.ErrNotExist) {
				return Config{}, fmt.Errorf("no configuration file found (searched %q and %q)", DefaultConfigPath, legacyConfigPath)
			}
			return Config{}, fmt.Errorf("could not read config file %q: %w", legacyConfigPath, legacyErr)
		}
		return Config{}, fmt.Errorf("no configuration file found at %q", path)
	}

	return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
}

// loadFromPath is a helper function that loads the configuration from a specific file path.
func loadFromPath(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	if err := Validate(data); err != nil {
		return Config{}, fmt.Errorf("config file %q: %w", path, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}

	return config, nil
}
