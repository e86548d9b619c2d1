package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/testdriverai/go-sdk/pkg/core"
)

// Environment variables read by ConfigFromEnv and LoadConfig.
const (
	EnvAPIRoot    = "TD_API_ROOT"
	EnvAPIKey     = "TD_API_KEY"
	EnvAPIVersion = "TD_API_VERSION"
	EnvSession    = "TD_SESSION"
	EnvLogLevel   = "TD_LOG_LEVEL"
)

// Config contains configuration options for the client.
type Config struct {
	// BaseURL is the API root of the TestDriver backend
	BaseURL string `yaml:"baseURL"`

	// APIKey is exchanged for a bearer token by Authenticate. When empty the
	// client runs unauthenticated.
	APIKey string `yaml:"apiKey"`

	// APIVersion is the versioned command namespace (default "v7")
	APIVersion string `yaml:"apiVersion"`

	// Namespace is the command namespace under the version (default "testdriver")
	Namespace string `yaml:"namespace"`

	// SDKVersion is reported to the auth exchange (default Version)
	SDKVersion string `yaml:"sdkVersion"`

	// SessionID resumes an existing session; a new one is generated when empty
	SessionID string `yaml:"session"`

	// LogLevel is a logrus level name (default "info")
	LogLevel string `yaml:"logLevel"`

	// HTTPTimeout bounds every HTTP exchange, including streamed bodies.
	// Zero means no transport-level deadline; per-command timeouts still apply.
	HTTPTimeout time.Duration `yaml:"httpTimeout"`

	// Logger overrides the logger built from LogLevel
	Logger logrus.FieldLogger `yaml:"-"`

	// HTTPClient overrides the default HTTP client
	HTTPClient *http.Client `yaml:"-"`
}

// Validate checks the configuration and returns a *core.ConfigError for the
// first invalid field.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return &core.ConfigError{
			Field: "BaseURL",
			Value: c.BaseURL,
			Err:   errors.New("base URL cannot be empty"),
		}
	}

	baseURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return &core.ConfigError{
			Field: "BaseURL",
			Value: c.BaseURL,
			Err:   fmt.Errorf("invalid base URL: %w", err),
		}
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return &core.ConfigError{
			Field: "BaseURL",
			Value: c.BaseURL,
			Err:   fmt.Errorf("unsupported scheme %q", baseURL.Scheme),
		}
	}
	if baseURL.Host == "" {
		return &core.ConfigError{
			Field: "BaseURL",
			Value: c.BaseURL,
			Err:   errors.New("base URL must have a host"),
		}
	}

	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return &core.ConfigError{Field: "LogLevel", Value: c.LogLevel, Err: err}
		}
	}

	if c.HTTPTimeout < 0 {
		return &core.ConfigError{
			Field: "HTTPTimeout",
			Value: c.HTTPTimeout,
			Err:   errors.New("timeout cannot be negative"),
		}
	}
	return nil
}

// ConfigFromEnv builds a Config from the TD_* environment variables.
func ConfigFromEnv() Config {
	var cfg Config
	applyEnv(&cfg, os.LookupEnv)
	return cfg
}

// LoadConfig reads a YAML config file and applies TD_* environment
// variables on top of it.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, field *string) {
		if value, ok := lookup(key); ok && value != "" {
			*field = value
		}
	}
	set(EnvAPIRoot, &cfg.BaseURL)
	set(EnvAPIKey, &cfg.APIKey)
	set(EnvAPIVersion, &cfg.APIVersion)
	set(EnvSession, &cfg.SessionID)
	set(EnvLogLevel, &cfg.LogLevel)
}

func (c Config) newLogger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	logger := logrus.New()
	level := logrus.InfoLevel
	if c.LogLevel != "" {
		// Validate has already rejected unknown names
		level, _ = logrus.ParseLevel(c.LogLevel)
	}
	logger.SetLevel(level)
	return logger
}
