package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Defaults used when neither the environment nor the config file set a value
const (
	DefaultConfigPath          = "waiverreport.yml"
	DefaultServerURL           = "http://localhost:8070"
	DefaultUsername            = "admin"
	DefaultPassword            = "admin123"
	DefaultOutputPath          = "repository_waivers.csv"
	DefaultLogLevel            = "info"
	DefaultExpiryWarningWindow = 7 * 24 * time.Hour
)

// Load loads configuration from the optional YAML file and environment variables.
// An empty path falls back to WAIVERREPORT_CONFIG, then waiverreport.yml; a
// missing file is only an error when the path was given explicitly.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = getEnv("WAIVERREPORT_CONFIG", "")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigPath
	}

	fc := &FileConfig{}
	if parsed, err := ParseFile(path); err == nil {
		fc = parsed
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	fileTimeout, err := fc.timeout()
	if err != nil {
		return nil, fmt.Errorf("invalid server.timeout in %s: %w", path, err)
	}
	fileWindow, err := fc.expiryWarningWindow()
	if err != nil {
		return nil, fmt.Errorf("invalid filter.expiryWarningWindow in %s: %w", path, err)
	}
	if fileWindow == 0 {
		fileWindow = DefaultExpiryWarningWindow
	}

	timeout, err := getEnvDuration("IQ_TIMEOUT", fileTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid IQ_TIMEOUT: %w", err)
	}

	window := fileWindow
	if value := os.Getenv("EXPIRY_WARNING_WINDOW"); value != "" {
		window, err = parseInterval(value)
		if err != nil {
			return nil, fmt.Errorf("invalid EXPIRY_WARNING_WINDOW: %w", err)
		}
	}

	cfg := &Config{
		ConfigPath: path,
		Server: ServerConfig{
			URL:      getEnv("IQ_SERVER_URL", orDefault(fc.Server.URL, DefaultServerURL)),
			Username: getEnv("IQ_USERNAME", orDefault(fc.Server.Username, DefaultUsername)),
			Password: getEnv("IQ_PASSWORD", orDefault(fc.Server.Password, DefaultPassword)),
			Timeout:  timeout,
		},
		Output: OutputConfig{
			Path: getEnv("OUTPUT_CSV", orDefault(fc.Output.Path, DefaultOutputPath)),
		},
		Filter: FilterConfig{
			Expression:          getEnv("WAIVER_FILTER", fc.Filter.Expression),
			ExpiryWarningWindow: window,
		},
		Observability: ObservabilityConfig{
			LogLevel:        getEnv("LOG_LEVEL", orDefault(fc.Observability.LogLevel, DefaultLogLevel)),
			MetricsTextfile: getEnv("METRICS_TEXTFILE", fc.Observability.MetricsTextfile),
		},
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required")
	}

	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", c.Server.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server URL %q: scheme must be http or https", c.Server.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server URL %q: missing host", c.Server.URL)
	}

	if c.Server.Username == "" {
		return fmt.Errorf("server username is required")
	}

	if c.Server.Timeout < 0 {
		return fmt.Errorf("server timeout must not be negative: %s", c.Server.Timeout)
	}

	if c.Output.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if c.Filter.ExpiryWarningWindow <= 0 {
		return fmt.Errorf("expiry warning window must be positive")
	}

	switch strings.ToLower(c.Observability.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Observability.LogLevel)
	}

	return nil
}

// Redacted returns a copy safe to print, with the password masked
func (c *Config) Redacted() Config {
	out := *c
	if out.Server.Password != "" {
		out.Server.Password = "[set]"
	} else {
		out.Server.Password = "[not set]"
	}
	return out
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		return ParseTimeout(value)
	}
	return defaultValue, nil
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}
