package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the optional waiverreport.yml file.
// Every field is optional; environment variables take precedence over it.
type FileConfig struct {
	Server struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"server"`
	Output struct {
		Path string `yaml:"path"`
	} `yaml:"output"`
	Filter struct {
		Expression          string `yaml:"expression"`
		ExpiryWarningWindow string `yaml:"expiryWarningWindow"`
	} `yaml:"filter"`
	Observability struct {
		LogLevel        string `yaml:"logLevel"`
		MetricsTextfile string `yaml:"metricsTextfile"`
	} `yaml:"observability"`
}

// ParseFile reads and parses a waiverreport.yml configuration file
func ParseFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML %s: %w", path, err)
	}

	return &fc, nil
}

// timeout returns the parsed server timeout, zero when unset
func (fc *FileConfig) timeout() (time.Duration, error) {
	if fc.Server.Timeout == "" {
		return 0, nil
	}
	return ParseTimeout(fc.Server.Timeout)
}

// expiryWarningWindow returns the parsed warning window, zero when unset
func (fc *FileConfig) expiryWarningWindow() (time.Duration, error) {
	if fc.Filter.ExpiryWarningWindow == "" {
		return 0, nil
	}
	return parseInterval(fc.Filter.ExpiryWarningWindow)
}
