package config

import "time"

// Config represents the complete application configuration
type Config struct {
	ConfigPath    string
	Server        ServerConfig
	Output        OutputConfig
	Filter        FilterConfig
	Observability ObservabilityConfig
}

// ServerConfig configures the connection to the policy server
type ServerConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration // Zero means no client-side timeout
}

// OutputConfig configures the CSV destination
type OutputConfig struct {
	Path string
}

// FilterConfig configures row filtering and expiry warnings
type FilterConfig struct {
	Expression          string
	ExpiryWarningWindow time.Duration
}

// ObservabilityConfig configures logging and metrics
type ObservabilityConfig struct {
	LogLevel        string
	MetricsTextfile string
}

// Overrides carries values set explicitly on the command line.
// Nil fields leave the loaded value untouched.
type Overrides struct {
	ServerURL       *string
	Username        *string
	Password        *string
	Timeout         *time.Duration
	OutputPath      *string
	Filter          *string
	LogLevel        *string
	MetricsTextfile *string
}

// Apply copies every non-nil override into the configuration
func (c *Config) Apply(o Overrides) {
	if o.ServerURL != nil {
		c.Server.URL = *o.ServerURL
	}
	if o.Username != nil {
		c.Server.Username = *o.Username
	}
	if o.Password != nil {
		c.Server.Password = *o.Password
	}
	if o.Timeout != nil {
		c.Server.Timeout = *o.Timeout
	}
	if o.OutputPath != nil {
		c.Output.Path = *o.OutputPath
	}
	if o.Filter != nil {
		c.Filter.Expression = *o.Filter
	}
	if o.LogLevel != nil {
		c.Observability.LogLevel = *o.LogLevel
	}
	if o.MetricsTextfile != nil {
		c.Observability.MetricsTextfile = *o.MetricsTextfile
	}
}
