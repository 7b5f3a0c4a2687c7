package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/daimoniac/waiverreport/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath      string
	serverURL       string
	username        string
	password        string
	outputPath      string
	logLevel        string
	filterExpr      string
	timeout         string
	metricsTextfile string
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "waiverreport",
		Short: "Export repository waivers from IQ Server to CSV",
		Long: `waiverreport fetches the component waivers report from an IQ Server and
writes one CSV row per waived policy violation.

Configuration is read from waiverreport.yml, a .env file, environment
variables and flags, in increasing order of precedence.`,
		Example: `  waiverreport
  waiverreport --server-url https://iq.example.com --output waivers.csv
  waiverreport --filter 'threatLevel >= 7'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return reportFailure(cmd.ErrOrStderr(), err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := run(ctx, cfg, cmd.OutOrStdout()); err != nil {
				return reportFailure(cmd.ErrOrStderr(), err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $WAIVERREPORT_CONFIG or waiverreport.yml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "IQ Server base URL (env IQ_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "IQ Server username (env IQ_USERNAME)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "IQ Server password (env IQ_PASSWORD)")
	rootCmd.PersistentFlags().StringVar(&outputPath, "output", "", "CSV output path (env OUTPUT_CSV)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&filterExpr, "filter", "", "CEL expression selecting rows to keep (env WAIVER_FILTER)")
	rootCmd.PersistentFlags().StringVar(&timeout, "timeout", "", "Request timeout such as 30s or 2m, 0 for none (env IQ_TIMEOUT)")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file (env METRICS_TEXTFILE)")

	rootCmd.AddCommand(newPrintConfigCmd())

	return rootCmd
}

// loadConfig layers .env, the config file, the environment and explicit flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return nil, err
	}
	cfg.Apply(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// flagOverrides collects only the flags the user actually set
func flagOverrides(cmd *cobra.Command) (config.Overrides, error) {
	var o config.Overrides
	flags := cmd.Flags()

	if flags.Changed("server-url") {
		o.ServerURL = &serverURL
	}
	if flags.Changed("username") {
		o.Username = &username
	}
	if flags.Changed("password") {
		o.Password = &password
	}
	if flags.Changed("output") {
		o.OutputPath = &outputPath
	}
	if flags.Changed("log-level") {
		o.LogLevel = &logLevel
	}
	if flags.Changed("filter") {
		o.Filter = &filterExpr
	}
	if flags.Changed("metrics-textfile") {
		o.MetricsTextfile = &metricsTextfile
	}
	if flags.Changed("timeout") {
		d, err := config.ParseTimeout(timeout)
		if err != nil {
			return o, fmt.Errorf("invalid --timeout: %w", err)
		}
		o.Timeout = &d
	}

	return o, nil
}

func reportFailure(w io.Writer, err error) error {
	fmt.Fprintf(w, "An error occurred: %v\n", err)
	return err
}

func newPrintConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print-config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return reportFailure(cmd.ErrOrStderr(), err)
			}

			r := cfg.Redacted()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config File: %s\n", r.ConfigPath)
			fmt.Fprintf(out, "Server URL: %s\n", r.Server.URL)
			fmt.Fprintf(out, "Username: %s\n", r.Server.Username)
			fmt.Fprintf(out, "Password: %s\n", r.Server.Password)
			fmt.Fprintf(out, "Timeout: %s\n", r.Server.Timeout)
			fmt.Fprintf(out, "Output: %s\n", r.Output.Path)
			fmt.Fprintf(out, "Filter: %s\n", r.Filter.Expression)
			fmt.Fprintf(out, "Expiry Warning Window: %s\n", r.Filter.ExpiryWarningWindow)
			fmt.Fprintf(out, "Log Level: %s\n", r.Observability.LogLevel)
			fmt.Fprintf(out, "Metrics Textfile: %s\n", r.Observability.MetricsTextfile)
			return nil
		},
	}
}
