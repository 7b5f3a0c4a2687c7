package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/daimoniac/waiverreport/internal/config"
	"github.com/daimoniac/waiverreport/internal/errors"
	"github.com/daimoniac/waiverreport/internal/iq"
	"github.com/daimoniac/waiverreport/internal/observability"
	"github.com/daimoniac/waiverreport/internal/policy"
	"github.com/daimoniac/waiverreport/internal/report"
	"github.com/google/uuid"
)

// run fetches the waiver report, flattens it and writes the CSV destination
func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	logger := observability.NewLogger(cfg.Observability.LogLevel).With("run_id", uuid.NewString())
	return runWith(ctx, cfg, iq.NewClient(cfg.Server, logger), logger, stdout)
}

func runWith(ctx context.Context, cfg *config.Config, fetcher iq.Fetcher, logger *slog.Logger, stdout io.Writer) error {
	metrics := observability.GetMetrics()

	logger.Info("starting waiver report",
		"server_url", cfg.Server.URL,
		"output", cfg.Output.Path,
		"log_level", cfg.Observability.LogLevel)

	engine, err := policy.NewEngine(logger, policy.FilterConfig{
		Expression:          cfg.Filter.Expression,
		ExpiryWarningWindow: cfg.Filter.ExpiryWarningWindow,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize row filter: %w", err)
	}

	doc, err := fetcher.FetchWaivers(ctx)
	if err != nil {
		logger.Error("failed to fetch waivers",
			"error", err.Error(),
			"transient", errors.IsTransient(err))
		writeMetrics(cfg, logger)
		return err
	}

	rows := report.Flatten(doc, logger)
	recordRowMetrics(metrics, rows)

	result, err := engine.Apply(ctx, rows)
	if err != nil {
		return err
	}
	metrics.RowsFiltered.Add(float64(result.Filtered))
	metrics.WaiversExpiringSoon.Set(float64(len(result.ExpiringSoon)))
	metrics.WaiversExpired.Set(float64(len(result.Expired)))

	if err := report.WriteFile(cfg.Output.Path, result.Rows); err != nil {
		logger.Error("failed to write report",
			"path", cfg.Output.Path,
			"error", err.Error())
		writeMetrics(cfg, logger)
		return err
	}
	metrics.RowsWritten.Add(float64(len(result.Rows)))
	metrics.LastSuccess.Set(float64(time.Now().Unix()))

	logger.Info("waiver report written",
		"path", cfg.Output.Path,
		"rows", len(result.Rows),
		"filtered", result.Filtered,
		"expiring_soon", len(result.ExpiringSoon),
		"expired", len(result.Expired))

	writeMetrics(cfg, logger)

	fmt.Fprintf(stdout, "Waiver details have been written to %s\n", cfg.Output.Path)
	return nil
}

func recordRowMetrics(metrics *observability.Metrics, rows []report.Row) {
	for _, row := range rows {
		metrics.WaiversByThreat.WithLabelValues(strconv.Itoa(row.ThreatLevel)).Inc()
		if row.CreateTime.Kind == report.TimestampInvalid {
			metrics.InvalidTimestamps.WithLabelValues("create").Inc()
		}
		if row.ExpiryTime.Kind == report.TimestampInvalid {
			metrics.InvalidTimestamps.WithLabelValues("expiry").Inc()
		}
	}
}

// writeMetrics exports metrics when a textfile is configured; failures are only logged
func writeMetrics(cfg *config.Config, logger *slog.Logger) {
	if cfg.Observability.MetricsTextfile == "" {
		return
	}
	if err := observability.WriteTextfile(cfg.Observability.MetricsTextfile); err != nil {
		logger.Warn("failed to export metrics",
			"path", cfg.Observability.MetricsTextfile,
			"error", err.Error())
	}
}
