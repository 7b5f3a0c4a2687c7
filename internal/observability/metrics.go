package observability

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Fetch metrics
	FetchDuration prometheus.Histogram
	FetchErrors   *prometheus.CounterVec

	// Report metrics
	RowsWritten       prometheus.Counter
	RowsFiltered      prometheus.Counter
	WaiversByThreat   *prometheus.CounterVec
	InvalidTimestamps *prometheus.CounterVec

	// Expiry metrics
	WaiversExpiringSoon prometheus.Gauge
	WaiversExpired      prometheus.Gauge

	// Run metrics
	LastSuccess prometheus.Gauge
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "waiverreport_fetch_duration_seconds",
				Help:    "Duration of the waivers report request in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			}),
			FetchErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "waiverreport_fetch_errors_total",
					Help: "Total number of failed waiver fetches by kind",
				},
				[]string{"kind"}, // transport, http, parse
			),

			RowsWritten: promauto.NewCounter(prometheus.CounterOpts{
				Name: "waiverreport_rows_written_total",
				Help: "Total number of waived violations written to the report",
			}),
			RowsFiltered: promauto.NewCounter(prometheus.CounterOpts{
				Name: "waiverreport_rows_filtered_total",
				Help: "Total number of waived violations dropped by the row filter",
			}),
			WaiversByThreat: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "waiverreport_waivers_total",
					Help: "Total number of waived violations by threat level",
				},
				[]string{"threat_level"},
			),
			InvalidTimestamps: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "waiverreport_invalid_timestamps_total",
					Help: "Total number of waiver timestamps that could not be parsed",
				},
				[]string{"field"}, // create, expiry
			),

			WaiversExpiringSoon: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "waiverreport_waivers_expiring_soon",
				Help: "Number of waivers expiring within the warning window",
			}),
			WaiversExpired: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "waiverreport_waivers_expired",
				Help: "Number of waivers whose expiry time has passed",
			}),

			LastSuccess: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "waiverreport_last_success_timestamp_seconds",
				Help: "Unix time of the last successful report run",
			}),
		}
	})
	return metricsInstance
}

// WriteTextfile writes every registered metric to path in the Prometheus text
// format, for pickup by the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
