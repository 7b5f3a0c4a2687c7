// Package observability provides structured logging and Prometheus metrics
// for waiverreport.
//
// Key features:
// - Structured JSON logging on stderr with configurable log levels and UTC timestamps
// - Prometheus metrics for the fetch, the flattened rows and waiver expiry
// - Textfile export of all metrics for the node_exporter textfile collector
package observability
