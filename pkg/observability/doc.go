// Package observability provides structured logging and Prometheus metrics for
// the Docket authorization core.
//
// # Logging
//
// The Logger wraps log/slog with a small leveled API and context plumbing so
// that per-request fields (request ID, case file ID) travel with the request:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("case_file_id", caseID).Warn("resource missing")
//
// # Metrics
//
// NewMetrics registers counters for authorization decisions, resource
// provisioning, and UMA token exchanges on a caller-supplied registry:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.AuthzDecisionsTotal.WithLabelValues("deny", scope).Inc()
package observability
