package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/authcore"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Authorization metrics
	AuthDenialsTotal    metric.Int64Counter
	SecurityEventsTotal metric.Int64Counter

	// Audit metrics
	AuditRecordsTotal metric.Int64Counter

	// API key issuance metrics
	KeyIssueAttempts       metric.Int64Counter
	KeyIssueExhaustedTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.AuthDenialsTotal, _ = meter.Int64Counter(
		"authcore.auth.denials.total",
		metric.WithDescription("Total number of denied authorization decisions"),
		metric.WithUnit("{denial}"),
	)

	m.SecurityEventsTotal, _ = meter.Int64Counter(
		"authcore.security_audit.records.total",
		metric.WithDescription("Total number of security audit records written"),
		metric.WithUnit("{record}"),
	)

	m.AuditRecordsTotal, _ = meter.Int64Counter(
		"authcore.audit.records.total",
		metric.WithDescription("Total number of audit records written"),
		metric.WithUnit("{record}"),
	)

	m.KeyIssueAttempts, _ = meter.Int64Counter(
		"authcore.apikeys.issue_attempts.total",
		metric.WithDescription("Total number of API key secret generation attempts"),
		metric.WithUnit("{attempt}"),
	)

	m.KeyIssueExhaustedTotal, _ = meter.Int64Counter(
		"authcore.apikeys.issue_exhausted.total",
		metric.WithDescription("Total number of API key issuances that exhausted their retry budget"),
		metric.WithUnit("{failure}"),
	)

	return m
}
