package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the authorization core
type Metrics struct {
	// Authorization decision metrics
	AuthzDecisionsTotal *prometheus.CounterVec
	AuthzErrorsTotal    *prometheus.CounterVec

	// Resource provisioning metrics
	ResourceCreationsTotal *prometheus.CounterVec
	ResourceLookupsTotal   *prometheus.CounterVec

	// UMA token exchange metrics
	RPTExchangesTotal *prometheus.CounterVec

	// Naming-contract drift: resource names returned by the provider that do
	// not match the case-file:{id} convention
	ResourceNameParseFailures prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docket_authz_decisions_total",
				Help: "Total case file authorization decisions by outcome",
			},
			[]string{"outcome", "scope"},
		),
		AuthzErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docket_authz_errors_total",
				Help: "Unexpected failures during authorization checks",
			},
			[]string{"operation"},
		),
		ResourceCreationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docket_resource_creations_total",
				Help: "Case file resource creations against the identity provider",
			},
			[]string{"result"},
		),
		ResourceLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docket_resource_lookups_total",
				Help: "Case file resource lookups by result (hit, miss, cached)",
			},
			[]string{"result"},
		),
		RPTExchangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docket_rpt_exchanges_total",
				Help: "UMA ticket-grant token exchanges by response class",
			},
			[]string{"status"},
		),
		ResourceNameParseFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docket_resource_name_parse_failures_total",
				Help: "Provider resource names that did not match the case-file:{id} convention",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.AuthzDecisionsTotal,
			m.AuthzErrorsTotal,
			m.ResourceCreationsTotal,
			m.ResourceLookupsTotal,
			m.RPTExchangesTotal,
			m.ResourceNameParseFailures,
		)
	}

	return m
}
