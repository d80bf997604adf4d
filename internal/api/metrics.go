package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	tokensIssued  prometheus.Counter
	issueFailures *prometheus.CounterVec
	verifications *prometheus.CounterVec
	panics        prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apigate",
			Name:      "tokens_issued_total",
			Help:      "API tokens issued through the credential exchange.",
		}),
		issueFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apigate",
			Name:      "token_issue_failures_total",
			Help:      "Rejected credential exchanges by HTTP status.",
		}, []string{"status"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apigate",
			Name:      "token_verifications_total",
			Help:      "Bearer token checks by outcome.",
		}, []string{"result"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apigate",
			Name:      "handler_panics_total",
			Help:      "Handler panics recovered by the server.",
		}),
	}
	reg.MustRegister(m.tokensIssued, m.issueFailures, m.verifications, m.panics)
	return m
}

// verification outcome labels
const (
	resultOK          = "ok"
	resultMissing     = "missing"
	resultFormat      = "format"
	resultExpired     = "expired"
	resultInvalid     = "invalid"
	resultType        = "type"
	resultPayload     = "payload"
	resultUnavailable = "unavailable"
	resultError       = "error"
)

func (a *API) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry holding the API metrics.
func (a *API) Registry() *prometheus.Registry {
	return a.registry
}
