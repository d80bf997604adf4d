// Package api exposes the apigate service over HTTP: the credential exchange
// endpoint, the bearer-protected API surface and operator administration.
package api

import (
	"encoding/json"
	"net/http"

	"git.sr.ht/~jakintosh/apigate/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Options struct {
	Logger *zap.Logger
	// Registry receives the API metrics. A fresh registry is created when nil.
	Registry *prometheus.Registry
	// Ready reports storage health for /health. Optional.
	Ready func() error
	// Version is reported by /info. Defaults to "dev".
	Version string
}

type API struct {
	service  *service.Service
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics
	ready    func() error
	version  string
}

func New(
	svc *service.Service,
	opts Options,
) *API {
	a := &API{
		service:  svc,
		log:      opts.Logger,
		registry: opts.Registry,
		ready:    opts.Ready,
		version:  opts.Version,
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	if a.version == "" {
		a.version = "dev"
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	a.metrics = newMetrics(a.registry)
	return a
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request, log *zap.Logger) bool {
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		logApiErr(log, r, "bad json request", zap.Error(err))
		writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func returnJson(data any, w http.ResponseWriter) {
	returnJsonStatus(http.StatusOK, data, w)
}

func returnJsonStatus(status int, data any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func logApiErr(log *zap.Logger, r *http.Request, msg string, fields ...zap.Field) {
	log.Info(msg, append([]zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}, fields...)...)
}
