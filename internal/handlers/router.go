package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/sagoresarker/irr-prefix-lookup/internal/metrics"
)

type RouterOptions struct {
	Lookup  *LookupHandler
	Health  *HealthHandler
	Metrics *metrics.Metrics
	// MetricsPath is where Metrics is served; empty disables the endpoint.
	MetricsPath string
	Log         logrus.FieldLogger
}

// NewRouter mounts the service endpoints.
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	if opts.Log != nil {
		r.Use(RequestLogger(opts.Log))
	}
	r.Use(middleware.Recoverer)

	r.HandleFunc("/lookup", EnableCORS(opts.Lookup.Handle))
	if opts.Health != nil {
		r.Get("/health", opts.Health.Handle)
		r.Get("/ready", opts.Health.Ready)
	}
	if opts.Metrics != nil && opts.MetricsPath != "" {
		r.Method(http.MethodGet, opts.MetricsPath, opts.Metrics.Handler())
	}
	return r
}
