package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/salonpos/salonpos/internal/inventory"
)

// Metrics collects the Prometheus metrics exposed by the API.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	usageClamped    prometheus.Counter
	usageShortfall  prometheus.Counter
	ledgerChanges   *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salonpos_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "salonpos_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	clamped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "salonpos_inventory_usage_clamped_total",
		Help: "Usage movements that requested more than the stock on hand.",
	})
	shortfall := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "salonpos_inventory_usage_shortfall_units_total",
		Help: "Units of usage that could not be covered by stock.",
	})
	ledger := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salonpos_inventory_ledger_changes_total",
		Help: "Item ledger updates by movement type or reconcile reason.",
	}, []string{"reason"})
	registry.MustRegister(requests, duration, clamped, shortfall, ledger,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		usageClamped:    clamped,
		usageShortfall:  shortfall,
		ledgerChanges:   ledger,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for job and custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// HandleUsageClamped counts clamped usage and its shortfall.
func (m *Metrics) HandleUsageClamped(_ context.Context, evt inventory.UsageClampedEvent) {
	if m == nil {
		return
	}
	m.usageClamped.Inc()
	m.usageShortfall.Add(float64(evt.Shortfall))
}

// HandleLedgerChanged counts ledger writes by reason.
func (m *Metrics) HandleLedgerChanged(_ context.Context, evt inventory.LedgerChangedEvent) {
	if m == nil {
		return
	}
	m.ledgerChanges.WithLabelValues(evt.Reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
