package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Reconciliation metrics
	sourceFetches   *prometheus.CounterVec
	sourceDuration  *prometheus.HistogramVec
	reconciles      *prometheus.CounterVec
	mergedQuarters  *prometheus.HistogramVec
	enrichBatches   *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	calendarEntries prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.sourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarterly_source_fetch_total",
			Help: "Total number of provider fetches",
		},
		[]string{"source", "status"},
	)
	r.sourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quarterly_source_fetch_duration_seconds",
			Help:    "Provider fetch duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)
	r.reconciles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarterly_reconcile_total",
			Help: "Total number of reconciliations",
		},
		[]string{"kind"},
	)
	r.mergedQuarters = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quarterly_merged_quarters",
			Help:    "Quarters in a reconciled history",
			Buckets: []float64{0, 4, 8, 12, 16, 24, 32},
		},
		[]string{"kind"},
	)
	r.enrichBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarterly_enrich_batches_total",
			Help: "Total number of calendar enrichment batches",
		},
		[]string{"status"},
	)
	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarterly_cache_total",
			Help: "Total number of cache lookups",
		},
		[]string{"result"},
	)
	r.calendarEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quarterly_calendar_entries",
			Help: "Entries in the last built earnings calendar",
		},
	)

	reg.MustRegister(r.sourceFetches)
	reg.MustRegister(r.sourceDuration)
	reg.MustRegister(r.reconciles)
	reg.MustRegister(r.mergedQuarters)
	reg.MustRegister(r.enrichBatches)
	reg.MustRegister(r.cacheLookups)
	reg.MustRegister(r.calendarEntries)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordSourceFetch records one provider call. A nil registry is a no-op.
func (r *Registry) RecordSourceFetch(source string, ok bool, duration float64) {
	if r == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	r.sourceFetches.WithLabelValues(source, status).Inc()
	r.sourceDuration.WithLabelValues(source).Observe(duration)
}

// RecordReconcile records a reconciled history of the given kind and size.
func (r *Registry) RecordReconcile(kind string, quarters int) {
	if r == nil {
		return
	}
	r.reconciles.WithLabelValues(kind).Inc()
	r.mergedQuarters.WithLabelValues(kind).Observe(float64(quarters))
}

// RecordEnrichBatch records one batch-quote lookup.
func (r *Registry) RecordEnrichBatch(ok bool) {
	if r == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	r.enrichBatches.WithLabelValues(status).Inc()
}

// RecordCache records a cache hit or miss.
func (r *Registry) RecordCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// SetCalendarSize sets the number of entries in the last calendar.
func (r *Registry) SetCalendarSize(n int) {
	if r == nil {
		return
	}
	r.calendarEntries.Set(float64(n))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
