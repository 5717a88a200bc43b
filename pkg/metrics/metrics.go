// Package metrics exposes Prometheus instrumentation for the wespeaker
// service.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace       = "wespeaker"
	SubsystemSystem = "system"
	SubsystemHTTP   = "http"
	SubsystemAPI    = "api"
	SubsystemSpeech = "speaker"
)

// Metrics records service activity.
type Metrics interface {
	// Handler serves the registry in the Prometheus exposition format.
	Handler() http.Handler

	ObserveAPIEndpointDuration(handler, method, statusCode string, elapsed float64)

	IncrementHTTPRequests()
	IncrementHTTPErrors()

	ObserveExtraction(windowType string)
	ObserveComparison(verdict string)
	ObserveUpload(bytes int64)
	ObserveSweep(removed int)
}

type metrics struct {
	registry *prometheus.Registry

	startTime prometheus.Gauge
	info      prometheus.Gauge

	apiTime *prometheus.HistogramVec

	httpRequestsTotal prometheus.Counter
	httpErrorsTotal   prometheus.Counter

	extractionsTotal *prometheus.CounterVec
	comparisonsTotal *prometheus.CounterVec
	uploadsTotal     prometheus.Counter
	uploadBytes      prometheus.Counter
	sweptTotal       prometheus.Counter
}

// New creates a Metrics backed by a fresh registry that also carries the
// process and Go runtime collectors.
func New(version, model string) Metrics {
	m := &metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: SubsystemSystem,
		Name:      "start_timestamp_seconds",
		Help:      "The time the service started.",
	})
	m.startTime.SetToCurrentTime()

	m.info = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Subsystem:   SubsystemSystem,
		Name:        "info",
		Help:        "The service version and embedding model.",
		ConstLabels: prometheus.Labels{"version": version, "model": model},
	})
	m.info.Set(1)

	m.apiTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemAPI,
		Name:      "time_seconds",
		Help:      "Time to execute the api handler.",
	}, []string{"handler", "method", "status_code"})

	m.httpRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "requests_total",
		Help:      "The total number of http requests.",
	})
	m.httpErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "errors_total",
		Help:      "The total number of http requests answered with an error status.",
	})

	m.extractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemSpeech,
		Name:      "extractions_total",
		Help:      "Embedding extractions by window type.",
	}, []string{"window_type"})
	m.comparisonsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemSpeech,
		Name:      "comparisons_total",
		Help:      "Speaker comparisons by verdict.",
	}, []string{"verdict"})
	m.uploadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "uploads_total",
		Help:      "Audio clips stored.",
	})
	m.uploadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "upload_bytes_total",
		Help:      "Bytes of audio stored.",
	})
	m.sweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemSystem,
		Name:      "uploads_swept_total",
		Help:      "Audio clips removed by the retention sweeper.",
	})

	m.registry.MustRegister(
		m.startTime, m.info, m.apiTime,
		m.httpRequestsTotal, m.httpErrorsTotal,
		m.extractionsTotal, m.comparisonsTotal,
		m.uploadsTotal, m.uploadBytes, m.sweptTotal,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{ErrorLog: errorLogger{}})
}

func (m *metrics) ObserveAPIEndpointDuration(handler, method, statusCode string, elapsed float64) {
	m.apiTime.With(prometheus.Labels{"handler": handler, "method": method, "status_code": statusCode}).Observe(elapsed)
}

func (m *metrics) IncrementHTTPRequests() { m.httpRequestsTotal.Inc() }
func (m *metrics) IncrementHTTPErrors()   { m.httpErrorsTotal.Inc() }

func (m *metrics) ObserveExtraction(windowType string) {
	m.extractionsTotal.WithLabelValues(windowType).Inc()
}

func (m *metrics) ObserveComparison(verdict string) {
	m.comparisonsTotal.WithLabelValues(verdict).Inc()
}

func (m *metrics) ObserveUpload(bytes int64) {
	m.uploadsTotal.Inc()
	m.uploadBytes.Add(float64(bytes))
}

func (m *metrics) ObserveSweep(removed int) {
	m.sweptTotal.Add(float64(removed))
}

type errorLogger struct{}

func (errorLogger) Println(v ...any) {
	slog.Warn("metrics handler error", "error", fmt.Sprint(v...))
}
