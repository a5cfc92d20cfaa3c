// Package metrics exposes Prometheus counters for the intake pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "traveler_intake"

// Pipeline records per-document outcomes. A nil *Pipeline is a no-op so
// callers that do not care about metrics can pass nil.
type Pipeline struct {
	registry *prometheus.Registry

	documentsTotal  *prometheus.CounterVec
	fieldsTotal     *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	ocrConfidence   *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	queueDepth      prometheus.Gauge
}

func NewPipeline(service string) *Pipeline {
	registry := prometheus.NewRegistry()

	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Processed documents by type and final status.",
		},
		[]string{"service", "doc_type", "status"},
	)
	fieldsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "fields_total",
			Help:      "Extracted fields by name and whether a value was found.",
		},
		[]string{"service", "doc_type", "field", "found"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "process_duration_seconds",
			Help:      "Document processing duration in seconds by stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service", "stage"},
	)
	ocrConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ocr",
			Name:      "confidence",
			Help:      "OCR confidence per document.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service", "method"},
	)
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "pipeline",
		Name:        "in_flight",
		Help:        "Documents currently being processed.",
		ConstLabels: prometheus.Labels{"service": service},
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "queue",
		Name:        "depth",
		Help:        "Jobs waiting for a worker.",
		ConstLabels: prometheus.Labels{"service": service},
	})

	registry.MustRegister(documentsTotal, fieldsTotal, processDuration, ocrConfidence, inFlight, queueDepth)

	return &Pipeline{
		registry:        registry,
		documentsTotal:  documentsTotal,
		fieldsTotal:     fieldsTotal,
		processDuration: processDuration,
		ocrConfidence:   ocrConfidence,
		inFlight:        inFlight,
		queueDepth:      queueDepth,
	}
}

func (m *Pipeline) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Pipeline) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Pipeline) StartDocument() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Pipeline) FinishDocument(service, docType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.documentsTotal.WithLabelValues(service, docType, status).Inc()
	m.processDuration.WithLabelValues(service, "total").Observe(duration.Seconds())
}

func (m *Pipeline) ObserveStage(service, stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.processDuration.WithLabelValues(service, stage).Observe(duration.Seconds())
}

func (m *Pipeline) ObserveOCR(service, method string, confidence float32) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.ocrConfidence.WithLabelValues(service, method).Observe(float64(confidence))
}

// RecordFields counts hits and misses for every key of an extracted mapping.
func (m *Pipeline) RecordFields(service, docType string, values map[string]any) {
	if m == nil {
		return
	}
	for field, v := range values {
		found := "true"
		if v == nil {
			found = "false"
		}
		m.fieldsTotal.WithLabelValues(service, docType, field, found).Inc()
	}
}

func (m *Pipeline) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
