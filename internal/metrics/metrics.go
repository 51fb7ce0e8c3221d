// Package metrics provides the Prometheus collectors for the speech service.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/book-expert/speech-service/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "speech_service"

// Outcome label values.
const (
	OutcomeSuccess         = "success"
	OutcomeMissingContent  = "missing_content"
	OutcomeInvalidBody     = "invalid_body"
	OutcomeUpstreamCall    = "upstream_call_error"
	OutcomeUpstreamPayload = "upstream_response_error"
	OutcomeEncoding        = "encoding_error"
	OutcomeError           = "error"
)

// Transport label values.
const (
	TransportHTTP = "http"
	TransportNATS = "nats"
)

// Metrics holds the collectors on a dedicated registry.
type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	audioBytesTotal  prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of speech requests by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Duration of upstream speech generation calls in seconds",
				Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"model", "status"},
		),
		audioBytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wav_bytes_total",
				Help:      "Total bytes of WAV audio returned to clients",
			},
		),
	}

	m.registry.MustRegister(m.requestsTotal, m.upstreamDuration, m.audioBytesTotal)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(transport string, err error) {
	m.requestsTotal.WithLabelValues(transport, Outcome(err)).Inc()
}

// ObserveUpstream records the duration of one upstream call.
func (m *Metrics) ObserveUpstream(model string, elapsed time.Duration, err error) {
	status := OutcomeSuccess
	if err != nil {
		status = OutcomeError
	}

	m.upstreamDuration.WithLabelValues(model, status).Observe(elapsed.Seconds())
}

// ObserveAudioBytes adds n to the produced WAV byte counter.
func (m *Metrics) ObserveAudioBytes(n int) {
	m.audioBytesTotal.Add(float64(n))
}

// Outcome maps an error onto its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, core.ErrMissingContent):
		return OutcomeMissingContent
	case errors.Is(err, core.ErrInvalidBody):
		return OutcomeInvalidBody
	case errors.Is(err, core.ErrUpstreamCall):
		return OutcomeUpstreamCall
	case errors.Is(err, core.ErrUpstreamResponse):
		return OutcomeUpstreamPayload
	case errors.Is(err, core.ErrEncoding):
		return OutcomeEncoding
	default:
		return OutcomeError
	}
}
