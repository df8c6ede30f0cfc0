// Package metrics exposes Prometheus collectors for event extraction.
//
// A nil *Recorder is valid and records nothing, so callers that do not serve
// /metrics (the one-shot CLI commands) can skip the registry entirely.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Extraction results.
const (
	ResultSuccess    = "success"
	ResultInputError = "input_error"
	ResultFetchError = "fetch_error"
	ResultParseError = "parse_error"
	ResultDateError  = "date_error"
)

// Recorder updates the extraction collectors.
type Recorder struct {
	extractions   *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fourscal",
			Name:      "extractions_total",
			Help:      "Event extractions by result",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fourscal",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching event pages",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45},
		}, []string{"renderer"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fourscal",
			Name:      "field_fallbacks_total",
			Help:      "Fields that fell back to their default because no selector matched",
		}, []string{"field"}),
	}
	reg.MustRegister(r.extractions, r.fetchDuration, r.fallbacks)
	return r
}

// Extraction counts one finished extraction by its result.
func (r *Recorder) Extraction(result string) {
	if r == nil {
		return
	}
	r.extractions.WithLabelValues(result).Inc()
}

// Fetch observes how long one page fetch took.
func (r *Recorder) Fetch(renderer string, d time.Duration) {
	if r == nil {
		return
	}
	r.fetchDuration.WithLabelValues(renderer).Observe(d.Seconds())
}

// Fallback counts a field that was filled with its sentinel or default.
func (r *Recorder) Fallback(field string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(field).Inc()
}
