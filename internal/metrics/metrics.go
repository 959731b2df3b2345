// Package metrics exposes prometheus collectors for the voice pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	taps    *prometheus.CounterVec
	runs    *prometheus.CounterVec
	intents *prometheus.CounterVec
	answers *prometheus.HistogramVec
	status  *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		taps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vox_taps_total",
			Help: "Mic taps by what the controller did with them",
		}, []string{"result"}),

		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vox_runs_total",
			Help: "Finished voice interactions by outcome",
		}, []string{"outcome"}),

		intents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vox_intents_total",
			Help: "Resolved navigation intents",
		}, []string{"target", "lang"}),

		answers: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vox_answer_duration_seconds",
			Help:    "Latency of the fallback answering service",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),

		status: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vox_status",
			Help: "Current voice session status (1 for the active one)",
		}, []string{"status"}),
	}
}

func (m *Metrics) Tap(result string) {
	if m == nil {
		return
	}
	m.taps.WithLabelValues(result).Inc()
}

func (m *Metrics) Run(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Intent(target, lang string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(target, lang).Inc()
}

func (m *Metrics) Answer(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(outcome).Observe(took.Seconds())
}

func (m *Metrics) Status(status string) {
	if m == nil {
		return
	}
	m.status.Reset()
	m.status.WithLabelValues(status).Set(1)
}
