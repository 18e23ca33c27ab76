package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Pass outcomes.
const (
	OutcomeEmpty   = "empty"
	OutcomeDrained = "drained"
	OutcomeHalted  = "halted"
	OutcomeOffline = "offline"
)

// Metrics holds the sync and local store collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	passes        *prometheus.CounterVec
	entries       *prometheus.CounterVec
	pending       prometheus.Gauge
	storeFailures *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agroflow",
			Name:      "sync_passes_total",
			Help:      "Outbox drain passes by outcome.",
		}, []string{"outcome"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agroflow",
			Name:      "sync_entries_total",
			Help:      "Outbox entries sent to the remote backend by action and result.",
		}, []string{"action", "result"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agroflow",
			Name:      "outbox_pending",
			Help:      "Entries waiting in the outbox after the last drain pass.",
		}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agroflow",
			Name:      "local_store_errors_total",
			Help:      "Local store failures seen by the domain store by operation.",
		}, []string{"op"}),
	}
	reg.MustRegister(
		m.passes,
		m.entries,
		m.pending,
		m.storeFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Pass(outcome string) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Entry(action string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.entries.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Pending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *Metrics) StoreFailure(op string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(op).Inc()
}
