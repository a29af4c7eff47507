package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for reminder lifecycle events.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	armed            prometheus.Gauge
	fired            prometheus.Counter
	cancelled        prometheus.Counter
	reaped           prometheus.Counter
	deliveryFailures prometheus.Counter
	parseOutcomes    *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg and panics on conflicts,
// mirroring promauto. Tests should pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		armed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nudge",
			Name:      "reminders_armed",
			Help:      "Reminders with a live timer.",
		}),
		fired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nudge",
			Name:      "reminders_fired_total",
			Help:      "Reminders whose timer fired and were handed to delivery.",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nudge",
			Name:      "reminders_cancelled_total",
			Help:      "Reminders removed by an owner before firing.",
		}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nudge",
			Name:      "reminders_reaped_total",
			Help:      "Past-due reminders dropped without delivery at startup.",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nudge",
			Name:      "delivery_failures_total",
			Help:      "Notifications the delivery collaborator reported as failed.",
		}),
		parseOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nudge",
			Name:      "parse_outcomes_total",
			Help:      "Reminder requests by parse outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.armed, m.fired, m.cancelled, m.reaped, m.deliveryFailures, m.parseOutcomes)
	return m
}

func (m *Metrics) setArmed(n int) {
	if m == nil {
		return
	}
	m.armed.Set(float64(n))
}

func (m *Metrics) incFired() {
	if m == nil {
		return
	}
	m.fired.Inc()
}

func (m *Metrics) addCancelled(n int) {
	if m == nil {
		return
	}
	m.cancelled.Add(float64(n))
}

func (m *Metrics) incReaped() {
	if m == nil {
		return
	}
	m.reaped.Inc()
}

func (m *Metrics) incDeliveryFailure() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}

// ObserveParse counts one reminder request, labelled "scheduled",
// "no_time", "invalid_date" or "empty_payload".
func (m *Metrics) ObserveParse(outcome string) {
	if m == nil {
		return
	}
	m.parseOutcomes.WithLabelValues(outcome).Inc()
}
