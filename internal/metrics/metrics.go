// Package metrics exposes the ledger's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector records ledger activity. Implementations must be safe for
// concurrent use.
type Collector interface {
	RecordMutation(kind, direction string)
	RecordResolution(action, outcome string)
	RecordOTPVerification(result string)
	RecordNotification(result string)
}

type prometheusCollector struct {
	mutations     *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	verifications *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewPrometheusCollector registers the ledger counters on reg.
func NewPrometheusCollector(reg prometheus.Registerer) Collector {
	c := &prometheusCollector{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_balance_mutations_total",
			Help: "Committed balance mutations by entry kind and direction.",
		}, []string{"kind", "direction"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_admin_resolutions_total",
			Help: "Admin resolution attempts by action and outcome.",
		}, []string{"action", "outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_withdrawal_otp_verifications_total",
			Help: "Withdrawal code verifications by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_notifications_total",
			Help: "Notification deliveries by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(c.mutations, c.resolutions, c.verifications, c.notifications)
	return c
}

func (c *prometheusCollector) RecordMutation(kind, direction string) {
	c.mutations.WithLabelValues(kind, direction).Inc()
}

func (c *prometheusCollector) RecordResolution(action, outcome string) {
	c.resolutions.WithLabelValues(action, outcome).Inc()
}

func (c *prometheusCollector) RecordOTPVerification(result string) {
	c.verifications.WithLabelValues(result).Inc()
}

func (c *prometheusCollector) RecordNotification(result string) {
	c.notifications.WithLabelValues(result).Inc()
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordMutation(string, string)   {}
func (Noop) RecordResolution(string, string) {}
func (Noop) RecordOTPVerification(string)    {}
func (Noop) RecordNotification(string)       {}
