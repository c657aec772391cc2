package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the payment module. A nil
// *Metrics is valid and counts nothing, so unit tests can skip registration.
type Metrics struct {
	WebhooksReceived       prometheus.Counter
	Reconciliations        *prometheus.CounterVec
	ReconciliationFailures *prometheus.CounterVec
	PaymentsInitiated      *prometheus.CounterVec
}

// New creates and registers all payment metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		WebhooksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "schoolpay_payment_webhooks_received_total",
			Help: "Total gateway webhook deliveries accepted for processing",
		}),
		Reconciliations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolpay_payment_reconciliations_total",
			Help: "Reconciliation outcomes by status",
		}, []string{"outcome"}),
		ReconciliationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolpay_payment_reconciliation_failures_total",
			Help: "Reconciliation failures by reason",
		}, []string{"reason"}),
		PaymentsInitiated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolpay_payment_initiated_total",
			Help: "Payment initiations accepted by the gateway, by kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) IncWebhookReceived() {
	if m == nil {
		return
	}
	m.WebhooksReceived.Inc()
}

func (m *Metrics) IncReconciliation(outcome string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncReconciliationFailure(reason string) {
	if m == nil {
		return
	}
	m.ReconciliationFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncPaymentInitiated(kind string) {
	if m == nil {
		return
	}
	m.PaymentsInitiated.WithLabelValues(kind).Inc()
}
