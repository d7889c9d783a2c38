package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "printbridge"

// WebhookMetrics tracks inbound order deliveries and what the pipeline did with them.
type WebhookMetrics struct {
	deliveries      *prometheus.CounterVec
	signatures      *prometheus.CounterVec
	ledger          *prometheus.CounterVec
	unresolvedItems *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_deliveries_total",
		Help:      "Order webhook deliveries by topic and outcome.",
	}, []string{"topic", "outcome"})
	signatures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_signature_checks_total",
		Help:      "Signature verification results.",
	}, []string{"result"})
	ledger := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_ledger_outcomes_total",
		Help:      "Wallet ledger application outcomes.",
	}, []string{"outcome"})
	unresolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_items_unpriced_total",
		Help:      "Line items persisted without a resolved vendor price.",
	}, []string{"reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_processing_seconds",
		Help:      "Time spent processing an order delivery.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"topic"})
	reg.MustRegister(deliveries, signatures, ledger, unresolved, duration)
	return &WebhookMetrics{
		deliveries:      deliveries,
		signatures:      signatures,
		ledger:          ledger,
		unresolvedItems: unresolved,
		duration:        duration,
	}
}

// IncDelivery counts one delivery for topic with the given outcome.
func (m *WebhookMetrics) IncDelivery(topic, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(topic), normalizeLabel(outcome)).Inc()
}

// IncSignature counts one signature verification result.
func (m *WebhookMetrics) IncSignature(result string) {
	if m == nil || m.signatures == nil {
		return
	}
	m.signatures.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncLedger counts one wallet ledger outcome.
func (m *WebhookMetrics) IncLedger(outcome string) {
	if m == nil || m.ledger == nil {
		return
	}
	m.ledger.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddUnpricedItems counts line items that could not be priced.
func (m *WebhookMetrics) AddUnpricedItems(reason string, n int) {
	if m == nil || m.unresolvedItems == nil || n <= 0 {
		return
	}
	m.unresolvedItems.WithLabelValues(normalizeLabel(reason)).Add(float64(n))
}

// ObserveDuration records the processing time for a delivery.
func (m *WebhookMetrics) ObserveDuration(topic string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(topic)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
