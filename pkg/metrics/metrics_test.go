package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestWebhookMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.IncDelivery("order.created", "processed")
	m.IncDelivery("order.created", "processed")
	m.IncDelivery("", "ignored")
	m.IncSignature("invalid")
	m.IncLedger("onhold")
	m.AddUnpricedItems("malformed_sku", 3)
	m.AddUnpricedItems("malformed_sku", 0)
	m.ObserveDuration("order.created", 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "printbridge_webhook_deliveries_total", "topic", "order.created"); err != nil {
		t.Fatalf("fetch deliveries: %v", err)
	} else if got != 2 {
		t.Fatalf("expected deliveries=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "printbridge_webhook_deliveries_total", "topic", "unknown"); err != nil {
		t.Fatalf("empty topic should map to unknown: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unknown deliveries=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "printbridge_webhook_signature_checks_total", "result", "invalid"); err != nil || got != 1 {
		t.Fatalf("expected one invalid signature, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "printbridge_wallet_ledger_outcomes_total", "outcome", "onhold"); err != nil || got != 1 {
		t.Fatalf("expected one onhold outcome, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "printbridge_order_items_unpriced_total", "reason", "malformed_sku"); err != nil || got != 3 {
		t.Fatalf("expected three unpriced items, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "printbridge_webhook_processing_seconds", "topic", "order.created"); err != nil || got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f err=%v", got, err)
	}
}

func TestOutboxMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("wallet_debited")
	m.IncFailed("wallet_debited", true)
	m.ObserveBatch(10 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "printbridge_outbox_published_total", "event_type", "wallet_debited"); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "printbridge_outbox_failed_total", "terminal", "true"); err != nil || got != 1 {
		t.Fatalf("expected terminal failure=1, got %f err=%v", got, err)
	}
}

func TestNilRecordersAreNoops(t *testing.T) {
	var w *WebhookMetrics
	w.IncDelivery("t", "o")
	w.IncSignature("r")
	w.IncLedger("o")
	w.AddUnpricedItems("r", 1)
	w.ObserveDuration("t", time.Second)

	NewWebhookMetrics(nil).IncDelivery("t", "o")

	var o *OutboxMetrics
	o.IncPublished("e")
	o.IncFailed("e", false)
	o.ObserveBatch(time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
