package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func TestNewShopMetricsWithRegisterer(t *testing.T) {
	m := NewShopMetricsWithRegisterer(prometheus.NewRegistry())

	if m.ordersCreated == nil || m.ordersDeleted == nil || m.statusTransitions == nil {
		t.Fatal("order counters should not be nil")
	}
	if m.promotionEvaluations == nil || m.discountTotal == nil {
		t.Fatal("promotion counters should not be nil")
	}
	if m.stockOversold == nil || m.operationDuration == nil || m.operationRetries == nil {
		t.Fatal("stock and operation collectors should not be nil")
	}
}

func TestShopMetrics_ReRegisterReturnsExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewShopMetricsWithRegisterer(reg)
	second := NewShopMetricsWithRegisterer(reg)

	first.RecordOrderDeleted()
	second.RecordOrderDeleted()

	if got := counterValue(t, first.ordersDeleted); got != 2 {
		t.Fatalf("expected shared counter value 2, got %f", got)
	}
}

func TestShopMetrics_RecordOrderCreated(t *testing.T) {
	m := NewShopMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrderCreated(50000)
	m.RecordOrderCreated(0)

	if got := counterValue(t, m.ordersCreated); got != 2 {
		t.Errorf("expected 2 orders, got %f", got)
	}
	if got := counterValue(t, m.discountTotal); got != 50000 {
		t.Errorf("expected discount 50000, got %f", got)
	}
}

func TestShopMetrics_LabelledCounters(t *testing.T) {
	m := NewShopMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordStatusTransition("created", "cancelled")
	m.RecordStatusTransition("created", "cancelled")
	m.RecordPromotionEvaluation("below_min_order")
	m.RecordRetry("create_order")
	m.RecordFailure("update_status")
	m.RecordStockOversold()

	if got := counterValue(t, m.statusTransitions.WithLabelValues("created", "cancelled")); got != 2 {
		t.Errorf("expected 2 transitions, got %f", got)
	}
	if got := counterValue(t, m.promotionEvaluations.WithLabelValues("below_min_order")); got != 1 {
		t.Errorf("expected 1 evaluation, got %f", got)
	}
	if got := counterValue(t, m.operationRetries.WithLabelValues("create_order")); got != 1 {
		t.Errorf("expected 1 retry, got %f", got)
	}
	if got := counterValue(t, m.operationFailures.WithLabelValues("update_status")); got != 1 {
		t.Errorf("expected 1 failure, got %f", got)
	}
	if got := counterValue(t, m.stockOversold); got != 1 {
		t.Errorf("expected 1 oversold, got %f", got)
	}
}

func TestShopMetrics_OperationDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewShopMetricsWithRegisterer(reg)

	m.RecordOperationDuration("create_order", 20*time.Millisecond)
	m.RecordTimelineEvent()
	m.RecordOutboxEvent()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	var found bool
	for _, family := range families {
		if family.GetName() != "shop_operation_duration_seconds" {
			continue
		}
		found = true
		if got := family.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
			t.Fatalf("expected 1 sample, got %d", got)
		}
	}
	if !found {
		t.Fatal("operation duration histogram not gathered")
	}
}
