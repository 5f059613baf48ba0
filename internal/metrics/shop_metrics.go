package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics содержит метрики заказов, акций и склада.
type ShopMetrics struct {
	// Счётчики операций
	ordersCreated     prometheus.Counter
	ordersDeleted     prometheus.Counter
	statusTransitions *prometheus.CounterVec
	operationRetries  *prometheus.CounterVec
	operationFailures *prometheus.CounterVec

	// Акции
	promotionEvaluations *prometheus.CounterVec
	discountTotal        prometheus.Counter

	// Склад
	stockOversold prometheus.Counter

	// Гистограмма времени выполнения операций
	operationDuration *prometheus.HistogramVec

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewShopMetrics создаёт метрики в DefaultRegisterer.
func NewShopMetrics() *ShopMetrics {
	return NewShopMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewShopMetricsWithRegisterer создаёт метрики в переданном реестре (в тестах используется изолированный реестр).
func NewShopMetricsWithRegisterer(registerer prometheus.Registerer) *ShopMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ShopMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_order_status_transitions_total",
			Help: "Order status transitions by source and target status",
		}, []string{"from", "to"}),
		operationRetries: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_operation_retries_total",
			Help: "Unit-of-work retries caused by storage conflicts or unavailability",
		}, []string{"operation"}),
		operationFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_operation_failures_total",
			Help: "Order operations that returned an error",
		}, []string{"operation"}),
		promotionEvaluations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_promotion_evaluations_total",
			Help: "Promotion evaluations by outcome reason",
		}, []string{"reason"}),
		discountTotal: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_discount_minor_total",
			Help: "Sum of discounts granted on created orders in minor units",
		}),
		stockOversold: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_stock_oversold_total",
			Help: "Number of stock reservations that left a product with negative quantity",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shop_operation_duration_seconds",
			Help:    "Duration of order operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated учитывает созданный заказ и выданную по нему скидку.
func (m *ShopMetrics) RecordOrderCreated(discountMinor int64) {
	m.ordersCreated.Inc()
	if discountMinor > 0 {
		m.discountTotal.Add(float64(discountMinor))
	}
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *ShopMetrics) RecordOrderDeleted() {
	m.ordersDeleted.Inc()
}

// RecordStatusTransition учитывает переход статуса заказа.
func (m *ShopMetrics) RecordStatusTransition(from, to string) {
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordPromotionEvaluation учитывает результат проверки промокода.
func (m *ShopMetrics) RecordPromotionEvaluation(reason string) {
	m.promotionEvaluations.WithLabelValues(reason).Inc()
}

// RecordStockOversold увеличивает счётчик продаж сверх остатка.
func (m *ShopMetrics) RecordStockOversold() {
	m.stockOversold.Inc()
}

// RecordRetry увеличивает счётчик повторов операции.
func (m *ShopMetrics) RecordRetry(operation string) {
	m.operationRetries.WithLabelValues(operation).Inc()
}

// RecordFailure увеличивает счётчик неуспешных операций.
func (m *ShopMetrics) RecordFailure(operation string) {
	m.operationFailures.WithLabelValues(operation).Inc()
}

// RecordOperationDuration записывает время выполнения операции.
func (m *ShopMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *ShopMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *ShopMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
