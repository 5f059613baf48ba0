// Package lifecycle управляет жизненным циклом заказа: оформление, смена статуса и удаление.
// Каждая операция выполняется одной единицей работы: позиции, счётчик акции,
// остатки, outbox и timeline фиксируются или откатываются вместе.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/cache"
	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/pricing"
	"github.com/vladislavdragonenkov/shop/internal/service/inventory"
)

const (
	opCreateOrder = "create_order"
	opUpdate      = "update_status"
	opDelete      = "delete_order"

	defaultListLimit = 50
	maxListLimit     = 500
)

// Manager — точка входа для операций над заказами.
type Manager struct {
	uow     domain.UnitOfWork
	reads   domain.Repositories
	logger  *log.Entry
	metrics *metrics.ShopMetrics
	cache   cache.PromotionCache
	now     func() time.Time
	newID   func() string
	retry   RetryConfig
}

// Option настраивает Manager.
type Option func(*Manager)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics включает метрики.
func WithMetrics(mt *metrics.ShopMetrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithPromotionCache задаёт кэш списка активных акций.
func WithPromotionCache(c cache.PromotionCache) Option {
	return func(m *Manager) {
		if c != nil {
			m.cache = c
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator подменяет генератор идентификаторов.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithRetryConfig задаёт политику повторов.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(m *Manager) { m.retry = cfg.normalized() }
}

// NewManager создаёт менеджер поверх единицы работы и репозиториев для чтения.
func NewManager(uow domain.UnitOfWork, reads domain.Repositories, opts ...Option) *Manager {
	m := &Manager{
		uow:    uow,
		reads:  reads,
		logger: log.WithField("component", "lifecycle"),
		cache:  cache.NoopPromotionCache{},
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		retry:  DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateResult — результат оформления заказа.
type CreateResult struct {
	Order            domain.Order
	PromotionApplied bool
	// Reason пустой, если промокод не передавался.
	Reason pricing.Reason
	// Oversold — товары, остаток которых ушёл в минус после списания.
	Oversold []domain.StockLevel
}

// Preview — предварительный расчёт суммы без записи.
type Preview struct {
	SubtotalMinor    int64
	DiscountMinor    int64
	TotalMinor       int64
	Code             string
	PromotionApplied bool
	Reason           pricing.Reason
}

// OrderDetails — заказ вместе с историей событий.
type OrderDetails struct {
	Order    domain.Order
	Timeline []domain.TimelineEvent
}

// ListQuery — параметры выборки заказов.
type ListQuery struct {
	Filter domain.OrderFilter
	Sort   domain.OrderSort
	Limit  int
}

// CreateOrder оформляет заказ: фиксирует цены, применяет промокод, списывает остатки
// и увеличивает счётчик акции, если она применилась.
func (m *Manager) CreateOrder(ctx context.Context, draft domain.OrderDraft) (CreateResult, error) {
	start := time.Now()
	defer m.observe(opCreateOrder, start)

	if errs := draft.Validate(); len(errs) > 0 {
		return CreateResult{}, errors.Join(errs...)
	}

	var result CreateResult
	err := m.withRetry(ctx, opCreateOrder, "", func() error {
		result = CreateResult{}
		return m.uow.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			return m.createInTx(ctx, repos, draft, &result)
		})
	})
	if err != nil {
		m.fail(opCreateOrder, "", err)
		return CreateResult{}, err
	}

	if m.metrics != nil {
		m.metrics.RecordOrderCreated(result.Order.DiscountMinor)
		if result.Reason != "" {
			m.metrics.RecordPromotionEvaluation(string(result.Reason))
		}
		for range result.Oversold {
			m.metrics.RecordStockOversold()
		}
		events := 1 + len(result.Oversold)
		for i := 0; i < events; i++ {
			m.metrics.RecordOutboxEvent()
			m.metrics.RecordTimelineEvent()
		}
	}
	if result.PromotionApplied {
		m.invalidatePromotions(ctx)
	}

	m.logger.WithFields(log.Fields{
		"order_id":       result.Order.ID,
		"total_minor":    result.Order.TotalMinor,
		"promotion_code": result.Order.PromotionCode,
	}).Info("order created")

	return result, nil
}

func (m *Manager) createInTx(ctx context.Context, repos domain.Repositories, draft domain.OrderDraft, result *CreateResult) error {
	now := m.now()
	order := domain.Order{
		ID:            m.newID(),
		CustomerID:    draft.CustomerID,
		CustomerName:  draft.CustomerName,
		CustomerPhone: draft.CustomerPhone,
		Status:        domain.OrderStatusCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	lines, err := m.priceLines(ctx, repos.Products, draft.Lines)
	if err != nil {
		return err
	}
	for i := range lines {
		lines[i].ID = m.newID()
		lines[i].OrderID = order.ID
	}
	order.Lines = lines

	promo, err := m.lookupPromotion(ctx, repos.Promotions, draft.PromotionCode)
	if err != nil {
		return err
	}

	totals := pricing.CalculateTotals(&order, promo, now)
	if totals.Evaluation != nil {
		result.Reason = totals.Evaluation.Reason
	}

	if err := repos.Orders.Create(ctx, order); err != nil {
		return fmt.Errorf("persist order: %w", err)
	}

	levels, err := inventory.NewAdjuster(repos.Products, m.logger).ReserveLines(ctx, order.Lines)
	if err != nil {
		return err
	}

	if totals.PromotionApplied() {
		if err := repos.Promotions.IncrementUsage(ctx, promo.ID); err != nil {
			return fmt.Errorf("increment promotion usage: %w", err)
		}
	}

	if err := m.emitEvent(ctx, repos, order.ID, domain.EventOrderCreated, "", now, OrderCreatedPayload{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		SubtotalMinor: order.SubtotalMinor,
		DiscountMinor: order.DiscountMinor,
		TotalMinor:    order.TotalMinor,
		PromotionCode: order.PromotionCode,
		Lines:         len(order.Lines),
		Timestamp:     now,
	}); err != nil {
		return err
	}

	for _, level := range levels {
		if !level.Oversold() {
			continue
		}
		result.Oversold = append(result.Oversold, level)
		if err := m.emitEvent(ctx, repos, order.ID, domain.EventStockOversold, level.ProductID, now, StockOversoldPayload{
			OrderID:   order.ID,
			ProductID: level.ProductID,
			Quantity:  level.Quantity,
			Timestamp: now,
		}); err != nil {
			return err
		}
	}

	result.Order = order
	result.PromotionApplied = totals.PromotionApplied()
	return nil
}

// UpdateStatus переводит заказ в новый статус. Отмена возвращает остатки на склад,
// оплата на склад не влияет. Счётчик акции не уменьшается.
func (m *Manager) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	start := time.Now()
	defer m.observe(opUpdate, start)

	if orderID == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrStatusUnknown, status)
	}

	var (
		updated domain.Order
		from    domain.OrderStatus
	)
	err := m.withRetry(ctx, opUpdate, orderID, func() error {
		return m.uow.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			order, err := repos.Orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if !order.Status.CanTransitionTo(status) {
				return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, status)
			}

			if status == domain.OrderStatusCancelled {
				if _, err := inventory.NewAdjuster(repos.Products, m.logger).ReleaseLines(ctx, order.Lines); err != nil {
					return err
				}
			}

			now := m.now()
			from = order.Status
			order.Status = status
			order.UpdatedAt = now
			if err := repos.Orders.Save(ctx, order); err != nil {
				return err
			}
			order.Version++

			if err := m.emitEvent(ctx, repos, order.ID, domain.EventOrderStatusChanged, "", now, StatusChangedPayload{
				OrderID:   order.ID,
				From:      string(from),
				To:        string(status),
				Timestamp: now,
			}); err != nil {
				return err
			}

			updated = order
			return nil
		})
	})
	if err != nil {
		m.fail(opUpdate, orderID, err)
		return domain.Order{}, err
	}

	if m.metrics != nil {
		m.metrics.RecordStatusTransition(string(from), string(status))
		m.metrics.RecordOutboxEvent()
		m.metrics.RecordTimelineEvent()
	}
	m.logger.WithFields(log.Fields{
		"order_id": orderID,
		"from":     from,
		"to":       status,
	}).Info("order status changed")

	return updated, nil
}

// DeleteOrder удаляет заказ. Для неотменённого заказа остатки сначала возвращаются на склад.
func (m *Manager) DeleteOrder(ctx context.Context, orderID string) error {
	start := time.Now()
	defer m.observe(opDelete, start)

	if orderID == "" {
		return domain.ErrOrderIDRequired
	}

	err := m.withRetry(ctx, opDelete, orderID, func() error {
		return m.uow.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			order, err := repos.Orders.Get(ctx, orderID)
			if err != nil {
				return err
			}

			released := false
			if order.Status != domain.OrderStatusCancelled {
				if _, err := inventory.NewAdjuster(repos.Products, m.logger).ReleaseLines(ctx, order.Lines); err != nil {
					return err
				}
				released = true
			}

			if err := repos.Orders.Delete(ctx, orderID); err != nil {
				return err
			}

			now := m.now()
			return m.emitEvent(ctx, repos, orderID, domain.EventOrderDeleted, "", now, OrderDeletedPayload{
				OrderID:       orderID,
				Status:        string(order.Status),
				StockReleased: released,
				Timestamp:     now,
			})
		})
	})
	if err != nil {
		m.fail(opDelete, orderID, err)
		return err
	}

	if m.metrics != nil {
		m.metrics.RecordOrderDeleted()
		m.metrics.RecordOutboxEvent()
		m.metrics.RecordTimelineEvent()
	}
	m.logger.WithField("order_id", orderID).Info("order deleted")
	return nil
}

// PreviewOrderTotal считает суммы заказа без записи в хранилище и без изменения счётчиков.
func (m *Manager) PreviewOrderTotal(ctx context.Context, lines []domain.DraftLine, code string) (Preview, error) {
	draft := domain.OrderDraft{Lines: lines, PromotionCode: code}
	if errs := draft.Validate(); len(errs) > 0 {
		return Preview{}, errors.Join(errs...)
	}

	priced, err := m.priceLines(ctx, m.reads.Products, lines)
	if err != nil {
		return Preview{}, err
	}
	promo, err := m.lookupPromotion(ctx, m.reads.Promotions, code)
	if err != nil {
		return Preview{}, err
	}

	order := domain.Order{Lines: priced}
	totals := pricing.CalculateTotals(&order, promo, m.now())

	preview := Preview{
		SubtotalMinor:    totals.SubtotalMinor,
		DiscountMinor:    totals.DiscountMinor,
		TotalMinor:       totals.TotalMinor,
		PromotionApplied: totals.PromotionApplied(),
	}
	if promo != nil {
		preview.Code = promo.Code
	}
	if totals.Evaluation != nil {
		preview.Reason = totals.Evaluation.Reason
		if m.metrics != nil {
			m.metrics.RecordPromotionEvaluation(string(preview.Reason))
		}
	}
	return preview, nil
}

// GetApplicablePromotions возвращает действующие акции для товара или категории.
// Без аргументов возвращаются только общие акции.
func (m *Manager) GetApplicablePromotions(ctx context.Context, productID, categoryID string) ([]domain.Promotion, error) {
	active, err := m.activePromotions(ctx)
	if err != nil {
		return nil, err
	}
	return pricing.FindApplicable(ctx, active, m.now(), pricing.Scope{
		ProductID:  productID,
		CategoryID: categoryID,
	}, m.reads.Products)
}

// GetOrder возвращает заказ вместе с его timeline.
func (m *Manager) GetOrder(ctx context.Context, orderID string) (OrderDetails, error) {
	if orderID == "" {
		return OrderDetails{}, domain.ErrOrderIDRequired
	}
	order, err := m.reads.Orders.Get(ctx, orderID)
	if err != nil {
		return OrderDetails{}, err
	}

	details := OrderDetails{Order: order}
	if m.reads.Timeline != nil {
		events, err := m.reads.Timeline.List(ctx, orderID)
		if err != nil {
			m.logger.WithError(err).WithField("order_id", orderID).Warn("load timeline failed")
		} else {
			details.Timeline = events
		}
	}
	return details, nil
}

// ListOrders возвращает заказы по фильтру. Лимит по умолчанию 50, максимум 500.
func (m *Manager) ListOrders(ctx context.Context, q ListQuery) ([]domain.Order, error) {
	if q.Sort == "" {
		q.Sort = domain.OrderSortCreatedDesc
	}
	if _, err := domain.ParseOrderSort(string(q.Sort)); err != nil {
		return nil, err
	}
	if q.Filter.Status != "" && !q.Filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrStatusUnknown, q.Filter.Status)
	}
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	return m.reads.Orders.List(ctx, q.Filter, q.Sort, q.Limit)
}

// priceLines копирует текущие цены товаров в позиции заказа.
// Суммы позиций и subtotal проверяются на переполнение до любой записи.
func (m *Manager) priceLines(ctx context.Context, products domain.ProductRepository, draft []domain.DraftLine) ([]domain.OrderLine, error) {
	lines := make([]domain.OrderLine, 0, len(draft))
	var subtotal int64
	for _, dl := range draft {
		product, err := products.Get(ctx, dl.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", dl.ProductID, err)
		}
		lineTotal, err := domain.LineTotal(product.PriceMinor, dl.Qty)
		if err != nil {
			return nil, fmt.Errorf("price line %s: %w", dl.ProductID, err)
		}
		if subtotal, err = domain.AddMinor(subtotal, lineTotal); err != nil {
			return nil, fmt.Errorf("price line %s: %w", dl.ProductID, err)
		}
		lines = append(lines, domain.OrderLine{
			ProductID:      product.ID,
			Qty:            dl.Qty,
			UnitPriceMinor: product.PriceMinor,
			LineTotalMinor: lineTotal,
		})
	}
	return lines, nil
}

// lookupPromotion ищет акцию по коду. Пустой код означает заказ без акции.
func (m *Manager) lookupPromotion(ctx context.Context, promotions domain.PromotionRepository, code string) (*domain.Promotion, error) {
	code = domain.NormalizePromotionCode(code)
	if code == "" {
		return nil, nil
	}
	promo, err := promotions.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load promotion %s: %w", code, err)
	}
	return &promo, nil
}

func (m *Manager) activePromotions(ctx context.Context) ([]domain.Promotion, error) {
	cached, ok, err := m.cache.GetActive(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("promotion cache read failed")
	}
	if ok {
		return cached, nil
	}

	active, err := m.reads.Promotions.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}
	if err := m.cache.SetActive(ctx, active); err != nil {
		m.logger.WithError(err).Warn("promotion cache write failed")
	}
	return active, nil
}

func (m *Manager) invalidatePromotions(ctx context.Context) {
	if err := m.cache.Invalidate(ctx); err != nil {
		m.logger.WithError(err).Warn("promotion cache invalidation failed")
	}
}

func (m *Manager) observe(operation string, start time.Time) {
	if m.metrics != nil {
		m.metrics.RecordOperationDuration(operation, time.Since(start))
	}
}

func (m *Manager) fail(operation, orderID string, err error) {
	if m.metrics != nil {
		m.metrics.RecordFailure(operation)
	}
	entry := m.logger.WithError(err).WithField("operation", operation)
	if orderID != "" {
		entry = entry.WithField("order_id", orderID)
	}
	if domain.IsNotFound(err) || domain.IsValidation(err) || errors.Is(err, domain.ErrInvalidTransition) {
		entry.Debug("operation rejected")
		return
	}
	entry.Warn("operation failed")
}
