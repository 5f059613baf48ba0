package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// OrderCreatedPayload — тело события OrderCreated.
type OrderCreatedPayload struct {
	OrderID       string    `json:"order_id"`
	CustomerID    string    `json:"customer_id,omitempty"`
	SubtotalMinor int64     `json:"subtotal_minor"`
	DiscountMinor int64     `json:"discount_minor"`
	TotalMinor    int64     `json:"total_minor"`
	PromotionCode string    `json:"promotion_code,omitempty"`
	Lines         int       `json:"lines"`
	Timestamp     time.Time `json:"ts"`
}

// StatusChangedPayload — тело события OrderStatusChanged.
type StatusChangedPayload struct {
	OrderID   string    `json:"order_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"ts"`
}

// OrderDeletedPayload — тело события OrderDeleted.
type OrderDeletedPayload struct {
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"`
	StockReleased bool      `json:"stock_released"`
	Timestamp     time.Time `json:"ts"`
}

// StockOversoldPayload — тело события StockOversold.
type StockOversoldPayload struct {
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Timestamp time.Time `json:"ts"`
}

// emitEvent пишет событие в outbox и timeline в рамках текущей единицы работы.
// Ошибка записи откатывает всю операцию.
func (m *Manager) emitEvent(ctx context.Context, repos domain.Repositories, orderID, eventType, reason string, occurred time.Time, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       data,
		CreatedAt:     occurred,
	}
	if _, err := repos.Outbox.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s event: %w", eventType, err)
	}

	if repos.Timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  orderID,
			Type:     eventType,
			Reason:   reason,
			Occurred: occurred,
		}
		if err := repos.Timeline.Append(ctx, event); err != nil {
			return fmt.Errorf("append %s timeline event: %w", eventType, err)
		}
	}
	return nil
}
