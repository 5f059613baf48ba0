package grpcsvc

import (
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/service/lifecycle"
)

// Line — позиция запроса: товар и количество.
type Line struct {
	ProductID string `json:"product_id"`
	Qty       int64  `json:"qty"`
}

// OrderLine — позиция сохранённого заказа.
type OrderLine struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Qty            int64  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	LineTotalMinor int64  `json:"line_total_minor"`
}

// Order — представление заказа в API.
type Order struct {
	ID            string      `json:"id"`
	CustomerID    string      `json:"customer_id,omitempty"`
	CustomerName  string      `json:"customer_name,omitempty"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	Status        string      `json:"status"`
	SubtotalMinor int64       `json:"subtotal_minor"`
	DiscountMinor int64       `json:"discount_minor"`
	TotalMinor    int64       `json:"total_minor"`
	PromotionID   string      `json:"promotion_id,omitempty"`
	PromotionCode string      `json:"promotion_code,omitempty"`
	Lines         []OrderLine `json:"lines"`
	Version       int64       `json:"version"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// StockLevel — остаток товара, ушедший в минус при оформлении заказа.
type StockLevel struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// TimelineEvent — событие из истории заказа.
type TimelineEvent struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

// Promotion — представление промо-акции в API. Value передаётся строкой без потери точности.
type Promotion struct {
	ID               string    `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name,omitempty"`
	Kind             string    `json:"kind"`
	Value            string    `json:"value"`
	MinOrderMinor    *int64    `json:"min_order_minor,omitempty"`
	MaxDiscountMinor *int64    `json:"max_discount_minor,omitempty"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	CategoryID       *string   `json:"category_id,omitempty"`
	ProductID        *string   `json:"product_id,omitempty"`
}

type CreateOrderRequest struct {
	CustomerID    string `json:"customer_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Lines         []Line `json:"lines"`
	PromotionCode string `json:"promotion_code,omitempty"`
}

type CreateOrderResponse struct {
	Order            Order        `json:"order"`
	PromotionApplied bool         `json:"promotion_applied"`
	PromotionReason  string       `json:"promotion_reason,omitempty"`
	Oversold         []StockLevel `json:"oversold,omitempty"`
}

type UpdateOrderStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type UpdateOrderStatusResponse struct {
	Order Order `json:"order"`
}

type DeleteOrderRequest struct {
	OrderID string `json:"order_id"`
}

type DeleteOrderResponse struct {
	OrderID string `json:"order_id"`
}

type PreviewOrderTotalRequest struct {
	Lines         []Line `json:"lines"`
	PromotionCode string `json:"promotion_code,omitempty"`
}

type PreviewOrderTotalResponse struct {
	SubtotalMinor    int64  `json:"subtotal_minor"`
	DiscountMinor    int64  `json:"discount_minor"`
	TotalMinor       int64  `json:"total_minor"`
	PromotionCode    string `json:"promotion_code,omitempty"`
	PromotionApplied bool   `json:"promotion_applied"`
	PromotionReason  string `json:"promotion_reason,omitempty"`
}

type GetApplicablePromotionsRequest struct {
	ProductID  string `json:"product_id,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
}

type GetApplicablePromotionsResponse struct {
	Promotions []Promotion `json:"promotions"`
}

type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

type GetOrderResponse struct {
	Order    Order           `json:"order"`
	Timeline []TimelineEvent `json:"timeline"`
}

type ListOrdersRequest struct {
	CustomerID string `json:"customer_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Sort       string `json:"sort,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type ListOrdersResponse struct {
	Orders []Order `json:"orders"`
}

func toDraftLines(lines []Line) []domain.DraftLine {
	result := make([]domain.DraftLine, 0, len(lines))
	for _, line := range lines {
		result = append(result, domain.DraftLine{ProductID: line.ProductID, Qty: line.Qty})
	}
	return result
}

func toOrder(order domain.Order) Order {
	lines := make([]OrderLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLine{
			ID:             line.ID,
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			UnitPriceMinor: line.UnitPriceMinor,
			LineTotalMinor: line.LineTotalMinor,
		})
	}
	return Order{
		ID:            order.ID,
		CustomerID:    order.CustomerID,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Status:        string(order.Status),
		SubtotalMinor: order.SubtotalMinor,
		DiscountMinor: order.DiscountMinor,
		TotalMinor:    order.TotalMinor,
		PromotionID:   order.PromotionID,
		PromotionCode: order.PromotionCode,
		Lines:         lines,
		Version:       order.Version,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func toOrders(orders []domain.Order) []Order {
	result := make([]Order, 0, len(orders))
	for _, order := range orders {
		result = append(result, toOrder(order))
	}
	return result
}

func toTimeline(events []domain.TimelineEvent) []TimelineEvent {
	result := make([]TimelineEvent, 0, len(events))
	for _, event := range events {
		result = append(result, TimelineEvent{Type: event.Type, Reason: event.Reason, Occurred: event.Occurred})
	}
	return result
}

func toPromotions(promos []domain.Promotion) []Promotion {
	result := make([]Promotion, 0, len(promos))
	for _, p := range promos {
		result = append(result, Promotion{
			ID:               p.ID,
			Code:             p.Code,
			Name:             p.Name,
			Kind:             string(p.Kind),
			Value:            p.Value.String(),
			MinOrderMinor:    p.MinOrderMinor,
			MaxDiscountMinor: p.MaxDiscountMinor,
			StartsAt:         p.StartsAt,
			EndsAt:           p.EndsAt,
			CategoryID:       p.CategoryID,
			ProductID:        p.ProductID,
		})
	}
	return result
}

func toCreateResponse(res lifecycle.CreateResult) *CreateOrderResponse {
	resp := &CreateOrderResponse{
		Order:            toOrder(res.Order),
		PromotionApplied: res.PromotionApplied,
		PromotionReason:  string(res.Reason),
	}
	for _, level := range res.Oversold {
		resp.Oversold = append(resp.Oversold, StockLevel{ProductID: level.ProductID, Quantity: level.Quantity})
	}
	return resp
}
