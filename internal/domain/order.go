package domain

import (
	"math"
	"time"
)

// MaxLineQty ограничивает количество в одной позиции заказа.
const MaxLineQty int64 = 1_000_000

// OrderStatus описывает жизненный цикл заказа в магазине.
type OrderStatus string

const (
	// OrderStatusCreated — заказ оформлен, товары списаны со склада.
	OrderStatusCreated OrderStatus = "created"
	// OrderStatusPaid — заказ оплачен.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCancelled — заказ отменён, остатки возвращены на склад.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// allowedTransitions перечисляет все допустимые переходы статусов.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusCancelled},
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo сообщает, разрешён ли переход из текущего статуса в next.
// Переход в тот же статус всегда запрещён.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// OrderLine представляет одну позицию заказа.
type OrderLine struct {
	ID        string
	OrderID   string
	ProductID string
	// Qty — количество единиц товара, всегда больше нуля.
	Qty int64
	// UnitPriceMinor — цена за единицу на момент продажи (копия, а не ссылка на текущую цену).
	UnitPriceMinor int64
	// LineTotalMinor = UnitPriceMinor * Qty.
	LineTotalMinor int64
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID            string
	CustomerID    string
	CustomerName  string
	CustomerPhone string
	Status        OrderStatus
	SubtotalMinor int64
	DiscountMinor int64
	TotalMinor    int64
	// PromotionID пустой, если промо-акция не применялась.
	PromotionID string
	// PromotionCode сохраняется даже после удаления самой акции.
	PromotionCode string
	Lines         []OrderLine
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPromotion сообщает, привязана ли к заказу промо-акция.
func (o *Order) HasPromotion() bool {
	return o.PromotionID != ""
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	if o.SubtotalMinor < 0 || o.DiscountMinor < 0 || o.TotalMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем subtotal с суммой позиций: qty * price.
	var calc int64
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.UnitPriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		if line.LineTotalMinor != line.Qty*line.UnitPriceMinor {
			errs = append(errs, ErrAmountMismatch)
		}
		calc += line.LineTotalMinor
	}
	if calc != o.SubtotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	total := o.SubtotalMinor - o.DiscountMinor
	if total < 0 {
		total = 0
	}
	if total != o.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// DraftLine — позиция черновика заказа: товар и количество.
type DraftLine struct {
	ProductID string
	Qty       int64
}

// OrderDraft — то, что собирает вызывающая сторона перед оформлением заказа.
type OrderDraft struct {
	CustomerID    string
	CustomerName  string
	CustomerPhone string
	Lines         []DraftLine
	// PromotionCode необязателен; сравнение без учёта регистра.
	PromotionCode string
}

// Validate проверяет черновик до любых обращений к хранилищу.
func (d *OrderDraft) Validate() []error {
	var errs []error

	if len(d.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	for _, line := range d.Lines {
		if line.ProductID == "" {
			errs = append(errs, ErrLineProductRequired)
		}
		switch {
		case line.Qty <= 0:
			errs = append(errs, ErrLineQtyInvalid)
		case line.Qty > MaxLineQty:
			errs = append(errs, ErrLineQtyTooLarge)
		}
	}

	return errs
}

// LineTotal считает price * qty и возвращает ErrAmountOverflow при выходе за int64.
func LineTotal(priceMinor, qty int64) (int64, error) {
	if priceMinor < 0 {
		return 0, ErrLinePriceInvalid
	}
	if qty <= 0 {
		return 0, ErrLineQtyInvalid
	}
	if priceMinor > math.MaxInt64/qty {
		return 0, ErrAmountOverflow
	}
	return priceMinor * qty, nil
}

// AddMinor складывает неотрицательные суммы с проверкой переполнения.
func AddMinor(a, b int64) (int64, error) {
	if b > math.MaxInt64-a {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}
