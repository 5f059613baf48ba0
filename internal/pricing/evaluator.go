// Package pricing содержит чистые функции расчёта скидок и итогов заказа.
// Функции пакета не ходят в хранилище и не меняют счётчики акций.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// Reason — причина, по которой акция применилась или нет.
type Reason string

const (
	ReasonApplied         Reason = "applied"
	ReasonInactive        Reason = "inactive"
	ReasonNotStarted      Reason = "not_started"
	ReasonExpired         Reason = "expired"
	ReasonUsageExhausted  Reason = "usage_exhausted"
	ReasonBelowMinOrder   Reason = "below_min_order"
	ReasonKindUnsupported Reason = "kind_unsupported"
)

var hundred = decimal.NewFromInt(100)

// Evaluation — результат проверки акции против суммы заказа.
type Evaluation struct {
	Discount   int64
	Applicable bool
	Reason     Reason
}

// Err возвращает ErrPromotionNotApplicable, если акция не применилась.
func (e Evaluation) Err() error {
	if e.Applicable {
		return nil
	}
	return domain.ErrPromotionNotApplicable
}

// IsValid проверяет, что акция активна, now попадает в [StartsAt, EndsAt]
// включительно и лимит использований не выбран.
func IsValid(p domain.Promotion, now time.Time) bool {
	return validity(p, now) == ""
}

// ComputeDiscount возвращает скидку в минорных единицах в диапазоне [0, subtotal].
func ComputeDiscount(p domain.Promotion, subtotal int64, now time.Time) int64 {
	return Evaluate(p, subtotal, now).Discount
}

// Evaluate считает скидку и сообщает причину, по которой она равна нулю.
func Evaluate(p domain.Promotion, subtotal int64, now time.Time) Evaluation {
	if reason := validity(p, now); reason != "" {
		return Evaluation{Reason: reason}
	}
	if p.MinOrderMinor != nil && subtotal < *p.MinOrderMinor {
		return Evaluation{Reason: ReasonBelowMinOrder}
	}

	var discount int64
	switch p.Kind {
	case domain.DiscountPercentage:
		discount = decimal.NewFromInt(subtotal).Mul(p.Value).Div(hundred).Floor().IntPart()
	case domain.DiscountFixedAmount:
		discount = p.Value.Truncate(0).IntPart()
	default:
		// buy_x_get_y требует данных о позициях; пока скидка не начисляется.
		return Evaluation{Reason: ReasonKindUnsupported}
	}

	if p.MaxDiscountMinor != nil && discount > *p.MaxDiscountMinor {
		discount = *p.MaxDiscountMinor
	}

	return Evaluation{
		Discount:   clamp(discount, 0, subtotal),
		Applicable: true,
		Reason:     ReasonApplied,
	}
}

func validity(p domain.Promotion, now time.Time) Reason {
	switch {
	case !p.Active:
		return ReasonInactive
	case now.Before(p.StartsAt):
		return ReasonNotStarted
	case now.After(p.EndsAt):
		return ReasonExpired
	case p.UsageExhausted():
		return ReasonUsageExhausted
	default:
		return ""
	}
}

func clamp(v, lo, hi int64) int64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
