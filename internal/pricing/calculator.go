package pricing

import (
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// Totals — итоговые суммы заказа.
type Totals struct {
	SubtotalMinor int64
	DiscountMinor int64
	TotalMinor    int64
	// Evaluation заполнен, только если к заказу передавалась акция.
	Evaluation *Evaluation
}

// PromotionApplied сообщает, что акция применилась и дала скидку по своим правилам.
// Только в этом случае увеличивается счётчик использований.
func (t Totals) PromotionApplied() bool {
	return t.Evaluation != nil && t.Evaluation.Applicable
}

// CalculateTotals пересчитывает суммы позиций и заказа.
// Если акция действительна на момент now, её ID и код записываются в заказ,
// даже когда скидка нулевая (ниже минимальной суммы, неподдерживаемый тип).
// Недействительная акция снимается с заказа. Счётчик использований не трогается.
// Позиции должны пройти проверку domain.LineTotal: переполнение здесь не ловится.
func CalculateTotals(order *domain.Order, promo *domain.Promotion, now time.Time) Totals {
	var subtotal int64
	for i := range order.Lines {
		line := &order.Lines[i]
		line.LineTotalMinor = line.UnitPriceMinor * line.Qty
		subtotal += line.LineTotalMinor
	}

	totals := Totals{SubtotalMinor: subtotal}
	order.PromotionID = ""
	order.PromotionCode = ""

	if promo != nil {
		eval := Evaluate(*promo, subtotal, now)
		totals.Evaluation = &eval
		if IsValid(*promo, now) {
			totals.DiscountMinor = eval.Discount
			order.PromotionID = promo.ID
			order.PromotionCode = domain.NormalizePromotionCode(promo.Code)
		}
	}

	totals.TotalMinor = subtotal - totals.DiscountMinor
	if totals.TotalMinor < 0 {
		totals.TotalMinor = 0
	}

	order.SubtotalMinor = totals.SubtotalMinor
	order.DiscountMinor = totals.DiscountMinor
	order.TotalMinor = totals.TotalMinor

	return totals
}
