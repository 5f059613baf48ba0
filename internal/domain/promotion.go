package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountKind задаёт способ расчёта скидки.
type DiscountKind string

const (
	// DiscountPercentage — процент от суммы заказа.
	DiscountPercentage DiscountKind = "percentage"
	// DiscountFixedAmount — фиксированная сумма в минорных единицах.
	DiscountFixedAmount DiscountKind = "fixed_amount"
	// DiscountBuyXGetY — «купи X, получи Y бесплатно». Расчёт пока не поддерживается.
	DiscountBuyXGetY DiscountKind = "buy_x_get_y"
)

// Valid проверяет, что тип скидки известен.
func (k DiscountKind) Valid() bool {
	switch k {
	case DiscountPercentage, DiscountFixedAmount, DiscountBuyXGetY:
		return true
	default:
		return false
	}
}

// Promotion — промо-акция с кодом, периодом действия и лимитом использований.
type Promotion struct {
	ID   string
	Code string
	Name string
	Kind DiscountKind
	// Value — процент для percentage, сумма в минорных единицах для fixed_amount, X для buy_x_get_y.
	Value decimal.Decimal
	// FreeQty — Y для buy_x_get_y.
	FreeQty          *int32
	MinOrderMinor    *int64
	MaxDiscountMinor *int64
	StartsAt         time.Time
	EndsAt           time.Time
	Active           bool
	UsageLimit       *int32
	UsedCount        int32
	CategoryID       *string
	ProductID        *string
	CreatedAt        time.Time
}

// NormalizePromotionCode приводит код к каноничному виду: без пробелов по краям и в верхнем регистре.
func NormalizePromotionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsGeneral сообщает, что акция не привязана ни к товару, ни к категории.
func (p *Promotion) IsGeneral() bool {
	return p.CategoryID == nil && p.ProductID == nil
}

// UsageExhausted сообщает, что лимит использований выбран.
func (p *Promotion) UsageExhausted() bool {
	return p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit
}

// Validate проверяет поля акции перед сохранением.
func (p *Promotion) Validate() []error {
	var errs []error

	if NormalizePromotionCode(p.Code) == "" {
		errs = append(errs, ErrPromotionCodeRequired)
	}
	if !p.Kind.Valid() {
		errs = append(errs, ErrPromotionKindInvalid)
	}
	if p.Value.IsNegative() {
		errs = append(errs, ErrPromotionValueInvalid)
	}
	if p.EndsAt.Before(p.StartsAt) {
		errs = append(errs, ErrPromotionPeriodInvalid)
	}

	return errs
}

// Clone возвращает копию акции без общих указателей.
func (p Promotion) Clone() Promotion {
	out := p
	out.FreeQty = cloneInt32(p.FreeQty)
	out.UsageLimit = cloneInt32(p.UsageLimit)
	out.MinOrderMinor = cloneInt64(p.MinOrderMinor)
	out.MaxDiscountMinor = cloneInt64(p.MaxDiscountMinor)
	out.CategoryID = cloneString(p.CategoryID)
	out.ProductID = cloneString(p.ProductID)
	return out
}

func cloneInt32(v *int32) *int32 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
