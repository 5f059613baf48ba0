package domain_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// helper для создания базового заказа с двумя позициями.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:            "order-1",
		CustomerID:    "customer-1",
		Status:        domain.OrderStatusCreated,
		SubtotalMinor: 25000,
		DiscountMinor: 0,
		TotalMinor:    25000,
		Lines: []domain.OrderLine{
			{ID: "line-1", OrderID: "order-1", ProductID: "p1", Qty: 2, UnitPriceMinor: 10000, LineTotalMinor: 20000},
			{ID: "line-2", OrderID: "order-1", ProductID: "p2", Qty: 1, UnitPriceMinor: 5000, LineTotalMinor: 5000},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_DiscountAboveSubtotal(t *testing.T) {
	order := makeOrder()
	order.DiscountMinor = 25000
	order.TotalMinor = 0
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected total clamped to zero to be valid, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
		want error
	}{
		{
			name: "negative discount",
			mut:  func(o *domain.Order) { o.DiscountMinor = -1; o.TotalMinor = 25001 },
			want: domain.ErrAmountNegative,
		},
		{
			name: "no lines",
			mut:  func(o *domain.Order) { o.Lines = nil },
			want: domain.ErrLinesRequired,
		},
		{
			name: "qty invalid",
			mut:  func(o *domain.Order) { o.Lines[0].Qty = 0 },
			want: domain.ErrLineQtyInvalid,
		},
		{
			name: "price invalid",
			mut:  func(o *domain.Order) { o.Lines[1].UnitPriceMinor = -5 },
			want: domain.ErrLinePriceInvalid,
		},
		{
			name: "subtotal mismatch",
			mut:  func(o *domain.Order) { o.SubtotalMinor = 999 },
			want: domain.ErrAmountMismatch,
		},
		{
			name: "total mismatch",
			mut:  func(o *domain.Order) { o.DiscountMinor = 500 },
			want: domain.ErrAmountMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			errs := order.ValidateInvariants()
			if len(errs) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
			found := false
			for _, err := range errs {
				if errors.Is(err, tc.want) {
					found = true
				}
				if !domain.IsValidation(err) {
					t.Fatalf("expected validation category, got %v", err)
				}
			}
			if !found {
				t.Fatalf("expected %v among %v", tc.want, errs)
			}
		})
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.OrderStatus
		allowed  bool
	}{
		{domain.OrderStatusCreated, domain.OrderStatusPaid, true},
		{domain.OrderStatusCreated, domain.OrderStatusCancelled, true},
		{domain.OrderStatusPaid, domain.OrderStatusCancelled, true},
		{domain.OrderStatusPaid, domain.OrderStatusCreated, false},
		{domain.OrderStatusCancelled, domain.OrderStatusPaid, false},
		{domain.OrderStatusCancelled, domain.OrderStatusCreated, false},
		{domain.OrderStatusCreated, domain.OrderStatusCreated, false},
		{domain.OrderStatusPaid, domain.OrderStatusPaid, false},
		{domain.OrderStatusCancelled, domain.OrderStatusCancelled, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestOrderDraftValidate(t *testing.T) {
	draft := domain.OrderDraft{Lines: []domain.DraftLine{{ProductID: "p1", Qty: 1}}}
	if errs := draft.Validate(); len(errs) != 0 {
		t.Fatalf("expected valid draft, got %v", errs)
	}

	empty := domain.OrderDraft{}
	if errs := empty.Validate(); len(errs) != 1 || !errors.Is(errs[0], domain.ErrLinesRequired) {
		t.Fatalf("expected ErrLinesRequired, got %v", errs)
	}

	bad := domain.OrderDraft{Lines: []domain.DraftLine{{ProductID: "", Qty: 0}}}
	if errs := bad.Validate(); len(errs) != 2 {
		t.Fatalf("expected two errors, got %v", errs)
	}

	atLimit := domain.OrderDraft{Lines: []domain.DraftLine{{ProductID: "p1", Qty: domain.MaxLineQty}}}
	if errs := atLimit.Validate(); len(errs) != 0 {
		t.Fatalf("expected qty at limit to be valid, got %v", errs)
	}

	huge := domain.OrderDraft{Lines: []domain.DraftLine{{ProductID: "p1", Qty: math.MaxInt64 / 1000}}}
	errs := huge.Validate()
	if len(errs) != 1 || !errors.Is(errs[0], domain.ErrLineQtyTooLarge) || !domain.IsValidation(errs[0]) {
		t.Fatalf("expected ErrLineQtyTooLarge, got %v", errs)
	}
}

func TestLineTotalAndAddMinor(t *testing.T) {
	total, err := domain.LineTotal(10000, 3)
	if err != nil || total != 30000 {
		t.Fatalf("expected 30000, got %d (%v)", total, err)
	}

	if _, err := domain.LineTotal(10000, math.MaxInt64/1000); !errors.Is(err, domain.ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
	if _, err := domain.LineTotal(-1, 1); !errors.Is(err, domain.ErrLinePriceInvalid) {
		t.Fatalf("expected ErrLinePriceInvalid, got %v", err)
	}

	if sum, err := domain.AddMinor(math.MaxInt64-1, 1); err != nil || sum != math.MaxInt64 {
		t.Fatalf("expected MaxInt64, got %d (%v)", sum, err)
	}
	if _, err := domain.AddMinor(math.MaxInt64, 1); !errors.Is(err, domain.ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}
