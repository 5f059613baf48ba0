package pricing

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// ProductReader — часть каталога, нужная для определения категории товара.
type ProductReader interface {
	Get(ctx context.Context, id string) (domain.Product, error)
}

// Scope ограничивает поиск акций товаром или категорией. Пустой Scope означает только общие акции.
type Scope struct {
	ProductID  string
	CategoryID string
}

// FindApplicable отбирает действующие на now акции, подходящие под scope,
// и сортирует их по убыванию Value. При равных значениях порядок входа сохраняется.
func FindApplicable(ctx context.Context, promotions []domain.Promotion, now time.Time, scope Scope, catalog ProductReader) ([]domain.Promotion, error) {
	match := func(p domain.Promotion) bool { return p.IsGeneral() }

	switch {
	case scope.ProductID != "":
		product, err := catalog.Get(ctx, scope.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", scope.ProductID, err)
		}
		match = func(p domain.Promotion) bool {
			if p.IsGeneral() {
				return true
			}
			if p.ProductID != nil && *p.ProductID == product.ID {
				return true
			}
			return p.CategoryID != nil && product.CategoryID != "" && *p.CategoryID == product.CategoryID
		}
	case scope.CategoryID != "":
		match = func(p domain.Promotion) bool {
			return p.IsGeneral() || (p.CategoryID != nil && *p.CategoryID == scope.CategoryID)
		}
	}

	out := make([]domain.Promotion, 0, len(promotions))
	for _, p := range promotions {
		if IsValid(p, now) && match(p) {
			out = append(out, p)
		}
	}

	slices.SortStableFunc(out, func(a, b domain.Promotion) int {
		return b.Value.Cmp(a.Value)
	})

	return out, nil
}
