package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// productRepository — каталог товаров поверх Store.
type productRepository struct {
	store *Store
	inTx  bool
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepository) Get(_ context.Context, id string) (domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// Create добавляет товар, если ID ещё не занят.
func (r *productRepository) Create(_ context.Context, product domain.Product) error {
	if errs := product.Validate(); len(errs) > 0 {
		return errs[0]
	}

	defer r.store.exclusive(r.inTx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.products[product.ID]; exists {
		return fmt.Errorf("product %s already exists: %w", product.ID, domain.ErrStorageConflict)
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.store.products[product.ID] = product
	return nil
}

// AdjustQuantity прибавляет delta к остатку без ограничения снизу.
func (r *productRepository) AdjustQuantity(_ context.Context, id string, delta int64) (int64, error) {
	defer r.store.exclusive(r.inTx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product, ok := r.store.products[id]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	product.Quantity += delta
	product.UpdatedAt = time.Now().UTC()
	r.store.products[id] = product
	return product.Quantity, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
