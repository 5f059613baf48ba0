package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository.
type orderRepository struct {
	store *Store
	inTx  bool
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepository) Create(_ context.Context, order domain.Order) error {
	defer r.store.exclusive(r.inTx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists: %w", order.ID, domain.ErrStorageConflict)
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.store.orders[order.ID] = cloneOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepository) Get(_ context.Context, id string) (domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	order, ok := r.store.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepository) Save(_ context.Context, order domain.Order) error {
	defer r.store.exclusive(r.inTx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	r.store.orders[order.ID] = cloneOrder(order)
	return nil
}

// Delete удаляет заказ вместе с позициями.
func (r *orderRepository) Delete(_ context.Context, id string) error {
	defer r.store.exclusive(r.inTx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.store.orders, id)
	return nil
}

// List возвращает заказы по фильтру, ограничивая выборку limit (если >0).
func (r *orderRepository) List(_ context.Context, filter domain.OrderFilter, sortKey domain.OrderSort, limit int) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.store.orders))
	for _, order := range r.store.orders {
		if filter.Match(order) {
			result = append(result, cloneOrder(order))
		}
	}

	less := orderLess(sortKey)
	sort.Slice(result, func(i, j int) bool { return less(result[i], result[j]) })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// orderLess строит компаратор; при равенстве ключа порядок определяется ID.
func orderLess(key domain.OrderSort) func(a, b domain.Order) bool {
	byID := func(a, b domain.Order) bool { return a.ID > b.ID }
	switch key {
	case domain.OrderSortCreatedAsc:
		return func(a, b domain.Order) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	case domain.OrderSortTotalDesc:
		return func(a, b domain.Order) bool {
			if a.TotalMinor != b.TotalMinor {
				return a.TotalMinor > b.TotalMinor
			}
			return byID(a, b)
		}
	case domain.OrderSortTotalAsc:
		return func(a, b domain.Order) bool {
			if a.TotalMinor != b.TotalMinor {
				return a.TotalMinor < b.TotalMinor
			}
			return a.ID < b.ID
		}
	default:
		return func(a, b domain.Order) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return byID(a, b)
		}
	}
}

var _ domain.OrderRepository = (*orderRepository)(nil)
