package domain

import "context"

// ProductRepository описывает требования к каталогу товаров.
type ProductRepository interface {
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// Create добавляет товар в каталог.
	Create(ctx context.Context, product Product) error
	// AdjustQuantity атомарно прибавляет delta к остатку и возвращает новое значение.
	// Остаток не ограничивается снизу.
	AdjustQuantity(ctx context.Context, id string, delta int64) (int64, error)
}

// PromotionRepository описывает требования к хранилищу промо-акций.
type PromotionRepository interface {
	// GetByCode ищет акцию по коду без учёта регистра или возвращает ErrPromotionNotFound.
	GetByCode(ctx context.Context, code string) (Promotion, error)
	// Create сохраняет акцию; код нормализуется, дубликат даёт ErrPromotionCodeTaken.
	Create(ctx context.Context, promotion Promotion) error
	// IncrementUsage увеличивает счётчик использований на единицу.
	// Если лимит уже выбран, возвращает ErrPromotionUsageExhausted.
	IncrementUsage(ctx context.Context, id string) error
	// ListActive возвращает акции с флагом Active, без проверки периода.
	ListActive(ctx context.Context) ([]Promotion, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
	// Delete удаляет заказ и его позиции.
	Delete(ctx context.Context, id string) error
	// List возвращает заказы по фильтру с сортировкой и опциональным лимитом.
	List(ctx context.Context, filter OrderFilter, sort OrderSort, limit int) ([]Order, error)
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID string) ([]TimelineEvent, error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// Repositories — набор репозиториев, привязанных к одной единице работы.
type Repositories struct {
	Products   ProductRepository
	Promotions PromotionRepository
	Orders     OrderRepository
	Timeline   TimelineRepository
	Outbox     OutboxRepository
}

// UnitOfWork выполняет fn в одной транзакции: либо фиксируются все записи, либо ни одна.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
