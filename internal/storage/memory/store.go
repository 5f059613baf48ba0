// Package memory содержит in-memory реализацию портов хранилища для локальной разработки и тестов.
package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// Store держит все таблицы магазина в памяти.
// WithinTx сериализует единицы работы и откатывает изменения по снимку при ошибке.
type Store struct {
	// txMu сериализует транзакции и записи вне транзакций.
	txMu sync.Mutex
	// mu защищает сами карты.
	mu sync.RWMutex

	products   map[string]domain.Product
	promotions map[string]domain.Promotion
	// promoCodes: нормализованный код -> ID акции.
	promoCodes map[string]string
	orders     map[string]domain.Order
	timeline   map[string][]domain.TimelineEvent
	outbox     map[string]*outboxRecord
	outboxSeq  int64
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		products:   make(map[string]domain.Product),
		promotions: make(map[string]domain.Promotion),
		promoCodes: make(map[string]string),
		orders:     make(map[string]domain.Order),
		timeline:   make(map[string][]domain.TimelineEvent),
		outbox:     make(map[string]*outboxRecord),
	}
}

// Repositories возвращает репозитории вне транзакции: каждая запись атомарна сама по себе.
func (s *Store) Repositories() domain.Repositories {
	return s.repositories(false)
}

func (s *Store) repositories(inTx bool) domain.Repositories {
	return domain.Repositories{
		Products:   &productRepository{store: s, inTx: inTx},
		Promotions: &promotionRepository{store: s, inTx: inTx},
		Orders:     &orderRepository{store: s, inTx: inTx},
		Timeline:   &timelineRepository{store: s, inTx: inTx},
		Outbox:     &outboxRepository{store: s, inTx: inTx},
	}
}

// WithinTx выполняет fn эксклюзивно. Если fn вернула ошибку, состояние откатывается к снимку.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, s.repositories(true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Ping всегда успешен: хранилище живёт в процессе.
func (s *Store) Ping(context.Context) error {
	return nil
}

// exclusive захватывает txMu для записи вне транзакции, чтобы её не затёр откат чужого снимка.
func (s *Store) exclusive(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

type snapshot struct {
	products   map[string]domain.Product
	promotions map[string]domain.Promotion
	promoCodes map[string]string
	orders     map[string]domain.Order
	timeline   map[string][]domain.TimelineEvent
	outbox     map[string]*outboxRecord
	outboxSeq  int64
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		products:   make(map[string]domain.Product, len(s.products)),
		promotions: make(map[string]domain.Promotion, len(s.promotions)),
		promoCodes: make(map[string]string, len(s.promoCodes)),
		orders:     make(map[string]domain.Order, len(s.orders)),
		timeline:   make(map[string][]domain.TimelineEvent, len(s.timeline)),
		outbox:     make(map[string]*outboxRecord, len(s.outbox)),
		outboxSeq:  s.outboxSeq,
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.promotions {
		snap.promotions[k] = v.Clone()
	}
	for k, v := range s.promoCodes {
		snap.promoCodes[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = cloneOrder(v)
	}
	for k, v := range s.timeline {
		snap.timeline[k] = append([]domain.TimelineEvent(nil), v...)
	}
	for k, v := range s.outbox {
		rec := *v
		snap.outbox[k] = &rec
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = snap.products
	s.promotions = snap.promotions
	s.promoCodes = snap.promoCodes
	s.orders = snap.orders
	s.timeline = snap.timeline
	s.outbox = snap.outbox
	s.outboxSeq = snap.outboxSeq
}

func cloneOrder(o domain.Order) domain.Order {
	out := o
	out.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return out
}

var _ domain.UnitOfWork = (*Store)(nil)
