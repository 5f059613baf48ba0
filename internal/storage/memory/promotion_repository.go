package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// promotionRepository хранит акции с уникальным индексом по нормализованному коду.
type promotionRepository struct {
	store *Store
	inTx  bool
}

// GetByCode ищет акцию без учёта регистра.
func (r *promotionRepository) GetByCode(_ context.Context, code string) (domain.Promotion, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.promoCodes[domain.NormalizePromotionCode(code)]
	if !ok {
		return domain.Promotion{}, domain.ErrPromotionNotFound
	}
	return r.store.promotions[id].Clone(), nil
}

// Create сохраняет акцию; код приводится к верхнему регистру.
func (r *promotionRepository) Create(_ context.Context, promotion domain.Promotion) error {
	if errs := promotion.Validate(); len(errs) > 0 {
		return errs[0]
	}
	promotion = promotion.Clone()
	promotion.Code = domain.NormalizePromotionCode(promotion.Code)
	if promotion.ID == "" {
		promotion.ID = uuid.NewString()
	}
	if promotion.CreatedAt.IsZero() {
		promotion.CreatedAt = time.Now().UTC()
	}

	defer r.store.exclusive(r.inTx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, taken := r.store.promoCodes[promotion.Code]; taken {
		return domain.ErrPromotionCodeTaken
	}
	if _, exists := r.store.promotions[promotion.ID]; exists {
		return domain.ErrPromotionCodeTaken
	}
	r.store.promotions[promotion.ID] = promotion
	r.store.promoCodes[promotion.Code] = promotion.ID
	return nil
}

// IncrementUsage увеличивает счётчик, если лимит ещё не выбран.
func (r *promotionRepository) IncrementUsage(_ context.Context, id string) error {
	defer r.store.exclusive(r.inTx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	promotion, ok := r.store.promotions[id]
	if !ok {
		return domain.ErrPromotionNotFound
	}
	if promotion.UsageExhausted() {
		return domain.ErrPromotionUsageExhausted
	}
	promotion.UsedCount++
	r.store.promotions[id] = promotion
	return nil
}

// ListActive возвращает активные акции в порядке создания.
func (r *promotionRepository) ListActive(_ context.Context) ([]domain.Promotion, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Promotion, 0, len(r.store.promotions))
	for _, p := range r.store.promotions {
		if p.Active {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Code < result[j].Code
	})
	return result, nil
}

var _ domain.PromotionRepository = (*promotionRepository)(nil)
