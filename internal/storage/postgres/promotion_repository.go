package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const promotionColumns = `
	id, code, name, kind, value, free_qty, min_order_minor, max_discount_minor,
	starts_at, ends_at, active, usage_limit, used_count, category_id, product_id, created_at`

type promotionRepository struct {
	q querier
}

// NewPromotionRepository создаёт PostgreSQL-реализацию PromotionRepository вне транзакции.
func NewPromotionRepository(store *Store) domain.PromotionRepository {
	return &promotionRepository{q: store.DB()}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPromotion(row rowScanner) (domain.Promotion, error) {
	var (
		p           domain.Promotion
		kind        string
		freeQty     sql.NullInt32
		minOrder    sql.NullInt64
		maxDiscount sql.NullInt64
		usageLimit  sql.NullInt32
		category    sql.NullString
		product     sql.NullString
	)
	if err := row.Scan(
		&p.ID, &p.Code, &p.Name, &kind, &p.Value, &freeQty, &minOrder, &maxDiscount,
		&p.StartsAt, &p.EndsAt, &p.Active, &usageLimit, &p.UsedCount, &category, &product, &p.CreatedAt,
	); err != nil {
		return domain.Promotion{}, err
	}
	p.Kind = domain.DiscountKind(kind)
	if freeQty.Valid {
		p.FreeQty = &freeQty.Int32
	}
	if minOrder.Valid {
		p.MinOrderMinor = &minOrder.Int64
	}
	if maxDiscount.Valid {
		p.MaxDiscountMinor = &maxDiscount.Int64
	}
	if usageLimit.Valid {
		p.UsageLimit = &usageLimit.Int32
	}
	if category.Valid {
		p.CategoryID = &category.String
	}
	if product.Valid {
		p.ProductID = &product.String
	}
	return p, nil
}

func (r *promotionRepository) GetByCode(ctx context.Context, code string) (domain.Promotion, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p, err := scanPromotion(r.q.QueryRowContext(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE code = $1`,
		domain.NormalizePromotionCode(code),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Promotion{}, domain.ErrPromotionNotFound
		}
		return domain.Promotion{}, wrapf(err, "select promotion")
	}
	return p, nil
}

func (r *promotionRepository) Create(ctx context.Context, p domain.Promotion) error {
	if errs := p.Validate(); len(errs) > 0 {
		return errs[0]
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p.Code = domain.NormalizePromotionCode(p.Code)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO promotions (`+promotionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		p.ID, p.Code, p.Name, string(p.Kind), p.Value, p.FreeQty, p.MinOrderMinor, p.MaxDiscountMinor,
		p.StartsAt, p.EndsAt, p.Active, p.UsageLimit, p.UsedCount, p.CategoryID, p.ProductID, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPromotionCodeTaken
		}
		return wrapf(err, "insert promotion")
	}
	return nil
}

// IncrementUsage увеличивает счётчик условным UPDATE, поэтому параллельные заказы не превысят лимит.
func (r *promotionRepository) IncrementUsage(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE promotions
		SET used_count = used_count + 1
		WHERE id = $1
		  AND (usage_limit IS NULL OR used_count < usage_limit)
	`, id)
	if err != nil {
		return wrapf(err, "increment promotion usage")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for promotion usage: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM promotions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return wrapf(err, "check promotion existence")
	}
	if !exists {
		return domain.ErrPromotionNotFound
	}
	return domain.ErrPromotionUsageExhausted
}

func (r *promotionRepository) ListActive(ctx context.Context) ([]domain.Promotion, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE active
		ORDER BY created_at, code
	`)
	if err != nil {
		return nil, wrapf(err, "list active promotions")
	}
	defer rows.Close()

	result := make([]domain.Promotion, 0)
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "iterate promotion rows")
	}
	return result, nil
}

var _ domain.PromotionRepository = (*promotionRepository)(nil)
