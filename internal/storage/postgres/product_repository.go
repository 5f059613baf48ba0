package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type productRepository struct {
	q querier
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository вне транзакции.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{q: store.DB()}
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		product  domain.Product
		category sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, sku, price_minor, import_cost_minor, quantity, category_id, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.Name, &product.SKU, &product.PriceMinor, &product.ImportCostMinor,
		&product.Quantity, &category, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, wrapf(err, "select product")
	}
	product.CategoryID = category.String
	return product, nil
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) error {
	if errs := product.Validate(); len(errs) > 0 {
		return errs[0]
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO products (
			id, name, sku, price_minor, import_cost_minor, quantity, category_id, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		product.ID, product.Name, product.SKU, product.PriceMinor, product.ImportCostMinor,
		product.Quantity, nullString(product.CategoryID), product.CreatedAt, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product %s already exists: %w", product.ID, domain.ErrStorageConflict)
		}
		return wrapf(err, "insert product")
	}
	return nil
}

func (r *productRepository) AdjustQuantity(ctx context.Context, id string, delta int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var quantity int64
	err := r.q.QueryRowContext(ctx, `
		UPDATE products
		SET quantity = quantity + $2,
		    updated_at = $3
		WHERE id = $1
		RETURNING quantity
	`, id, delta, time.Now().UTC()).Scan(&quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrProductNotFound
		}
		return 0, wrapf(err, "adjust product quantity")
	}
	return quantity, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ domain.ProductRepository = (*productRepository)(nil)
