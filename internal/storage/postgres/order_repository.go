package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const orderColumns = `
	id, customer_id, customer_name, customer_phone, status,
	subtotal_minor, discount_minor, total_minor, promotion_id, promotion_code,
	version, created_at, updated_at`

// orderSortClauses сопоставляет ключ сортировки с ORDER BY. В SQL попадают только значения из этой таблицы.
var orderSortClauses = map[domain.OrderSort]string{
	domain.OrderSortCreatedDesc: "created_at DESC, id DESC",
	domain.OrderSortCreatedAsc:  "created_at ASC, id ASC",
	domain.OrderSortTotalDesc:   "total_minor DESC, id DESC",
	domain.OrderSortTotalAsc:    "total_minor ASC, id ASC",
}

type orderRepository struct {
	q querier
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository вне транзакции.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{q: store.DB()}
}

// atomically выполняет fn в собственной транзакции, если репозиторий не привязан к внешней.
func (r *orderRepository) atomically(ctx context.Context, fn func(q querier) error) error {
	db, ok := r.q.(*sql.DB)
	if !ok {
		return fn(r.q)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return wrapf(err, "begin tx")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapf(err, "commit tx")
	}
	return nil
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.atomically(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		`,
			order.ID, nullString(order.CustomerID), order.CustomerName, order.CustomerPhone, string(order.Status),
			order.SubtotalMinor, order.DiscountMinor, order.TotalMinor,
			nullString(order.PromotionID), order.PromotionCode,
			order.Version, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("order %s already exists: %w", order.ID, domain.ErrStorageConflict)
			}
			return wrapf(err, "insert order")
		}

		for i, line := range order.Lines {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO order_lines (
					id, order_id, position, product_id, qty, unit_price_minor, line_total_minor
				) VALUES ($1,$2,$3,$4,$5,$6,$7)
			`,
				line.ID, order.ID, i, line.ProductID, line.Qty, line.UnitPriceMinor, line.LineTotalMinor,
			); err != nil {
				return wrapf(err, "insert order line")
			}
		}
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, wrapf(err, "select order")
	}

	lines, err := r.loadLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter, sortKey domain.OrderSort, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	orderBy, ok := orderSortClauses[sortKey]
	if !ok {
		orderBy = orderSortClauses[domain.OrderSortCreatedDesc]
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR customer_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY ` + orderBy

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.q.QueryContext(ctx, query+" LIMIT $3", filter.CustomerID, string(filter.Status), limit)
	} else {
		rows, err = r.q.QueryContext(ctx, query, filter.CustomerID, string(filter.Status))
	}
	if err != nil {
		return nil, wrapf(err, "list orders")
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, wrapf(err, "iterate order rows")
	}
	// Строки закрываются до загрузки позиций: внутри транзакции соединение одно.
	_ = rows.Close()

	for i := range orders {
		lines, err := r.loadLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

// Save обновляет заголовок заказа с проверкой версии. Позиции после создания не меняются.
func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET customer_name = $3,
		    customer_phone = $4,
		    status = $5,
		    subtotal_minor = $6,
		    discount_minor = $7,
		    total_minor = $8,
		    promotion_id = $9,
		    promotion_code = $10,
		    version = version + 1,
		    updated_at = $11
		WHERE id = $1 AND version = $2
	`,
		order.ID, order.Version, order.CustomerName, order.CustomerPhone, string(order.Status),
		order.SubtotalMinor, order.DiscountMinor, order.TotalMinor,
		nullString(order.PromotionID), order.PromotionCode, order.UpdatedAt,
	)
	if err != nil {
		return wrapf(err, "update order")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for order update: %w", err)
	}
	if affected > 0 {
		return nil
	}

	exists, err := r.exists(ctx, order.ID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrOrderNotFound
	}
	return domain.ErrOrderVersionConflict
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// order_lines удаляются каскадом.
	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return wrapf(err, "delete order")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for order delete: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, wrapf(err, "check order existence")
	}
	return exists, nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, order_id, product_id, qty, unit_price_minor, line_total_minor
		FROM order_lines
		WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, wrapf(err, "load order lines")
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.Qty, &line.UnitPriceMinor, &line.LineTotalMinor,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "iterate order lines")
	}
	return lines, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order     domain.Order
		status    string
		customer  sql.NullString
		promotion sql.NullString
	)
	if err := row.Scan(
		&order.ID, &customer, &order.CustomerName, &order.CustomerPhone, &status,
		&order.SubtotalMinor, &order.DiscountMinor, &order.TotalMinor, &promotion, &order.PromotionCode,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.CustomerID = customer.String
	order.PromotionID = promotion.String
	order.Status = domain.OrderStatus(status)
	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
