// Package inventory применяет и откатывает изменения складских остатков по позициям заказа.
package inventory

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// Adjuster списывает и возвращает остатки товаров.
// Создаётся на время одной единицы работы поверх её ProductRepository.
type Adjuster struct {
	products domain.ProductRepository
	logger   *log.Entry
}

// NewAdjuster создаёт корректировщик остатков.
func NewAdjuster(products domain.ProductRepository, logger *log.Entry) *Adjuster {
	if logger == nil {
		logger = log.WithField("component", "inventory")
	}
	return &Adjuster{products: products, logger: logger}
}

// Reserve уменьшает остаток на qty. Остаток может уйти в минус.
// Отсутствующий товар пропускается без ошибки.
func (a *Adjuster) Reserve(ctx context.Context, productID string, qty int64) (domain.StockLevel, error) {
	return a.adjust(ctx, productID, -qty)
}

// Release возвращает qty единиц на склад.
func (a *Adjuster) Release(ctx context.Context, productID string, qty int64) (domain.StockLevel, error) {
	return a.adjust(ctx, productID, qty)
}

// ReserveLines списывает остатки по всем позициям заказа.
func (a *Adjuster) ReserveLines(ctx context.Context, lines []domain.OrderLine) ([]domain.StockLevel, error) {
	return a.applyLines(ctx, lines, a.Reserve)
}

// ReleaseLines возвращает остатки по всем позициям заказа.
func (a *Adjuster) ReleaseLines(ctx context.Context, lines []domain.OrderLine) ([]domain.StockLevel, error) {
	return a.applyLines(ctx, lines, a.Release)
}

func (a *Adjuster) applyLines(
	ctx context.Context,
	lines []domain.OrderLine,
	op func(context.Context, string, int64) (domain.StockLevel, error),
) ([]domain.StockLevel, error) {
	levels := make([]domain.StockLevel, 0, len(lines))
	for _, line := range lines {
		level, err := op(ctx, line.ProductID, line.Qty)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func (a *Adjuster) adjust(ctx context.Context, productID string, delta int64) (domain.StockLevel, error) {
	qty, err := a.products.AdjustQuantity(ctx, productID, delta)
	if errors.Is(err, domain.ErrProductNotFound) {
		a.logger.WithFields(log.Fields{
			"product_id": productID,
			"delta":      delta,
		}).Warn("product not found, stock adjustment skipped")
		return domain.StockLevel{ProductID: productID, Skipped: true}, nil
	}
	if err != nil {
		return domain.StockLevel{}, fmt.Errorf("adjust stock for %s: %w", productID, err)
	}

	level := domain.StockLevel{ProductID: productID, Quantity: qty}
	if level.Oversold() {
		a.logger.WithFields(log.Fields{
			"product_id": productID,
			"quantity":   qty,
		}).Warn("product oversold")
	}
	return level, nil
}
