package domain

import "time"

// Product — товар каталога. Заказы и акции ссылаются на него по ID.
type Product struct {
	ID              string
	Name            string
	SKU             string
	PriceMinor      int64
	ImportCostMinor int64
	// Quantity может уйти в минус: продажа сверх остатка не блокируется.
	Quantity   int64
	CategoryID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate проверяет поля товара перед сохранением.
func (p *Product) Validate() []error {
	var errs []error

	if p.ID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if p.PriceMinor < 0 || p.ImportCostMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	return errs
}

// StockLevel — остаток товара после корректировки.
type StockLevel struct {
	ProductID string
	Quantity  int64
	// Skipped выставляется, если товара уже нет в каталоге и корректировка пропущена.
	Skipped bool
}

// Oversold сообщает, что остаток ушёл в минус.
func (s StockLevel) Oversold() bool {
	return !s.Skipped && s.Quantity < 0
}
