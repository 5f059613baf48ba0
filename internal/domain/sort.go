package domain

import "strings"

// OrderSort — допустимые ключи сортировки списка заказов.
type OrderSort string

const (
	OrderSortCreatedDesc OrderSort = "created_desc"
	OrderSortCreatedAsc  OrderSort = "created_asc"
	OrderSortTotalDesc   OrderSort = "total_desc"
	OrderSortTotalAsc    OrderSort = "total_asc"
)

// ParseOrderSort разбирает ключ сортировки. Пустая строка означает сортировку по умолчанию.
func ParseOrderSort(raw string) (OrderSort, error) {
	key := OrderSort(strings.ToLower(strings.TrimSpace(raw)))
	switch key {
	case "":
		return OrderSortCreatedDesc, nil
	case OrderSortCreatedDesc, OrderSortCreatedAsc, OrderSortTotalDesc, OrderSortTotalAsc:
		return key, nil
	default:
		return "", ErrSortKeyInvalid
	}
}

// OrderFilter ограничивает выборку заказов. Пустые поля не фильтруют.
type OrderFilter struct {
	CustomerID string
	Status     OrderStatus
}

// Match проверяет, подходит ли заказ под фильтр.
func (f OrderFilter) Match(o Order) bool {
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}
