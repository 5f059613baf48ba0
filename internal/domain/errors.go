package domain

import (
	"errors"
	"fmt"
)

// Базовые категории ошибок. Конкретные ошибки оборачивают их, поэтому
// вызывающий код проверяет категорию через errors.Is.
var (
	// ErrNotFound — сущность отсутствует в хранилище. Повтор не поможет.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition — запрошенный переход статуса запрещён.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrPromotionNotApplicable — акция найдена, но к заказу не применяется.
	ErrPromotionNotApplicable = errors.New("promotion not applicable")
	// ErrStorageConflict — конфликт записи (версия, сериализация, лимит использований). Можно повторить.
	ErrStorageConflict = errors.New("storage conflict")
	// ErrStorageUnavailable — хранилище временно недоступно. Можно повторить с backoff.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrValidation — входные данные отклонены до записи.
	ErrValidation = errors.New("validation failed")
)

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)
	// ErrProductNotFound возвращается, если товара нет в каталоге.
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	// ErrPromotionNotFound возвращается, если промокод не найден.
	ErrPromotionNotFound = fmt.Errorf("promotion %w", ErrNotFound)
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = fmt.Errorf("order version conflict: %w", ErrStorageConflict)
	// ErrPromotionUsageExhausted — лимит использований исчерпан конкурентной транзакцией.
	ErrPromotionUsageExhausted = fmt.Errorf("promotion usage limit reached: %w", ErrStorageConflict)
)

var (
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = fmt.Errorf("order must contain at least one line: %w", ErrValidation)
	// Ошибка отсутствующего товара в позиции.
	ErrLineProductRequired = fmt.Errorf("line product_id is required: %w", ErrValidation)
	// Ошибка при некорректном количестве товара (<= 0).
	ErrLineQtyInvalid = fmt.Errorf("line qty must be greater than zero: %w", ErrValidation)
	// Ошибка слишком большого количества в позиции (> MaxLineQty).
	ErrLineQtyTooLarge = fmt.Errorf("line qty exceeds limit: %w", ErrValidation)
	// Ошибка переполнения суммы заказа.
	ErrAmountOverflow = fmt.Errorf("order amount overflows: %w", ErrValidation)
	// Ошибка, если цена позиции отрицательная.
	ErrLinePriceInvalid = fmt.Errorf("line price must be non-negative: %w", ErrValidation)
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = fmt.Errorf("amount must be non-negative: %w", ErrValidation)
	// Ошибка несоответствия сумм заказа и позиций.
	ErrAmountMismatch = fmt.Errorf("order amounts do not match lines: %w", ErrValidation)
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = fmt.Errorf("order_id is required: %w", ErrValidation)
	// Ошибка неизвестного статуса заказа.
	ErrStatusUnknown = fmt.Errorf("unknown order status: %w", ErrValidation)
	// Ошибка отсутствующего идентификатора товара.
	ErrProductIDRequired = fmt.Errorf("product id is required: %w", ErrValidation)
	// Ошибка пустого промокода.
	ErrPromotionCodeRequired = fmt.Errorf("promotion code is required: %w", ErrValidation)
	// Ошибка некорректного типа скидки.
	ErrPromotionKindInvalid = fmt.Errorf("promotion kind is invalid: %w", ErrValidation)
	// Ошибка отрицательного значения скидки.
	ErrPromotionValueInvalid = fmt.Errorf("promotion value must be non-negative: %w", ErrValidation)
	// Ошибка перепутанных границ периода действия.
	ErrPromotionPeriodInvalid = fmt.Errorf("promotion ends before it starts: %w", ErrValidation)
	// ErrPromotionCodeTaken — промокод уже занят другой акцией.
	ErrPromotionCodeTaken = fmt.Errorf("promotion code already exists: %w", ErrValidation)
	// Ошибка неизвестного ключа сортировки.
	ErrSortKeyInvalid = fmt.Errorf("unknown sort key: %w", ErrValidation)
)

// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
var ErrOutboxPublish = errors.New("outbox publish failed")

// IsNotFound сообщает, что ошибка относится к отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsRetryable сообщает, имеет ли смысл повторить всю операцию целиком.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageConflict) || errors.Is(err, ErrStorageUnavailable)
}

// IsValidation сообщает, что ошибка вызвана некорректными входными данными.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
