package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotConfirmed — заказ существует, но не был подтверждён.
	ErrOrderNotConfirmed = errors.New("order is not confirmed")
	// ErrOrderLocked — заказ в терминальном состоянии (cancelled/cooking/done).
	ErrOrderLocked = errors.New("order state is locked")
	// ErrEditWindowExpired — окно редактирования (5 минут) истекло.
	ErrEditWindowExpired = errors.New("edit window expired")
	// ErrStoreContention — не удалось получить эксклюзивный доступ к записи.
	// Временная ошибка: попытку можно повторить.
	ErrStoreContention = errors.New("store contention")
	// ErrEmptyChangeSet — запрос не содержит ни одного изменяемого поля.
	ErrEmptyChangeSet = errors.New("change set is empty")
	// ErrAlreadyConfirmed — повторное подтверждение заказа.
	ErrAlreadyConfirmed = errors.New("order already confirmed")

	// Ошибки локальной валидации изменяемых полей.
	ErrInvalidProduct       = errors.New("invalid product")
	ErrInvalidSize          = errors.New("invalid size")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidQty           = errors.New("qty must be greater than zero")
)

// IsRetryable сообщает, имеет ли смысл повторить попытку применения изменения.
// Повторяется только contention; бизнес-отказы окончательны.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreContention)
}
