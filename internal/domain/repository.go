package domain

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ и возвращает его с присвоенным идентификатором.
	Create(order Order) (Order, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id int64) (Order, error)
	// ListRecent возвращает последние заказы, новые первыми,
	// ограничивая выборку limit (если >0).
	ListRecent(limit int) ([]Order, error)
	// Confirm переводит заказ в состояние confirmed и фиксирует ConfirmedAt.
	// Повторное подтверждение возвращает ErrAlreadyConfirmed.
	Confirm(id int64) (Order, error)
	// ApplyModification атомарно применяет заданные поля changes к заказу.
	// Проверка инварианта (подтверждён, не заблокирован, окно не истекло)
	// выполняется внутри той же транзакции. Возвращает nil при успехе,
	// ErrStoreContention при временной невозможности получить эксклюзивный
	// доступ либо окончательную бизнес-ошибку (ErrOrderNotFound,
	// ErrOrderNotConfirmed, ErrOrderLocked, ErrEditWindowExpired).
	ApplyModification(id int64, changes ChangeSet) error
}
