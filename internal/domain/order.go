package domain

import "time"

// OrderState описывает жизненный цикл заказа на кухне.
type OrderState string

const (
	// OrderStateDraft — заказ создан, но ещё не подтверждён.
	OrderStateDraft OrderState = "draft"
	// OrderStateConfirmed — заказ подтверждён; окно редактирования открыто.
	OrderStateConfirmed OrderState = "confirmed"
	// OrderStateCooking — заказ передан на кухню, изменения запрещены.
	OrderStateCooking OrderState = "cooking"
	// OrderStateDone — заказ приготовлен.
	OrderStateDone OrderState = "done"
	// OrderStateCancelled — заказ отменён.
	OrderStateCancelled OrderState = "cancelled"
)

// EditWindow — интервал после подтверждения, в течение которого заказ можно менять.
const EditWindow = 5 * time.Minute

// Допустимые значения изменяемых полей. Множества закрытые: всё остальное
// отклоняется локальной валидацией без обращения к хранилищу.
var (
	ValidProducts       = []string{"pepperoni", "hawaiana"}
	ValidSizes          = []string{"personal", "mediana", "grande"}
	ValidPaymentMethods = []string{"efectivo", "tarjeta", "transferencia"}
)

// Order агрегирует состояние заказа. Запись принадлежит OrderRepository:
// любые изменения снаружи проходят только через ApplyModification.
type Order struct {
	ID            int64
	ClientName    string
	Product       string
	Size          string
	Qty           int
	PaymentMethod string
	State         OrderState
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
}

// IsLocked сообщает, находится ли заказ в терминальном состоянии.
func (o Order) IsLocked() bool {
	switch o.State {
	case OrderStateCancelled, OrderStateCooking, OrderStateDone:
		return true
	}
	return false
}

// CanModify проверяет бизнес-инвариант редактирования на момент now:
// заказ подтверждён, не заблокирован и окно в 5 минут ещё не истекло.
// Возвращает nil либо конкретную причину отказа.
func (o Order) CanModify(now time.Time) error {
	if o.IsLocked() {
		return ErrOrderLocked
	}
	if o.State != OrderStateConfirmed || o.ConfirmedAt == nil {
		return ErrOrderNotConfirmed
	}
	if now.Sub(*o.ConfirmedAt) > EditWindow {
		return ErrEditWindowExpired
	}
	return nil
}

// IsValidProduct проверяет принадлежность продукта допустимому множеству.
func IsValidProduct(p string) bool { return contains(ValidProducts, p) }

// IsValidSize проверяет принадлежность размера допустимому множеству.
func IsValidSize(s string) bool { return contains(ValidSizes, s) }

// IsValidPaymentMethod проверяет принадлежность способа оплаты допустимому множеству.
func IsValidPaymentMethod(pm string) bool { return contains(ValidPaymentMethods, pm) }

func contains(set []string, v string) bool {
	for _, item := range set {
		if item == v {
			return true
		}
	}
	return false
}
