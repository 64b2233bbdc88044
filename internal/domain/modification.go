package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcome — терминальная классификация обработанного запроса на изменение.
type Outcome string

const (
	// OutcomeModOK — изменение применено и разослано без ошибок.
	OutcomeModOK Outcome = "MOD_OK"
	// OutcomeTimeExpired — окно редактирования истекло.
	OutcomeTimeExpired Outcome = "TIME_EXPIRED"
	// OutcomeSyncFail — изменение применено, но хотя бы один канал уведомлений отказал.
	OutcomeSyncFail Outcome = "SYNC_FAIL"
	// OutcomeModFail — изменение отклонено (валидация, бизнес-правило или исчерпанные retry).
	OutcomeModFail Outcome = "MOD_FAIL"
)

// Outcomes перечисляет все коды результата; порядок фиксирован для метрик и отчётов.
var Outcomes = []Outcome{OutcomeModOK, OutcomeTimeExpired, OutcomeSyncFail, OutcomeModFail}

// Причины отказа для структурированного лога.
const (
	ReasonInvalidProduct        = "invalid_product"
	ReasonInvalidSize           = "invalid_size"
	ReasonInvalidPayment        = "invalid_payment"
	ReasonEmptyChanges          = "empty_changes"
	ReasonNotFoundOrUnconfirmed = "not_found_or_unconfirmed"
	ReasonStateLocked           = "state_locked"
	ReasonEditWindowPassed      = "edit_window_passed"
	ReasonContentionExhausted   = "contention_exhausted"
	ReasonSinkFailed            = "sink_failed"
)

// unspecifiedQty подставляется вместо отсутствующего количества при сортировке:
// запросы без qty уходят в конец среди равных по срочности.
const unspecifiedQty = math.MaxInt32

// ChangeSet описывает частичный набор изменений заказа.
// Применяются только непустые поля; nil означает «не трогать».
type ChangeSet struct {
	ClientName    *string
	Product       *string
	Size          *string
	Qty           *int
	PaymentMethod *string
}

// IsEmpty сообщает, что ни одно поле не задано.
func (c ChangeSet) IsEmpty() bool {
	return c.ClientName == nil && c.Product == nil && c.Size == nil &&
		c.Qty == nil && c.PaymentMethod == nil
}

// Validate выполняет локальную проверку закрытых множеств.
// Хранилище при этом не затрагивается.
func (c ChangeSet) Validate() error {
	if c.IsEmpty() {
		return ErrEmptyChangeSet
	}
	if c.Product != nil && !IsValidProduct(*c.Product) {
		return ErrInvalidProduct
	}
	if c.Size != nil && !IsValidSize(*c.Size) {
		return ErrInvalidSize
	}
	if c.PaymentMethod != nil && !IsValidPaymentMethod(*c.PaymentMethod) {
		return ErrInvalidPaymentMethod
	}
	return nil
}

// Normalize возвращает копию набора с обрезанными пробелами в строковых полях.
// Неположительное количество отбрасывается: остальные поля применяются,
// а текущее количество заказа остаётся прежним.
func (c ChangeSet) Normalize() ChangeSet {
	out := c
	out.ClientName = trimmed(c.ClientName)
	out.Product = trimmed(c.Product)
	out.Size = trimmed(c.Size)
	out.PaymentMethod = trimmed(c.PaymentMethod)
	if c.Qty != nil && *c.Qty <= 0 {
		out.Qty = nil
	}
	return out
}

// Apply переносит заданные поля набора в заказ. Состояние и метки времени
// заказа не затрагиваются.
func (c ChangeSet) Apply(o *Order) {
	if c.ClientName != nil {
		o.ClientName = *c.ClientName
	}
	if c.Product != nil {
		o.Product = *c.Product
	}
	if c.Size != nil {
		o.Size = *c.Size
	}
	if c.Qty != nil {
		o.Qty = *c.Qty
	}
	if c.PaymentMethod != nil {
		o.PaymentMethod = *c.PaymentMethod
	}
}

// FieldNames возвращает имена заданных полей в фиксированном порядке —
// для событий уведомлений, где важен компактный детерминированный список.
func (c ChangeSet) FieldNames() []string {
	names := make([]string, 0, 5)
	if c.ClientName != nil {
		names = append(names, "client_name")
	}
	if c.Product != nil {
		names = append(names, "product")
	}
	if c.Size != nil {
		names = append(names, "size")
	}
	if c.Qty != nil {
		names = append(names, "qty")
	}
	if c.PaymentMethod != nil {
		names = append(names, "payment_method")
	}
	return names
}

// Fields возвращает заданные поля в виде map для логов и уведомлений.
func (c ChangeSet) Fields() map[string]any {
	fields := make(map[string]any, 5)
	if c.ClientName != nil {
		fields["client_name"] = *c.ClientName
	}
	if c.Product != nil {
		fields["product"] = *c.Product
	}
	if c.Size != nil {
		fields["size"] = *c.Size
	}
	if c.Qty != nil {
		fields["qty"] = *c.Qty
	}
	if c.PaymentMethod != nil {
		fields["payment_method"] = *c.PaymentMethod
	}
	return fields
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// ModRequest — транзиентный запрос на изменение заказа.
// Поля неизменяемы после создания; приоритет вычисляется из них компаратором.
type ModRequest struct {
	ID          string
	OrderID     int64
	Urgent      bool
	Changes     ChangeSet
	RequestedAt time.Time
}

// NewModRequest создаёт запрос с уникальным идентификатором и меткой времени.
func NewModRequest(orderID int64, urgent bool, changes ChangeSet) *ModRequest {
	return &ModRequest{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Urgent:      urgent,
		Changes:     changes.Normalize(),
		RequestedAt: time.Now().UTC(),
	}
}

// EffectiveQty возвращает заявленное количество для сортировки;
// отсутствующее или некорректное количество считается максимально большим.
func (r *ModRequest) EffectiveQty() int {
	if r.Changes.Qty != nil && *r.Changes.Qty > 0 {
		return *r.Changes.Qty
	}
	return unspecifiedQty
}

// ByPriority — компаратор очереди изменений: срочные раньше обычных,
// при равной срочности — меньшее заявленное количество. Возвращает true,
// если a строго приоритетнее b; равные элементы очередь упорядочивает
// по порядку вставки.
func ByPriority(a, b *ModRequest) bool {
	ap, bp := priorityRank(a), priorityRank(b)
	if ap != bp {
		return ap < bp
	}
	return a.EffectiveQty() < b.EffectiveQty()
}

func priorityRank(r *ModRequest) int {
	if r.Urgent {
		return 0
	}
	return 1
}
