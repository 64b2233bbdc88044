package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
)

// Option настраивает in-memory репозиторий.
type Option func(*orderRepositoryInMemory)

// WithNow подменяет источник времени; нужен тестам границы окна редактирования.
func WithNow(now func() time.Time) Option {
	return func(r *orderRepositoryInMemory) {
		if now != nil {
			r.now = now
		}
	}
}

// WithContentionProbe задаёт стратегию симуляции contention: если probe
// возвращает true, попытка ApplyModification завершается ErrStoreContention
// до захвата блокировки. Тесты получают детерминированные сценарии вместо
// случайных сбоев.
func WithContentionProbe(probe func() bool) Option {
	return func(r *orderRepositoryInMemory) {
		r.contentionProbe = probe
	}
}

// orderRepositoryInMemory — in-memory реализация OrderRepository.
// Единственный разделяемый мутируемый ресурс — карта заказов; все записи
// проходят через ApplyModification под эксклюзивной блокировкой.
type orderRepositoryInMemory struct {
	mu              sync.Mutex
	items           map[int64]domain.Order
	nextID          int64
	now             func() time.Time
	contentionProbe func() bool
}

// NewOrderRepository возвращает in-memory репозиторий для локальной
// разработки и тестов.
func NewOrderRepository(options ...Option) domain.OrderRepository {
	r := &orderRepositoryInMemory{
		items: make(map[int64]domain.Order),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Create сохраняет новый заказ и присваивает ему идентификатор.
func (r *orderRepositoryInMemory) Create(order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	order.ID = r.nextID
	if order.State == "" {
		order.State = domain.OrderStateDraft
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = r.now()
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = cloneOrder(order)
	return cloneOrder(order), nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id int64) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListRecent возвращает последние заказы, новые первыми,
// ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListRecent(limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Confirm переводит заказ в состояние confirmed и один раз фиксирует ConfirmedAt.
func (r *orderRepositoryInMemory) Confirm(id int64) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if order.ConfirmedAt != nil {
		return domain.Order{}, domain.ErrAlreadyConfirmed
	}
	if order.IsLocked() {
		return domain.Order{}, domain.ErrOrderLocked
	}

	confirmed := r.now()
	order.State = domain.OrderStateConfirmed
	order.ConfirmedAt = &confirmed
	r.items[id] = cloneOrder(order)
	return cloneOrder(order), nil
}

// ApplyModification атомарно применяет заданные поля changes к заказу.
// Инвариант (подтверждён, не заблокирован, окно не истекло) перепроверяется
// по живым данным при каждом вызове. Частичная запись невозможна: карта
// обновляется одним присваиванием под блокировкой.
func (r *orderRepositoryInMemory) ApplyModification(id int64, changes domain.ChangeSet) error {
	if changes.IsEmpty() {
		return domain.ErrEmptyChangeSet
	}

	if r.contentionProbe != nil && r.contentionProbe() {
		return domain.ErrStoreContention
	}

	// Эксклюзивный доступ без ожидания: занятая блокировка — contention,
	// решение о повторе принимает вызывающий.
	if !r.mu.TryLock() {
		return domain.ErrStoreContention
	}
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if err := order.CanModify(r.now()); err != nil {
		return err
	}

	changes.Apply(&order)
	r.items[id] = cloneOrder(order)
	return nil
}

// SetState переводит заказ в новое состояние жизненного цикла.
// Используется внешними участниками процесса (контроль готовки, отмена);
// поля заказа при этом не меняются.
func (r *orderRepositoryInMemory) SetState(id int64, state domain.OrderState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.State = state
	r.items[id] = cloneOrder(order)
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	if order.ConfirmedAt != nil {
		confirmed := *order.ConfirmedAt
		order.ConfirmedAt = &confirmed
	}
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
