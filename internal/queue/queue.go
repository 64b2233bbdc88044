// Package queue реализует приоритетную очередь запросов на изменение заказов.
// Очередь безопасна для множества производителей и одного потребителя;
// остановка моделируется poison-элементом, а не закрытием канала,
// чтобы блокирующий Pop завершался детерминированно.
package queue

import (
	"container/heap"
	"sync"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
)

// Comparator возвращает true, если запрос a строго приоритетнее b.
// Равные по компаратору элементы очередь выдаёт в порядке вставки.
type Comparator func(a, b *domain.ModRequest) bool

// Queue — неограниченная приоритетная очередь ModRequest.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond
	h    *requestHeap
	seq  uint64
	// closed выставляется после того, как потребитель извлёк poison-элемент;
	// последующие Pop сразу возвращают nil.
	closed bool
}

// New создаёт очередь с заданным компаратором приоритета.
// Nil-компаратор означает domain.ByPriority.
func New(less Comparator) *Queue {
	if less == nil {
		less = domain.ByPriority
	}
	q := &Queue{h: &requestHeap{less: less}}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push добавляет запрос в очередь и будит потребителя.
// После того как потребитель извлёк poison-элемент, Push игнорируется.
func (q *Queue) Push(req *domain.ModRequest) {
	if req == nil {
		return
	}
	q.push(entry{req: req})
}

// Shutdown помещает в очередь poison-элемент. Для компаратора он выглядит
// как несрочный запрос без количества, то есть уходит в самый хвост среди
// равных: срочные запросы, отправленные до остановки, успеют обойти его,
// а всё, что окажется позади, отбрасывается без обработки.
func (q *Queue) Shutdown() {
	q.push(entry{poison: true})
}

func (q *Queue) push(e entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.seq++
	e.seq = q.seq
	heap.Push(q.h, e)
	q.cond.Signal()
}

// Pop блокируется до появления элемента и возвращает самый приоритетный
// запрос. После извлечения poison-элемента возвращает nil — сигнал
// потребителю завершить цикл.
func (q *Queue) Pop() *domain.ModRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.closed {
			return nil
		}
		if q.h.Len() > 0 {
			e := heap.Pop(q.h).(entry)
			if e.poison {
				q.closed = true
				return nil
			}
			return e.req
		}
		q.cond.Wait()
	}
}

// Len возвращает текущее число ожидающих элементов (включая poison, если он есть).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

type entry struct {
	req    *domain.ModRequest
	seq    uint64
	poison bool
}

// sentinelReq подставляется вместо poison-элемента при сравнении:
// несрочный запрос без количества.
var sentinelReq = &domain.ModRequest{}

func (e entry) request() *domain.ModRequest {
	if e.poison {
		return sentinelReq
	}
	return e.req
}

// requestHeap реализует container/heap поверх слайса entry.
type requestHeap struct {
	items []entry
	less  Comparator
}

func (h *requestHeap) Len() int { return len(h.items) }

func (h *requestHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	ar, br := a.request(), b.request()
	if h.less(ar, br) {
		return true
	}
	if h.less(br, ar) {
		return false
	}
	// Стабильность: при равном приоритете побеждает более ранняя вставка.
	return a.seq < b.seq
}

func (h *requestHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *requestHeap) Push(x any) { h.items = append(h.items, x.(entry)) }

func (h *requestHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
