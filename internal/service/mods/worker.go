// Package mods реализует конвейер изменений заказов: единственный воркер
// последовательно забирает запросы из приоритетной очереди, выполняет
// условное обновление хранилища с ограниченным числом повторов и рассылает
// уведомления кухне и клиенту.
package mods

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
	"github.com/vladislavdragonenkov/kitchenops/internal/metrics"
	"github.com/vladislavdragonenkov/kitchenops/internal/queue"
)

// RetryConfig ограничивает повторы при конкуренции за запись.
// Повторяются только ошибки, для которых domain.IsRetryable возвращает true.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig — до трёх попыток с удвоением паузы от 250 мс.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 250 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

// Result — терминальный итог обработки одного запроса.
type Result struct {
	Outcome domain.Outcome
	Reason  string
	Latency time.Duration
}

// Worker — единственный последовательный потребитель очереди изменений.
type Worker struct {
	repo    domain.OrderRepository
	queue   *queue.Queue
	kitchen domain.NotificationSink
	client  domain.NotificationSink
	metrics *metrics.ModMetrics
	logger  *log.Entry
	retry   RetryConfig
	sleep   func(time.Duration)

	wg sync.WaitGroup
}

// Option настраивает воркер.
type Option func(*Worker)

// WithKitchenSink задаёт получателя уведомлений кухни.
func WithKitchenSink(sink domain.NotificationSink) Option {
	return func(w *Worker) { w.kitchen = sink }
}

// WithClientSink задаёт получателя клиентских уведомлений.
func WithClientSink(sink domain.NotificationSink) Option {
	return func(w *Worker) { w.client = sink }
}

// WithMetrics задаёт агрегатор метрик конвейера.
func WithMetrics(m *metrics.ModMetrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithLogger задаёт логгер воркера.
func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithRetry переопределяет политику повторов.
func WithRetry(retry RetryConfig) Option {
	return func(w *Worker) { w.retry = retry }
}

// WithSleep переопределяет функцию паузы между повторами (для тестов).
func WithSleep(sleep func(time.Duration)) Option {
	return func(w *Worker) { w.sleep = sleep }
}

// NewWorker создаёт воркер конвейера изменений.
func NewWorker(repo domain.OrderRepository, q *queue.Queue, opts ...Option) *Worker {
	w := &Worker{
		repo:  repo,
		queue: q,
		retry: DefaultRetryConfig(),
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.New().WithField("component", "mod_worker")
	}
	if w.metrics == nil {
		w.metrics = metrics.NewModMetrics()
	}
	return w
}

// Start запускает цикл обработки в отдельной горутине.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.logger.Info("Воркер изменений запущен")
		for {
			req := w.queue.Pop()
			if req == nil {
				w.logger.Info("Воркер изменений остановлен")
				return
			}
			w.metrics.SetQueueDepth(w.queue.Len())
			w.Process(req)
		}
	}()
}

// Stop помещает в очередь сигнал остановки и дожидается завершения цикла.
// Срочные запросы, отправленные до Stop, будут обработаны.
func (w *Worker) Stop() {
	w.queue.Shutdown()
	w.wg.Wait()
}

// Process выполняет полный жизненный цикл одного запроса и возвращает итог.
// Вынесен отдельно от цикла, чтобы обрабатывать запросы детерминированно в тестах.
func (w *Worker) Process(req *domain.ModRequest) Result {
	start := time.Now()

	outcome, reason := w.process(req)
	result := Result{Outcome: outcome, Reason: reason, Latency: time.Since(start)}

	w.finalize(req, result)
	return result
}

func (w *Worker) process(req *domain.ModRequest) (domain.Outcome, string) {
	changes := req.Changes.Normalize()

	// Локальная валидация до обращения к хранилищу.
	if err := changes.Validate(); err != nil {
		return domain.OutcomeModFail, validationReason(err)
	}

	// Условное обновление с ограниченным числом повторов.
	if outcome, reason, ok := w.applyWithRetry(req.OrderID, changes); !ok {
		return outcome, reason
	}

	// Запись уже зафиксирована; сбой любого канала понижает итог
	// до SYNC_FAIL, но не откатывает изменение. Кухня уведомляется первой.
	if err := w.notify(req.OrderID, changes); err != nil {
		return domain.OutcomeSyncFail, domain.ReasonSinkFailed
	}

	return domain.OutcomeModOK, ""
}

// applyWithRetry выполняет ApplyModification с повторами только на
// конкурентных ошибках. Пауза выдерживается после каждой неудачной попытки,
// включая последнюю. Возвращает ok=false с терминальным итогом, если
// изменение не было применено.
func (w *Worker) applyWithRetry(orderID int64, changes domain.ChangeSet) (domain.Outcome, string, bool) {
	backoff := w.retry.InitialBackoff

	for attempt := 1; ; attempt++ {
		err := w.repo.ApplyModification(orderID, changes)
		if err == nil {
			return "", "", true
		}

		if !domain.IsRetryable(err) {
			return definitiveOutcome(err)
		}

		w.sleep(backoff)
		backoff = time.Duration(float64(backoff) * w.retry.BackoffFactor)

		if attempt >= w.retry.MaxRetries {
			w.logger.WithFields(log.Fields{
				"order_id": orderID,
				"attempts": attempt,
			}).Warn("Конкуренция за запись не разрешилась за отведённые попытки")
			return domain.OutcomeModFail, domain.ReasonContentionExhausted, false
		}
	}
}

// notify рассылает уведомления обоим каналам. Каналы независимы: отказ
// кухни не отменяет уведомление клиента. Возвращается первая ошибка.
func (w *Worker) notify(orderID int64, changes domain.ChangeSet) error {
	var firstErr error
	if w.kitchen != nil {
		if err := w.kitchen.NotifyUpdate(orderID, changes); err != nil {
			firstErr = err
		}
	}
	if w.client != nil {
		if err := w.client.NotifyUpdate(orderID, changes); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// finalize записывает метрики и одну структурированную строку журнала на запрос.
func (w *Worker) finalize(req *domain.ModRequest, result Result) {
	w.metrics.Record(result.Outcome, result.Latency)

	fields := log.Fields{
		"request_id":   req.ID,
		"order_id":     req.OrderID,
		"urgent":       req.Urgent,
		"requested_at": req.RequestedAt.Format(time.RFC3339),
		"finished_at":  time.Now().UTC().Format(time.RFC3339),
		"code":         string(result.Outcome),
		"latency_ms":   float64(result.Latency.Microseconds()) / 1000.0,
	}
	if result.Reason != "" {
		fields["reason"] = result.Reason
	}

	entry := w.logger.WithFields(fields)
	switch result.Outcome {
	case domain.OutcomeModOK:
		entry.Info("Запрос на изменение обработан")
	default:
		entry.Warn("Запрос на изменение завершился отказом")
	}
}

// validationReason сопоставляет ошибку локальной валидации с причиной отказа.
func validationReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidProduct):
		return domain.ReasonInvalidProduct
	case errors.Is(err, domain.ErrInvalidSize):
		return domain.ReasonInvalidSize
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		return domain.ReasonInvalidPayment
	case errors.Is(err, domain.ErrEmptyChangeSet):
		return domain.ReasonEmptyChanges
	default:
		return domain.ReasonEmptyChanges
	}
}

// definitiveOutcome классифицирует не подлежащую повтору ошибку хранилища.
func definitiveOutcome(err error) (domain.Outcome, string, bool) {
	switch {
	case errors.Is(err, domain.ErrEditWindowExpired):
		return domain.OutcomeTimeExpired, domain.ReasonEditWindowPassed, false
	case errors.Is(err, domain.ErrOrderLocked):
		return domain.OutcomeModFail, domain.ReasonStateLocked, false
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrOrderNotConfirmed):
		return domain.OutcomeModFail, domain.ReasonNotFoundOrUnconfirmed, false
	case errors.Is(err, domain.ErrEmptyChangeSet):
		return domain.OutcomeModFail, domain.ReasonEmptyChanges, false
	default:
		return domain.OutcomeModFail, domain.ReasonNotFoundOrUnconfirmed, false
	}
}
