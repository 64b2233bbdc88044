package domain

// NotificationSink описывает канал доставки уведомлений об изменении заказа.
// Доставка best-effort: ошибка наблюдаема, но не откатывает изменение.
type NotificationSink interface {
	// NotifyUpdate доставляет применённый набор изменений потребителю канала.
	NotifyUpdate(orderID int64, changes ChangeSet) error
}

// MetricsSnapshot — неизменяемый срез метрик конвейера изменений.
// Пересчитывается после каждого обработанного запроса.
type MetricsSnapshot struct {
	Processed    int64
	ByOutcome    map[Outcome]int64
	AvgLatencyMs float64
}

// SnapshotObserver получает срез метрик после каждого финализированного запроса.
// Вызывается синхронно из потока воркера; маршалинг в UI-поток —
// забота презентационного слоя.
type SnapshotObserver func(MetricsSnapshot)
