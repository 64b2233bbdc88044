package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События жизненного цикла заказа
	EventTypeOrderCreated   EventType = "order.created"
	EventTypeOrderConfirmed EventType = "order.confirmed"
	EventTypeOrderModified  EventType = "order.modified"
)

// Topics для Kafka
const (
	// TopicKitchenUpdates читает дисплей кухни: позиции изменённых заказов
	// нужно пересчитать до начала готовки.
	TopicKitchenUpdates = "kops.kitchen.updates"

	// TopicClientUpdates читают клиентские каналы (push, email).
	TopicClientUpdates = "kops.client.updates"
)

// ModificationEvent представляет событие изменения заказа
type ModificationEvent struct {
	EventType EventType         `json:"event_type"`
	OrderID   int64             `json:"order_id"`
	Fields    []string          `json:"fields"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewModificationEvent создает событие изменения заказа
func NewModificationEvent(orderID int64, fields []string) *ModificationEvent {
	return &ModificationEvent{
		EventType: EventTypeOrderModified,
		OrderID:   orderID,
		Fields:    fields,
		Timestamp: time.Now(),
	}
}
