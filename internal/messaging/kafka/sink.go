package kafka

import (
	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
)

// eventPublisher абстрагирует Producer для тестов.
type eventPublisher interface {
	Publish(topic string, event *ModificationEvent) error
}

// Sink публикует уведомление об изменении заказа в Kafka-топик.
// Каждой аудитории (кухня, клиент) соответствует свой экземпляр со своим топиком.
type Sink struct {
	publisher eventPublisher
	topic     string
}

// NewSink создаёт Kafka-получателя уведомлений для указанного топика.
func NewSink(publisher eventPublisher, topic string) *Sink {
	return &Sink{publisher: publisher, topic: topic}
}

func (s *Sink) NotifyUpdate(orderID int64, changes domain.ChangeSet) error {
	return s.publisher.Publish(s.topic, NewModificationEvent(orderID, changes.FieldNames()))
}

var _ domain.NotificationSink = (*Sink)(nil)
