// Package notify содержит получателей уведомлений об изменённых заказах.
// После успешной записи воркер оповещает кухню, затем клиента; порядок
// фиксирован, отката записи при сбое доставки не происходит.
package notify

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
)

// DeliverFunc доставляет уведомление во внешний канал (дисплей кухни,
// push клиенту, брокер сообщений).
type DeliverFunc func(orderID int64, changes domain.ChangeSet) error

// KitchenSink уведомляет кухню о том, что состав заказа изменился
// и позиции нужно пересчитать до начала готовки.
type KitchenSink struct {
	logger  *log.Entry
	deliver DeliverFunc
}

// NewKitchenSink создаёт получателя уведомлений кухни. Если deliver равен nil,
// уведомление ограничивается записью в журнал.
func NewKitchenSink(logger *log.Entry, deliver DeliverFunc) *KitchenSink {
	if logger == nil {
		logger = log.New().WithField("component", "kitchen_sink")
	}
	return &KitchenSink{logger: logger, deliver: deliver}
}

func (s *KitchenSink) NotifyUpdate(orderID int64, changes domain.ChangeSet) error {
	if s.deliver != nil {
		if err := s.deliver(orderID, changes); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).
				Error("Не удалось уведомить кухню об изменении заказа")
			return err
		}
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"fields":   changes.Fields(),
	}).Info("Кухня уведомлена об изменении заказа")
	return nil
}

// ClientSink подтверждает клиенту, что его заказ обновлён.
type ClientSink struct {
	logger  *log.Entry
	deliver DeliverFunc
}

// NewClientSink создаёт получателя клиентских уведомлений.
func NewClientSink(logger *log.Entry, deliver DeliverFunc) *ClientSink {
	if logger == nil {
		logger = log.New().WithField("component", "client_sink")
	}
	return &ClientSink{logger: logger, deliver: deliver}
}

func (s *ClientSink) NotifyUpdate(orderID int64, changes domain.ChangeSet) error {
	if s.deliver != nil {
		if err := s.deliver(orderID, changes); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).
				Error("Не удалось уведомить клиента об изменении заказа")
			return err
		}
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"fields":   changes.Fields(),
	}).Info("Клиент уведомлён об изменении заказа")
	return nil
}

var (
	_ domain.NotificationSink = (*KitchenSink)(nil)
	_ domain.NotificationSink = (*ClientSink)(nil)
)
