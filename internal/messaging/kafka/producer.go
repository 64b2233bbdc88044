package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// Producer публикует события изменений заказов в Kafka.
// Producer синхронный и идемпотентный: событие считается отправленным
// только после подтверждения всеми in-sync репликами.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewProducer подключает синхронный producer к брокерам.
func NewProducer(brokers []string, logger *log.Entry) (*Producer, error) {
	if logger == nil {
		logger = log.New().WithField("component", "kafka_producer")
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // требование идемпотентного продюсера

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafka: create producer: %w", err)
	}

	return &Producer{producer: producer, logger: logger}, nil
}

// Publish отправляет событие изменения в топик. Ключом служит номер заказа,
// поэтому события одного заказа попадают в одну партицию и сохраняют порядок.
func (p *Producer) Publish(topic string, event *ModificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	key := strconv.FormatInt(event.OrderID, 10)
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: event.Timestamp,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic":    topic,
			"order_id": event.OrderID,
		}).Error("Не удалось отправить событие в Kafka")
		return fmt.Errorf("kafka: send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"order_id":  event.OrderID,
		"partition": partition,
		"offset":    offset,
	}).Debug("Событие изменения отправлено")

	return nil
}

// Close закрывает соединение с брокерами.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("kafka: close producer: %w", err)
	}
	return nil
}
