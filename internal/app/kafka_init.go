package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kitchenops/internal/messaging/kafka"
)

// initKafka подключает producer уведомлений, если заданы брокеры.
// Пустой список брокеров — штатный режим без Kafka, а не ошибка:
// уведомления тогда ограничиваются записью в журнал.
func initKafka(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList, logger.WithField("component", "kafka_producer"))
	if err != nil {
		logger.WithError(err).Warn("Kafka недоступна, уведомления пойдут только в журнал")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("Kafka-producer уведомлений подключён")
	return producer, nil
}

// splitBrokers разбирает список брокеров через запятую, отбрасывая пустые элементы.
func splitBrokers(brokers string) []string {
	var out []string
	for _, broker := range strings.Split(brokers, ",") {
		if b := strings.TrimSpace(broker); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// closeKafka закрывает producer уведомлений, если он был создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("Не удалось закрыть Kafka-producer")
		return
	}
	logger.Info("Kafka-producer остановлен")
}
