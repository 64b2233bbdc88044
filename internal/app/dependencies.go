package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
	"github.com/vladislavdragonenkov/kitchenops/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/kitchenops/internal/metrics"
	"github.com/vladislavdragonenkov/kitchenops/internal/notify"
	"github.com/vladislavdragonenkov/kitchenops/internal/queue"
	"github.com/vladislavdragonenkov/kitchenops/internal/storage/memory"
	"github.com/vladislavdragonenkov/kitchenops/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Repo    domain.OrderRepository
	Store   *postgres.Store
	Queue   *queue.Queue
	Metrics *metrics.ModMetrics
	Kitchen domain.NotificationSink
	Client  domain.NotificationSink

	kafkaProducer *kafka.Producer
}

// NewDependencies создаёт и инициализирует все зависимости приложения.
// Без PostgresDSN используется in-memory хранилище, без KafkaBrokers —
// уведомления ограничиваются записью в журнал.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Queue:   queue.New(nil),
		Metrics: metrics.NewModMetrics(),
	}

	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		deps.Store = store
		deps.Repo = postgres.NewOrderRepository(store)
		logger.Info("используется PostgreSQL-хранилище заказов")
	} else {
		deps.Repo = memory.NewOrderRepository()
		logger.Info("используется in-memory хранилище заказов")
	}

	producer, err := initKafka(cfg.KafkaBrokers, logger)
	if err == nil && producer != nil {
		deps.kafkaProducer = producer
		deps.Kitchen = kafka.NewSink(producer, kafka.TopicKitchenUpdates)
		deps.Client = kafka.NewSink(producer, kafka.TopicClientUpdates)
	} else {
		deps.Kitchen = notify.NewKitchenSink(logger.WithField("component", "kitchen_sink"), nil)
		deps.Client = notify.NewClientSink(logger.WithField("component", "client_sink"), nil)
	}

	return deps, nil
}

// Close освобождает внешние ресурсы.
func (d *Dependencies) Close(logger *log.Entry) {
	closeKafka(d.kafkaProducer, logger)
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
