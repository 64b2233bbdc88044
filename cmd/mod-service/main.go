package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kitchenops/internal/app"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

const (
	envAPIAddr        = "KOPS_API_ADDR"
	envMetricsAddr    = "KOPS_METRICS_ADDR"
	envPostgresDSN    = "KOPS_POSTGRES_DSN"
	envKafkaBrokers   = "KOPS_KAFKA_BROKERS"
	envQueueWarnDepth = "KOPS_QUEUE_WARN_DEPTH"
)

// readConfig формирует конфигурацию приложения, позволяя переопределить настройки через переменные окружения.
func readConfig() app.Config {
	return readConfigFromEnv(os.Getenv)
}

func readConfigFromEnv(getenv func(string) string) app.Config {
	cfg := app.DefaultConfig()
	if v := getenv(envAPIAddr); v != "" {
		cfg.APIAddr = v
	}
	if v := getenv(envMetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	if v := getenv(envPostgresDSN); v != "" {
		cfg.PostgresDSN = v
	}
	if v := getenv(envKafkaBrokers); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := getenv(envQueueWarnDepth); v != "" {
		if depth, err := strconv.Atoi(v); err == nil && depth > 0 {
			cfg.QueueWarnDepth = depth
		}
	}
	return cfg
}

func main() {
	setupLogger()
	cfg := readConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"api_addr":     cfg.APIAddr,
		"metrics_addr": cfg.MetricsAddr,
	}).Info("запускаем сервис изменений заказов")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("сервис изменений заказов остановлен")
}
