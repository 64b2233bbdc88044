package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/kitchenops/internal/health"
	"github.com/vladislavdragonenkov/kitchenops/internal/service/api"
	"github.com/vladislavdragonenkov/kitchenops/internal/service/mods"
	"github.com/vladislavdragonenkov/kitchenops/internal/version"
)

// Config описывает минимальные настройки запуска приложения.
type Config struct {
	APIAddr     string
	MetricsAddr string

	// PostgresDSN включает PostgreSQL-хранилище; пустое значение — in-memory.
	PostgresDSN string

	// KafkaBrokers включает публикацию уведомлений в Kafka (список через запятую).
	KafkaBrokers string

	// QueueWarnDepth — глубина очереди, после которой health переходит в degraded.
	QueueWarnDepth int
}

// DefaultConfig возвращает базовые адреса API и HTTP-метрик.
func DefaultConfig() Config {
	return Config{
		APIAddr:        ":8080",
		MetricsAddr:    ":9090",
		QueueWarnDepth: 100,
	}
}

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close(logger)

	worker := mods.NewWorker(deps.Repo, deps.Queue,
		mods.WithKitchenSink(deps.Kitchen),
		mods.WithClientSink(deps.Client),
		mods.WithMetrics(deps.Metrics),
		mods.WithLogger(logger.WithField("component", "mod_worker")),
	)
	worker.Start()

	// HTTP Health checks
	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("mod_queue",
		healthcheck.NewQueueChecker("mod_queue", deps.Queue.Len, cfg.QueueWarnDepth))
	if deps.Store != nil {
		healthHandler.RegisterChecker("storage",
			healthcheck.NewSimpleChecker("storage", func() error {
				return deps.Store.Ping(context.Background())
			}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiHandler := api.NewHandler(deps.Repo, deps.Queue, deps.Metrics, logger.WithField("component", "api"))
	apiSrv := &http.Server{Addr: cfg.APIAddr, Handler: apiHandler.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("API сервер слушает %s", cfg.APIAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		shutdownHTTP(apiSrv, logger)

		// Очередь добивается до сигнального элемента: срочные запросы,
		// принятые до остановки, будут обработаны.
		worker.Stop()
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		worker.Stop()
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http server shutdown failed")
	}
}
