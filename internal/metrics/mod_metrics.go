package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
)

// ModMetrics агрегирует результаты конвейера изменений: счётчики по кодам
// результата, инкрементальную среднюю латентность и Prometheus-коллекторы.
// Record вызывается только из потока воркера; Snapshot можно читать откуда угодно.
type ModMetrics struct {
	mu sync.RWMutex

	processed int64
	byOutcome map[domain.Outcome]int64
	avgMs     float64

	observers []domain.SnapshotObserver

	// Prometheus-коллекторы
	outcomes   *prometheus.CounterVec
	latency    prometheus.Histogram
	queueDepth prometheus.Gauge
}

// NewModMetrics создаёт метрики конвейера изменений.
func NewModMetrics() *ModMetrics {
	return newModMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewModMetricsWithRegisterer создаёт метрики с отдельным registerer (для тестов).
func NewModMetricsWithRegisterer(registerer prometheus.Registerer) *ModMetrics {
	return newModMetricsWithRegisterer(registerer)
}

func newModMetricsWithRegisterer(registerer prometheus.Registerer) *ModMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ModMetrics{
		byOutcome: make(map[domain.Outcome]int64, len(domain.Outcomes)),
		outcomes: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "kops_mod_requests_total",
			Help: "Total number of processed modification requests grouped by outcome code",
		}, []string{"outcome"}),
		latency: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "kops_mod_latency_seconds",
			Help:    "Latency of modification request processing in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		queueDepth: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "kops_mod_queue_depth",
			Help: "Current number of pending modification requests in the priority queue",
		}),
	}
}

// RegisterObserver добавляет получателя срезов метрик. Наблюдатели вызываются
// синхронно после каждого Record в порядке регистрации.
func (m *ModMetrics) RegisterObserver(observer domain.SnapshotObserver) {
	if observer == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, observer)
}

// Record фиксирует результат обработанного запроса и рассылает свежий срез
// зарегистрированным наблюдателям.
func (m *ModMetrics) Record(outcome domain.Outcome, latency time.Duration) {
	m.outcomes.WithLabelValues(string(outcome)).Inc()
	m.latency.Observe(latency.Seconds())

	m.mu.Lock()
	ms := float64(latency.Microseconds()) / 1000.0
	// avg' = (avg*n + latency) / (n+1)
	m.avgMs = (m.avgMs*float64(m.processed) + ms) / float64(m.processed+1)
	m.processed++
	m.byOutcome[outcome]++
	snapshot := m.snapshotLocked()
	observers := make([]domain.SnapshotObserver, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, observer := range observers {
		observer(snapshot)
	}
}

// SetQueueDepth публикует текущую глубину очереди.
func (m *ModMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// Snapshot возвращает неизменяемый срез накопленных значений.
func (m *ModMetrics) Snapshot() domain.MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *ModMetrics) snapshotLocked() domain.MetricsSnapshot {
	byOutcome := make(map[domain.Outcome]int64, len(domain.Outcomes))
	for _, outcome := range domain.Outcomes {
		byOutcome[outcome] = m.byOutcome[outcome]
	}
	return domain.MetricsSnapshot{
		Processed:    m.processed,
		ByOutcome:    byOutcome,
		AvgLatencyMs: m.avgMs,
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
