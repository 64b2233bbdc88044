// Нагрузочный прогон конвейера изменений: создаёт и подтверждает заказы,
// затем конкурентно отправляет запросы на изменение и сводит латентности.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type config struct {
	addr        string
	total       int
	concurrency int
	urgentRate  int
	timeout     time.Duration
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64          `json:"calls"`
	Success   int64          `json:"success"`
	Failed    int64          `json:"failed"`
	ErrorRate float64        `json:"error_rate"`
	LatencyMs latencySummary `json:"latency_ms"`
}

type report struct {
	StartedAt       time.Time               `json:"started_at"`
	DurationSeconds float64                 `json:"duration_seconds"`
	Total           int64                   `json:"total"`
	Success         int64                   `json:"success"`
	Failed          int64                   `json:"failed"`
	ErrorRate       float64                 `json:"error_rate"`
	RPS             float64                 `json:"rps"`
	Methods         map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	latencies []float64
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

func newCollector() *collector {
	return &collector{methods: make(map[string]*methodStats)}
}

func (c *collector) record(method string, latency time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, found := c.methods[method]
	if !found {
		stats = &methodStats{}
		c.methods[method] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}

	for name, stats := range c.methods {
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	if scenario, ok := result.Methods["scenario"]; ok {
		result.Total = scenario.Calls
		result.Success = scenario.Success
		result.Failed = scenario.Failed
		result.ErrorRate = scenario.ErrorRate
	}
	if duration > 0 {
		result.RPS = float64(result.Total) / duration.Seconds()
	}

	return result
}

func parseConfig() (config, error) {
	var cfg config
	var timeoutValue string

	flag.StringVar(&cfg.addr, "addr", "http://localhost:8080", "service base URL")
	flag.IntVar(&cfg.total, "total", 100, "total modification scenarios to execute")
	flag.IntVar(&cfg.concurrency, "concurrency", 5, "number of concurrent workers")
	flag.IntVar(&cfg.urgentRate, "urgent-rate", 20, "urgent request probability in percent (0..100)")
	flag.StringVar(&timeoutValue, "timeout", "5s", "per-request timeout")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	if cfg.total <= 0 {
		return cfg, errors.New("total must be > 0")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}
	if cfg.urgentRate < 0 || cfg.urgentRate > 100 {
		return cfg, errors.New("urgent-rate must be between 0 and 100")
	}

	return cfg, nil
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: cfg.timeout}
	col := newCollector()
	startedAt := time.Now()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(client, cfg, id, col); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	for i := 0; i < cfg.total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)

	printReport(result)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.Failed > 0 {
		os.Exit(1)
	}
}

var (
	products = []string{"pepperoni", "hawaiana"}
	sizes    = []string{"personal", "mediana", "grande"}
	payments = []string{"efectivo", "tarjeta", "transferencia"}
)

// runScenario создаёт заказ, подтверждает его и отправляет запрос на изменение.
func runScenario(client *http.Client, cfg config, index int, col *collector) error {
	scenarioStart := time.Now()
	scenarioOK := false
	defer func() {
		col.record("scenario", time.Since(scenarioStart), scenarioOK)
	}()

	orderID, err := createOrder(client, cfg, index, col)
	if err != nil {
		return err
	}

	if err := confirmOrder(client, cfg, orderID, col); err != nil {
		return err
	}

	if err := enqueueModification(client, cfg, orderID, index, col); err != nil {
		return err
	}

	scenarioOK = true
	return nil
}

func createOrder(client *http.Client, cfg config, index int, col *collector) (int64, error) {
	body := map[string]any{
		"client_name":    fmt.Sprintf("load-%d", index),
		"product":        products[index%len(products)],
		"size":           sizes[index%len(sizes)],
		"qty":            1 + index%3,
		"payment_method": payments[index%len(payments)],
	}

	var resp struct {
		ID int64 `json:"id"`
	}
	err := postJSON(client, cfg.addr+"/v1/orders", body, http.StatusCreated, &resp, "CreateOrder", col)
	if err != nil {
		return 0, err
	}
	if resp.ID == 0 {
		return 0, errors.New("create response returned empty order id")
	}
	return resp.ID, nil
}

func confirmOrder(client *http.Client, cfg config, orderID int64, col *collector) error {
	url := fmt.Sprintf("%s/v1/orders/%d/confirm", cfg.addr, orderID)
	return postJSON(client, url, nil, http.StatusOK, nil, "ConfirmOrder", col)
}

func enqueueModification(client *http.Client, cfg config, orderID int64, index int, col *collector) error {
	body := map[string]any{
		"order_id": orderID,
		"urgent":   index%100 < cfg.urgentRate,
		"changes": map[string]any{
			"qty": 1 + (index+1)%5,
		},
	}
	return postJSON(client, cfg.addr+"/v1/modifications", body, http.StatusAccepted, nil, "EnqueueModification", col)
}

func postJSON(client *http.Client, url string, body any, wantStatus int, out any, method string, col *collector) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		col.record(method, time.Since(start), false)
		return err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode == wantStatus
	col.record(method, time.Since(start), ok)
	if !ok {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func writeJSONReport(path string, result report) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report) {
	fmt.Println("Load test summary")
	fmt.Printf("total=%d success=%d failed=%d error_rate=%.4f\n",
		result.Total, result.Success, result.Failed, result.ErrorRate)
	fmt.Printf("duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)

	methodNames := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name == "scenario" {
			continue
		}
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
	for _, name := range methodNames {
		stats := result.Methods[name]
		fmt.Printf("%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name, stats.Calls, stats.Success, stats.Failed, stats.ErrorRate, stats.LatencyMs.P95)
	}
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
