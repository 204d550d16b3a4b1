package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/airrecover/storefront/internal/version"
)

type loadMode string

const (
	modeCheckout        loadMode = "checkout"
	modeCheckoutContact loadMode = "checkout-contact"
)

// codeTransport: запрос не дошёл до сервера или ответ не прочитан.
const codeTransport = "transport_error"

type loadConfig struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	qty         int
	method      string
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

type endpointReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time                 `json:"started_at"`
	DurationSeconds   float64                   `json:"duration_seconds"`
	TotalScenarios    int64                     `json:"total_scenarios"`
	SuccessScenarios  int64                     `json:"success_scenarios"`
	FailedScenarios   int64                     `json:"failed_scenarios"`
	ErrorRate         float64                   `json:"error_rate"`
	RPS               float64                   `json:"rps"`
	ScenarioLatencyMs latencySummary            `json:"scenario_latency_ms"`
	Endpoints         map[string]endpointReport `json:"endpoints"`
}

type endpointStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

func newCollector() *collector {
	return &collector{
		endpoints: make(map[string]*endpointStats),
	}
}

func (c *collector) record(name string, latency time.Duration, code string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, exists := c.endpoints[name]
	if !exists {
		stats = &endpointStats{
			codes: make(map[string]int64),
		}
		c.endpoints[name] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Endpoints:       make(map[string]endpointReport, len(c.endpoints)),
	}

	if scenario := c.endpoints["scenario"]; scenario != nil {
		result.TotalScenarios = scenario.calls
		result.SuccessScenarios = scenario.success
		result.FailedScenarios = scenario.failed
		result.ErrorRate = ratio(scenario.failed, scenario.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenario.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.endpoints {
		codesCopy := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codesCopy[code] = count
		}
		result.Endpoints[name] = endpointReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codesCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Load the storefront API (use a mock payment provider)",
	Long: `Runs concurrent checkout scenarios against POST /create-payment and,
in checkout-contact mode, POST /contact. Every scenario creates a new payment
session, so point it at a storefront started with PAYMENT_PROVIDER=mock.`,
	RunE: runLoadtest,
}

func init() {
	flags := loadtestCmd.Flags()
	flags.Int("total", 400, "Total scenarios in count mode; with --duration only used when explicitly set")
	flags.Duration("duration", 0, "Optional time-based run duration (e.g. 1m)")
	flags.Int("concurrency", 20, "Number of concurrent workers")
	flags.Duration("timeout", 5*time.Second, "Per-request timeout")
	flags.String("mode", string(modeCheckout), "Load mode: checkout | checkout-contact")
	flags.Int("qty", 1, "Quantity sent with every checkout")
	flags.String("method", "card", "Payment method sent with every checkout")
	flags.String("output", "", "Optional JSON report output file path")
}

func parseLoadConfig(cmd *cobra.Command) (loadConfig, error) {
	flags := cmd.Flags()
	cfg := loadConfig{baseURL: strings.TrimRight(settings.GetString("url"), "/")}
	cfg.total, _ = flags.GetInt("total")
	cfg.totalSet = flags.Changed("total")
	cfg.duration, _ = flags.GetDuration("duration")
	cfg.concurrency, _ = flags.GetInt("concurrency")
	cfg.timeout, _ = flags.GetDuration("timeout")
	cfg.qty, _ = flags.GetInt("qty")
	cfg.method, _ = flags.GetString("method")
	cfg.outputPath, _ = flags.GetString("output")
	modeValue, _ := flags.GetString("mode")

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	return cfg, cfg.validate()
}

func (cfg loadConfig) validate() error {
	if cfg.baseURL == "" {
		return errors.New("url is required")
	}
	if cfg.duration < 0 {
		return errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return errors.New("concurrency must be > 0")
	}
	if cfg.timeout <= 0 {
		return errors.New("timeout must be > 0")
	}
	if cfg.qty <= 0 {
		return errors.New("qty must be > 0")
	}
	return nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeCheckout:
		return modeCheckout, nil
	case modeCheckoutContact:
		return modeCheckoutContact, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func runLoadtest(cmd *cobra.Command, _ []string) error {
	cfg, err := parseLoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	result := executeLoad(cmd.Context(), cfg, &http.Client{Timeout: cfg.timeout})

	printReport(cmd.OutOrStdout(), result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if result.FailedScenarios > 0 {
		return fmt.Errorf("%d of %d scenarios failed", result.FailedScenarios, result.TotalScenarios)
	}
	return nil
}

func executeLoad(ctx context.Context, cfg loadConfig, client *http.Client) report {
	startedAt := time.Now()
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for worker := 0; worker < cfg.concurrency; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := runScenario(ctx, client, cfg, id, col); err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	dispatchJobs(ctx, jobs, cfg)
	wg.Wait()

	result := col.buildReport(startedAt, time.Since(startedAt))
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}
	return result
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg loadConfig) {
	defer close(jobs)

	var deadline <-chan time.Time
	if cfg.duration > 0 {
		timer := time.NewTimer(cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; ; i++ {
		if (cfg.duration <= 0 || cfg.totalSet) && i >= cfg.total {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}

func runScenario(ctx context.Context, client *http.Client, cfg loadConfig, index int, col *collector) (err error) {
	start := time.Now()
	defer func() {
		code := "ok"
		if err != nil {
			code = "failed"
		}
		col.record("scenario", time.Since(start), code, err == nil)
	}()

	body, _ := json.Marshal(map[string]any{"qty": cfg.qty, "method": cfg.method})
	var payment struct {
		CheckoutURL string `json:"checkoutUrl"`
	}
	if err := callEndpoint(ctx, client, col, "create-payment", cfg.baseURL+"/create-payment", "application/json", body, &payment); err != nil {
		return err
	}
	if payment.CheckoutURL == "" {
		return errors.New("create-payment returned empty checkoutUrl")
	}

	if cfg.mode == modeCheckoutContact {
		form := url.Values{
			"name":    {"Load " + strconv.Itoa(index)},
			"email":   {fmt.Sprintf("load-%d@example.ch", index)},
			"message": {"Lasttest"},
		}
		return callEndpoint(ctx, client, col, "contact", cfg.baseURL+"/contact",
			"application/x-www-form-urlencoded", []byte(form.Encode()), nil)
	}
	return nil
}

func callEndpoint(ctx context.Context, client *http.Client, col *collector, name, target, contentType string, body []byte, out any) error {
	start := time.Now()
	code, err := post(ctx, client, target, contentType, body, out)
	col.record(name, time.Since(start), code, err == nil)
	return err
}

func post(ctx context.Context, client *http.Client, target, contentType string, body []byte, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return codeTransport, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", version.UserAgent("loadtest"))

	resp, err := client.Do(req)
	if err != nil {
		return codeTransport, err
	}
	defer resp.Body.Close()

	code := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return code, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return code, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return codeTransport, fmt.Errorf("decode response: %w", err)
	}
	return code, nil
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report, cfg loadConfig) {
	fmt.Fprintln(w, "Load test summary")
	fmt.Fprintf(w, "mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	fmt.Fprintf(w, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Fprintf(w, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	names := make([]string, 0, len(result.Endpoints))
	for name := range result.Endpoints {
		if name == "scenario" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Endpoints[name]
		fmt.Fprintf(w, "%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}
}

func runTarget(cfg loadConfig) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
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
