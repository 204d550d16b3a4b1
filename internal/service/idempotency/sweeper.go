package idempotency

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
)

const (
	defaultSweepInterval  = 15 * time.Minute
	defaultSweepBatchSize = 500
)

var (
	sweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_webhook_dedup_sweep_runs_total",
		Help: "Webhook dedup sweep runs grouped by result.",
	}, []string{"result"})
	sweptEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_webhook_dedup_expired_total",
		Help: "Expired webhook event keys removed, by provider and final status.",
	}, []string{"provider", "status"})
)

// SweepOptions задает параметры очистки ключей обработанных вебхуков.
type SweepOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
}

// SweepOption настраивает Sweeper.
type SweepOption func(*SweepOptions)

// WithLogger задает logger.
func WithLogger(logger *log.Entry) SweepOption {
	return func(opts *SweepOptions) {
		opts.Logger = logger
	}
}

// WithInterval задает интервал между проходами.
func WithInterval(interval time.Duration) SweepOption {
	return func(opts *SweepOptions) {
		opts.Interval = interval
	}
}

// WithBatchSize задает размер порции одного удаления.
func WithBatchSize(batchSize int) SweepOption {
	return func(opts *SweepOptions) {
		opts.BatchSize = batchSize
	}
}

// SweepReport итог одного прохода.
type SweepReport struct {
	Deleted    int
	ByProvider map[string]int
	// Unfulfilled содержит ключи событий об оплате, которые истекли, так и не
	// дойдя до публикации: провайдер перестал их присылать, заказ не исполнен.
	Unfulfilled []string
}

func (r *SweepReport) add(event domain.ProcessedEvent) {
	if r.ByProvider == nil {
		r.ByProvider = make(map[string]int)
	}
	r.Deleted++
	r.ByProvider[event.Provider()]++
	if !event.Fulfilled() {
		r.Unfulfilled = append(r.Unfulfilled, event.Key)
	}
}

// Sweeper периодически забывает события вебхуков с истекшим TTL. После этого
// повторная доставка того же события снова будет опубликована.
type Sweeper struct {
	repo      domain.WebhookEventRepository
	logger    *log.Entry
	interval  time.Duration
	batchSize int
}

// NewSweeper создает Sweeper поверх хранилища ключей.
func NewSweeper(repo domain.WebhookEventRepository, options ...SweepOption) *Sweeper {
	opts := SweepOptions{
		Interval:  defaultSweepInterval,
		BatchSize: defaultSweepBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "webhook-dedup-sweeper")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultSweepInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultSweepBatchSize
	}

	return &Sweeper{
		repo:      repo,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
	}
}

// Run выполняет проходы до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) {
	if s.repo == nil {
		s.logger.Warn("webhook dedup sweeper is disabled: repo is nil")
		return
	}

	s.runOnce(ctx, time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, time.Now().UTC())
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context, before time.Time) {
	report, err := s.Sweep(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		sweepRunsTotal.WithLabelValues("error").Inc()
		s.logger.WithError(err).WithField("deleted", report.Deleted).Warn("webhook dedup sweep failed")
		return
	}
	sweepRunsTotal.WithLabelValues("ok").Inc()

	if len(report.Unfulfilled) > 0 {
		s.logger.WithFields(log.Fields{
			"count": len(report.Unfulfilled),
			"keys":  report.Unfulfilled,
		}).Error("paid checkouts expired without a published order event")
	}
	if report.Deleted > 0 {
		fields := log.Fields{"deleted": report.Deleted}
		for _, provider := range sortedProviders(report.ByProvider) {
			fields["provider_"+provider] = report.ByProvider[provider]
		}
		s.logger.WithFields(fields).Info("expired webhook events forgotten")
	}
}

// Sweep удаляет все ключи с TTL <= before порциями batchSize. При ошибке
// отчет содержит то, что успели удалить.
func (s *Sweeper) Sweep(ctx context.Context, before time.Time) (SweepReport, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	var report SweepReport
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		batch, err := s.repo.DeleteExpired(before, s.batchSize)
		if err != nil {
			return report, err
		}
		for _, event := range batch {
			report.add(event)
			sweptEventsTotal.WithLabelValues(event.Provider(), string(event.Status)).Inc()
		}

		if len(batch) < s.batchSize {
			break
		}
	}

	sort.Strings(report.Unfulfilled)
	return report, nil
}

func sortedProviders(counts map[string]int) []string {
	providers := make([]string, 0, len(counts))
	for provider := range counts {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}
