package storefront

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
	"github.com/airrecover/storefront/internal/metrics"
)

// Исходы обработки вебхука для метрик.
const (
	WebhookOutcomeCompleted     = "completed"
	WebhookOutcomeIgnored       = "ignored"
	WebhookOutcomeNotConfigured = "not_configured"
	WebhookOutcomeInvalid       = "invalid_signature"
	WebhookOutcomeDuplicate     = "duplicate"
)

// defaultDedupTTL задаёт, сколько помнить обработанное событие.
const defaultDedupTTL = 72 * time.Hour

// WebhookDispatcher проверяет вебхук провайдера и запускает исполнение оплаченного заказа.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, req domain.WebhookRequest) (domain.WebhookEvent, error)
}

type webhookDispatcher struct {
	provider  string
	verifier  domain.WebhookVerifier
	publisher domain.EventPublisher
	metrics   *metrics.StorefrontMetrics
	logger    *log.Entry
	events    domain.WebhookEventRepository
	dedupTTL  time.Duration
}

// WebhookOption настраивает диспетчер.
type WebhookOption func(*webhookDispatcher)

// WithDeduplication включает пропуск повторных доставок оплаченного заказа.
func WithDeduplication(events domain.WebhookEventRepository, ttl time.Duration) WebhookOption {
	return func(d *webhookDispatcher) {
		d.events = events
		if ttl > 0 {
			d.dedupTTL = ttl
		}
	}
}

// NewWebhookDispatcher создаёт диспетчер. publisher может быть nil:
// тогда оплаченный заказ только логируется.
func NewWebhookDispatcher(
	provider string,
	verifier domain.WebhookVerifier,
	publisher domain.EventPublisher,
	m *metrics.StorefrontMetrics,
	logger *log.Entry,
	options ...WebhookOption,
) WebhookDispatcher {
	if logger == nil {
		logger = log.New().WithField("component", "webhook")
	}
	d := &webhookDispatcher{
		provider:  provider,
		verifier:  verifier,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		dedupTTL:  defaultDedupTTL,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// Dispatch возвращает domain.ErrWebhookNotConfigured без верификатора и
// domain.ErrInvalidSignature для неподписанных событий. Ошибка публикации не
// отклоняет вебхук: провайдер не должен повторять уже проверенное событие.
func (d *webhookDispatcher) Dispatch(ctx context.Context, req domain.WebhookRequest) (domain.WebhookEvent, error) {
	if d.verifier == nil {
		d.metrics.RecordWebhook(d.provider, WebhookOutcomeNotConfigured)
		return domain.WebhookEvent{}, domain.ErrWebhookNotConfigured
	}

	event, err := d.verifier.VerifyWebhook(ctx, req)
	switch {
	case errors.Is(err, domain.ErrWebhookNotConfigured):
		d.metrics.RecordWebhook(d.provider, WebhookOutcomeNotConfigured)
		return domain.WebhookEvent{}, err
	case err != nil:
		d.metrics.RecordWebhook(d.provider, WebhookOutcomeInvalid)
		d.logger.WithError(err).Warn("webhook rejected")
		if !errors.Is(err, domain.ErrInvalidSignature) {
			err = errors.Join(domain.ErrInvalidSignature, err)
		}
		return domain.WebhookEvent{}, err
	}

	logger := d.logger.WithFields(log.Fields{
		"event_id":      event.ID,
		"provider_type": event.ProviderType,
		"session_id":    event.SessionID,
	})

	if !event.Completed() {
		d.metrics.RecordWebhook(d.provider, WebhookOutcomeIgnored)
		logger.Debug("webhook event ignored")
		return event, nil
	}

	key, duplicate := d.reserve(event, logger)
	if duplicate {
		d.metrics.RecordWebhook(d.provider, WebhookOutcomeDuplicate)
		logger.Info("duplicate webhook delivery skipped")
		return event, nil
	}

	d.metrics.RecordWebhook(d.provider, WebhookOutcomeCompleted)
	logger.WithFields(log.Fields{
		"qty":          event.Qty,
		"method":       event.Method,
		"amount_total": event.AmountTotalMinor,
	}).Info("checkout completed")

	var pubErr error
	if d.publisher != nil {
		pubErr = d.publisher.Publish(ctx, event)
		d.metrics.RecordEventPublished(pubErr)
		if pubErr != nil {
			logger.WithError(pubErr).Error("failed to publish checkout completed event")
		}
	}
	d.finish(key, pubErr, logger)
	return event, nil
}

// reserve отмечает событие как обрабатываемое. Ошибка хранилища не блокирует
// обработку: лучше дубль в Kafka, чем потерянный заказ.
func (d *webhookDispatcher) reserve(event domain.WebhookEvent, logger *log.Entry) (string, bool) {
	if d.events == nil || event.ID == "" {
		return "", false
	}

	key := domain.WebhookEventKey(d.provider, event.ID)
	_, err := d.events.CreateProcessing(key, time.Now().UTC().Add(d.dedupTTL))
	switch {
	case errors.Is(err, domain.ErrWebhookEventDuplicate):
		return "", true
	case err != nil:
		logger.WithError(err).Warn("failed to reserve webhook event, processing anyway")
		return "", false
	}
	return key, false
}

// finish фиксирует результат: failed-событие будет обработано при повторной доставке.
func (d *webhookDispatcher) finish(key string, pubErr error, logger *log.Entry) {
	if key == "" {
		return
	}

	mark := d.events.MarkDone
	if pubErr != nil {
		mark = d.events.MarkFailed
	}
	if err := mark(key); err != nil {
		logger.WithError(err).Warn("failed to record webhook event status")
	}
}
