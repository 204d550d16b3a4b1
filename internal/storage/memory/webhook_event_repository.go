package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/airrecover/storefront/internal/domain"
)

// DefaultWebhookEventTTL покрывает окно повторных доставок Stripe (до трёх суток).
const DefaultWebhookEventTTL = 72 * time.Hour

type webhookEventRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.ProcessedEvent
}

// NewWebhookEventRepository создаёт in-memory реализацию WebhookEventRepository.
func NewWebhookEventRepository() domain.WebhookEventRepository {
	return &webhookEventRepositoryInMemory{
		items: make(map[string]domain.ProcessedEvent),
	}
}

func (r *webhookEventRepositoryInMemory) CreateProcessing(key string, ttlAt time.Time) (domain.ProcessedEvent, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ProcessedEvent{}, domain.ErrWebhookEventKeyRequired
	}

	now := time.Now().UTC()
	if ttlAt.IsZero() {
		ttlAt = now.Add(DefaultWebhookEventTTL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[key]
	if ok && existing.Status != domain.ProcessingStatusFailed && existing.TTLAt.After(now) {
		return existing, domain.ErrWebhookEventDuplicate
	}

	record := domain.ProcessedEvent{
		Key:       key,
		Status:    domain.ProcessingStatusProcessing,
		TTLAt:     ttlAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ok {
		record.CreatedAt = existing.CreatedAt
	}

	r.items[key] = record
	return record, nil
}

func (r *webhookEventRepositoryInMemory) Get(key string) (domain.ProcessedEvent, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ProcessedEvent{}, domain.ErrWebhookEventKeyRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.items[key]
	if !ok {
		return domain.ProcessedEvent{}, domain.ErrWebhookEventNotFound
	}
	return record, nil
}

func (r *webhookEventRepositoryInMemory) MarkDone(key string) error {
	return r.markStatus(key, domain.ProcessingStatusDone)
}

func (r *webhookEventRepositoryInMemory) MarkFailed(key string) error {
	return r.markStatus(key, domain.ProcessingStatusFailed)
}

func (r *webhookEventRepositoryInMemory) DeleteExpired(before time.Time, limit int) ([]domain.ProcessedEvent, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []domain.ProcessedEvent
	for key, record := range r.items {
		if record.TTLAt.After(before) {
			continue
		}

		delete(r.items, key)
		removed = append(removed, record)
		if limit > 0 && len(removed) >= limit {
			break
		}
	}

	return removed, nil
}

func (r *webhookEventRepositoryInMemory) markStatus(key string, status domain.ProcessingStatus) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrWebhookEventKeyRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[key]
	if !ok {
		return domain.ErrWebhookEventNotFound
	}

	record.Status = status
	record.UpdatedAt = time.Now().UTC()
	r.items[key] = record

	return nil
}

var _ domain.WebhookEventRepository = (*webhookEventRepositoryInMemory)(nil)
