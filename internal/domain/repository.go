package domain

import (
	"strings"
	"time"
)

// ProcessingStatus описывает жизненный цикл обработки доставленного события вебхука.
type ProcessingStatus string

const (
	// ProcessingStatusProcessing означает, что событие принято и ещё обрабатывается.
	ProcessingStatusProcessing ProcessingStatus = "processing"
	// ProcessingStatusDone означает, что заказ передан на исполнение.
	ProcessingStatusDone ProcessingStatus = "done"
	// ProcessingStatusFailed означает, что публикация не удалась и повторная доставка будет обработана.
	ProcessingStatusFailed ProcessingStatus = "failed"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case ProcessingStatusProcessing, ProcessingStatusDone, ProcessingStatusFailed:
		return true
	default:
		return false
	}
}

// ProcessedEvent — отметка о том, что событие провайдера уже обработано.
// Провайдеры доставляют вебхуки «минимум один раз» и повторяют их днями.
type ProcessedEvent struct {
	Key       string
	Status    ProcessingStatus
	TTLAt     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Provider возвращает провайдера из ключа события ("stripe:evt_1" -> "stripe").
func (e ProcessedEvent) Provider() string {
	provider, _ := SplitWebhookEventKey(e.Key)
	return provider
}

// Fulfilled сообщает, что событие дошло до исполнения заказа.
func (e ProcessedEvent) Fulfilled() bool {
	return e.Status == ProcessingStatusDone
}

// SplitWebhookEventKey разбирает ключ, собранный WebhookEventKey. Ключ без
// разделителя относится к провайдеру "unknown".
func SplitWebhookEventKey(key string) (provider, eventID string) {
	provider, eventID, ok := strings.Cut(key, ":")
	if !ok || provider == "" {
		return "unknown", key
	}
	return provider, eventID
}

// WebhookEventKey собирает ключ события: идентификаторы уникальны только в пределах провайдера.
func WebhookEventKey(provider, eventID string) string {
	return strings.TrimSpace(provider) + ":" + strings.TrimSpace(eventID)
}

// WebhookEventRepository хранит ключи обработанных событий до истечения TTL.
// Это память процесса, а не база данных: после рестарта дубликат будет обработан снова.
type WebhookEventRepository interface {
	// CreateProcessing резервирует ключ. Возвращает ErrWebhookEventDuplicate, если событие
	// уже обрабатывается или обработано; запись со статусом failed резервируется заново.
	CreateProcessing(key string, ttlAt time.Time) (ProcessedEvent, error)
	// Get возвращает запись или ErrWebhookEventNotFound.
	Get(key string) (ProcessedEvent, error)
	MarkDone(key string) error
	MarkFailed(key string) error
	// DeleteExpired удаляет не более limit записей с TTLAt <= before и возвращает их
	// (limit <= 0 снимает ограничение).
	DeleteExpired(before time.Time, limit int) ([]ProcessedEvent, error)
}
