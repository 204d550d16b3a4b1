package domain

import "time"

// WebhookEventType переводит тип события провайдера в термины магазина.
type WebhookEventType string

const (
	// WebhookEventCheckoutCompleted: оплата завершена, можно запускать исполнение.
	WebhookEventCheckoutCompleted WebhookEventType = "checkout.completed"
	// WebhookEventIgnored: событие принято, но магазин на него не реагирует.
	WebhookEventIgnored WebhookEventType = "ignored"
)

// WebhookRequest — сырое тело вебхука и заголовок подписи.
type WebhookRequest struct {
	Payload     []byte
	Signature   string
	ContentType string
}

// WebhookEvent — проверенное событие провайдера.
type WebhookEvent struct {
	ID               string           `json:"id"`
	Type             WebhookEventType `json:"event_type"`
	ProviderType     string           `json:"provider_type"`
	Provider         string           `json:"provider"`
	SessionID        string           `json:"session_id"`
	Qty              int              `json:"qty,omitempty"`
	Method           string           `json:"method,omitempty"`
	AmountTotalMinor int64            `json:"amount_total,omitempty"`
	Currency         string           `json:"currency,omitempty"`
	ReceivedAt       time.Time        `json:"timestamp"`
}

// Completed сообщает, нужно ли запускать исполнение заказа.
func (e WebhookEvent) Completed() bool {
	return e.Type == WebhookEventCheckoutCompleted
}
