package kafka

import (
	"time"

	"github.com/airrecover/storefront/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// EventTypeCheckoutCompleted: провайдер подтвердил оплату, заказ можно исполнять.
	EventTypeCheckoutCompleted EventType = "checkout.completed"
)

// Topics для Kafka
const (
	TopicCheckoutEvents = "storefront.checkout.events"
)

// Kafka headers
const (
	HeaderEventType = "x-event-type"
	HeaderProvider  = "x-provider"
)

// CheckoutEvent — сообщение об оплаченном заказе для сервиса исполнения.
type CheckoutEvent struct {
	EventType     EventType `json:"event_type"`
	EventID       string    `json:"event_id"`
	Provider      string    `json:"provider"`
	SessionID     string    `json:"session_id"`
	Qty           int       `json:"qty"`
	Method        string    `json:"method,omitempty"`
	AmountTotal   int64     `json:"amount_total"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
	ProviderEvent string    `json:"provider_event,omitempty"`
}

// NewCheckoutEvent создает событие из проверенного вебхука
func NewCheckoutEvent(event domain.WebhookEvent) *CheckoutEvent {
	ts := event.ReceivedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	currency := event.Currency
	if currency == "" {
		currency = domain.Currency
	}
	return &CheckoutEvent{
		EventType:     EventTypeCheckoutCompleted,
		EventID:       event.ID,
		Provider:      event.Provider,
		SessionID:     event.SessionID,
		Qty:           event.Qty,
		Method:        event.Method,
		AmountTotal:   event.AmountTotalMinor,
		Currency:      currency,
		Timestamp:     ts,
		ProviderEvent: event.ProviderType,
	}
}

// Key возвращает ключ партиционирования, чтобы события одной сессии попадали в одну партицию.
func (e *CheckoutEvent) Key() string {
	if e.SessionID != "" {
		return e.SessionID
	}
	return e.EventID
}
