package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/airrecover/storefront/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для dev-режима и тестов.
// Возвращает ссылку сразу на страницу подтверждения магазина.
type MockGateway struct {
	mu sync.Mutex

	SessionErr error
	WebhookErr error
	Event      domain.WebhookEvent

	SessionCalls int
	WebhookCalls int
	LastParams   domain.CheckoutSessionParams
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Name возвращает код провайдера.
func (m *MockGateway) Name() string { return "mock" }

// CreateCheckoutSession возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) CreateCheckoutSession(_ context.Context, params domain.CheckoutSessionParams) (domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SessionCalls++
	m.LastParams = params
	if m.SessionErr != nil {
		return domain.CheckoutSession{}, m.SessionErr
	}

	id := "mock_" + uuid.NewString()
	return domain.CheckoutSession{
		ID:  id,
		URL: params.SuccessURL + "?session_id=" + id,
	}, nil
}

// VerifyWebhook возвращает настроенное событие и считает вызовы.
func (m *MockGateway) VerifyWebhook(_ context.Context, _ domain.WebhookRequest) (domain.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WebhookCalls++
	if m.WebhookErr != nil {
		return domain.WebhookEvent{}, m.WebhookErr
	}
	event := m.Event
	event.Provider = m.Name()
	return event, nil
}

var (
	_ domain.PaymentGateway  = (*MockGateway)(nil)
	_ domain.WebhookVerifier = (*MockGateway)(nil)
)
