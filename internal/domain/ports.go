package domain

import "context"

// CartStore хранит у клиента одну запись корзины (локальное key-value хранилище).
type CartStore interface {
	// Get возвращает сырое значение или ErrCartNotFound.
	Get(ctx context.Context) ([]byte, error)
	// Set безусловно перезаписывает значение.
	Set(ctx context.Context, raw []byte) error
	// Clear удаляет значение; отсутствие записи не ошибка.
	Clear(ctx context.Context) error
}

// PaymentGateway описывает взаимодействие с платёжным провайдером (Stripe, Mollie).
type PaymentGateway interface {
	// Name возвращает код провайдера для логов и метрик.
	Name() string
	// CreateCheckoutSession создаёт новую сессию оплаты; каждый вызов создаёт новую сессию.
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (CheckoutSession, error)
}

// WebhookVerifier проверяет подпись входящего события провайдера и разбирает его.
// Возвращает ErrWebhookNotConfigured, если секрет не задан, и ErrInvalidSignature при ошибке проверки.
type WebhookVerifier interface {
	VerifyWebhook(ctx context.Context, req WebhookRequest) (WebhookEvent, error)
}

// MailSender отправляет письма через SMTP или транзакционный API.
type MailSender interface {
	// Name возвращает код транспорта для логов и метрик.
	Name() string
	Send(ctx context.Context, mail Mail) error
}

// EventPublisher публикует события об оплаченных заказах для запуска исполнения.
type EventPublisher interface {
	Publish(ctx context.Context, event WebhookEvent) error
}
