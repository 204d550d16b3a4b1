package domain

import "errors"

// Корзина.
var (
	// ErrCartMalformed: сохранённая корзина не разбирается или нарушает инварианты.
	ErrCartMalformed = errors.New("cart state is malformed")
	ErrCartNotFound  = errors.New("cart state not found")
)

// Оплата.
var (
	// ErrPaymentFailed скрывает от пользователя причину, по которой оплата не началась.
	ErrPaymentFailed = errors.New("payment_failed")
	// ErrSubmitInProgress возвращается, пока попытка оплаты этой кнопки в полёте.
	ErrSubmitInProgress     = errors.New("checkout submit already in progress")
	ErrPaymentNotConfigured = errors.New("payment provider is not configured")
)

// Контактная форма. Текст ошибки совпадает с кодом в ответе /contact.
var (
	// ErrMissingFields: в контактной форме не заполнены обязательные поля.
	ErrMissingFields = errors.New("missing_fields")
	// ErrMailNotConfigured: не заданы учётные данные почтового транспорта.
	ErrMailNotConfigured = errors.New("smtp_not_configured")
	ErrMailAuth          = errors.New("smtp_auth_failed")
	ErrMailNetwork       = errors.New("smtp_network_error")
	// ErrMailSend покрывает прочие ошибки отправки письма.
	ErrMailSend = errors.New("send_failed")
)

// Вебхуки.
var (
	// ErrWebhookNotConfigured: секрет вебхука не задан, события не проверяются.
	ErrWebhookNotConfigured    = errors.New("webhook_not_configured")
	ErrInvalidSignature        = errors.New("invalid_signature")
	ErrWebhookEventKeyRequired = errors.New("webhook event key is required")
	// ErrWebhookEventDuplicate: событие уже обработано или обрабатывается.
	ErrWebhookEventDuplicate = errors.New("webhook event already processed")
	ErrWebhookEventNotFound  = errors.New("webhook event not found")
)

// ContactErrorCode возвращает код ошибки для ответа /contact.
func ContactErrorCode(err error) string {
	for _, known := range []error{ErrMissingFields, ErrMailNotConfigured, ErrMailAuth, ErrMailNetwork} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrMailSend.Error()
}
