package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
	"github.com/airrecover/storefront/internal/version"
)

// CreatePaymentPath создаёт платёжную сессию на стороне магазина.
const CreatePaymentPath = "/create-payment"

// HeaderRequestID связывает логи клиента и сервера для одной попытки оплаты.
const HeaderRequestID = "X-Request-ID"

// maxResponseBytes ограничивает чтение ответа, ответ магазина крошечный.
const maxResponseBytes = 64 << 10

// Starter начинает оплату и возвращает URL для полного редиректа.
type Starter interface {
	Start(ctx context.Context, selectedMethod string, cart domain.CartState) (string, error)
}

// Initiator вызывает POST /create-payment. Каждый вызов создаёт новую сессию у провайдера:
// дедупликации и повторов нет.
type Initiator struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// InitiatorOption настраивает Initiator.
type InitiatorOption func(*Initiator)

// WithHTTPClient задаёт HTTP-клиент (по умолчанию без таймаута, как у браузера).
func WithHTTPClient(client *http.Client) InitiatorOption {
	return func(i *Initiator) {
		i.httpClient = client
	}
}

// WithInitiatorLogger задаёт logger.
func WithInitiatorLogger(logger *log.Entry) InitiatorOption {
	return func(i *Initiator) {
		i.logger = logger
	}
}

// NewInitiator создаёт клиент магазина по базовому URL ("http://localhost:3000").
func NewInitiator(baseURL string, options ...InitiatorOption) *Initiator {
	i := &Initiator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, option := range options {
		option(i)
	}
	if i.logger == nil {
		i.logger = log.WithField("component", "checkout-initiator")
	}
	return i
}

// Start отправляет {qty, method} и возвращает checkoutUrl. Пустой метод означает card.
// Передаётся только количество: суммы сервер пересчитывает сам.
// Любая ошибка (сеть, не-2xx, битый JSON, нет checkoutUrl) оборачивает domain.ErrPaymentFailed.
func (i *Initiator) Start(ctx context.Context, selectedMethod string, cart domain.CartState) (string, error) {
	method := selectedMethod
	if method == "" {
		method = string(domain.DefaultPaymentMethod)
	}

	body, err := json.Marshal(domain.CheckoutRequest{Qty: cart.Quantity, Method: method})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", domain.ErrPaymentFailed, err)
	}

	requestID := uuid.NewString()
	logger := i.logger.WithFields(log.Fields{
		"request_id": requestID,
		"qty":        cart.Quantity,
		"method":     method,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+CreatePaymentPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", domain.ErrPaymentFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("User-Agent", version.UserAgent("checkout"))

	resp, err := i.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Warn("create-payment request failed")
		return "", fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		logger.WithField("status", resp.StatusCode).Warn("create-payment returned non-2xx")
		return "", fmt.Errorf("%w: unexpected status %d", domain.ErrPaymentFailed, resp.StatusCode)
	}

	var payload domain.CheckoutResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		logger.WithError(err).Warn("create-payment returned malformed body")
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrPaymentFailed, err)
	}
	if payload.CheckoutURL == "" {
		logger.Warn("create-payment response has no checkoutUrl")
		return "", fmt.Errorf("%w: missing checkoutUrl", domain.ErrPaymentFailed)
	}

	logger.Debug("checkout session started")
	return payload.CheckoutURL, nil
}

var _ Starter = (*Initiator)(nil)
