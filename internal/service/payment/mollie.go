package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
)

// DefaultMollieAPIBaseURL базовый адрес Mollie API v2.
const DefaultMollieAPIBaseURL = "https://api.mollie.com/v2"

// MollieGateway создаёт платежи Mollie через REST API. Вебхук Mollie не подписан:
// он присылает только id платежа, и подлинность подтверждается запросом статуса по API-ключу.
type MollieGateway struct {
	APIKey     string
	APIBaseURL string
	HTTPClient *http.Client
	logger     *log.Entry
}

// NewMollieGateway создаёт шлюз с API-ключом профиля.
func NewMollieGateway(apiKey string, logger *log.Entry) *MollieGateway {
	if logger == nil {
		logger = log.WithField("component", "mollie-gateway")
	}
	return &MollieGateway{
		APIKey:     apiKey,
		APIBaseURL: DefaultMollieAPIBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Name возвращает код провайдера.
func (g *MollieGateway) Name() string { return "mollie" }

type mollieAmount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type molliePaymentRequest struct {
	Amount      mollieAmount      `json:"amount"`
	Description string            `json:"description"`
	RedirectURL string            `json:"redirectUrl"`
	CancelURL   string            `json:"cancelUrl,omitempty"`
	WebhookURL  string            `json:"webhookUrl,omitempty"`
	Method      string            `json:"method,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

type molliePayment struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Method   string            `json:"method"`
	Amount   mollieAmount      `json:"amount"`
	Metadata map[string]string `json:"metadata"`
	Links    struct {
		Checkout *struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

// mollieMethod переводит способ оплаты магазина в код Mollie.
func mollieMethod(method domain.PaymentMethod) string {
	switch method {
	case domain.PaymentMethodPayPal:
		return "paypal"
	case domain.PaymentMethodTwint:
		return "twint"
	default:
		return "creditcard"
	}
}

// CreateCheckoutSession создаёт платёж на полную сумму корзины и возвращает ссылку на оплату.
func (g *MollieGateway) CreateCheckoutSession(ctx context.Context, p domain.CheckoutSessionParams) (domain.CheckoutSession, error) {
	redirect := p.SuccessURL
	if p.Reference != "" {
		redirect += "?ref=" + url.QueryEscape(p.Reference)
	}

	body := molliePaymentRequest{
		Amount: mollieAmount{
			Currency: strings.ToUpper(p.Currency),
			Value:    p.Cart.Total.StringFixed(2),
		},
		Description: fmt.Sprintf("%s x%d", domain.ProductName, p.Cart.Quantity),
		RedirectURL: redirect,
		CancelURL:   p.CancelURL,
		WebhookURL:  p.WebhookURL,
		Method:      mollieMethod(p.Method),
		Metadata: map[string]string{
			"qty":             strconv.Itoa(p.Cart.Quantity),
			"selected_method": string(p.Method),
			"reference":       p.Reference,
		},
	}

	var payment molliePayment
	if err := g.do(ctx, http.MethodPost, "/payments", body, &payment); err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("create mollie payment: %w", err)
	}
	if payment.Links.Checkout == nil || payment.Links.Checkout.Href == "" {
		return domain.CheckoutSession{}, fmt.Errorf("mollie payment %s has no checkout link", payment.ID)
	}

	return domain.CheckoutSession{ID: payment.ID, URL: payment.Links.Checkout.Href}, nil
}

// VerifyWebhook читает id платежа из тела (form: id=tr_xxx) и запрашивает его статус.
// Неизвестный платёж считается поддельным вебхуком.
func (g *MollieGateway) VerifyWebhook(ctx context.Context, req domain.WebhookRequest) (domain.WebhookEvent, error) {
	if g.APIKey == "" {
		return domain.WebhookEvent{}, domain.ErrWebhookNotConfigured
	}

	form, err := url.ParseQuery(string(req.Payload))
	if err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	id := strings.TrimSpace(form.Get("id"))
	if id == "" {
		return domain.WebhookEvent{}, fmt.Errorf("%w: payment id is missing", domain.ErrInvalidSignature)
	}

	var payment molliePayment
	if err := g.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil, &payment); err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	event := domain.WebhookEvent{
		ID:           payment.ID,
		Type:         domain.WebhookEventIgnored,
		ProviderType: "payment." + payment.Status,
		Provider:     g.Name(),
		SessionID:    payment.ID,
		Method:       payment.Metadata["selected_method"],
		Currency:     payment.Amount.Currency,
		ReceivedAt:   time.Now().UTC(),
	}
	if qty, err := strconv.Atoi(payment.Metadata["qty"]); err == nil {
		event.Qty = qty
	}
	if amount, err := parseMollieAmount(payment.Amount.Value); err == nil {
		event.AmountTotalMinor = amount
	}
	if payment.Status == "paid" {
		event.Type = domain.WebhookEventCheckoutCompleted
	}
	return event, nil
}

func parseMollieAmount(value string) (int64, error) {
	whole, frac, _ := strings.Cut(value, ".")
	frac = (frac + "00")[:2]
	return strconv.ParseInt(whole+frac, 10, 64)
}

// mollieError разбирает тело ошибки Mollie (application/hal+json).
type mollieError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (g *MollieGateway) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(g.APIBaseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)
	httpReq.Header.Set("Accept", "application/json")
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr mollieError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		g.logger.WithFields(log.Fields{
			"status": resp.StatusCode,
			"title":  apiErr.Title,
			"detail": apiErr.Detail,
			"path":   path,
		}).Warn("mollie api returned error")
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var (
	_ domain.PaymentGateway  = (*MollieGateway)(nil)
	_ domain.WebhookVerifier = (*MollieGateway)(nil)
)
