package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/airrecover/storefront/internal/domain"
)

// StripeSignatureHeader содержит подпись вебхука Stripe.
const StripeSignatureHeader = "Stripe-Signature"

// sessionCreator покрывает часть клиента Stripe, которой пользуется шлюз.
type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway создаёт Stripe Checkout Sessions и проверяет подписи вебхуков.
type StripeGateway struct {
	sessions      sessionCreator
	webhookSecret string
	logger        *log.Entry
}

// NewStripeGateway создаёт шлюз с секретным ключом аккаунта. Пустой webhookSecret
// означает, что вебхуки не настроены.
func NewStripeGateway(secretKey, webhookSecret string, logger *log.Entry) *StripeGateway {
	if logger == nil {
		logger = log.WithField("component", "stripe-gateway")
	}
	return &StripeGateway{
		sessions:      session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Name возвращает код провайдера.
func (g *StripeGateway) Name() string { return "stripe" }

// CreateCheckoutSession создаёт сессию в режиме payment с позициями в раппенах.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p domain.CheckoutSessionParams) (domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{string(p.Method)}),
		SuccessURL:         stripe.String(p.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(p.CancelURL),
		ClientReferenceID:  stripe.String(p.Reference),
	}
	params.Context = ctx

	currency := strings.ToLower(p.Currency)
	for _, item := range p.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(domain.ToMinor(item.UnitAmount)),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params.AddMetadata("qty", strconv.Itoa(p.Cart.Quantity))
	params.AddMetadata("selected_method", string(p.Method))
	params.AddMetadata("reference", p.Reference)

	s, err := g.sessions.New(params)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("create stripe checkout session: %w", err)
	}
	if s.URL == "" {
		return domain.CheckoutSession{}, fmt.Errorf("stripe checkout session %s has no url", s.ID)
	}

	return domain.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// VerifyWebhook проверяет подпись Stripe-Signature и разбирает событие.
// checkout.session.completed превращается в WebhookEventCheckoutCompleted,
// остальные типы принимаются как WebhookEventIgnored.
func (g *StripeGateway) VerifyWebhook(_ context.Context, req domain.WebhookRequest) (domain.WebhookEvent, error) {
	if g.webhookSecret == "" {
		return domain.WebhookEvent{}, domain.ErrWebhookNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(req.Payload, req.Signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	result := domain.WebhookEvent{
		ID:           event.ID,
		Type:         domain.WebhookEventIgnored,
		ProviderType: string(event.Type),
		Provider:     g.Name(),
		ReceivedAt:   time.Now().UTC(),
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted || event.Data == nil {
		return result, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		// Подпись верна, но тело не разобрать: событие принимается без деталей.
		g.logger.WithError(err).WithField("event_id", event.ID).Warn("failed to decode checkout session payload")
		return result, nil
	}

	result.Type = domain.WebhookEventCheckoutCompleted
	result.SessionID = cs.ID
	result.AmountTotalMinor = cs.AmountTotal
	result.Currency = strings.ToUpper(string(cs.Currency))
	result.Method = cs.Metadata["selected_method"]
	if qty, err := strconv.Atoi(cs.Metadata["qty"]); err == nil {
		result.Qty = qty
	}
	return result, nil
}

var (
	_ domain.PaymentGateway  = (*StripeGateway)(nil)
	_ domain.WebhookVerifier = (*StripeGateway)(nil)
)
