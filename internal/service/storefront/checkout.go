package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
	"github.com/airrecover/storefront/internal/metrics"
)

// Пути страниц магазина, на которые провайдер возвращает покупателя.
const (
	SuccessPath = "/thankyou.html"
	CancelPath  = "/?cancelled=1"
	WebhookPath = "/webhook"
)

// CheckoutService создаёт платёжные сессии для POST /create-payment.
type CheckoutService interface {
	Create(ctx context.Context, qty int, method string) (domain.CheckoutSession, error)
}

// checkoutService пересчитывает корзину на сервере: клиент передаёт только количество.
type checkoutService struct {
	gateway   domain.PaymentGateway
	pricing   domain.Pricing
	publicURL string
	metrics   *metrics.StorefrontMetrics
	logger    *log.Entry
}

// NewCheckoutService создаёт сервис оплаты. metrics может быть nil.
func NewCheckoutService(
	gateway domain.PaymentGateway,
	pricing domain.Pricing,
	publicURL string,
	m *metrics.StorefrontMetrics,
	logger *log.Entry,
) CheckoutService {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &checkoutService{
		gateway:   gateway,
		pricing:   pricing,
		publicURL: strings.TrimRight(publicURL, "/"),
		metrics:   m,
		logger:    logger,
	}
}

// Create пересчитывает цену для qty (< 1 приводится к 1) и создаёт новую сессию.
// Любая ошибка провайдера возвращается как domain.ErrPaymentFailed.
func (s *checkoutService) Create(ctx context.Context, qty int, method string) (domain.CheckoutSession, error) {
	if s.gateway == nil {
		return domain.CheckoutSession{}, errors.Join(domain.ErrPaymentFailed, domain.ErrPaymentNotConfigured)
	}

	cart := s.pricing.Quote(qty)
	pm := domain.ParsePaymentMethod(method)
	params := domain.CheckoutSessionParams{
		Reference:  uuid.NewString(),
		Cart:       cart,
		Method:     pm,
		LineItems:  domain.LineItemsFor(s.pricing, cart),
		Currency:   domain.Currency,
		SuccessURL: s.publicURL + SuccessPath,
		CancelURL:  s.publicURL + CancelPath,
		WebhookURL: s.publicURL + WebhookPath,
	}

	logger := s.logger.WithFields(log.Fields{
		"reference": params.Reference,
		"provider":  s.gateway.Name(),
		"qty":       cart.Quantity,
		"method":    pm,
		"total":     domain.FormatCHF(cart.Total),
	})

	start := time.Now()
	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	s.metrics.RecordCheckoutSession(s.gateway.Name(), string(pm), time.Since(start), err)
	if err != nil {
		logger.WithError(err).Error("failed to create checkout session")
		return domain.CheckoutSession{}, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}

	logger.WithField("session_id", session.ID).Info("checkout session created")
	return session, nil
}
