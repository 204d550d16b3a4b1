package app

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
	"github.com/airrecover/storefront/internal/messaging/kafka"
	"github.com/airrecover/storefront/internal/metrics"
	"github.com/airrecover/storefront/internal/service/mail"
	"github.com/airrecover/storefront/internal/service/payment"
	"github.com/airrecover/storefront/internal/storage/memory"
)

var errKafkaDisabled = errors.New("kafka is disabled")

// Dependencies содержит внешние адаптеры витрины.
type Dependencies struct {
	// Gateway равен nil, если ключ провайдера не задан: оплата отвечает payment_failed.
	Gateway         domain.PaymentGateway
	Verifier        domain.WebhookVerifier
	SignatureHeader string
	Mailer          domain.MailSender
	mailConfigured  bool
	// Publisher равен nil без Kafka.
	Publisher domain.EventPublisher
	Producer  *kafka.Producer
	Metrics   *metrics.StorefrontMetrics
	Logger    *log.Entry
	// WebhookEvents помнит обработанные события, чтобы повторная доставка не дублировала заказ.
	WebhookEvents domain.WebhookEventRepository
}

// NewDependencies создаёт адаптеры по конфигурации. Отсутствующие ключи не
// мешают старту: страницы магазина работают, а соответствующие операции
// возвращают ошибки «не настроено».
func NewDependencies(cfg Config, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Metrics:       metrics.NewStorefrontMetrics(),
		WebhookEvents: memory.NewWebhookEventRepository(),
		Logger:        logger,
	}
	deps.Gateway, deps.Verifier, deps.SignatureHeader = newPaymentGateway(cfg, logger)
	deps.Mailer = newMailSender(cfg, logger)
	deps.mailConfigured = mailConfigured(cfg)

	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err == nil && producer != nil {
		deps.Producer = producer
		deps.Publisher = kafka.NewCheckoutPublisher(producer, cfg.KafkaTopic)
	}

	return deps
}

func newPaymentGateway(cfg Config, logger *log.Entry) (domain.PaymentGateway, domain.WebhookVerifier, string) {
	switch cfg.PaymentProvider {
	case PaymentProviderMollie:
		gateway := payment.NewMollieGateway(cfg.MollieAPIKey, logger.WithField("provider", "mollie"))
		if cfg.MollieAPIKey == "" {
			logger.Error("MOLLIE_API_KEY is not set, checkout is disabled")
			return nil, gateway, ""
		}
		return gateway, gateway, ""
	case PaymentProviderMock:
		logger.Warn("using mock payment gateway")
		gateway := payment.NewMockGateway()
		return gateway, gateway, ""
	default:
		gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, logger.WithField("provider", "stripe"))
		if cfg.StripeWebhookSecret == "" {
			logger.Warn("STRIPE_WEBHOOK_SECRET is not set, webhooks are acknowledged without processing")
		}
		if cfg.StripeSecretKey == "" {
			logger.Error("STRIPE_SECRET_KEY is not set, checkout is disabled")
			return nil, gateway, payment.StripeSignatureHeader
		}
		return gateway, gateway, payment.StripeSignatureHeader
	}
}

func newMailSender(cfg Config, logger *log.Entry) domain.MailSender {
	switch cfg.MailTransport {
	case MailTransportAPI:
		return mail.NewAPISender(cfg.MailAPIKey, logger.WithField("transport", "api"))
	case MailTransportMock:
		logger.Warn("using mock mail sender")
		return mail.NewMockSender()
	default:
		smtpCfg := mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Secure:   cfg.SMTPSecure,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPass,
			IPv4Only: cfg.SMTPFamily == 4,
		}
		if !smtpCfg.Configured() {
			logger.Warn("SMTP_USER/SMTP_PASS are not set, contact form is disabled")
		}
		return mail.NewSMTPSender(smtpCfg, logger.WithField("transport", "smtp"))
	}
}

func mailConfigured(cfg Config) bool {
	switch cfg.MailTransport {
	case MailTransportAPI:
		return cfg.MailAPIKey != "" && cfg.MailFrom != ""
	case MailTransportMock:
		return true
	default:
		return cfg.SMTPUser != "" && cfg.SMTPPass != ""
	}
}

// PaymentReady сообщает, может ли витрина создавать платёжные сессии.
func (d *Dependencies) PaymentReady(context.Context) error {
	if d.Gateway == nil {
		return domain.ErrPaymentNotConfigured
	}
	return nil
}

// MailReady сообщает, заданы ли учётные данные почтового транспорта.
func (d *Dependencies) MailReady(context.Context) error {
	if !d.mailConfigured {
		return domain.ErrMailNotConfigured
	}
	return nil
}

// KafkaReady сообщает, публикуются ли события оплаты.
func (d *Dependencies) KafkaReady(context.Context) error {
	if d.Publisher == nil {
		return errKafkaDisabled
	}
	return nil
}

// Close освобождает соединения с брокером.
func (d *Dependencies) Close() {
	closeKafka(d.Producer, d.Logger)
}
