package storefront

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
	"github.com/airrecover/storefront/internal/metrics"
)

// ContactService отправляет сообщения контактной формы владельцу магазина.
type ContactService interface {
	Send(ctx context.Context, msg domain.ContactMessage) error
}

type contactService struct {
	sender   domain.MailSender
	from     string
	receiver string
	metrics  *metrics.StorefrontMetrics
	logger   *log.Entry
}

// NewContactService создаёт сервис. from задаёт адрес отправителя (обычно SMTP_USER),
// receiver задаёт почту владельца.
func NewContactService(sender domain.MailSender, from, receiver string, m *metrics.StorefrontMetrics, logger *log.Entry) ContactService {
	if logger == nil {
		logger = log.New().WithField("component", "contact")
	}
	return &contactService{
		sender:   sender,
		from:     from,
		receiver: receiver,
		metrics:  m,
		logger:   logger,
	}
}

// Send нормализует и проверяет форму, затем отправляет письмо.
// Возможные ошибки: domain.ErrMissingFields или одна из domain.ErrMail*.
func (s *contactService) Send(ctx context.Context, msg domain.ContactMessage) error {
	transport := "none"
	if s.sender != nil {
		transport = s.sender.Name()
	}

	msg = msg.Normalize()
	if err := msg.Validate(); err != nil {
		s.metrics.RecordContactMessage(transport, domain.ContactErrorCode(err))
		return err
	}
	if s.sender == nil {
		s.metrics.RecordContactMessage(transport, domain.ErrMailNotConfigured.Error())
		return domain.ErrMailNotConfigured
	}

	if err := s.sender.Send(ctx, msg.ToMail(s.from, s.receiver)); err != nil {
		code := domain.ContactErrorCode(err)
		s.metrics.RecordContactMessage(transport, code)
		s.logger.WithError(err).WithFields(log.Fields{
			"transport": transport,
			"code":      code,
		}).Error("contact form send failed")
		return err
	}

	s.metrics.RecordContactMessage(transport, "ok")
	s.logger.WithField("transport", transport).Info("contact form delivered")
	return nil
}
