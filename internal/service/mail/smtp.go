package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	gomail "gopkg.in/mail.v2"

	"github.com/airrecover/storefront/internal/domain"
)

const (
	// DefaultConnectTimeout ограничивает соединение и приветствие сервера.
	DefaultConnectTimeout = 20 * time.Second
	// DefaultSocketTimeout ограничивает операции на установленном соединении.
	DefaultSocketTimeout = 30 * time.Second
)

// SMTPConfig описывает почтовый сервер.
type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
	// IPv4Only принудительно резолвит хост в IPv4 (некоторые хостинги не маршрутизируют IPv6).
	IPv4Only       bool
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

// Configured сообщает, заданы ли учётные данные.
func (c SMTPConfig) Configured() bool {
	return c.User != "" && c.Password != ""
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender отправляет письма через SMTP.
type SMTPSender struct {
	cfg    SMTPConfig
	dial   func(ctx context.Context) (dialer, error)
	logger *log.Entry
}

// NewSMTPSender создаёт отправителя. Без учётных данных Send возвращает ErrMailNotConfigured.
func NewSMTPSender(cfg SMTPConfig, logger *log.Entry) *SMTPSender {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = DefaultSocketTimeout
	}
	if logger == nil {
		logger = log.WithField("component", "smtp-sender")
	}

	s := &SMTPSender{cfg: cfg, logger: logger}
	s.dial = s.newDialer
	return s
}

// Name возвращает код транспорта.
func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) newDialer(ctx context.Context) (dialer, error) {
	host := s.cfg.Host
	if s.cfg.IPv4Only {
		resolveCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancel()
		addrs, err := net.DefaultResolver.LookupIP(resolveCtx, "ip4", s.cfg.Host)
		if err != nil {
			return nil, err
		}
		if len(addrs) > 0 {
			host = addrs[0].String()
		}
	}

	d := gomail.NewDialer(host, s.cfg.Port, s.cfg.User, s.cfg.Password)
	d.SSL = s.cfg.Secure
	d.Timeout = s.cfg.SocketTimeout
	d.RetryFailure = false
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	return d, nil
}

// Send собирает MIME-письмо (text + html) и отправляет его.
func (s *SMTPSender) Send(ctx context.Context, m domain.Mail) error {
	if !s.cfg.Configured() {
		return domain.ErrMailNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMailSend, err)
	}

	from := m.From
	if from == "" {
		from = s.cfg.User
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", from, m.FromName)
	msg.SetHeader("To", m.To)
	if m.ReplyTo != "" {
		msg.SetHeader("Reply-To", m.ReplyTo)
	}
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Text)
	if m.HTML != "" {
		msg.AddAlternative("text/html", m.HTML)
	}

	d, err := s.dial(ctx)
	if err != nil {
		classified := classifySMTPError(err)
		s.logFailure(classified, err)
		return classified
	}
	if err := d.DialAndSend(msg); err != nil {
		classified := classifySMTPError(err)
		s.logFailure(classified, err)
		return classified
	}

	s.logger.WithFields(log.Fields{
		"to":      m.To,
		"subject": m.Subject,
	}).Info("mail sent")
	return nil
}

func (s *SMTPSender) logFailure(classified, cause error) {
	s.logger.WithError(cause).WithFields(log.Fields{
		"host": s.cfg.Host,
		"port": strconv.Itoa(s.cfg.Port),
		"code": domain.ContactErrorCode(classified),
	}).Error("smtp send failed")
}

var _ domain.MailSender = (*SMTPSender)(nil)
