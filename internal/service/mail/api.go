package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
)

// DefaultAPIBaseURL указывает на транзакционный почтовый API (Resend-совместимый).
const DefaultAPIBaseURL = "https://api.resend.com"

// APISender отправляет письма через HTTP API провайдера, когда SMTP-порты закрыты.
type APISender struct {
	APIKey     string
	APIBaseURL string
	HTTPClient *http.Client
	logger     *log.Entry
}

// NewAPISender создаёт отправителя с API-ключом.
func NewAPISender(apiKey string, logger *log.Entry) *APISender {
	if logger == nil {
		logger = log.WithField("component", "mail-api-sender")
	}
	return &APISender{
		APIKey:     apiKey,
		APIBaseURL: DefaultAPIBaseURL,
		HTTPClient: &http.Client{Timeout: DefaultSocketTimeout},
		logger:     logger,
	}
}

// Name возвращает код транспорта.
func (s *APISender) Name() string { return "api" }

type apiEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
}

type apiErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send отправляет письмо. 401/403 означают неверный ключ, сетевые ошибки
// и 5xx провайдера считаются недоступностью транспорта.
func (s *APISender) Send(ctx context.Context, m domain.Mail) error {
	if s.APIKey == "" || m.From == "" {
		return domain.ErrMailNotConfigured
	}

	from := m.From
	if m.FromName != "" {
		from = fmt.Sprintf("%q <%s>", m.FromName, m.From)
	}
	payload, err := json.Marshal(apiEmail{
		From:    from,
		To:      []string{m.To},
		ReplyTo: m.ReplyTo,
		Subject: m.Subject,
		Text:    m.Text,
		HTML:    m.HTML,
	})
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", domain.ErrMailSend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.APIBaseURL, "/")+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMailSend, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("mail api request failed")
		return fmt.Errorf("%w: %v", domain.ErrMailNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		s.logger.WithFields(log.Fields{
			"to":       m.To,
			"duration": time.Since(started).String(),
		}).Info("mail sent")
		return nil
	}

	var apiErr apiErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
	s.logger.WithFields(log.Fields{
		"status":  resp.StatusCode,
		"name":    apiErr.Name,
		"message": apiErr.Message,
	}).Error("mail api returned error")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", domain.ErrMailAuth, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrMailNetwork, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrMailSend, resp.StatusCode, apiErr.Message)
	}
}

var _ domain.MailSender = (*APISender)(nil)
