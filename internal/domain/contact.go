package domain

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// ContactMessage — сообщение из контактной формы.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Order   string `json:"order"`
	Message string `json:"message"`
}

// Normalize обрезает пробелы во всех полях.
func (m ContactMessage) Normalize() ContactMessage {
	return ContactMessage{
		Name:    strings.TrimSpace(m.Name),
		Email:   strings.TrimSpace(m.Email),
		Order:   strings.TrimSpace(m.Order),
		Message: strings.TrimSpace(m.Message),
	}
}

// Validate требует непустые name, email и message (после Normalize).
func (m ContactMessage) Validate() error {
	if m.Name == "" || m.Email == "" || m.Message == "" {
		return ErrMissingFields
	}
	return nil
}

const (
	// ContactSubject задаёт тему письма из контактной формы.
	ContactSubject = "Neue Kontaktanfrage von airrecover.ch"
	// ContactFromName показывается как имя отправителя.
	ContactFromName = "AirRecover Kontakt"
)

func (m ContactMessage) orderText() string {
	if m.Order == "" {
		return "-"
	}
	return m.Order
}

// TextBody возвращает текстовую версию письма.
func (m ContactMessage) TextBody() string {
	return fmt.Sprintf("Name: %s\nE-Mail: %s\nBestellnummer: %s\n\nNachricht:\n%s",
		m.Name, m.Email, m.orderText(), m.Message)
}

var newlinePattern = regexp.MustCompile(`\r?\n`)

// HTMLBody возвращает HTML-версию письма. Пользовательский ввод экранируется.
func (m ContactMessage) HTMLBody() string {
	message := newlinePattern.ReplaceAllString(html.EscapeString(m.Message), "<br>")
	return fmt.Sprintf(
		"<p><strong>Name:</strong> %s</p>"+
			"<p><strong>E-Mail:</strong> %s</p>"+
			"<p><strong>Bestellnummer:</strong> %s</p>"+
			"<p><strong>Nachricht:</strong><br>%s</p>",
		html.EscapeString(m.Name),
		html.EscapeString(m.Email),
		html.EscapeString(m.orderText()),
		message,
	)
}

// Mail — готовое к отправке письмо.
type Mail struct {
	FromName string
	From     string
	To       string
	ReplyTo  string
	Subject  string
	Text     string
	HTML     string
}

// ToMail собирает письмо владельцу магазина: ответ уходит автору формы.
func (m ContactMessage) ToMail(from, to string) Mail {
	return Mail{
		FromName: ContactFromName,
		From:     from,
		To:       to,
		ReplyTo:  m.Email,
		Subject:  ContactSubject,
		Text:     m.TextBody(),
		HTML:     m.HTMLBody(),
	}
}
