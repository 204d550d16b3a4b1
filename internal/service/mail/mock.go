package mail

import (
	"context"
	"sync"

	"github.com/airrecover/storefront/internal/domain"
)

// MockSender сохраняет письма в памяти. Используется в dev-режиме и тестах.
type MockSender struct {
	mu   sync.Mutex
	Err  error
	sent []domain.Mail
}

// NewMockSender создаёт пустой MockSender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Name возвращает код транспорта.
func (s *MockSender) Name() string { return "mock" }

// Send запоминает письмо или возвращает заданную ошибку.
func (s *MockSender) Send(ctx context.Context, m domain.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, m)
	return nil
}

// Sent возвращает копию отправленных писем.
func (s *MockSender) Sent() []domain.Mail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Mail, len(s.sent))
	copy(out, s.sent)
	return out
}

var _ domain.MailSender = (*MockSender)(nil)
