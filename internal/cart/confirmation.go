package cart

import (
	"context"
	"sync"
)

// Confirmation — страница благодарности после оплаты. При первом показе
// удаляет сохранённую корзину, чтобы следующий визит начинался заново.
type Confirmation struct {
	once    sync.Once
	manager *Manager
}

// NewConfirmation создаёт страницу подтверждения.
func NewConfirmation(manager *Manager) *Confirmation {
	return &Confirmation{manager: manager}
}

// Show очищает корзину ровно один раз, сколько бы раз страницу ни показали.
func (c *Confirmation) Show(ctx context.Context) {
	c.once.Do(func() {
		c.manager.Clear(ctx)
	})
}
