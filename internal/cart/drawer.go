package cart

import (
	"context"
	"sync"
)

// Action обозначает кнопку количества в выдвижной корзине.
type Action string

const (
	ActionIncrease Action = "increase"
	ActionDecrease Action = "decrease"
)

// Drawer — выдвижная корзина. Видимость остаётся UI-состоянием и не сохраняется.
// Кнопки +/- берут за основу отображаемое количество, поэтому каждый рендер
// после изменения перезаписывает его.
type Drawer struct {
	mu      sync.Mutex
	manager *Manager
	view    View
	open    bool
}

// NewDrawer читает хранилище один раз. Суммы пересчитываются из сохранённого
// количества, в хранилище при этом ничего не пишется.
func NewDrawer(ctx context.Context, manager *Manager) *Drawer {
	stored := manager.Read(ctx)
	return &Drawer{
		manager: manager,
		view:    Render(manager.Pricing().Quote(stored.Quantity)),
	}
}

// Open показывает корзину.
func (d *Drawer) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
}

// Close скрывает корзину.
func (d *Drawer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
}

// IsOpen сообщает, видна ли корзина.
func (d *Drawer) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// View возвращает то, что сейчас отображает корзина.
func (d *Drawer) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Increase увеличивает отображаемое количество на единицу.
func (d *Drawer) Increase(ctx context.Context) View {
	return d.Click(ctx, ActionIncrease)
}

// Decrease уменьшает отображаемое количество на единицу (не ниже 1).
func (d *Drawer) Decrease(ctx context.Context) View {
	return d.Click(ctx, ActionDecrease)
}

// Click обрабатывает нажатие кнопки количества. Неизвестные действия игнорируются.
func (d *Drawer) Click(ctx context.Context, action Action) View {
	d.mu.Lock()
	defer d.mu.Unlock()

	qty := d.view.displayedQuantity()
	switch action {
	case ActionIncrease:
		qty++
	case ActionDecrease:
		qty--
	default:
		return d.view
	}

	d.view = Render(d.manager.SetQuantity(ctx, qty))
	return d.view
}
