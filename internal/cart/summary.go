package cart

import "context"

// Summary — блок итогов на странице checkout. Значения являются снимком на момент загрузки страницы,
// живой синхронизации с выдвижной корзиной нет.
type Summary struct {
	view View
}

// NewSummary читает хранилище один раз и рендерит итоги.
func NewSummary(ctx context.Context, manager *Manager) *Summary {
	return &Summary{view: Render(manager.Read(ctx))}
}

// View возвращает отображаемые итоги.
func (s *Summary) View() View {
	return s.view
}
