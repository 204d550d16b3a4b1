package cart

import (
	"context"
	"encoding/json"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
)

// ManagerOptions задаёт параметры Manager.
type ManagerOptions struct {
	Logger  *log.Entry
	Pricing domain.Pricing
}

// Option настраивает Manager.
type Option func(*ManagerOptions)

// WithLogger задаёт logger для менеджера корзины.
func WithLogger(logger *log.Entry) Option {
	return func(opts *ManagerOptions) {
		opts.Logger = logger
	}
}

// WithPricing задаёт цену единицы и правило доставки (атрибуты виджета).
func WithPricing(pricing domain.Pricing) Option {
	return func(opts *ManagerOptions) {
		opts.Pricing = pricing
	}
}

// Manager — единственный источник правды о корзине. Суммы всегда пересчитываются из количества.
// Ошибки хранилища наружу не выходят: они логируются, а чтение откатывается к корзине по умолчанию.
type Manager struct {
	store   domain.CartStore
	pricing domain.Pricing
	logger  *log.Entry
}

// NewManager создаёт менеджер поверх CartStore.
func NewManager(store domain.CartStore, options ...Option) *Manager {
	opts := ManagerOptions{Pricing: domain.DefaultPricing()}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart")
	}

	return &Manager{
		store:   store,
		pricing: opts.Pricing,
		logger:  logger,
	}
}

// Pricing возвращает цены, по которым менеджер пересчитывает корзину.
func (m *Manager) Pricing() domain.Pricing {
	return m.pricing
}

// Parse разбирает сохранённое значение. Ошибка всегда оборачивает ErrCartMalformed.
func Parse(raw []byte) (domain.CartState, error) {
	var state domain.CartState
	if err := json.Unmarshal(raw, &state); err != nil {
		if errors.Is(err, domain.ErrCartMalformed) {
			return domain.CartState{}, err
		}
		return domain.CartState{}, errors.Join(domain.ErrCartMalformed, err)
	}
	return state, nil
}

// Read возвращает сохранённую корзину. Если её нет или она повреждена,
// возвращает корзину по умолчанию и ничего не записывает.
func (m *Manager) Read(ctx context.Context) domain.CartState {
	raw, err := m.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCartNotFound) {
			m.logger.WithError(err).Warn("failed to read cart from store, using default")
		}
		return domain.DefaultCartState()
	}

	state, err := Parse(raw)
	if err != nil {
		m.logger.WithError(err).Debug("persisted cart is malformed, using default")
		return domain.DefaultCartState()
	}
	return state
}

// SetQuantity ограничивает количество снизу единицей, пересчитывает суммы,
// безусловно перезаписывает сохранённое значение и возвращает новую корзину.
func (m *Manager) SetQuantity(ctx context.Context, requested int) domain.CartState {
	state := m.pricing.Quote(requested)

	raw, err := json.Marshal(state)
	if err != nil {
		m.logger.WithError(err).Error("failed to encode cart")
		return state
	}
	if err := m.store.Set(ctx, raw); err != nil {
		m.logger.WithError(err).WithField("qty", state.Quantity).Warn("failed to persist cart")
	}
	return state
}

// Clear удаляет сохранённую корзину.
func (m *Manager) Clear(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.WithError(err).Warn("failed to clear cart")
	}
}
