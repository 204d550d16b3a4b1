package checkout

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/domain"
)

// ControlState — состояние кнопки оплаты.
type ControlState string

const (
	// ControlEnabled: кнопку можно нажать.
	ControlEnabled ControlState = "enabled"
	// ControlPending: запрос создания сессии в полёте, кнопка заблокирована.
	ControlPending ControlState = "pending"
	// ControlNavigated: страница ушла на оплату.
	ControlNavigated ControlState = "navigated"
)

// FailureMessage показывается пользователю при любой ошибке старта оплаты.
const FailureMessage = "Zahlung konnte nicht gestartet werden. Bitte versuche es erneut."

// CartReader отдаёт сохранённую корзину.
type CartReader interface {
	Read(ctx context.Context) domain.CartState
}

// Navigator выполняет полный редирект страницы.
type Navigator interface {
	Navigate(url string)
}

// NavigatorFunc адаптирует функцию к Navigator.
type NavigatorFunc func(url string)

// Navigate вызывает f(url).
func (f NavigatorFunc) Navigate(url string) { f(url) }

// Labels хранит подписи кнопки в покое и во время ожидания.
type Labels struct {
	Idle string
	Busy string
}

var (
	// FormLabels используются кнопкой формы checkout.
	FormLabels = Labels{Idle: "Jetzt bezahlen", Busy: "Bitte warten..."}
	// DirectLabels используются кнопками «купить сейчас» без выбора способа оплаты.
	DirectLabels = Labels{Idle: "Jetzt kaufen", Busy: "Weiterleiten..."}
)

// SubmitControl — кнопка, запускающая оплату. Флаг занятости сериализует попытки:
// пока запрос в полёте, повторное нажатие отклоняется.
// Enabled → Pending → Navigated (успех) | Enabled с сообщением об ошибке (неудача).
type SubmitControl struct {
	mu      sync.Mutex
	state   ControlState
	label   string
	message string

	labels   Labels
	cart     CartReader
	starter  Starter
	navigate Navigator
	logger   *log.Entry
}

// NewSubmitControl создаёт кнопку оплаты.
func NewSubmitControl(cart CartReader, starter Starter, navigate Navigator, labels Labels, logger *log.Entry) *SubmitControl {
	if logger == nil {
		logger = log.WithField("component", "checkout-control")
	}
	return &SubmitControl{
		state:    ControlEnabled,
		label:    labels.Idle,
		labels:   labels,
		cart:     cart,
		starter:  starter,
		navigate: navigate,
		logger:   logger,
	}
}

// Submit читает корзину и начинает оплату выбранным способом. Пустой selectedMethod
// (в форме ничего не отмечено или кнопка «купить сейчас») означает card.
// При успехе страница уходит на URL провайдера; при ошибке кнопка снова доступна,
// а пользователь видит FailureMessage.
func (c *SubmitControl) Submit(ctx context.Context, selectedMethod string) error {
	c.mu.Lock()
	if c.state != ControlEnabled {
		c.mu.Unlock()
		return domain.ErrSubmitInProgress
	}
	c.state = ControlPending
	c.label = c.labels.Busy
	c.message = ""
	c.mu.Unlock()

	url, err := c.starter.Start(ctx, selectedMethod, c.cart.Read(ctx))

	c.mu.Lock()
	if err != nil {
		c.state = ControlEnabled
		c.label = c.labels.Idle
		c.message = FailureMessage
		c.mu.Unlock()

		c.logger.WithError(err).Info("checkout start failed, control re-enabled")
		if !errors.Is(err, domain.ErrPaymentFailed) {
			err = errors.Join(domain.ErrPaymentFailed, err)
		}
		return err
	}
	c.state = ControlNavigated
	c.mu.Unlock()

	// Navigator может читать состояние кнопки, поэтому вызывается без блокировки.
	c.navigate.Navigate(url)
	return nil
}

// SubmitDirect оплачивает картой без выбора способа (кнопка «купить сейчас»).
func (c *SubmitControl) SubmitDirect(ctx context.Context) error {
	return c.Submit(ctx, string(domain.PaymentMethodCard))
}

// State возвращает текущее состояние кнопки.
func (c *SubmitControl) State() ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Enabled сообщает, можно ли нажать кнопку.
func (c *SubmitControl) Enabled() bool {
	return c.State() == ControlEnabled
}

// Label возвращает текущую подпись кнопки.
func (c *SubmitControl) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label
}

// Message возвращает сообщение для пользователя после последней попытки.
func (c *SubmitControl) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}
