package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentMethod описывает способ оплаты, выбранный на странице checkout.
type PaymentMethod string

const (
	// PaymentMethodCard используется по умолчанию.
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodTwint  PaymentMethod = "twint"
)

// DefaultPaymentMethod используется, когда пользователь ничего не выбрал.
const DefaultPaymentMethod = PaymentMethodCard

// ParsePaymentMethod нормализует значение из формы. Неизвестные значения дают card.
func ParsePaymentMethod(raw string) PaymentMethod {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw))); m {
	case PaymentMethodCard, PaymentMethodPayPal, PaymentMethodTwint:
		return m
	default:
		return DefaultPaymentMethod
	}
}

// CheckoutRequest описывает тело POST /create-payment. Суммы не передаются:
// сервер сам пересчитывает их из количества.
type CheckoutRequest struct {
	Qty    int    `json:"qty"`
	Method string `json:"method"`
}

// CheckoutResponse описывает ответ POST /create-payment.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// LineItem передаётся платёжному провайдеру.
type LineItem struct {
	Name       string
	UnitAmount decimal.Decimal
	Quantity   int64
}

// AmountMinor возвращает сумму позиции в раппенах.
func (li LineItem) AmountMinor() int64 {
	return ToMinor(li.UnitAmount) * li.Quantity
}

// CheckoutSessionParams описывает платёжную сессию, которую создаёт шлюз.
type CheckoutSessionParams struct {
	// Reference идентифицирует попытку оплаты в логах и metadata.
	Reference  string
	Cart       CartState
	Method     PaymentMethod
	LineItems  []LineItem
	Currency   string
	SuccessURL string
	CancelURL  string
	WebhookURL string
}

// CheckoutSession — результат создания сессии у провайдера.
type CheckoutSession struct {
	ID  string
	URL string
}

const (
	// ProductName единственного товара магазина.
	ProductName      = "AirRecover Starter-Set"
	ShippingItemName = "Versand"
)

// LineItemsFor строит позиции для провайдера: товар × qty и доставка, если она платная.
func LineItemsFor(pricing Pricing, cart CartState) []LineItem {
	items := []LineItem{{
		Name:       ProductName,
		UnitAmount: pricing.UnitPrice,
		Quantity:   int64(cart.Quantity),
	}}
	if cart.Shipping.IsPositive() {
		items = append(items, LineItem{
			Name:       ShippingItemName,
			UnitAmount: cart.Shipping,
			Quantity:   1,
		})
	}
	return items
}
