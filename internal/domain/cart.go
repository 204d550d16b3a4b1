package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CartStorageKey хранит сериализованную корзину у клиента.
const CartStorageKey = "airrecover_cart"

// Pricing задаёт цену единицы товара и правило доставки.
type Pricing struct {
	// UnitPrice берётся из атрибута виджета, пользователь его не меняет.
	UnitPrice decimal.Decimal
	// ShippingFee взимается, пока в корзине меньше FreeShippingFrom единиц.
	ShippingFee      decimal.Decimal
	FreeShippingFrom int
}

// DefaultPricing возвращает конфигурацию магазина: 5.95 за штуку, доставка 3.95, бесплатно от 2 штук.
func DefaultPricing() Pricing {
	return Pricing{
		UnitPrice:        decimal.RequireFromString("5.95"),
		ShippingFee:      decimal.RequireFromString("3.95"),
		FreeShippingFrom: 2,
	}
}

// CartState — производный снимок цен для выбранного количества.
// Никогда не редактируется по полям: только пересчитывается через Quote.
type CartState struct {
	Quantity int
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// ClampQuantity приводит запрошенное количество к минимуму 1. Верхней границы нет.
func ClampQuantity(requested int) int {
	if requested < 1 {
		return 1
	}
	return requested
}

// Quote пересчитывает subtotal/shipping/total из количества.
func (p Pricing) Quote(quantity int) CartState {
	qty := ClampQuantity(quantity)
	subtotal := p.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
	shipping := decimal.Zero
	if qty < p.FreeShippingFrom {
		shipping = p.ShippingFee
	}

	return CartState{
		Quantity: qty,
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}

// DefaultCartState возвращает корзину, которую видит пользователь при первом визите.
func DefaultCartState() CartState {
	return DefaultPricing().Quote(1)
}

// Equal сравнивает корзины по значению, а не по представлению decimal.
func (c CartState) Equal(other CartState) bool {
	return c.Quantity == other.Quantity &&
		c.Subtotal.Equal(other.Subtotal) &&
		c.Shipping.Equal(other.Shipping) &&
		c.Total.Equal(other.Total)
}

func (c CartState) String() string {
	return fmt.Sprintf("qty=%d subtotal=%s shipping=%s total=%s",
		c.Quantity, FormatCHF(c.Subtotal), FormatCHF(c.Shipping), FormatCHF(c.Total))
}

// cartStateWire хранит суммы числами, без версии схемы.
type cartStateWire struct {
	Qty      int         `json:"qty"`
	Subtotal json.Number `json:"subtotal"`
	Shipping json.Number `json:"shipping"`
	Total    json.Number `json:"total"`
}

// MarshalJSON сериализует корзину как {"qty":1,"subtotal":5.95,...}.
func (c CartState) MarshalJSON() ([]byte, error) {
	return json.Marshal(cartStateWire{
		Qty:      c.Quantity,
		Subtotal: json.Number(c.Subtotal.String()),
		Shipping: json.Number(c.Shipping.String()),
		Total:    json.Number(c.Total.String()),
	})
}

// UnmarshalJSON разбирает сохранённую корзину. Отсутствующие суммы или qty < 1
// считаются повреждёнными данными.
func (c *CartState) UnmarshalJSON(data []byte) error {
	var wire struct {
		Qty      *int             `json:"qty"`
		Subtotal *decimal.Decimal `json:"subtotal"`
		Shipping *decimal.Decimal `json:"shipping"`
		Total    *decimal.Decimal `json:"total"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrCartMalformed, err)
	}

	switch {
	case wire.Qty == nil || *wire.Qty < 1:
		return fmt.Errorf("%w: qty must be >= 1", ErrCartMalformed)
	case wire.Subtotal == nil, wire.Shipping == nil, wire.Total == nil:
		return fmt.Errorf("%w: amounts are missing", ErrCartMalformed)
	}

	*c = CartState{
		Quantity: *wire.Qty,
		Subtotal: *wire.Subtotal,
		Shipping: *wire.Shipping,
		Total:    *wire.Total,
	}
	return nil
}
