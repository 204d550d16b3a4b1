package cart

import (
	"strconv"

	"github.com/airrecover/storefront/internal/domain"
)

// View — текст, который виджет показывает пользователю.
type View struct {
	Quantity  string
	LineTotal string
	Subtotal  string
	Shipping  string
	Total     string
}

// Render переводит корзину в отображаемые строки ("CHF 9.90").
func Render(state domain.CartState) View {
	subtotal := domain.FormatCHF(state.Subtotal)
	return View{
		Quantity:  strconv.Itoa(state.Quantity),
		LineTotal: subtotal,
		Subtotal:  subtotal,
		Shipping:  domain.FormatCHF(state.Shipping),
		Total:     domain.FormatCHF(state.Total),
	}
}

// displayedQuantity читает количество из отображения; нечисловое значение даёт 1.
func (v View) displayedQuantity() int {
	qty, err := strconv.Atoi(v.Quantity)
	if err != nil || qty == 0 {
		return 1
	}
	return qty
}
