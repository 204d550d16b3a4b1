package domain

import "github.com/shopspring/decimal"

// Currency магазина, другой нет.
const Currency = "CHF"

// FormatCHF форматирует сумму как "CHF 9.90": всегда два знака, без разделителей тысяч.
func FormatCHF(amount decimal.Decimal) string {
	return Currency + " " + amount.StringFixed(2)
}

// ToMinor переводит сумму в раппены (минимальные единицы) для платёжных провайдеров.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
