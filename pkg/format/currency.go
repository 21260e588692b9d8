// Package format renders numbers for the single supported locale (pt-BR, BRL).
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Currency returns a BRL currency string with pt-BR separators (e.g., "-R$ 1.234,56").
func Currency(amount float64) string {
	formatted := NumericCurrency(math.Abs(amount))
	if amount < 0 && formatted != "0,00" {
		return "-R$ " + formatted
	}
	return "R$ " + formatted
}

// NumericCurrency returns an amount without a currency symbol but with separators (e.g., "-1.234,56").
func NumericCurrency(amount float64) string {
	return printer.Sprintf("%.2f", amount)
}

// Percent renders a percentage with two decimals, e.g. "4,26%".
func Percent(value float64) string {
	return printer.Sprintf("%.2f", value) + "%"
}
