package shared

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept for balances and amounts
const MoneyScale = 2

// ValidateAmount rejects non-positive amounts and amounts with sub-cent precision
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return ErrInvalidAmount
	}
	return nil
}

// NormalizeCurrency upper-cases a currency code and falls back to DefaultCurrency when empty
func NormalizeCurrency(currency string) (string, error) {
	if currency == "" {
		return DefaultCurrency, nil
	}
	if len(currency) != 3 {
		return "", ErrInvalidCurrency
	}
	return strings.ToUpper(currency), nil
}
