package payhere

import "strings"

type Currency string

const (
	CurrencyLKR Currency = "LKR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// SupportedCurrencies lists the currencies accepted for checkout, in display order
var SupportedCurrencies = []Currency{CurrencyLKR, CurrencyUSD, CurrencyEUR, CurrencyGBP}

// ParseCurrency validates a currency code against SupportedCurrencies.
// Surrounding whitespace and case are ignored.
func ParseCurrency(s string) (Currency, error) {
	code := Currency(strings.ToUpper(strings.TrimSpace(s)))
	for _, c := range SupportedCurrencies {
		if c == code {
			return c, nil
		}
	}
	return "", &ValidationError{
		Field:  "currency",
		Value:  s,
		Reason: "must be one of LKR, USD, EUR, GBP",
		Err:    ErrUnsupportedCurrency,
	}
}
