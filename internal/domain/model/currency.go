package model

import "strings"

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// PreferredPrimaries are picked, in order, as the primary currency of a
// country that issues several and flags none.
var PreferredPrimaries = []Currency{USD, EUR}

// NormalizeCurrency upper-cases and trims a user supplied currency code.
func NormalizeCurrency(code string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(code)))
}

func (c Currency) IsZero() bool {
	return c == ""
}

func (c Currency) String() string {
	return string(c)
}

type CurrencyInfo struct {
	Code      Currency `json:"code"`
	Name      string   `json:"name"`
	Symbol    string   `json:"symbol"`
	IsPrimary bool     `json:"is_primary"`
}
