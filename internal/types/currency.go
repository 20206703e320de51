package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyConfig holds the display precision for a currency
type CurrencyConfig struct {
	Precision int32
	Symbol    string
}

// DefaultCurrencyPrecision is used for currencies not in the table
const DefaultCurrencyPrecision int32 = 2

var currencyConfigs = map[string]CurrencyConfig{
	"usd": {Precision: 2, Symbol: "$"},
	"eur": {Precision: 2, Symbol: "€"},
	"gbp": {Precision: 2, Symbol: "£"},
	"cad": {Precision: 2, Symbol: "$"},
	"aud": {Precision: 2, Symbol: "$"},
	"inr": {Precision: 2, Symbol: "₹"},
	"jpy": {Precision: 0, Symbol: "¥"},
	"krw": {Precision: 0, Symbol: "₩"},
	"kwd": {Precision: 3, Symbol: "د.ك"},
	"bhd": {Precision: 3, Symbol: ".د.ب"},
}

// GetCurrencyConfig returns the config for a currency code
func GetCurrencyConfig(currency string) CurrencyConfig {
	if config, ok := currencyConfigs[strings.ToLower(currency)]; ok {
		return config
	}
	return CurrencyConfig{Precision: DefaultCurrencyPrecision, Symbol: currency}
}

// GetCurrencyPrecision returns the display precision for a currency code
func GetCurrencyPrecision(currency string) int32 {
	return GetCurrencyConfig(currency).Precision
}

// RoundToCurrencyPrecision rounds an amount to the currency's precision.
// shopspring's Round rounds half away from zero, which for the positive
// amounts flowing through billing matches round-half-up.
func RoundToCurrencyPrecision(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(GetCurrencyPrecision(currency))
}

// IsMatchingCurrency compares currency codes case-insensitively
func IsMatchingCurrency(a, b string) bool {
	return strings.EqualFold(a, b)
}
