package models

import "github.com/shopspring/decimal"

// BaseCurrency is the currency fixed markups are stored in.
const BaseCurrency = "USD"

type Currency struct {
	Code      string `json:"code" db:"code"`
	Name      string `json:"name" db:"name"`
	Symbol    string `json:"symbol" db:"symbol"`
	IsActive  bool   `json:"is_active" db:"is_active"`
	IsDefault bool   `json:"is_default" db:"is_default"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
}

// ConversionResult is the outcome of converting an amount between currencies.
// When HasConversion is false, Amount is the original amount in the original
// currency and Currency is that original currency.
type ConversionResult struct {
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Rate             decimal.Decimal `json:"rate"`
	HasConversion    bool            `json:"has_conversion"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
}
