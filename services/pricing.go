package services

import (
	"github.com/shopspring/decimal"

	"github.com/Dosada05/ticket-overlays/models"
)

var hundred = decimal.NewFromInt(100)

// ApplyMarkup returns the price a buyer pays for a ticket whose base price is
// base. A nil markup adds nothing. Percentage markups apply to base as is;
// fixed markups use the converted amount when a conversion succeeded and the
// stored USD amount otherwise, so base must be in the matching currency.
func ApplyMarkup(base decimal.Decimal, markup *models.EffectiveMarkup) decimal.Decimal {
	if markup == nil {
		return base
	}
	switch markup.MarkupType {
	case models.MarkupPercentage:
		return base.Add(base.Mul(markup.MarkupAmount).Div(hundred)).Round(2)
	case models.MarkupFixed:
		if markup.Converted != nil && markup.Converted.HasConversion {
			return base.Add(markup.Converted.Amount)
		}
		return base.Add(markup.MarkupAmount)
	}
	return base
}
