package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Суммы отдаём числами, а не строками.
	decimal.MarshalJSONWithoutQuotes = true
}

type MarkupType string

const (
	MarkupFixed      MarkupType = "fixed"
	MarkupPercentage MarkupType = "percentage"
)

func (t MarkupType) Valid() bool {
	return t == MarkupFixed || t == MarkupPercentage
}

// Source tells which table satisfied a lookup.
type Source string

const (
	SourceLegacy                 Source = "legacy"
	SourceMarkupRules            Source = "markup_rules"
	SourceHospitalityAssignments Source = "hospitality_assignments"
)

// MarkupRule is a hierarchical markup configured at one scope.
type MarkupRule struct {
	ID int64 `json:"id" db:"id"`
	ScopeTuple
	Level        Level           `json:"level" db:"level"`
	MarkupType   MarkupType      `json:"markup_type" db:"markup_type"`
	MarkupAmount decimal.Decimal `json:"markup_amount" db:"markup_amount"`

	SportName      *string `json:"sport_name,omitempty" db:"sport_name"`
	TournamentName *string `json:"tournament_name,omitempty" db:"tournament_name"`
	TeamName       *string `json:"team_name,omitempty" db:"team_name"`
	EventName      *string `json:"event_name,omitempty" db:"event_name"`
	TicketName     *string `json:"ticket_name,omitempty" db:"ticket_name"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedBy *int      `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy *int      `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TicketMarkup is a row of the legacy flat per-ticket markup table.
type TicketMarkup struct {
	EventID          string              `json:"event_id" db:"event_id"`
	TicketID         string              `json:"ticket_id" db:"ticket_id"`
	MarkupType       MarkupType          `json:"markup_type" db:"markup_type"`
	MarkupPercentage decimal.NullDecimal `json:"markup_percentage" db:"markup_percentage"`
	BasePriceUSD     decimal.Decimal     `json:"base_price_usd" db:"base_price_usd"`
	FinalPriceUSD    decimal.Decimal     `json:"final_price_usd" db:"final_price_usd"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
}

// Amount is the markup the legacy row expresses in the unit of its type: a
// percentage for percentage rows, a USD amount for fixed rows. A percentage row
// without a stored percentage derives it from the two prices.
func (m TicketMarkup) Amount() decimal.Decimal {
	diff := m.FinalPriceUSD.Sub(m.BasePriceUSD)
	if m.MarkupType != MarkupPercentage {
		return diff
	}
	if m.MarkupPercentage.Valid {
		return m.MarkupPercentage.Decimal
	}
	if m.BasePriceUSD.IsZero() {
		return decimal.Zero
	}
	return diff.Div(m.BasePriceUSD).Mul(decimal.NewFromInt(100)).Round(4)
}

// EffectiveMarkup is the resolved markup for a ticket, whichever table it came from.
type EffectiveMarkup struct {
	Level        Level           `json:"level"`
	Source       Source          `json:"source"`
	MarkupType   MarkupType      `json:"markup_type"`
	MarkupAmount decimal.Decimal `json:"markup_amount"`
	RuleID       *int64          `json:"rule_id,omitempty"`

	// Only set for source = legacy.
	BasePriceUSD  *decimal.Decimal `json:"base_price_usd,omitempty"`
	FinalPriceUSD *decimal.Decimal `json:"final_price_usd,omitempty"`

	Converted *ConversionResult `json:"converted,omitempty"`
}

func EffectiveFromRule(r MarkupRule) *EffectiveMarkup {
	id := r.ID
	return &EffectiveMarkup{
		Level:        r.Level,
		Source:       SourceMarkupRules,
		MarkupType:   r.MarkupType,
		MarkupAmount: r.MarkupAmount,
		RuleID:       &id,
	}
}

func EffectiveFromLegacy(m TicketMarkup) *EffectiveMarkup {
	base, final := m.BasePriceUSD, m.FinalPriceUSD
	return &EffectiveMarkup{
		Level:         LevelTicket,
		Source:        SourceLegacy,
		MarkupType:    m.MarkupType,
		MarkupAmount:  m.Amount(),
		BasePriceUSD:  &base,
		FinalPriceUSD: &final,
	}
}
