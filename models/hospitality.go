package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Hospitality is a non-priced amenity that can be bundled with tickets.
type Hospitality struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	CreatedBy   *int      `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy   *int      `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// Устаревшее поле, движок его не читает.
	PriceUSD decimal.NullDecimal `json:"-" db:"price_usd"`

	IconKey *string `json:"-" db:"icon_key"`
	IconURL *string `json:"icon_url,omitempty" db:"-"`
}

// HospitalityAssignment attaches a hospitality item to one scope.
type HospitalityAssignment struct {
	ID int64 `json:"id" db:"id"`
	ScopeTuple
	Level         Level     `json:"level" db:"level"`
	HospitalityID int64     `json:"hospitality_id" db:"hospitality_id"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedBy     *int      `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy     *int      `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ResolvedHospitality is one entitlement visible to a ticket. It never
// carries price fields.
type ResolvedHospitality struct {
	HospitalityID int64   `json:"hospitality_id" db:"hospitality_id"`
	Name          string  `json:"hospitality_name" db:"hospitality_name"`
	Description   string  `json:"hospitality_description" db:"hospitality_description"`
	Level         Level   `json:"level" db:"level"`
	Source        Source  `json:"source" db:"source"`
	IconURL       *string `json:"icon_url,omitempty" db:"-"`

	SortOrder int     `json:"-" db:"sort_order"`
	IconKey   *string `json:"-" db:"icon_key"`
}

// TicketOverlay bundles both overlays for one ticket.
type TicketOverlay struct {
	Markup        *EffectiveMarkup      `json:"markup"`
	Hospitalities []ResolvedHospitality `json:"hospitalities"`
}
