package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/jmoiron/sqlx"
)

var ErrTicketMarkupNotFound = errors.New("legacy ticket markup not found")

// LegacyRepository reads the flat per-ticket tables that predate the
// hierarchical rules. The tables are read-only.
type LegacyRepository interface {
	GetTicketMarkup(ctx context.Context, eventID, ticketID string) (*models.TicketMarkup, error)
	// FindTicketMarkupsByTicket is used by the legacy endpoint that only
	// knows the ticket id; the newest row comes first.
	FindTicketMarkupsByTicket(ctx context.Context, ticketID string) ([]models.TicketMarkup, error)
	ListTicketHospitalities(ctx context.Context, eventID, ticketID string) ([]models.ResolvedHospitality, error)
	ListEventHospitalities(ctx context.Context, eventID string) (map[string][]models.ResolvedHospitality, error)
	// Counts returns the number of legacy markup rows and hospitality links.
	Counts(ctx context.Context) (markups int, hospitalities int, err error)
}

const ticketMarkupColumns = `event_id, ticket_id, markup_type, markup_percentage, base_price_usd, final_price_usd, created_at`

type postgresLegacyRepository struct {
	db *sqlx.DB
}

func NewPostgresLegacyRepository(db *sqlx.DB) LegacyRepository {
	return &postgresLegacyRepository{db: db}
}

func (r *postgresLegacyRepository) GetTicketMarkup(ctx context.Context, eventID, ticketID string) (*models.TicketMarkup, error) {
	query := `SELECT ` + ticketMarkupColumns + ` FROM ticket_markups WHERE event_id = $1 AND ticket_id = $2`

	var m models.TicketMarkup
	if err := r.db.GetContext(ctx, &m, query, eventID, ticketID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketMarkupNotFound
		}
		return nil, fmt.Errorf("failed to query legacy markup for ticket %s: %w", ticketID, err)
	}
	return &m, nil
}

func (r *postgresLegacyRepository) FindTicketMarkupsByTicket(ctx context.Context, ticketID string) ([]models.TicketMarkup, error) {
	query := `SELECT ` + ticketMarkupColumns + ` FROM ticket_markups WHERE ticket_id = $1 ORDER BY created_at DESC, event_id`

	markups := make([]models.TicketMarkup, 0, 1)
	if err := r.db.SelectContext(ctx, &markups, query, ticketID); err != nil {
		return nil, err
	}
	return markups, nil
}

const legacyHospitalitySelect = `SELECT th.ticket_id, h.id AS hospitality_id, h.name AS hospitality_name,
		h.description AS hospitality_description, 'ticket' AS level, 'legacy' AS source, h.sort_order, h.icon_key
	FROM ticket_hospitalities th
	JOIN hospitalities h ON h.id = th.hospitality_id
	WHERE h.is_active AND th.event_id = $1`

type legacyHospitalityRow struct {
	TicketID string `db:"ticket_id"`
	models.ResolvedHospitality
}

func (r *postgresLegacyRepository) ListTicketHospitalities(ctx context.Context, eventID, ticketID string) ([]models.ResolvedHospitality, error) {
	query := legacyHospitalitySelect + ` AND th.ticket_id = $2 ORDER BY h.sort_order, h.id`

	var rows []legacyHospitalityRow
	if err := r.db.SelectContext(ctx, &rows, query, eventID, ticketID); err != nil {
		return nil, fmt.Errorf("failed to query legacy hospitalities for ticket %s: %w", ticketID, err)
	}
	items := make([]models.ResolvedHospitality, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.ResolvedHospitality)
	}
	return items, nil
}

func (r *postgresLegacyRepository) ListEventHospitalities(ctx context.Context, eventID string) (map[string][]models.ResolvedHospitality, error) {
	query := legacyHospitalitySelect + ` ORDER BY th.ticket_id, h.sort_order, h.id`

	var rows []legacyHospitalityRow
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to query legacy hospitalities for event %s: %w", eventID, err)
	}
	byTicket := make(map[string][]models.ResolvedHospitality)
	for _, row := range rows {
		byTicket[row.TicketID] = append(byTicket[row.TicketID], row.ResolvedHospitality)
	}
	return byTicket, nil
}

func (r *postgresLegacyRepository) Counts(ctx context.Context) (int, int, error) {
	var counts struct {
		Markups       int `db:"markups"`
		Hospitalities int `db:"hospitalities"`
	}
	query := `SELECT (SELECT COUNT(*) FROM ticket_markups) AS markups,
		(SELECT COUNT(*) FROM ticket_hospitalities) AS hospitalities`
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return 0, 0, fmt.Errorf("failed to count legacy rows: %w", err)
	}
	return counts.Markups, counts.Hospitalities, nil
}
