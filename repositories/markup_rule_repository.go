package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/jmoiron/sqlx"
)

var (
	ErrMarkupRuleNotFound = errors.New("markup rule not found")
	ErrMarkupRuleConflict = errors.New("an active markup rule already exists for this scope")
)

type MarkupRuleRepository interface {
	// FindActiveAtLevel returns every active rule whose scope equals the
	// probe for the level. More than one row means the uniqueness
	// invariant is broken; callers decide how to report it.
	FindActiveAtLevel(ctx context.Context, scope models.ScopeTuple, level models.Level) ([]models.MarkupRule, error)
	GetByID(ctx context.Context, id int64) (*models.MarkupRule, error)
	ListActive(ctx context.Context, sportType string) ([]models.MarkupRule, error)
	Upsert(ctx context.Context, rule *models.MarkupRule) (created bool, err error)
	Deactivate(ctx context.Context, id int64, updatedBy *int) (*models.MarkupRule, error)
	CountActiveByLevel(ctx context.Context) (map[models.Level]int, error)
}

const markupRuleColumns = `id, sport_type, tournament_id, team_id, event_id, ticket_id, level,
	markup_type, markup_amount, sport_name, tournament_name, team_name, event_name, ticket_name,
	is_active, created_by, updated_by, created_at, updated_at`

type postgresMarkupRuleRepository struct {
	db *sqlx.DB
}

func NewPostgresMarkupRuleRepository(db *sqlx.DB) MarkupRuleRepository {
	return &postgresMarkupRuleRepository{db: db}
}

func (r *postgresMarkupRuleRepository) FindActiveAtLevel(ctx context.Context, scope models.ScopeTuple, level models.Level) ([]models.MarkupRule, error) {
	probe, ok := scope.AtLevel(level)
	if !ok {
		return nil, nil
	}

	query := `SELECT ` + markupRuleColumns + ` FROM markup_rules
		WHERE is_active AND level = $1 AND ` + scopeMatch(2) + `
		ORDER BY id`

	args := append([]interface{}{level}, scopeArgs(probe)...)
	rules := make([]models.MarkupRule, 0, 1)
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query markup rules at %s level: %w", level, err)
	}
	return rules, nil
}

func (r *postgresMarkupRuleRepository) GetByID(ctx context.Context, id int64) (*models.MarkupRule, error) {
	query := `SELECT ` + markupRuleColumns + ` FROM markup_rules WHERE id = $1`

	var rule models.MarkupRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMarkupRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (r *postgresMarkupRuleRepository) ListActive(ctx context.Context, sportType string) ([]models.MarkupRule, error) {
	query := `SELECT ` + markupRuleColumns + ` FROM markup_rules
		WHERE is_active AND ($1 = '' OR sport_type = $1)
		ORDER BY sport_type, array_position(ARRAY['sport','tournament','team','event','ticket']::varchar[], level), id`

	rules := make([]models.MarkupRule, 0)
	if err := r.db.SelectContext(ctx, &rules, query, sportType); err != nil {
		return nil, err
	}
	return rules, nil
}

// Upsert updates the active rule of the same scope or inserts a new one.
// The advisory lock makes the check-then-write atomic across instances.
func (r *postgresMarkupRuleRepository) Upsert(ctx context.Context, rule *models.MarkupRule) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockScope(ctx, tx, "markup_rules", rule.ScopeTuple); err != nil {
		return false, err
	}

	var existingID int64
	err = tx.GetContext(ctx, &existingID,
		`SELECT id FROM markup_rules WHERE is_active AND `+scopeMatch(1)+` FOR UPDATE`,
		scopeArgs(rule.ScopeTuple)...)
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
		query := `INSERT INTO markup_rules (sport_type, tournament_id, team_id, event_id, ticket_id, level,
				markup_type, markup_amount, sport_name, tournament_name, team_name, event_name, ticket_name,
				is_active, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE, $14, $14)
			RETURNING ` + markupRuleColumns
		err = tx.GetContext(ctx, rule, query,
			rule.SportType, rule.TournamentID, rule.TeamID, rule.EventID, rule.TicketID, rule.Level,
			rule.MarkupType, rule.MarkupAmount, rule.SportName, rule.TournamentName, rule.TeamName,
			rule.EventName, rule.TicketName, rule.UpdatedBy)
	case err == nil:
		query := `UPDATE markup_rules SET markup_type = $1, markup_amount = $2,
				sport_name = $3, tournament_name = $4, team_name = $5, event_name = $6, ticket_name = $7,
				updated_by = $8, updated_at = NOW()
			WHERE id = $9
			RETURNING ` + markupRuleColumns
		err = tx.GetContext(ctx, rule, query,
			rule.MarkupType, rule.MarkupAmount, rule.SportName, rule.TournamentName, rule.TeamName,
			rule.EventName, rule.TicketName, rule.UpdatedBy, existingID)
	default:
		return false, fmt.Errorf("failed to check existing markup rule: %w", err)
	}
	if err != nil {
		if code, _ := pqErrorCode(err); code == pgUniqueViolation {
			return false, ErrMarkupRuleConflict
		}
		return false, fmt.Errorf("failed to save markup rule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit markup rule: %w", err)
	}
	return created, nil
}

func (r *postgresMarkupRuleRepository) Deactivate(ctx context.Context, id int64, updatedBy *int) (*models.MarkupRule, error) {
	query := `UPDATE markup_rules SET is_active = FALSE, updated_by = $2, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING ` + markupRuleColumns

	var rule models.MarkupRule
	if err := r.db.GetContext(ctx, &rule, query, id, updatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMarkupRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (r *postgresMarkupRuleRepository) CountActiveByLevel(ctx context.Context) (map[models.Level]int, error) {
	return countActiveByLevel(ctx, r.db, "markup_rules")
}
