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
	ErrAssignmentNotFound = errors.New("hospitality assignment not found")
	ErrAssignmentConflict = errors.New("hospitality is already assigned to this scope")
)

type HospitalityAssignmentRepository interface {
	// FindActiveAtLevel returns the active hospitality items assigned
	// exactly at the level's probe scope. Inactive items are skipped.
	FindActiveAtLevel(ctx context.Context, scope models.ScopeTuple, level models.Level) ([]models.ResolvedHospitality, error)
	Upsert(ctx context.Context, a *models.HospitalityAssignment) (created bool, err error)
	Deactivate(ctx context.Context, id int64, updatedBy *int) (*models.HospitalityAssignment, error)
	CountActiveByLevel(ctx context.Context) (map[models.Level]int, error)
}

const assignmentColumns = `id, hospitality_id, sport_type, tournament_id, team_id, event_id, ticket_id,
	level, is_active, created_by, updated_by, created_at, updated_at`

type postgresHospitalityAssignmentRepository struct {
	db *sqlx.DB
}

func NewPostgresHospitalityAssignmentRepository(db *sqlx.DB) HospitalityAssignmentRepository {
	return &postgresHospitalityAssignmentRepository{db: db}
}

func (r *postgresHospitalityAssignmentRepository) FindActiveAtLevel(ctx context.Context, scope models.ScopeTuple, level models.Level) ([]models.ResolvedHospitality, error) {
	probe, ok := scope.AtLevel(level)
	if !ok {
		return nil, nil
	}

	// Имена колонок совпадают у обеих таблиц, поэтому сопоставление по области идёт через подзапрос.
	query := `SELECT h.id AS hospitality_id, h.name AS hospitality_name, h.description AS hospitality_description,
			a.level, 'hospitality_assignments' AS source, h.sort_order, h.icon_key
		FROM (SELECT hospitality_id, level FROM hospitality_assignments
			WHERE is_active AND level = $1 AND ` + scopeMatch(2) + `) a
		JOIN hospitalities h ON h.id = a.hospitality_id
		WHERE h.is_active
		ORDER BY h.sort_order, h.id`

	args := append([]interface{}{level}, scopeArgs(probe)...)
	items := make([]models.ResolvedHospitality, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query hospitality assignments at %s level: %w", level, err)
	}
	return items, nil
}

func (r *postgresHospitalityAssignmentRepository) Upsert(ctx context.Context, a *models.HospitalityAssignment) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockScope(ctx, tx, fmt.Sprintf("hospitality_assignments:%d", a.HospitalityID), a.ScopeTuple); err != nil {
		return false, err
	}

	args := append([]interface{}{a.HospitalityID}, scopeArgs(a.ScopeTuple)...)
	var existingID int64
	err = tx.GetContext(ctx, &existingID,
		`SELECT id FROM hospitality_assignments WHERE is_active AND hospitality_id = $1 AND `+scopeMatch(2)+` FOR UPDATE`,
		args...)
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
		query := `INSERT INTO hospitality_assignments (hospitality_id, sport_type, tournament_id, team_id, event_id, ticket_id,
				level, is_active, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8)
			RETURNING ` + assignmentColumns
		err = tx.GetContext(ctx, a, query,
			a.HospitalityID, a.SportType, a.TournamentID, a.TeamID, a.EventID, a.TicketID, a.Level, a.UpdatedBy)
	case err == nil:
		// Назначение уже активно, только обновляем аудит.
		query := `UPDATE hospitality_assignments SET updated_by = $1, updated_at = NOW() WHERE id = $2
			RETURNING ` + assignmentColumns
		err = tx.GetContext(ctx, a, query, a.UpdatedBy, existingID)
	default:
		return false, fmt.Errorf("failed to check existing assignment: %w", err)
	}
	if err != nil {
		switch code, _ := pqErrorCode(err); code {
		case pgUniqueViolation:
			return false, ErrAssignmentConflict
		case pgForeignKeyViolation:
			return false, ErrHospitalityNotFound
		}
		return false, fmt.Errorf("failed to save hospitality assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit hospitality assignment: %w", err)
	}
	return created, nil
}

func (r *postgresHospitalityAssignmentRepository) Deactivate(ctx context.Context, id int64, updatedBy *int) (*models.HospitalityAssignment, error) {
	query := `UPDATE hospitality_assignments SET is_active = FALSE, updated_by = $2, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING ` + assignmentColumns

	var a models.HospitalityAssignment
	if err := r.db.GetContext(ctx, &a, query, id, updatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *postgresHospitalityAssignmentRepository) CountActiveByLevel(ctx context.Context) (map[models.Level]int, error) {
	return countActiveByLevel(ctx, r.db, "hospitality_assignments")
}
