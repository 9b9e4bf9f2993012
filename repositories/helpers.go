package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError // Возвращаем переданную ошибку "не найдено"
	}
	return nil
}

func pqErrorCode(err error) (code string, constraint string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

// scopeMatch renders an exact match over the five scope columns with
// placeholders starting at $first. NULL only matches NULL.
func scopeMatch(first int) string {
	return fmt.Sprintf(
		"sport_type = $%d AND tournament_id IS NOT DISTINCT FROM $%d AND team_id IS NOT DISTINCT FROM $%d "+
			"AND event_id IS NOT DISTINCT FROM $%d AND ticket_id IS NOT DISTINCT FROM $%d",
		first, first+1, first+2, first+3, first+4,
	)
}

func scopeArgs(s models.ScopeTuple) []interface{} {
	return []interface{}{s.SportType, s.TournamentID, s.TeamID, s.EventID, s.TicketID}
}

type levelCount struct {
	Level models.Level `db:"level"`
	Total int          `db:"total"`
}

// countActiveByLevel counts active rows of table grouped by level. table is
// always a constant from this package.
func countActiveByLevel(ctx context.Context, db *sqlx.DB, table string) (map[models.Level]int, error) {
	rows := make([]levelCount, 0, len(models.Levels))
	query := `SELECT level, COUNT(*) AS total FROM ` + table + ` WHERE is_active GROUP BY level`
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count active rows in %s: %w", table, err)
	}
	counts := make(map[models.Level]int, len(models.Levels))
	for _, lvl := range models.Levels {
		counts[lvl] = 0
	}
	for _, row := range rows {
		counts[row.Level] = row.Total
	}
	return counts, nil
}

// lockScope serialises writers of one scope tuple for the rest of the
// transaction, so the existence check and the insert cannot interleave.
func lockScope(ctx context.Context, tx *sqlx.Tx, namespace string, scope models.ScopeTuple) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, namespace+":"+scope.Key())
	if err != nil {
		return fmt.Errorf("failed to lock scope %s: %w", scope.Key(), err)
	}
	return nil
}
