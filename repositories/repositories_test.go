package repositories

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/ticket-overlays/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return sqlx.NewDb(conn, "postgres"), mock
}

func sp(s string) *string { return &s }

func fullScope() models.ScopeTuple {
	return models.ScopeTuple{SportType: "football", TournamentID: sp("epl"), TeamID: sp("ars"), EventID: sp("e1"), TicketID: sp("t1")}
}

// scopeSQL is the exact-match clause with placeholders starting at first.
func scopeSQL(first int) string {
	return regexp.QuoteMeta(scopeMatch(first))
}

func TestScopeMatch(t *testing.T) {
	assert.Equal(t,
		"sport_type = $2 AND tournament_id IS NOT DISTINCT FROM $3 AND team_id IS NOT DISTINCT FROM $4 "+
			"AND event_id IS NOT DISTINCT FROM $5 AND ticket_id IS NOT DISTINCT FROM $6",
		scopeMatch(2))
}

func TestMarkupRuleRepository_FindActiveAtLevel(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMarkupRuleRepository(db)

	// Tournament level lookup: deeper fields must be NULL, not wildcards.
	mock.ExpectQuery(`FROM markup_rules WHERE is_active AND level = \$1 AND `+scopeSQL(2)+` ORDER BY id`).
		WithArgs("tournament", "football", "epl", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sport_type", "tournament_id", "level", "markup_type", "markup_amount", "is_active"}).
			AddRow(int64(11), "football", "epl", "tournament", "percentage", "7.5", true))

	rules, err := repo.FindActiveAtLevel(context.Background(), fullScope(), models.LevelTournament)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, int64(11), rules[0].ID)
	assert.Equal(t, models.LevelTournament, rules[0].Level)
	assert.Equal(t, models.MarkupPercentage, rules[0].MarkupType)
	assert.True(t, rules[0].MarkupAmount.Equal(decimal.RequireFromString("7.5")))
	assert.Nil(t, rules[0].TeamID)
}

func TestMarkupRuleRepository_FindActiveAtEventLevelCarriesTeam(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMarkupRuleRepository(db)

	mock.ExpectQuery(`FROM markup_rules WHERE is_active AND level = \$1 AND ` + scopeSQL(2)).
		WithArgs("event", "football", "epl", "ars", "e1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rules, err := repo.FindActiveAtLevel(context.Background(), fullScope(), models.LevelEvent)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestMarkupRuleRepository_FindActiveAtLevelSkipsMissingLevel(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewPostgresMarkupRuleRepository(db)

	// Без турнира уровень команды не проверяется, запроса быть не должно.
	scope := models.ScopeTuple{SportType: "tennis", TeamID: sp("p1"), EventID: sp("e9"), TicketID: sp("t9")}
	rules, err := repo.FindActiveAtLevel(context.Background(), scope, models.LevelTeam)
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func expectScopeLock(mock sqlmock.Sqlmock, key string) {
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WithArgs(key).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func tournamentRule(updatedBy int) *models.MarkupRule {
	return &models.MarkupRule{
		ScopeTuple:   models.ScopeTuple{SportType: "football", TournamentID: sp("epl")},
		Level:        models.LevelTournament,
		MarkupType:   models.MarkupFixed,
		MarkupAmount: decimal.RequireFromString("12.5"),
		UpdatedBy:    &updatedBy,
	}
}

func TestMarkupRuleRepository_UpsertInserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMarkupRuleRepository(db)
	rule := tournamentRule(7)

	mock.ExpectBegin()
	expectScopeLock(mock, "markup_rules:football|epl|-|-|-")
	mock.ExpectQuery(`SELECT id FROM markup_rules WHERE is_active AND ` + scopeSQL(1) + ` FOR UPDATE`).
		WithArgs("football", "epl", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO markup_rules`).
		WithArgs("football", "epl", nil, nil, nil, "tournament", "fixed", rule.MarkupAmount,
			nil, nil, nil, nil, nil, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "level", "markup_type", "markup_amount", "is_active"}).
			AddRow(int64(21), "tournament", "fixed", "12.5", true))
	mock.ExpectCommit()

	created, err := repo.Upsert(context.Background(), rule)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(21), rule.ID)
	assert.True(t, rule.IsActive)
}

func TestMarkupRuleRepository_UpsertUpdatesExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMarkupRuleRepository(db)
	rule := tournamentRule(8)

	mock.ExpectBegin()
	expectScopeLock(mock, "markup_rules:football|epl|-|-|-")
	mock.ExpectQuery(`SELECT id FROM markup_rules`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))
	mock.ExpectQuery(`UPDATE markup_rules SET markup_type = \$1, markup_amount = \$2`).
		WithArgs("fixed", rule.MarkupAmount, nil, nil, nil, nil, nil, 8, int64(21)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active"}).AddRow(int64(21), true))
	mock.ExpectCommit()

	created, err := repo.Upsert(context.Background(), rule)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(21), rule.ID)
}

func TestMarkupRuleRepository_UpsertConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMarkupRuleRepository(db)

	mock.ExpectBegin()
	expectScopeLock(mock, "markup_rules:football|epl|-|-|-")
	mock.ExpectQuery(`SELECT id FROM markup_rules`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO markup_rules`).WillReturnError(&pq.Error{Code: pgUniqueViolation})
	mock.ExpectRollback()

	_, err := repo.Upsert(context.Background(), tournamentRule(7))
	assert.ErrorIs(t, err, ErrMarkupRuleConflict)
}

func TestMarkupRuleRepository_DeactivateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMarkupRuleRepository(db)

	mock.ExpectQuery(`UPDATE markup_rules SET is_active = FALSE`).
		WithArgs(int64(99), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Deactivate(context.Background(), 99, nil)
	assert.ErrorIs(t, err, ErrMarkupRuleNotFound)
}

func TestMarkupRuleRepository_CountActiveByLevel(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresMarkupRuleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT level, COUNT(*) AS total FROM markup_rules WHERE is_active GROUP BY level`)).
		WillReturnRows(sqlmock.NewRows([]string{"level", "total"}).AddRow("sport", int64(3)).AddRow("ticket", int64(1)))

	counts, err := repo.CountActiveByLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[models.Level]int{
		models.LevelSport: 3, models.LevelTournament: 0, models.LevelTeam: 0, models.LevelEvent: 0, models.LevelTicket: 1,
	}, counts)
}

func TestAssignmentRepository_FindActiveAtTicketLevel(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresHospitalityAssignmentRepository(db)

	mock.ExpectQuery(`FROM hospitality_assignments WHERE is_active AND level = \$1 AND ` + scopeSQL(2) + `\) a JOIN hospitalities h`).
		WithArgs("ticket", "football", "epl", "ars", "e1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"hospitality_id", "hospitality_name", "hospitality_description", "level", "source", "sort_order", "icon_key"}).
			AddRow(int64(1), "VIP Lounge", "", "ticket", "hospitality_assignments", int64(0), "hospitality-icons/1/a.png"))

	items, err := repo.FindActiveAtLevel(context.Background(), fullScope(), models.LevelTicket)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.SourceHospitalityAssignments, items[0].Source)
	require.NotNil(t, items[0].IconKey)
	assert.Equal(t, "hospitality-icons/1/a.png", *items[0].IconKey)
}

func TestAssignmentRepository_UpsertUnknownHospitality(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresHospitalityAssignmentRepository(db)
	actor := 7
	a := &models.HospitalityAssignment{
		HospitalityID: 3,
		ScopeTuple:    models.ScopeTuple{SportType: "football"},
		Level:         models.LevelSport,
		UpdatedBy:     &actor,
	}

	mock.ExpectBegin()
	expectScopeLock(mock, "hospitality_assignments:3:football|-|-|-|-")
	mock.ExpectQuery(`SELECT id FROM hospitality_assignments WHERE is_active AND hospitality_id = \$1 AND ` + scopeSQL(2)).
		WithArgs(int64(3), "football", nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO hospitality_assignments`).WillReturnError(&pq.Error{Code: pgForeignKeyViolation})
	mock.ExpectRollback()

	_, err := repo.Upsert(context.Background(), a)
	assert.ErrorIs(t, err, ErrHospitalityNotFound)
}

func TestLegacyRepository_GetTicketMarkup(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresLegacyRepository(db)

	mock.ExpectQuery(`FROM ticket_markups WHERE event_id = \$1 AND ticket_id = \$2`).
		WithArgs("e1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "ticket_id", "markup_type", "markup_percentage", "base_price_usd", "final_price_usd"}).
			AddRow("e1", "t1", "percentage", nil, "200.00", "220.00"))
	mock.ExpectQuery(`FROM ticket_markups`).
		WithArgs("e1", "t2").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))

	m, err := repo.GetTicketMarkup(context.Background(), "e1", "t1")
	require.NoError(t, err)
	assert.False(t, m.MarkupPercentage.Valid)
	assert.Equal(t, "10", m.Amount().String())

	_, err = repo.GetTicketMarkup(context.Background(), "e1", "t2")
	assert.ErrorIs(t, err, ErrTicketMarkupNotFound)
}
