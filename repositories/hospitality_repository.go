package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/jmoiron/sqlx"
)

var ErrHospitalityNotFound = errors.New("hospitality not found")

type HospitalityRepository interface {
	Create(ctx context.Context, item *models.Hospitality) error
	GetByID(ctx context.Context, id int64) (*models.Hospitality, error)
	ListActive(ctx context.Context) ([]models.Hospitality, error)
	UpdateIconKey(ctx context.Context, id int64, iconKey string, updatedBy *int) error
}

const hospitalityColumns = `id, name, description, is_active, sort_order, price_usd, icon_key,
	created_by, updated_by, created_at, updated_at`

type postgresHospitalityRepository struct {
	db *sqlx.DB
}

func NewPostgresHospitalityRepository(db *sqlx.DB) HospitalityRepository {
	return &postgresHospitalityRepository{db: db}
}

func (r *postgresHospitalityRepository) Create(ctx context.Context, item *models.Hospitality) error {
	query := `INSERT INTO hospitalities (name, description, is_active, sort_order, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING ` + hospitalityColumns

	return r.db.GetContext(ctx, item, query, item.Name, item.Description, item.IsActive, item.SortOrder, item.CreatedBy)
}

func (r *postgresHospitalityRepository) GetByID(ctx context.Context, id int64) (*models.Hospitality, error) {
	query := `SELECT ` + hospitalityColumns + ` FROM hospitalities WHERE id = $1`

	var item models.Hospitality
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHospitalityNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *postgresHospitalityRepository) ListActive(ctx context.Context) ([]models.Hospitality, error) {
	query := `SELECT ` + hospitalityColumns + ` FROM hospitalities WHERE is_active ORDER BY sort_order, id`

	items := make([]models.Hospitality, 0)
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *postgresHospitalityRepository) UpdateIconKey(ctx context.Context, id int64, iconKey string, updatedBy *int) error {
	query := `UPDATE hospitalities SET icon_key = $1, updated_by = $2, updated_at = NOW() WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, iconKey, updatedBy, id)
	if err != nil {
		return fmt.Errorf("failed to update icon for hospitality %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrHospitalityNotFound)
}
