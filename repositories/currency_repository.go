package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/ticket-overlays/models"
	"github.com/jmoiron/sqlx"
)

var ErrCurrencyNotFound = errors.New("currency not found")

type CurrencyRepository interface {
	ListActive(ctx context.Context) ([]models.Currency, error)
	GetDefault(ctx context.Context) (*models.Currency, error)
}

type postgresCurrencyRepository struct {
	db *sqlx.DB
}

func NewPostgresCurrencyRepository(db *sqlx.DB) CurrencyRepository {
	return &postgresCurrencyRepository{db: db}
}

func (r *postgresCurrencyRepository) ListActive(ctx context.Context) ([]models.Currency, error) {
	query := `SELECT code, name, symbol, is_active, is_default, sort_order
		FROM currencies WHERE is_active ORDER BY sort_order, code`

	currencies := make([]models.Currency, 0)
	if err := r.db.SelectContext(ctx, &currencies, query); err != nil {
		return nil, err
	}
	return currencies, nil
}

func (r *postgresCurrencyRepository) GetDefault(ctx context.Context) (*models.Currency, error) {
	query := `SELECT code, name, symbol, is_active, is_default, sort_order
		FROM currencies WHERE is_default AND is_active LIMIT 1`

	var c models.Currency
	if err := r.db.GetContext(ctx, &c, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCurrencyNotFound
		}
		return nil, err
	}
	return &c, nil
}
