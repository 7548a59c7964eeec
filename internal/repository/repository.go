package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/cofrinho-service/internal/models"
)

// ErrNotFound is returned when no rate has been stored yet
var ErrNotFound = errors.New("not found")

// RateStore persists benchmark rate observations
type RateStore interface {
	SaveRate(ctx context.Context, rate *models.KeyRate) error
	LatestRate(ctx context.Context) (*models.KeyRate, error)
}

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveRate stores a rate observation; an existing observation for the
// same series and date is overwritten.
func (r *Repository) SaveRate(ctx context.Context, rate *models.KeyRate) error {
	query := `
		INSERT INTO cofrinho.key_rates (series, rate_date, rate, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (series, rate_date) DO UPDATE SET rate = EXCLUDED.rate
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, rate.Series, rate.Date, rate.Rate.String()).
		Scan(&rate.ID, &rate.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save rate: %w", err)
	}
	return nil
}

// LatestRate retrieves the most recent rate observation
func (r *Repository) LatestRate(ctx context.Context) (*models.KeyRate, error) {
	rate := &models.KeyRate{}
	query := `
		SELECT id, series, rate_date, rate, created_at
		FROM cofrinho.key_rates
		ORDER BY rate_date DESC, id DESC
		LIMIT 1`
	err := r.db.QueryRowContext(ctx, query).
		Scan(&rate.ID, &rate.Series, &rate.Date, &rate.Rate, &rate.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find rate: %w", err)
	}
	return rate, nil
}
