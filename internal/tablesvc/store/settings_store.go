package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/danggoo-services/internal/tablesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// GetSettings returns the settings row in effect, the one with the lowest id.
func (s *GameStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	st := &models.Settings{}
	err := s.db.QueryRow(ctx, `
		SELECT id, fee_per_minute
		FROM settings
		ORDER BY id
		LIMIT 1
	`).Scan(&st.ID, &st.FeePerMinute)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return st, nil
}

// SaveFeePerMinute updates the row in effect, creating it when none exists.
func (s *GameStore) SaveFeePerMinute(ctx context.Context, rate decimal.Decimal) (*models.Settings, error) {
	st := &models.Settings{}
	err := runTx(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE settings
			SET fee_per_minute = $1
			WHERE id = (SELECT id FROM settings ORDER BY id LIMIT 1 FOR UPDATE)
			RETURNING id, fee_per_minute
		`, rate).Scan(&st.ID, &st.FeePerMinute)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update settings: %w", err)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO settings (fee_per_minute)
			VALUES ($1)
			RETURNING id, fee_per_minute
		`, rate).Scan(&st.ID, &st.FeePerMinute)
		if err != nil {
			return fmt.Errorf("insert settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
