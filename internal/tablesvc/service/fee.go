package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/avvvet/danggoo-services/internal/tablesvc/models"
	"github.com/avvvet/danggoo-services/internal/tablesvc/store"
	"github.com/shopspring/decimal"
)

// SettingsReader is the part of the store the fee calculator needs.
type SettingsReader interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
}

type FeeCalculator struct {
	settings SettingsReader
}

func NewFeeCalculator(settings SettingsReader) *FeeCalculator {
	return &FeeCalculator{settings: settings}
}

// Rate returns the fee per minute in effect, or the default when none is stored.
func (f *FeeCalculator) Rate(ctx context.Context) (decimal.Decimal, error) {
	st, err := f.settings.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.DefaultFeePerMinute, nil
		}
		return decimal.Zero, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return st.FeePerMinute, nil
}

// Fee prices playtime minutes at the current rate.
func (f *FeeCalculator) Fee(ctx context.Context, playtime int) (decimal.Decimal, error) {
	rate, err := f.Rate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return FeeFor(playtime, rate), nil
}

// FeeFor is playtime * rate. Non-positive playtime costs nothing.
func FeeFor(playtime int, rate decimal.Decimal) decimal.Decimal {
	if playtime <= 0 {
		return decimal.Zero
	}
	return rate.Mul(decimal.NewFromInt(int64(playtime)))
}

// Playtime is the number of whole minutes between start and end, never negative.
func Playtime(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d.Minutes()))
}

// ValidRate reports whether rate is accepted as a fee per minute.
func ValidRate(rate decimal.Decimal) bool {
	return rate.IsPositive() && rate.LessThanOrEqual(models.MaxFeePerMinute)
}
