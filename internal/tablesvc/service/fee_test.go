package service

import (
	"context"
	"testing"
	"time"

	"github.com/avvvet/danggoo-services/internal/tablesvc/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaytime(t *testing.T) {
	start := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"exact minutes", start.Add(10 * time.Minute), 10},
		{"floors partial minute", start.Add(10*time.Minute + 59*time.Second), 10},
		{"under a minute", start.Add(30 * time.Second), 0},
		{"same instant", start, 0},
		{"clock went backwards", start.Add(-5 * time.Minute), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Playtime(start, tt.end))
		})
	}
}

func TestFeeFor(t *testing.T) {
	rate := decimal.NewFromFloat(0.5)

	assert.True(t, decimal.NewFromInt(5).Equal(FeeFor(10, rate)))
	assert.True(t, decimal.Zero.Equal(FeeFor(0, rate)))
	assert.True(t, decimal.Zero.Equal(FeeFor(-3, rate)))
}

func TestFeeCalculatorUsesStoredRate(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemStore()
	calc := NewFeeCalculator(m)

	rate, err := calc.Rate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.5", rate.String(), "default applies when no settings row exists")

	_, err = m.SaveFeePerMinute(ctx, decimal.NewFromFloat(1.25))
	require.NoError(t, err)

	fee, err := calc.Fee(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "5", fee.String())
}

func TestValidRate(t *testing.T) {
	assert.True(t, ValidRate(decimal.NewFromFloat(0.01)))
	assert.True(t, ValidRate(decimal.NewFromInt(1000)))
	assert.False(t, ValidRate(decimal.Zero))
	assert.False(t, ValidRate(decimal.NewFromInt(-1)))
	assert.False(t, ValidRate(decimal.NewFromFloat(1000.01)))
}
