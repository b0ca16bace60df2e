package models

import "github.com/shopspring/decimal"

// DefaultFeePerMinute applies when no settings row exists.
var DefaultFeePerMinute = decimal.NewFromFloat(0.5)

// MaxFeePerMinute is the upper bound accepted for the rate.
var MaxFeePerMinute = decimal.NewFromInt(1000)

type Settings struct {
	ID           int64           `json:"id"`
	FeePerMinute decimal.Decimal `json:"fee_per_minute"`
}
