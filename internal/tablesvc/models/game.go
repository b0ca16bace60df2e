package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Game is one timed play session on a table. End is nil until the game is finished.
type Game struct {
	ID       int64           `json:"id"`        // Primary key
	TableNum int             `json:"table_num"` // Physical table id
	Start    time.Time       `json:"start"`
	End      *time.Time      `json:"end"`
	Playtime int             `json:"playtime"` // Whole minutes
	Fee      decimal.Decimal `json:"fee"`
	Finished bool            `json:"finished"`
}
