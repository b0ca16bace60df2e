package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is the archived copy of a game. Records are never updated.
type Record struct {
	ID       int64           `json:"id"`
	TableNum int             `json:"table_num"`
	Date     time.Time       `json:"date"` // Start of the archived game
	Start    time.Time       `json:"start"`
	End      *time.Time      `json:"end"`
	Playtime int             `json:"playtime"`
	Fee      decimal.Decimal `json:"fee"`
}

// NewRecord copies the archivable fields of g.
func NewRecord(g *Game) *Record {
	r := &Record{
		TableNum: g.TableNum,
		Date:     g.Start,
		Start:    g.Start,
		Playtime: g.Playtime,
		Fee:      g.Fee,
	}
	if g.End != nil {
		end := *g.End
		r.End = &end
	}
	return r
}

// RecordFilter narrows a records listing. Zero values match everything.
type RecordFilter struct {
	TableNum int
	Year     int
	Month    int
	Date     *time.Time
}

func (f RecordFilter) Match(r *Record) bool {
	if f.TableNum != 0 && r.TableNum != f.TableNum {
		return false
	}
	if f.Year != 0 && r.Date.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(r.Date.Month()) != f.Month {
		return false
	}
	if f.Date != nil {
		y, m, d := f.Date.Date()
		ry, rm, rd := r.Date.Date()
		if y != ry || m != rm || d != rd {
			return false
		}
	}
	return true
}
