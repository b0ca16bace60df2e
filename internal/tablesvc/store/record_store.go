package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/danggoo-services/internal/tablesvc/models"
	"github.com/jackc/pgx/v5"
)

func insertRecord(ctx context.Context, tx pgx.Tx, r *models.Record) (*models.Record, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO records (table_num, date, start, "end", playtime, fee)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.TableNum, r.Date, r.Start, r.End, r.Playtime, r.Fee).Scan(&r.ID)
	if err != nil {
		return nil, fmt.Errorf("insert record for table %d: %w", r.TableNum, err)
	}
	return r, nil
}

// ListRecords returns archived games matching f, newest first.
func (s *GameStore) ListRecords(ctx context.Context, f models.RecordFilter) ([]*models.Record, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.TableNum != 0 {
		add("table_num = $%d", f.TableNum)
	}
	if f.Year != 0 {
		add("EXTRACT(YEAR FROM date) = $%d", f.Year)
	}
	if f.Month != 0 {
		add("EXTRACT(MONTH FROM date) = $%d", f.Month)
	}
	if f.Date != nil {
		add("date::date = $%d::date", *f.Date)
	}

	query := `SELECT id, table_num, date, start, "end", playtime, fee FROM records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []*models.Record{}
	for rows.Next() {
		r := &models.Record{}
		if err := rows.Scan(&r.ID, &r.TableNum, &r.Date, &r.Start, &r.End, &r.Playtime, &r.Fee); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}

func (s *GameStore) DeleteRecord(ctx context.Context, recordID int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM records WHERE id = $1`, recordID)
	if err != nil {
		return fmt.Errorf("failed to delete record %d: %w", recordID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
