package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/danggoo-services/internal/tablesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const gameColumns = `id, table_num, start, "end", playtime, fee, finished`

// GameStore is the Postgres implementation of games, records and settings persistence.
// Every call acquires its own connection from the pool.
type GameStore struct {
	db *pgxpool.Pool
}

func NewGameStore(db *pgxpool.Pool) *GameStore {
	return &GameStore{db: db}
}

func scanGame(row pgx.Row) (*models.Game, error) {
	g := &models.Game{}
	err := row.Scan(
		&g.ID,
		&g.TableNum,
		&g.Start,
		&g.End,
		&g.Playtime,
		&g.Fee,
		&g.Finished,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// CreateGame inserts an unfinished game. The partial unique index
// one_open_game_per_table turns a concurrent second start into ErrGameInProgress.
func (s *GameStore) CreateGame(ctx context.Context, tableNum int, start time.Time) (*models.Game, error) {
	query := `
		INSERT INTO games (table_num, start, playtime, fee, finished)
		VALUES ($1, $2, 0, 0, FALSE)
		RETURNING ` + gameColumns

	g, err := scanGame(s.db.QueryRow(ctx, query, tableNum, start))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "one_open_game_per_table" {
			return nil, ErrGameInProgress
		}
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	return g, nil
}

func (s *GameStore) GetGameByID(ctx context.Context, gameID int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	g, err := scanGame(s.db.QueryRow(ctx, query, gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get game by ID: %w", err)
	}

	return g, nil
}

// GetActiveGame returns the unfinished game of a table.
func (s *GameStore) GetActiveGame(ctx context.Context, tableNum int) (*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE table_num = $1 AND NOT finished
		ORDER BY start
		LIMIT 1`

	g, err := scanGame(s.db.QueryRow(ctx, query, tableNum))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active game: %w", err)
	}

	return g, nil
}

// FinishGame writes the end transition. Only an unfinished row is updated,
// so a second finish of the same game reports ErrNotFound.
func (s *GameStore) FinishGame(ctx context.Context, g *models.Game) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE games
		SET "end" = $2, playtime = $3, fee = $4, finished = TRUE
		WHERE id = $1 AND NOT finished
	`, g.ID, g.End, g.Playtime, g.Fee)
	if err != nil {
		return fmt.Errorf("failed to finish game %d: %w", g.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GameStore) ListGamesByTable(ctx context.Context, tableNum int) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE table_num = $1 ORDER BY start, id`

	rows, err := s.db.Query(ctx, query, tableNum)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := []*models.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return games, nil
}

func (s *GameStore) DeleteGame(ctx context.Context, gameID int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM games WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("failed to delete game %d: %w", gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveGame moves one game into records in a single transaction.
func (s *GameStore) ArchiveGame(ctx context.Context, gameID int64) (*models.Record, error) {
	var rec *models.Record
	err := runTx(ctx, s.db, func(tx pgx.Tx) error {
		g, err := scanGame(tx.QueryRow(ctx, `DELETE FROM games WHERE id = $1 RETURNING `+gameColumns, gameID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("delete game %d: %w", gameID, err)
		}

		rec, err = insertRecord(ctx, tx, models.NewRecord(g))
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ArchiveTable moves every game of a table into records. Either all games
// move or none do.
func (s *GameStore) ArchiveTable(ctx context.Context, tableNum int) ([]*models.Record, error) {
	records := []*models.Record{}
	err := runTx(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			DELETE FROM games
			WHERE table_num = $1
			RETURNING `+gameColumns, tableNum)
		if err != nil {
			return fmt.Errorf("delete games for table %d: %w", tableNum, err)
		}

		var games []*models.Game
		for rows.Next() {
			g, err := scanGame(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan game row: %w", err)
			}
			games = append(games, g)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		for _, g := range games {
			rec, err := insertRecord(ctx, tx, models.NewRecord(g))
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
