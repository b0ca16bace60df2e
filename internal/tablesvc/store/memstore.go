package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/avvvet/danggoo-services/internal/tablesvc/models"
	"github.com/shopspring/decimal"
)

// ErrInjected is returned by MemStore writes after a failure has been injected.
var ErrInjected = errors.New("injected store failure")

// MemStore is an in-memory store used when no Postgres DSN is configured and in tests.
type MemStore struct {
	mu sync.RWMutex

	nextGameID   int64
	nextRecordID int64
	nextSettings int64

	games    map[int64]*models.Game
	records  map[int64]*models.Record
	settings *models.Settings

	writes           int
	failWrites       bool
	failArchiveAfter int
}

func NewMemStore() *MemStore {
	return &MemStore{
		games:            make(map[int64]*models.Game),
		records:          make(map[int64]*models.Record),
		failArchiveAfter: -1,
	}
}

// FailWrites makes every subsequent write return ErrInjected.
func (m *MemStore) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

// FailArchiveAfter makes archive operations fail once n records have been staged.
// A negative n disables the failure.
func (m *MemStore) FailArchiveAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failArchiveAfter = n
}

// Writes returns the number of committed writes.
func (m *MemStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemStore) GameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

func (m *MemStore) RecordCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func copyGame(g *models.Game) *models.Game {
	c := *g
	if g.End != nil {
		end := *g.End
		c.End = &end
	}
	return &c
}

func copyRecord(r *models.Record) *models.Record {
	c := *r
	if r.End != nil {
		end := *r.End
		c.End = &end
	}
	return &c
}

func (m *MemStore) CreateGame(ctx context.Context, tableNum int, start time.Time) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return nil, ErrInjected
	}
	for _, g := range m.games {
		if g.TableNum == tableNum && !g.Finished {
			return nil, ErrGameInProgress
		}
	}

	m.nextGameID++
	g := &models.Game{
		ID:       m.nextGameID,
		TableNum: tableNum,
		Start:    start,
		Fee:      decimal.Zero,
	}
	m.games[g.ID] = g
	m.writes++

	return copyGame(g), nil
}

func (m *MemStore) GetGameByID(ctx context.Context, gameID int64) (*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.games[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGame(g), nil
}

func (m *MemStore) GetActiveGame(ctx context.Context, tableNum int) (*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *models.Game
	for _, g := range m.games {
		if g.TableNum != tableNum || g.Finished {
			continue
		}
		if found == nil || g.Start.Before(found.Start) {
			found = g
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return copyGame(found), nil
}

func (m *MemStore) FinishGame(ctx context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return ErrInjected
	}
	cur, ok := m.games[g.ID]
	if !ok || cur.Finished {
		return ErrNotFound
	}

	updated := copyGame(g)
	updated.Finished = true
	m.games[g.ID] = updated
	m.writes++
	return nil
}

func (m *MemStore) ListGamesByTable(ctx context.Context, tableNum int) ([]*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	games := []*models.Game{}
	for _, g := range m.games {
		if g.TableNum == tableNum {
			games = append(games, copyGame(g))
		}
	}
	sortGames(games)
	return games, nil
}

func sortGames(games []*models.Game) {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].Start.Equal(games[j].Start) {
			return games[i].Start.Before(games[j].Start)
		}
		return games[i].ID < games[j].ID
	})
}

func (m *MemStore) DeleteGame(ctx context.Context, gameID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return ErrInjected
	}
	if _, ok := m.games[gameID]; !ok {
		return ErrNotFound
	}
	delete(m.games, gameID)
	m.writes++
	return nil
}

func (m *MemStore) ArchiveGame(ctx context.Context, gameID int64) (*models.Record, error) {
	recs, err := m.archive(func(g *models.Game) bool { return g.ID == gameID })
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

func (m *MemStore) ArchiveTable(ctx context.Context, tableNum int) ([]*models.Record, error) {
	return m.archive(func(g *models.Game) bool { return g.TableNum == tableNum })
}

// archive stages a record per matching game and applies them only when
// staging completed, mirroring a rolled back transaction on failure.
func (m *MemStore) archive(match func(*models.Game) bool) ([]*models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return nil, ErrInjected
	}

	var games []*models.Game
	for _, g := range m.games {
		if match(g) {
			games = append(games, g)
		}
	}
	sortGames(games)

	staged := make([]*models.Record, 0, len(games))
	nextID := m.nextRecordID
	for i, g := range games {
		if m.failArchiveAfter >= 0 && i >= m.failArchiveAfter {
			return nil, ErrInjected
		}
		nextID++
		rec := models.NewRecord(g)
		rec.ID = nextID
		staged = append(staged, rec)
	}

	out := make([]*models.Record, 0, len(staged))
	for i, rec := range staged {
		delete(m.games, games[i].ID)
		m.records[rec.ID] = rec
		out = append(out, copyRecord(rec))
	}
	m.nextRecordID = nextID
	if len(staged) > 0 {
		m.writes++
	}
	return out, nil
}

func (m *MemStore) ListRecords(ctx context.Context, f models.RecordFilter) ([]*models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := []*models.Record{}
	for _, r := range m.records {
		if f.Match(r) {
			records = append(records, copyRecord(r))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (m *MemStore) DeleteRecord(ctx context.Context, recordID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return ErrInjected
	}
	if _, ok := m.records[recordID]; !ok {
		return ErrNotFound
	}
	delete(m.records, recordID)
	m.writes++
	return nil
}

func (m *MemStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return nil, ErrNotFound
	}
	st := *m.settings
	return &st, nil
}

func (m *MemStore) SaveFeePerMinute(ctx context.Context, rate decimal.Decimal) (*models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return nil, ErrInjected
	}
	if m.settings == nil {
		m.nextSettings++
		m.settings = &models.Settings{ID: m.nextSettings}
	}
	m.settings.FeePerMinute = rate
	m.writes++

	st := *m.settings
	return &st, nil
}
