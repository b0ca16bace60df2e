package service

import (
	"context"
	"sync"
	"testing"
	"time"

	config "github.com/avvvet/danggoo-services/configs"
	"github.com/avvvet/danggoo-services/internal/comm"
	"github.com/avvvet/danggoo-services/internal/tablesvc/store"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []comm.Event
}

func (r *recorder) Emit(ev comm.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []comm.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]comm.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var gameStart = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*GameService, *store.MemStore, *recorder, *clockwork.FakeClock) {
	t.Helper()
	m := store.NewMemStore()
	rec := &recorder{}
	clock := clockwork.NewFakeClockAt(gameStart)
	return NewGameService(m, rec, config.NumberedTables(12), clock), m, rec, clock
}

func TestStartThenEndTenMinutes(t *testing.T) {
	ctx := context.Background()
	svc, _, rec, clock := newTestService(t)

	g, err := svc.StartGame(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, g.TableNum)
	assert.False(t, g.Finished)
	assert.True(t, g.Start.Equal(gameStart))

	clock.Advance(10 * time.Minute)

	ended, err := svc.EndGame(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, g.ID, ended.ID)
	assert.True(t, ended.Finished)
	assert.Equal(t, 10, ended.Playtime)
	assert.True(t, decimal.NewFromFloat(5.0).Equal(ended.Fee), "fee %s", ended.Fee)
	require.NotNil(t, ended.End)
	assert.True(t, ended.End.Equal(gameStart.Add(10*time.Minute)))

	assert.Equal(t, []comm.EventType{comm.EventGameStarted, comm.EventGameEnded}, rec.types())

	games, err := svc.ListGames(ctx, 3)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.True(t, games[0].Finished)
}

func TestEndGameWithoutActiveGame(t *testing.T) {
	ctx := context.Background()
	svc, m, rec, _ := newTestService(t)

	before := m.Writes()
	_, err := svc.EndGame(ctx, 4)
	assert.ErrorIs(t, err, ErrNoActiveGame)
	assert.Equal(t, before, m.Writes())
	assert.Empty(t, rec.types())
}

func TestEndGameClampsNegativePlaytime(t *testing.T) {
	ctx := context.Background()
	svc, m, _, _ := newTestService(t)

	// start recorded ahead of the service clock, as after a clock adjustment
	_, err := m.CreateGame(ctx, 2, gameStart.Add(5*time.Minute))
	require.NoError(t, err)

	g, err := svc.EndGame(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Playtime)
	assert.True(t, g.Fee.IsZero())
}

func TestStartGameRejectsSecondOpenGame(t *testing.T) {
	ctx := context.Background()
	svc, m, _, _ := newTestService(t)

	_, err := svc.StartGame(ctx, 1)
	require.NoError(t, err)
	_, err = svc.StartGame(ctx, 1)
	assert.ErrorIs(t, err, ErrGameInProgress)
	assert.Equal(t, 1, m.GameCount())
}

func TestConcurrentStartsCreateOneGame(t *testing.T) {
	ctx := context.Background()
	svc, m, _, _ := newTestService(t)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.StartGame(ctx, 7); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, m.GameCount())
}

func TestStartGamePersistenceFailure(t *testing.T) {
	ctx := context.Background()
	svc, m, rec, _ := newTestService(t)
	m.FailWrites(true)

	_, err := svc.StartGame(ctx, 1)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, rec.types(), "nothing is emitted for a failed write")
}

func TestUnknownTableRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, rec, _ := newTestService(t)

	_, err := svc.StartGame(ctx, 13)
	assert.ErrorIs(t, err, ErrInvalidTable)
	assert.ErrorIs(t, svc.ForceStart(ctx, 0), ErrInvalidTable)
	assert.Empty(t, rec.types())
}

func TestForceSignalsDoNotPersist(t *testing.T) {
	ctx := context.Background()
	svc, m, rec, _ := newTestService(t)

	require.NoError(t, svc.ForceStart(ctx, 5))
	require.NoError(t, svc.ForceEnd(ctx, 5))

	assert.Equal(t, 0, m.Writes())
	assert.Equal(t, []comm.EventType{comm.EventForceStartGame, comm.EventForceEndGame}, rec.types())
	assert.Equal(t, comm.RouteTable, rec.events[0].Route())
	assert.Equal(t, 5, rec.events[0].TableID)
}

func TestArchiveGame(t *testing.T) {
	ctx := context.Background()
	svc, m, _, clock := newTestService(t)

	_, err := svc.StartGame(ctx, 6)
	require.NoError(t, err)
	clock.Advance(42 * time.Minute)
	g, err := svc.EndGame(ctx, 6)
	require.NoError(t, err)

	r, err := svc.ArchiveGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.TableNum, r.TableNum)
	assert.True(t, g.Start.Equal(r.Start))
	assert.True(t, g.Start.Equal(r.Date))
	require.NotNil(t, r.End)
	assert.True(t, g.End.Equal(*r.End))
	assert.Equal(t, g.Playtime, r.Playtime)
	assert.True(t, g.Fee.Equal(r.Fee))
	assert.Equal(t, 0, m.GameCount())
	assert.Equal(t, 1, m.RecordCount())

	_, err = svc.ArchiveGame(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, m.RecordCount())
}

func TestArchiveAllForTableIsAtomic(t *testing.T) {
	ctx := context.Background()
	svc, m, _, clock := newTestService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.StartGame(ctx, 8)
		require.NoError(t, err)
		clock.Advance(15 * time.Minute)
		_, err = svc.EndGame(ctx, 8)
		require.NoError(t, err)
	}
	// an unfinished game is archived too
	_, err := svc.StartGame(ctx, 8)
	require.NoError(t, err)

	m.FailArchiveAfter(2)
	_, err = svc.ArchiveAllForTable(ctx, 8)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 4, m.GameCount())
	assert.Equal(t, 0, m.RecordCount())

	m.FailArchiveAfter(-1)
	recs, err := svc.ArchiveAllForTable(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, recs, 4)
	assert.Equal(t, 0, m.GameCount())
	assert.Equal(t, 4, m.RecordCount())
}

func TestFinishGameByID(t *testing.T) {
	ctx := context.Background()
	svc, _, rec, clock := newTestService(t)

	g, err := svc.StartGame(ctx, 9)
	require.NoError(t, err)
	clock.Advance(3*time.Minute + 20*time.Second)

	done, err := svc.FinishGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, done.Playtime)
	assert.Equal(t, "1.5", done.Fee.String())

	_, err = svc.FinishGame(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNoActiveGame)
	_, err = svc.FinishGame(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []comm.EventType{comm.EventGameStarted, comm.EventGameEnded}, rec.types())
}

func TestDeleteGame(t *testing.T) {
	ctx := context.Background()
	svc, m, _, _ := newTestService(t)

	g, err := svc.StartGame(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteGame(ctx, g.ID))
	assert.Equal(t, 0, m.GameCount())
	assert.Equal(t, 0, m.RecordCount())
	assert.ErrorIs(t, svc.DeleteGame(ctx, g.ID), ErrNotFound)
}

func TestUpdateFeePerMinute(t *testing.T) {
	ctx := context.Background()
	svc, _, rec, clock := newTestService(t)

	_, err := svc.UpdateFeePerMinute(ctx, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidRate)

	st, err := svc.UpdateFeePerMinute(ctx, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, "2", st.FeePerMinute.String())
	require.Len(t, rec.events, 1)
	assert.Equal(t, comm.RouteAll, rec.events[0].Route())

	rate, err := svc.FeePerMinute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", rate.String())

	_, err = svc.StartGame(ctx, 1)
	require.NoError(t, err)
	clock.Advance(7 * time.Minute)
	g, err := svc.EndGame(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "14", g.Fee.String())
}
