package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/danggoo-services/internal/comm"
	"github.com/avvvet/danggoo-services/internal/tablesvc/models"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// GameStore is the persistence the game service runs against.
type GameStore interface {
	SettingsReader
	CreateGame(ctx context.Context, tableNum int, start time.Time) (*models.Game, error)
	GetGameByID(ctx context.Context, gameID int64) (*models.Game, error)
	GetActiveGame(ctx context.Context, tableNum int) (*models.Game, error)
	FinishGame(ctx context.Context, g *models.Game) error
	ListGamesByTable(ctx context.Context, tableNum int) ([]*models.Game, error)
	DeleteGame(ctx context.Context, gameID int64) error
	ArchiveGame(ctx context.Context, gameID int64) (*models.Record, error)
	ArchiveTable(ctx context.Context, tableNum int) ([]*models.Record, error)
	ListRecords(ctx context.Context, f models.RecordFilter) ([]*models.Record, error)
	DeleteRecord(ctx context.Context, recordID int64) error
	SaveFeePerMinute(ctx context.Context, rate decimal.Decimal) (*models.Settings, error)
}

// Emitter delivers an event to every observer transport.
type Emitter interface {
	Emit(ev comm.Event)
}

// TableLayout tells which table ids exist.
type TableLayout interface {
	Has(id int) bool
}

// GameService drives the per-table game lifecycle: Idle -> InProgress -> Idle.
// Transitions persist first and emit afterwards.
type GameService struct {
	store   GameStore
	fee     *FeeCalculator
	emitter Emitter
	tables  TableLayout
	clock   clockwork.Clock
}

func NewGameService(store GameStore, emitter Emitter, tables TableLayout, clock clockwork.Clock) *GameService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GameService{
		store:   store,
		fee:     NewFeeCalculator(store),
		emitter: emitter,
		tables:  tables,
		clock:   clock,
	}
}

func (s *GameService) checkTable(tableID int) error {
	if s.tables != nil && !s.tables.Has(tableID) {
		return fmt.Errorf("%w: %d", ErrInvalidTable, tableID)
	}
	return nil
}

// StartGame opens a game on the table. A table holds at most one unfinished game.
func (s *GameService) StartGame(ctx context.Context, tableID int) (*models.Game, error) {
	if err := s.checkTable(tableID); err != nil {
		return nil, err
	}

	game, err := s.store.CreateGame(ctx, tableID, s.clock.Now())
	if err != nil {
		log.Errorf("Error starting game for table %d: %s", tableID, err)
		return nil, storeErr(err, ErrNotFound)
	}
	log.Infof("Game added for table %d. Game ID: %d", tableID, game.ID)

	s.emitter.Emit(comm.GameStarted(tableID, game))
	return game, nil
}

// EndGame closes the unfinished game of a table and prices it.
func (s *GameService) EndGame(ctx context.Context, tableID int) (*models.Game, error) {
	if err := s.checkTable(tableID); err != nil {
		return nil, err
	}

	game, err := s.store.GetActiveGame(ctx, tableID)
	if err != nil {
		return nil, storeErr(err, ErrNoActiveGame)
	}

	if err := s.finish(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// FinishGame closes a specific game by id.
func (s *GameService) FinishGame(ctx context.Context, gameID int64) (*models.Game, error) {
	game, err := s.store.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, storeErr(err, ErrNotFound)
	}
	if game.Finished {
		return nil, ErrNoActiveGame
	}

	if err := s.finish(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

func (s *GameService) finish(ctx context.Context, game *models.Game) error {
	end := s.clock.Now()
	playtime := Playtime(game.Start, end)

	fee, err := s.fee.Fee(ctx, playtime)
	if err != nil {
		return err
	}

	game.End = &end
	game.Playtime = playtime
	game.Fee = fee
	game.Finished = true

	if err := s.store.FinishGame(ctx, game); err != nil {
		log.Errorf("Error ending game %d on table %d: %s", game.ID, game.TableNum, err)
		return storeErr(err, ErrNoActiveGame)
	}
	log.Infof("Game %d on table %d ended: %d min, fee %s", game.ID, game.TableNum, playtime, fee.StringFixed(2))

	s.emitter.Emit(comm.GameEnded(game.TableNum, game))
	return nil
}

// ForceStart tells the table display to start a game locally. Nothing is persisted.
func (s *GameService) ForceStart(ctx context.Context, tableID int) error {
	if err := s.checkTable(tableID); err != nil {
		return err
	}
	s.emitter.Emit(comm.ForceStartGame(tableID))
	log.Infof("ForceStartGame sent to table %d", tableID)
	return nil
}

// ForceEnd tells the table display to end its game locally. Nothing is persisted.
func (s *GameService) ForceEnd(ctx context.Context, tableID int) error {
	if err := s.checkTable(tableID); err != nil {
		return err
	}
	s.emitter.Emit(comm.ForceEndGame(tableID))
	log.Infof("ForceEndGame sent to table %d", tableID)
	return nil
}

func (s *GameService) SendTestMessage(ctx context.Context, tableID int) error {
	if err := s.checkTable(tableID); err != nil {
		return err
	}
	s.emitter.Emit(comm.TestMessage(tableID, fmt.Sprintf("Test message for table %d", tableID)))
	return nil
}

// ListGames returns the games of a table ordered by start.
func (s *GameService) ListGames(ctx context.Context, tableID int) ([]*models.Game, error) {
	if err := s.checkTable(tableID); err != nil {
		return nil, err
	}
	games, err := s.store.ListGamesByTable(ctx, tableID)
	if err != nil {
		return nil, storeErr(err, ErrNotFound)
	}
	return games, nil
}

// ArchiveGame moves one game into records. Callers should only archive finished games.
func (s *GameService) ArchiveGame(ctx context.Context, gameID int64) (*models.Record, error) {
	rec, err := s.store.ArchiveGame(ctx, gameID)
	if err != nil {
		return nil, storeErr(err, ErrNotFound)
	}
	log.Infof("Game %d moved to records as record %d", gameID, rec.ID)
	return rec, nil
}

// ArchiveAllForTable moves every game of a table into records as one unit.
func (s *GameService) ArchiveAllForTable(ctx context.Context, tableID int) ([]*models.Record, error) {
	if err := s.checkTable(tableID); err != nil {
		return nil, err
	}
	recs, err := s.store.ArchiveTable(ctx, tableID)
	if err != nil {
		log.Errorf("Error saving games for table %d: %s", tableID, err)
		return nil, storeErr(err, ErrNotFound)
	}
	log.Infof("Moved %d games of table %d to records", len(recs), tableID)
	return recs, nil
}

func (s *GameService) DeleteGame(ctx context.Context, gameID int64) error {
	if err := s.store.DeleteGame(ctx, gameID); err != nil {
		return storeErr(err, ErrNotFound)
	}
	log.Infof("Game %d deleted", gameID)
	return nil
}

func (s *GameService) ListRecords(ctx context.Context, f models.RecordFilter) ([]*models.Record, error) {
	recs, err := s.store.ListRecords(ctx, f)
	if err != nil {
		return nil, storeErr(err, ErrNotFound)
	}
	return recs, nil
}

func (s *GameService) DeleteRecord(ctx context.Context, recordID int64) error {
	if err := s.store.DeleteRecord(ctx, recordID); err != nil {
		return storeErr(err, ErrNotFound)
	}
	return nil
}

func (s *GameService) FeePerMinute(ctx context.Context) (decimal.Decimal, error) {
	return s.fee.Rate(ctx)
}

// UpdateFeePerMinute stores a new rate and announces it to every table.
func (s *GameService) UpdateFeePerMinute(ctx context.Context, rate decimal.Decimal) (*models.Settings, error) {
	if !ValidRate(rate) {
		return nil, ErrInvalidRate
	}
	st, err := s.store.SaveFeePerMinute(ctx, rate)
	if err != nil {
		return nil, storeErr(err, ErrNotFound)
	}
	log.Infof("Fee per minute updated to %s", st.FeePerMinute.String())

	s.emitter.Emit(comm.FeeRateChanged(st.FeePerMinute))
	return st, nil
}
