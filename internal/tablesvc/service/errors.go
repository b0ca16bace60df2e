package service

import (
	"errors"
	"fmt"

	"github.com/avvvet/danggoo-services/internal/tablesvc/store"
)

var (
	ErrNotFound       = errors.New("game not found")
	ErrNoActiveGame   = errors.New("no active game found for this table")
	ErrGameInProgress = errors.New("a game is already in progress on this table")
	ErrPersistence    = errors.New("persistence error")
	ErrInvalidTable   = errors.New("unknown table")
	ErrInvalidRate    = errors.New("fee per minute must be greater than 0 and at most 1000")
)

// storeErr maps store sentinels onto service errors. Anything else is a persistence failure.
func storeErr(err error, notFound error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound
	case errors.Is(err, store.ErrGameInProgress):
		return ErrGameInProgress
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}
