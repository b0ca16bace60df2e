package store

import "errors"

var (
	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrGameInProgress is returned when a table already has an unfinished game.
	ErrGameInProgress = errors.New("table already has an unfinished game")
)
