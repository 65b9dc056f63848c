package checkpoint

import "golang.org/x/xerrors"

var (
	// ErrCheckpointNotFound is returned when a load or lookup references
	// a step or checkpoint ID that is not retained.
	ErrCheckpointNotFound = xerrors.New("checkpoint not found")

	// ErrInvalidRecord is returned when a notified checkpoint record
	// fails validation.
	ErrInvalidRecord = xerrors.New("invalid checkpoint record")

	// ErrManagerClosed is returned when a save is submitted to a manager
	// that has been closed.
	ErrManagerClosed = xerrors.New("checkpoint manager closed")
)
