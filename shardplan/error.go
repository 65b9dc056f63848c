package shardplan

import "golang.org/x/xerrors"

var (
	// ErrDatasetNotFound is returned when a plan references an unknown
	// dataset ID.
	ErrDatasetNotFound = xerrors.New("dataset not found")

	// ErrSpecMismatch is returned when a dataset is re-registered with a
	// spec that conflicts with the original registration.
	ErrSpecMismatch = xerrors.New("dataset spec mismatch")

	// ErrInvalidDataset is returned when a dataset spec fails validation.
	ErrInvalidDataset = xerrors.New("invalid dataset spec")
)
