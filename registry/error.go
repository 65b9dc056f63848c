package registry

import "golang.org/x/xerrors"

var (
	// ErrWorkerAlreadyRegistered is returned when registering a worker ID
	// that is already live.
	ErrWorkerAlreadyRegistered = xerrors.New("worker already registered")

	// ErrUnknownWorker is returned when an operation references a worker
	// ID that is not currently registered.
	ErrUnknownWorker = xerrors.New("unknown worker")

	// ErrInvalidWorker is returned when a registration request is missing
	// required fields.
	ErrInvalidWorker = xerrors.New("invalid worker info")

	// ErrMaxWorkers is returned when the registry is at capacity.
	ErrMaxWorkers = xerrors.New("maximum worker count reached")
)
