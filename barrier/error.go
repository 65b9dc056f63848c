package barrier

import "golang.org/x/xerrors"

var (
	// ErrBarrierTimeout is returned to a caller whose wait exceeded its
	// deadline before the quorum formed. The timeout is scoped to that
	// caller: the barrier stays open for everyone else.
	ErrBarrierTimeout = xerrors.New("barrier timeout")

	// ErrBarrierComplete is returned when a worker that never arrived at
	// a barrier calls into it after it has already been released.
	ErrBarrierComplete = xerrors.New("barrier already complete")

	// ErrNoParticipants is returned when a barrier would be created while
	// no live workers are registered.
	ErrNoParticipants = xerrors.New("no live workers to participate in barrier")
)
