// Package checkpoint provides durable storage for worker model state
// and the coordinator-side bookkeeping of checkpoint notifications.
//
// The worker-local Manager owns the bytes: it persists opaque payloads
// under deterministic per-step filenames, runs a bounded background
// writer pool and enforces an oldest-first retention policy. The
// coordinator-side Registry never sees payload bytes; it only records
// the metadata workers report so monitoring and recovery can find the
// most recent checkpoint.
package checkpoint

import (
	"time"
)

// Type describes the kind of state captured by a checkpoint. Only full
// snapshots are produced today; other values are reserved for partial
// and incremental checkpoints.
type Type uint8

const (
	TypeFull Type = iota
)

// String implements fmt.Stringer.
func (t Type) String() string {
	if t == TypeFull {
		return "full"
	}
	return "unknown"
}

// Metadata describes one locally retained checkpoint.
type Metadata struct {
	// Unique checkpoint ID.
	ID string

	// The training step and epoch the checkpoint captures.
	Step  uint64
	Epoch uint64

	Type Type

	// Location of the payload on the local filesystem.
	Path string

	SizeBytes uint64
	CreatedAt time.Time
}

// Record is the coordinator-side view of a checkpoint reported by a
// worker. It is advisory metadata only; the coordinator never reads or
// validates the payload it points at.
type Record struct {
	CheckpointID string
	WorkerID     string

	Step  uint64
	Epoch uint64

	Type Type

	StoragePath string
	SizeBytes   uint64
	CreatedAt   time.Time
}

// Iterator is implemented by objects that can paginate the retained
// checkpoints of a Manager.
type Iterator interface {
	// Close the iterator and release any allocated resources.
	Close() error

	// Next loads the next item, returns false when no more items are
	// available or when an error occurs.
	Next() bool

	// Error returns the last error encountered by the iterator.
	Error() error

	// Checkpoint returns the currently fetched checkpoint metadata.
	Checkpoint() Metadata
}
