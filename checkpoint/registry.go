package checkpoint

import (
	"io/ioutil"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// RegistryConfig encapsulates the settings for a coordinator-side
// checkpoint registry.
type RegistryConfig struct {
	// The number of most-recent records to retain. If not specified,
	// retention is unbounded.
	KeepCount int

	// A clock instance for generating time-related events. If not
	// specified, the default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *RegistryConfig) validate() error {
	var err error
	if cfg.KeepCount < 0 {
		err = multierror.Append(err, xerrors.Errorf("keep count must not be negative"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Registry is the coordinator-side ledger of checkpoints reported by
// workers. It stores advisory metadata only and never blocks training.
// It can be concurrently accessed by multiple clients.
type Registry struct {
	cfg RegistryConfig

	mu      sync.RWMutex
	records map[string]Record
}

// NewRegistry creates a checkpoint registry with the specified config.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("checkpoint registry: config validation failed: %w", err)
	}
	return &Registry{
		cfg:     cfg,
		records: make(map[string]Record),
	}, nil
}

// Notify records a checkpoint completion reported by a worker. Records
// are inserted or overwritten by checkpoint ID.
func (r *Registry) Notify(rec Record) error {
	var verr error
	if rec.CheckpointID == "" {
		verr = multierror.Append(verr, xerrors.Errorf("checkpoint ID not specified"))
	}
	if rec.WorkerID == "" {
		verr = multierror.Append(verr, xerrors.Errorf("worker ID not specified"))
	}
	if verr != nil {
		return xerrors.Errorf("notify checkpoint: %v: %w", verr, ErrInvalidRecord)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.cfg.Clock.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[rec.CheckpointID] = rec
	r.evictLocked()

	r.cfg.Logger.WithFields(logrus.Fields{
		"checkpoint_id": rec.CheckpointID,
		"worker_id":     rec.WorkerID,
		"step":          rec.Step,
		"size_bytes":    rec.SizeBytes,
	}).Info("checkpoint reported")
	return nil
}

// Checkpoints returns a copy of the known records ordered by step
// ascending.
func (r *Registry) Checkpoints() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Step != out[j].Step {
			return out[i].Step < out[j].Step
		}
		return out[i].CheckpointID < out[j].CheckpointID
	})
	return out
}

// Latest returns the known record with the highest step.
func (r *Registry) Latest() (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best  Record
		found bool
	)
	for _, rec := range r.records {
		if !found || rec.Step > best.Step ||
			(rec.Step == best.Step && rec.CreatedAt.After(best.CreatedAt)) {
			best, found = rec, true
		}
	}
	if !found {
		return Record{}, xerrors.Errorf("latest checkpoint: %w", ErrCheckpointNotFound)
	}
	return best, nil
}

// evictLocked drops oldest-by-step records while the ledger exceeds the
// configured retention.
func (r *Registry) evictLocked() {
	if r.cfg.KeepCount <= 0 {
		return
	}
	for len(r.records) > r.cfg.KeepCount {
		var (
			oldestID string
			oldest   Record
			found    bool
		)
		for id, rec := range r.records {
			if !found || rec.Step < oldest.Step ||
				(rec.Step == oldest.Step && rec.CreatedAt.Before(oldest.CreatedAt)) {
				oldestID, oldest, found = id, rec, true
			}
		}
		delete(r.records, oldestID)
	}
}
