package registry

import (
	"io/ioutil"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Config encapsulates the settings for a worker registry.
type Config struct {
	// The maximum number of live workers the registry will admit. If not
	// specified, a default of 4096 will be used instead.
	MaxWorkers int

	// A worker whose last heartbeat is older than this is marked dead by
	// the liveness sweep. If not specified, defaults to 30s.
	HeartbeatTimeout time.Duration

	// How long a freed rank stays parked before it can be re-assigned.
	// The grace period prevents a recycled rank from satisfying a barrier
	// quorum computed against the previous world size. If not specified,
	// defaults to 5s.
	DeregisterGrace time.Duration

	// A clock instance for generating time-related events. If not
	// specified, the default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.MaxWorkers < 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for max workers"))
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 4096
	}
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = 30 * time.Second
	}
	if cfg.DeregisterGrace == 0 {
		cfg.DeregisterGrace = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Registry tracks the live worker set for a training run. It assigns each
// admitted worker a stable rank, ingests heartbeats and evicts workers
// that miss their heartbeat deadline. All state is in-memory and is
// rebuilt from scratch on every coordinator run.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	workers map[string]*WorkerInfo

	// Live rank assignments and ranks parked until their grace deadline.
	ranks  map[int]string
	parked map[int]time.Time
}

// NewRegistry creates a new worker registry with the specified config.
func NewRegistry(cfg Config) (*Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("registry: config validation failed: %w", err)
	}
	return &Registry{
		cfg:     cfg,
		workers: make(map[string]*WorkerInfo),
		ranks:   make(map[int]string),
		parked:  make(map[int]time.Time),
	}, nil
}

// Register admits a worker and assigns it the smallest rank not currently
// held by a live worker or parked in a deregistration grace window. It
// returns the assigned rank and the world size at this instant, including
// the new worker. World sizes previously reported to other workers are not
// retroactively corrected.
func (r *Registry) Register(info WorkerInfo) (rank, worldSize int, err error) {
	if info.ID == "" {
		return 0, 0, xerrors.Errorf("register: worker ID not specified: %w", ErrInvalidWorker)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Clock.Now()
	if existing, exists := r.workers[info.ID]; exists {
		if !existing.dead {
			return 0, 0, xerrors.Errorf("register %q: %w", info.ID, ErrWorkerAlreadyRegistered)
		}
		// A dead worker re-registering is treated as a fresh admission.
		delete(r.workers, info.ID)
	}
	if r.liveCountLocked() >= r.cfg.MaxWorkers {
		return 0, 0, xerrors.Errorf("register %q: %w", info.ID, ErrMaxWorkers)
	}

	rank = r.nextFreeRankLocked(now)
	rec := info
	rec.Rank = rank
	rec.RegisteredAt = now
	rec.LastSeen = now
	rec.Status = nil
	rec.dead = false

	r.workers[rec.ID] = &rec
	r.ranks[rank] = rec.ID
	worldSize = r.liveCountLocked()

	r.cfg.Logger.WithFields(logrus.Fields{
		"worker_id":  rec.ID,
		"rank":       rank,
		"world_size": worldSize,
		"hostname":   rec.Hostname,
	}).Info("worker registered")

	return rank, worldSize, nil
}

// Deregister removes a worker and parks its rank for the configured grace
// period. Deregistering an unknown worker is a no-op.
func (r *Registry) Deregister(workerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.workers[workerID]
	if !exists {
		return
	}
	delete(r.workers, workerID)
	r.releaseRankLocked(rec.Rank)

	r.cfg.Logger.WithFields(logrus.Fields{
		"worker_id": workerID,
		"rank":      rec.Rank,
	}).Info("worker deregistered")
}

// Heartbeat overwrites the worker's status snapshot and refreshes its
// liveness deadline. It fails with ErrUnknownWorker for workers that were
// never registered or have already been evicted.
func (r *Registry) Heartbeat(workerID string, status Status, res ResourceStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.workers[workerID]
	if !exists || rec.dead {
		return xerrors.Errorf("heartbeat %q: %w", workerID, ErrUnknownWorker)
	}

	rec.Status = status
	rec.Resources = cloneResources(res)
	rec.LastSeen = r.cfg.Clock.Now()
	return nil
}

// Get returns a copy of the record for a live worker.
func (r *Registry) Get(workerID string) (WorkerInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.workers[workerID]
	if !exists || rec.dead {
		return WorkerInfo{}, xerrors.Errorf("get %q: %w", workerID, ErrUnknownWorker)
	}
	return cloneWorker(rec), nil
}

// Workers returns copies of every tracked worker record, dead ones
// included, ordered by rank.
func (r *Registry) Workers() []WorkerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]WorkerInfo, 0, len(r.workers))
	for _, rec := range r.workers {
		out = append(out, cloneWorker(rec))
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Rank < out[i].Rank {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// WorldSize returns the number of currently live workers.
func (r *Registry) WorldSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveCountLocked()
}

// AggregateResources sums the latest resource snapshots of all live
// workers.
func (r *Registry) AggregateResources() ResourceStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var agg ResourceStats
	for _, rec := range r.workers {
		if rec.dead {
			continue
		}
		agg.CPUPercent += rec.Resources.CPUPercent
		agg.MemoryUsedBytes += rec.Resources.MemoryUsedBytes
		agg.Accelerators = append(agg.Accelerators, rec.Resources.Accelerators...)
	}
	return agg
}

func (r *Registry) liveCountLocked() int {
	n := 0
	for _, rec := range r.workers {
		if !rec.dead {
			n++
		}
	}
	return n
}

func (r *Registry) nextFreeRankLocked(now time.Time) int {
	for rank := 0; ; rank++ {
		if _, held := r.ranks[rank]; held {
			continue
		}
		if until, parked := r.parked[rank]; parked {
			if now.Before(until) {
				continue
			}
			delete(r.parked, rank)
		}
		return rank
	}
}

func (r *Registry) releaseRankLocked(rank int) {
	delete(r.ranks, rank)
	r.parked[rank] = r.cfg.Clock.Now().Add(r.cfg.DeregisterGrace)
}

func cloneWorker(rec *WorkerInfo) WorkerInfo {
	out := *rec
	out.Resources = cloneResources(rec.Resources)
	return out
}

func cloneResources(res ResourceStats) ResourceStats {
	out := res
	if len(res.Accelerators) != 0 {
		out.Accelerators = make([]AcceleratorStats, len(res.Accelerators))
		copy(out.Accelerators, res.Accelerators)
	}
	return out
}
