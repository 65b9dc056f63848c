// Package barrier implements timeout-bounded rendezvous synchronization
// for the workers of a training run. Each barrier is an independent
// entity with its own lock and wake channel, so unrelated
// synchronization points never block one another.
package barrier

import (
	"context"
	"io/ioutil"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// WorldSizeFunc reports the current number of live workers. It is
// consulted once per barrier, at first arrival.
type WorldSizeFunc func() int

// Config encapsulates the settings for a barrier coordinator.
type Config struct {
	// WorldSize reports the live worker count used to snapshot a new
	// barrier's participant quorum.
	WorldSize WorldSizeFunc

	// The wait deadline applied when the caller does not supply one.
	// If not specified, defaults to 5m.
	DefaultTimeout time.Duration

	// How long a completed barrier lingers so late duplicate calls from
	// released workers still observe their arrival order. If not
	// specified, defaults to 2s.
	CompleteGrace time.Duration

	// A clock instance for generating time-related events. If not
	// specified, the default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.WorldSize == nil {
		err = multierror.Append(err, xerrors.Errorf("world size function not specified"))
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 5 * time.Minute
	}
	if cfg.CompleteGrace == 0 {
		cfg.CompleteGrace = 2 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Info is a read-only snapshot of one barrier's state.
type Info struct {
	ID           string
	Step         uint64
	Participants int
	Arrived      []string
	Completed    bool
	CreatedAt    time.Time
}

// Coordinator manages the set of active barriers.
type Coordinator struct {
	cfg Config

	mu       sync.Mutex
	barriers map[string]*barrier
}

type barrier struct {
	id   string
	step uint64

	mu sync.Mutex
	// The quorum, snapshotted from the live world size at first arrival.
	participants int
	// Arrival-ordered worker IDs. Timed-out callers are removed, so a
	// waiter's final arrival order is its position at release time.
	arrived   []string
	done      chan struct{}
	completed bool
	createdAt time.Time
}

// NewCoordinator creates a new barrier coordinator with the specified
// config.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("barrier coordinator: config validation failed: %w", err)
	}
	return &Coordinator{
		cfg:      cfg,
		barriers: make(map[string]*barrier),
	}, nil
}

// Wait blocks the caller at the named barrier until the quorum forms,
// applying the coordinator's default timeout. See WaitTimeout.
func (c *Coordinator) Wait(ctx context.Context, workerID, barrierID string, step uint64) (arrivalOrder, participants int, err error) {
	return c.WaitTimeout(ctx, workerID, barrierID, step, c.cfg.DefaultTimeout)
}

// WaitTimeout blocks the caller at the named barrier. The first arrival
// creates the barrier and snapshots its quorum from the live world size;
// when the final participant arrives every parked caller is released
// with the shared participant count and its own 1-indexed arrival order.
// Duplicate calls from the same worker are idempotent. A caller that
// exceeds its deadline (or whose context is cancelled) receives an error
// scoped to itself and is removed from the arrived set, so it cannot
// spuriously satisfy the quorum later.
func (c *Coordinator) WaitTimeout(ctx context.Context, workerID, barrierID string, step uint64, timeout time.Duration) (arrivalOrder, participants int, err error) {
	if workerID == "" || barrierID == "" {
		return 0, 0, xerrors.Errorf("wait barrier: worker and barrier IDs must be specified")
	}
	if timeout <= 0 {
		timeout = c.cfg.DefaultTimeout
	}

	b, err := c.getOrCreate(barrierID, step)
	if err != nil {
		return 0, 0, err
	}

	b.mu.Lock()
	if b.completed {
		order := indexOf(b.arrived, workerID)
		parts := b.participants
		b.mu.Unlock()
		if order < 0 {
			return 0, 0, xerrors.Errorf("barrier %q: %w", barrierID, ErrBarrierComplete)
		}
		return order + 1, parts, nil
	}

	if indexOf(b.arrived, workerID) < 0 {
		b.arrived = append(b.arrived, workerID)
		if len(b.arrived) == b.participants {
			// Quorum reached: release everyone atomically.
			b.completed = true
			close(b.done)
			order, parts := len(b.arrived), b.participants
			b.mu.Unlock()

			c.cfg.Logger.WithFields(logrus.Fields{
				"barrier_id":   barrierID,
				"step":         step,
				"participants": parts,
			}).Info("barrier released")
			c.cfg.Clock.AfterFunc(c.cfg.CompleteGrace, func() { c.remove(barrierID, b) })
			return order, parts, nil
		}
	}
	done := b.done
	b.mu.Unlock()

	timer := c.cfg.Clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		b.mu.Lock()
		order := indexOf(b.arrived, workerID)
		parts := b.participants
		b.mu.Unlock()
		return order + 1, parts, nil
	case <-timer.Chan():
		if order, parts, released := c.abandon(b, workerID); released {
			return order, parts, nil
		}
		return 0, 0, xerrors.Errorf("barrier %q: worker %q: %w", barrierID, workerID, ErrBarrierTimeout)
	case <-ctx.Done():
		if order, parts, released := c.abandon(b, workerID); released {
			return order, parts, nil
		}
		return 0, 0, xerrors.Errorf("barrier %q: worker %q: %w", barrierID, workerID, ctx.Err())
	}
}

// Barriers returns read-only snapshots of every active barrier.
func (c *Coordinator) Barriers() []Info {
	c.mu.Lock()
	list := make([]*barrier, 0, len(c.barriers))
	for _, b := range c.barriers {
		list = append(list, b)
	}
	c.mu.Unlock()

	out := make([]Info, 0, len(list))
	for _, b := range list {
		b.mu.Lock()
		arrived := make([]string, len(b.arrived))
		copy(arrived, b.arrived)
		out = append(out, Info{
			ID:           b.id,
			Step:         b.step,
			Participants: b.participants,
			Arrived:      arrived,
			Completed:    b.completed,
			CreatedAt:    b.createdAt,
		})
		b.mu.Unlock()
	}
	return out
}

func (c *Coordinator) getOrCreate(barrierID string, step uint64) (*barrier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, exists := c.barriers[barrierID]; exists {
		return b, nil
	}

	participants := c.cfg.WorldSize()
	if participants <= 0 {
		return nil, xerrors.Errorf("barrier %q: %w", barrierID, ErrNoParticipants)
	}

	b := &barrier{
		id:           barrierID,
		step:         step,
		participants: participants,
		done:         make(chan struct{}),
		createdAt:    c.cfg.Clock.Now(),
	}
	c.barriers[barrierID] = b
	c.cfg.Logger.WithFields(logrus.Fields{
		"barrier_id":   barrierID,
		"step":         step,
		"participants": participants,
	}).Info("barrier created")
	return b, nil
}

// abandon removes a timed-out caller from the arrived set. It reports
// released=true when the barrier completed while the caller was racing
// its deadline, in which case the caller is treated as released.
func (c *Coordinator) abandon(b *barrier, workerID string) (order, parts int, released bool) {
	b.mu.Lock()
	if b.completed {
		order = indexOf(b.arrived, workerID)
		parts = b.participants
		b.mu.Unlock()
		return order + 1, parts, order >= 0
	}

	if idx := indexOf(b.arrived, workerID); idx >= 0 {
		b.arrived = append(b.arrived[:idx], b.arrived[idx+1:]...)
	}
	empty := len(b.arrived) == 0
	b.mu.Unlock()

	if empty {
		// Timed out with no quorum and nobody left waiting.
		c.remove(b.id, b)
	}
	return 0, 0, false
}

func indexOf(arrived []string, workerID string) int {
	for i, id := range arrived {
		if id == workerID {
			return i
		}
	}
	return -1
}

// remove deletes the barrier from the table, provided the entry still
// refers to the same barrier instance.
func (c *Coordinator) remove(barrierID string, b *barrier) {
	c.mu.Lock()
	if cur, exists := c.barriers[barrierID]; exists && cur == b {
		delete(c.barriers, barrierID)
	}
	c.mu.Unlock()
}
