// Package coordinator composes the worker registry, the shard planner,
// the barrier coordinator and the checkpoint ledger into the single
// service surface that remote workers talk to.
package coordinator

import (
	"context"
	"io/ioutil"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/mberk/shepherd/barrier"
	"github.com/mberk/shepherd/checkpoint"
	"github.com/mberk/shepherd/registry"
	"github.com/mberk/shepherd/shardplan"
)

// Config encapsulates the settings for a training coordinator.
type Config struct {
	// The worker registry that tracks ranks and liveness.
	Workers *registry.Registry

	// The dataset shard planner.
	Datasets *shardplan.Planner

	// The barrier coordinator for inter-phase rendezvous.
	Barriers *barrier.Coordinator

	// The ledger of checkpoints reported by workers.
	Checkpoints *checkpoint.Registry

	// The advertised coordinator address, reported in snapshots.
	Address string

	// The coordinator version string, reported in snapshots.
	Version string

	// The interval between liveness sweeps. If not specified, defaults
	// to 10s.
	SweepInterval time.Duration

	// A clock instance for generating time-related events. If not
	// specified, the default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Workers == nil {
		err = multierror.Append(err, xerrors.Errorf("worker registry not specified"))
	}
	if cfg.Datasets == nil {
		err = multierror.Append(err, xerrors.Errorf("shard planner not specified"))
	}
	if cfg.Barriers == nil {
		err = multierror.Append(err, xerrors.Errorf("barrier coordinator not specified"))
	}
	if cfg.Checkpoints == nil {
		err = multierror.Append(err, xerrors.Errorf("checkpoint registry not specified"))
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Coordinator is the composition root for a training run. All of its
// operations are safe for concurrent use; WaitBarrier is the only call
// that intentionally blocks.
type Coordinator struct {
	cfg       Config
	startedAt time.Time
}

// New creates a new coordinator with the specified config.
func New(cfg Config) (*Coordinator, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("coordinator: config validation failed: %w", err)
	}
	return &Coordinator{
		cfg:       cfg,
		startedAt: cfg.Clock.Now(),
	}, nil
}

// Run drives the liveness sweep until the provided context expires.
func (c *Coordinator) Run(ctx context.Context) error {
	c.cfg.Logger.WithField("sweep_interval", c.cfg.SweepInterval).Info("starting liveness sweep")

	timer := c.cfg.Clock.NewTimer(c.cfg.SweepInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.Chan():
			marked := c.cfg.Workers.Sweep()
			counterWorkersMarkedDead.Add(float64(len(marked)))
			timer.Reset(c.cfg.SweepInterval)
		}
	}
}

// RegisterWorker admits a worker and returns its assigned rank along
// with the world size at admission time.
func (c *Coordinator) RegisterWorker(info registry.WorkerInfo) (rank, worldSize int, err error) {
	defer func() { countRequest("register_worker", err) }()
	return c.cfg.Workers.Register(info)
}

// DeregisterWorker removes a worker from the registry. Unknown workers
// are ignored.
func (c *Coordinator) DeregisterWorker(workerID string) error {
	defer countRequest("deregister_worker", nil)
	c.cfg.Workers.Deregister(workerID)
	return nil
}

// RegisterDataset records a dataset spec with the shard planner.
func (c *Coordinator) RegisterDataset(spec shardplan.DatasetSpec) (err error) {
	defer func() { countRequest("register_dataset", err) }()
	return c.cfg.Datasets.RegisterDataset(spec)
}

// GetDataShard derives the requesting worker's shard of the dataset for
// the given epoch. The worker's rank and the world size are resolved
// from the registry, so only live registered workers can obtain shards.
func (c *Coordinator) GetDataShard(workerID, datasetID string, epoch uint64) (asn shardplan.Assignment, err error) {
	defer func() { countRequest("get_data_shard", err) }()

	info, err := c.cfg.Workers.Get(workerID)
	if err != nil {
		return shardplan.Assignment{}, err
	}
	worldSize := c.cfg.Workers.WorldSize()
	return c.cfg.Datasets.Plan(datasetID, epoch, info.Rank, worldSize)
}

// Heartbeat ingests a worker's status and resource snapshot.
func (c *Coordinator) Heartbeat(workerID string, status registry.Status, res registry.ResourceStats) (err error) {
	defer func() { countRequest("heartbeat", err) }()
	return c.cfg.Workers.Heartbeat(workerID, status, res)
}

// NotifyCheckpoint records a checkpoint completion reported by a worker.
func (c *Coordinator) NotifyCheckpoint(rec checkpoint.Record) (err error) {
	defer func() { countRequest("notify_checkpoint", err) }()

	if err = c.cfg.Checkpoints.Notify(rec); err != nil {
		return err
	}
	counterCheckpointsReported.Inc()
	return nil
}

// LatestCheckpoint returns the most recent checkpoint reported by any
// worker. Recovering workers use it to locate the state to resume from.
func (c *Coordinator) LatestCheckpoint() (rec checkpoint.Record, err error) {
	defer func() { countRequest("latest_checkpoint", err) }()
	return c.cfg.Checkpoints.Latest()
}

// WaitBarrier blocks the calling worker at the named barrier until the
// quorum forms, the timeout expires or the context is cancelled. A zero
// timeout applies the barrier coordinator's default.
func (c *Coordinator) WaitBarrier(ctx context.Context, workerID, barrierID string, step uint64, timeout time.Duration) (arrivalOrder, participants int, err error) {
	defer func() { countRequest("wait_barrier", err) }()
	return c.cfg.Barriers.WaitTimeout(ctx, workerID, barrierID, step, timeout)
}

// Snapshot assembles the read-only monitoring view of the whole run.
func (c *Coordinator) Snapshot() Snapshot {
	infos := c.cfg.Workers.Workers()
	workers := make([]WorkerView, 0, len(infos))
	for _, info := range infos {
		workers = append(workers, workerView(info))
	}
	now := c.cfg.Clock.Now()

	return Snapshot{
		Coordinator: CoordinatorStatus{
			Address: c.cfg.Address,
			Version: c.cfg.Version,
			Uptime:  now.Sub(c.startedAt),
		},
		Workers:     workers,
		Datasets:    c.cfg.Datasets.Datasets(),
		Checkpoints: c.cfg.Checkpoints.Checkpoints(),
		Barriers:    c.cfg.Barriers.Barriers(),
		Metrics: SnapshotMetrics{
			LiveWorkers:        c.cfg.Workers.WorldSize(),
			TrackedWorkers:     len(workers),
			AggregateResources: c.cfg.Workers.AggregateResources(),
		},
	}
}
