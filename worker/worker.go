// Package worker implements the coordinator-facing agent that runs
// inside each training process. The agent owns registration, the
// heartbeat loop and the local checkpoint manager; the training loop
// itself stays external and drives the agent's API.
package worker

import (
	"context"
	"io/ioutil"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/mberk/shepherd/checkpoint"
	"github.com/mberk/shepherd/registry"
	"github.com/mberk/shepherd/shardplan"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/mberk/shepherd/worker CoordinatorAPI

// CoordinatorAPI defines the subset of coordinator operations the agent
// relies on.
type CoordinatorAPI interface {
	RegisterWorker(info registry.WorkerInfo) (rank, worldSize int, err error)
	DeregisterWorker(workerID string) error
	RegisterDataset(spec shardplan.DatasetSpec) error
	GetDataShard(workerID, datasetID string, epoch uint64) (shardplan.Assignment, error)
	Heartbeat(workerID string, st registry.Status, res registry.ResourceStats) error
	NotifyCheckpoint(rec checkpoint.Record) error
	WaitBarrier(workerID, barrierID string, step uint64, timeout time.Duration) (arrivalOrder, participants int, err error)
	LatestCheckpoint() (checkpoint.Record, error)
}

// Config encapsulates the settings for a worker agent.
type Config struct {
	// The API for talking to the coordinator.
	API CoordinatorAPI

	// The unique ID this worker registers under.
	WorkerID string

	// The hostname reported at registration. If not specified, defaults
	// to os.Hostname.
	Hostname string

	// The port other components can reach this worker on.
	Port int

	// The number of accelerators attached to this worker.
	GPUCount int

	// The local checkpoint store owned by this agent.
	Checkpoints *checkpoint.Manager

	// The interval between heartbeats. If not specified, defaults to 10s.
	HeartbeatInterval time.Duration

	// A clock instance for generating time-related events. If not
	// specified, the default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.API == nil {
		err = multierror.Append(err, xerrors.Errorf("coordinator API not specified"))
	}
	if cfg.WorkerID == "" {
		err = multierror.Append(err, xerrors.Errorf("worker ID not specified"))
	}
	if cfg.Checkpoints == nil {
		err = multierror.Append(err, xerrors.Errorf("checkpoint manager not specified"))
	}
	if cfg.Hostname == "" {
		cfg.Hostname, _ = os.Hostname()
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Agent connects one training process to the coordinator.
type Agent struct {
	cfg Config

	mu            sync.Mutex
	rank          int
	worldSize     int
	status        registry.Status
	pendingNotify []pendingCheckpoint
}

// NewAgent creates a new worker agent with the specified config.
func NewAgent(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("worker agent: config validation failed: %w", err)
	}
	return &Agent{
		cfg:    cfg,
		status: registry.Idle{},
	}, nil
}

// Run registers the worker and drives the heartbeat loop until the
// provided context expires, at which point the worker is deregistered.
// Registration failure is fatal: the worker cannot train without a rank.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.register(); err != nil {
		return err
	}
	defer func() {
		if err := a.cfg.API.DeregisterWorker(a.cfg.WorkerID); err != nil {
			a.cfg.Logger.WithError(err).Warn("unable to deregister worker")
		}
	}()

	timer := a.cfg.Clock.NewTimer(a.cfg.HeartbeatInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.Chan():
			a.heartbeat()
			timer.Reset(a.cfg.HeartbeatInterval)
		}
	}
}

// Rank returns the rank assigned at the latest registration.
func (a *Agent) Rank() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rank
}

// WorldSize returns the world size observed at the latest registration.
func (a *Agent) WorldSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.worldSize
}

// SetStatus records the status reported with subsequent heartbeats.
func (a *Agent) SetStatus(st registry.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = st
}

// RegisterDataset is a passthrough; any worker may register the dataset
// spec and duplicates are idempotent on the coordinator side.
func (a *Agent) RegisterDataset(spec shardplan.DatasetSpec) error {
	return a.cfg.API.RegisterDataset(spec)
}

// FetchShard obtains this worker's shard of the dataset for the given
// epoch.
func (a *Agent) FetchShard(datasetID string, epoch uint64) (shardplan.Assignment, error) {
	return a.cfg.API.GetDataShard(a.cfg.WorkerID, datasetID, epoch)
}

// Barrier blocks at the named barrier until the quorum forms or the
// timeout expires.
func (a *Agent) Barrier(barrierID string, step uint64, timeout time.Duration) (arrivalOrder, participants int, err error) {
	return a.cfg.API.WaitBarrier(a.cfg.WorkerID, barrierID, step, timeout)
}

// SaveCheckpoint durably writes the payload locally and reports the
// completion to the coordinator. Notification failures are non-fatal
// telemetry; the checkpoint itself is already safe.
func (a *Agent) SaveCheckpoint(payload []byte, step, epoch uint64) (string, error) {
	id, err := a.cfg.Checkpoints.Save(payload, step, epoch)
	if err != nil {
		return "", err
	}
	a.notifyCheckpoint(id, step, epoch, uint64(len(payload)))
	return id, nil
}

// SaveCheckpointAsync enqueues the write on the checkpoint manager's
// background pool. The completion is reported to the coordinator after
// the next WaitPending fence.
func (a *Agent) SaveCheckpointAsync(payload []byte, step, epoch uint64) (string, error) {
	id, err := a.cfg.Checkpoints.SaveAsync(payload, step, epoch)
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	a.pendingNotify = append(a.pendingNotify, pendingCheckpoint{id: id, step: step, epoch: epoch, size: uint64(len(payload))})
	a.mu.Unlock()
	return id, nil
}

// WaitPendingCheckpoints drains the async checkpoint queue and reports
// the completed writes to the coordinator.
func (a *Agent) WaitPendingCheckpoints() error {
	err := a.cfg.Checkpoints.WaitPending()

	a.mu.Lock()
	pending := a.pendingNotify
	a.pendingNotify = nil
	a.mu.Unlock()

	if err != nil {
		// Some writes failed; only notify the ones that are actually on
		// disk.
		for _, p := range pending {
			if _, gerr := a.cfg.Checkpoints.GetByStep(p.step); gerr == nil {
				a.notifyCheckpoint(p.id, p.step, p.epoch, p.size)
			}
		}
		return err
	}
	for _, p := range pending {
		a.notifyCheckpoint(p.id, p.step, p.epoch, p.size)
	}
	return nil
}

// LoadCheckpoint returns the exact bytes previously saved for the step.
func (a *Agent) LoadCheckpoint(step uint64) ([]byte, error) {
	return a.cfg.Checkpoints.Load(step)
}

// Recover locates the most recent checkpoint known to the coordinator
// and, when it is retained locally, loads its payload. A nil payload
// with a nil error means the checkpoint lives on another worker and must
// be fetched via its storage path.
func (a *Agent) Recover() (checkpoint.Record, []byte, error) {
	rec, err := a.cfg.API.LatestCheckpoint()
	if err != nil {
		return checkpoint.Record{}, nil, err
	}

	payload, err := a.cfg.Checkpoints.Load(rec.Step)
	if err != nil {
		if xerrors.Is(err, checkpoint.ErrCheckpointNotFound) {
			return rec, nil, nil
		}
		return checkpoint.Record{}, nil, err
	}
	return rec, payload, nil
}

type pendingCheckpoint struct {
	id    string
	step  uint64
	epoch uint64
	size  uint64
}

// notifyCheckpoint reports a completed local write to the coordinator.
// Failures are logged and swallowed; the local checkpoint is already
// durable.
func (a *Agent) notifyCheckpoint(id string, step, epoch, size uint64) {
	rec := checkpoint.Record{
		CheckpointID: id,
		WorkerID:     a.cfg.WorkerID,
		Step:         step,
		Epoch:        epoch,
		SizeBytes:    size,
		Type:         checkpoint.TypeFull,
		CreatedAt:    a.cfg.Clock.Now(),
	}
	if meta, err := a.cfg.Checkpoints.GetByStep(step); err == nil {
		rec.CheckpointID = meta.ID
		rec.StoragePath = meta.Path
		rec.CreatedAt = meta.CreatedAt
	}
	if err := a.cfg.API.NotifyCheckpoint(rec); err != nil {
		a.cfg.Logger.WithError(err).Warn("unable to report checkpoint completion")
	}
}

func (a *Agent) register() error {
	rank, worldSize, err := a.cfg.API.RegisterWorker(registry.WorkerInfo{
		ID:       a.cfg.WorkerID,
		Hostname: a.cfg.Hostname,
		Port:     a.cfg.Port,
		GPUCount: a.cfg.GPUCount,
	})
	if err != nil {
		return xerrors.Errorf("worker agent: register: %w", err)
	}

	a.mu.Lock()
	a.rank = rank
	a.worldSize = worldSize
	a.mu.Unlock()

	a.cfg.Logger.WithFields(logrus.Fields{
		"worker_id":  a.cfg.WorkerID,
		"rank":       rank,
		"world_size": worldSize,
	}).Info("worker registered")
	return nil
}

func (a *Agent) heartbeat() {
	a.mu.Lock()
	st := a.status
	a.mu.Unlock()

	err := a.cfg.API.Heartbeat(a.cfg.WorkerID, st, a.sampleResources())
	if err == nil {
		return
	}

	// Heartbeat failures are non-fatal telemetry, but an unknown-worker
	// response means the liveness sweep evicted us and we must re-admit.
	if xerrors.Is(err, registry.ErrUnknownWorker) {
		a.cfg.Logger.Warn("worker evicted by liveness sweep; re-registering")
		if rerr := a.register(); rerr != nil {
			a.cfg.Logger.WithError(rerr).Error("unable to re-register worker")
		}
		return
	}
	a.cfg.Logger.WithError(err).Warn("unable to deliver heartbeat")
}

// sampleResources captures a best-effort local resource snapshot.
// Sampling failures degrade to zero values rather than blocking the
// heartbeat.
func (a *Agent) sampleResources() registry.ResourceStats {
	var res registry.ResourceStats

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		res.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		res.MemoryUsedBytes = vm.Used
	}
	return res
}
