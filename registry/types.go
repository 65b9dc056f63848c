package registry

import "time"

// State enumerates the phases a worker reports via its heartbeats.
type State uint8

const (
	// StateIdle indicates the worker is waiting for work.
	StateIdle State = iota

	// StateLoadingData indicates the worker is materializing its shard.
	StateLoadingData

	// StateTraining indicates the worker is executing training steps.
	StateTraining

	// StateCheckpointing indicates the worker is persisting a checkpoint.
	StateCheckpointing

	// StateDead is assigned by the liveness sweep when a worker misses
	// its heartbeat deadline. Workers never report it themselves.
	StateDead
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLoadingData:
		return "LOADING_DATA"
	case StateTraining:
		return "TRAINING"
	case StateCheckpointing:
		return "CHECKPOINTING"
	case StateDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// Status is implemented by the per-phase status payloads carried in
// heartbeats. Each variant carries only the fields relevant to its phase.
type Status interface {
	// State returns the phase tag for this status payload.
	State() State
}

// Idle is the status payload for a worker waiting between phases.
type Idle struct{}

// State implements Status.
func (Idle) State() State { return StateIdle }

// LoadingData is the status payload for a worker materializing a shard.
type LoadingData struct {
	// The dataset being loaded.
	DatasetID string
}

// State implements Status.
func (LoadingData) State() State { return StateLoadingData }

// Training is the status payload for a worker executing training steps.
type Training struct {
	Step  uint64
	Epoch uint64

	// A free-form description of the current task.
	Task string
}

// State implements Status.
func (Training) State() State { return StateTraining }

// Checkpointing is the status payload for a worker persisting state.
type Checkpointing struct {
	// The step being checkpointed.
	Step uint64
}

// State implements Status.
func (Checkpointing) State() State { return StateCheckpointing }

// AcceleratorStats is a point-in-time snapshot of a single accelerator.
type AcceleratorStats struct {
	ID                 uint32
	UtilizationPercent float64
	MemoryUsedBytes    uint64
	MemoryTotalBytes   uint64
	TemperatureCelsius float64
}

// ResourceStats is a point-in-time resource snapshot reported alongside a
// heartbeat. It is overwritten in full by each report.
type ResourceStats struct {
	CPUPercent      float64
	MemoryUsedBytes uint64
	Accelerators    []AcceleratorStats
}

// WorkerInfo describes a registered worker and its latest reported status.
type WorkerInfo struct {
	// The caller-provided unique worker ID.
	ID string

	Hostname    string
	Port        int
	GPUCount    int
	MemoryBytes uint64

	// The zero-based rank assigned at registration. Immutable for the
	// lifetime of the registration.
	Rank int

	RegisteredAt time.Time

	// The latest heartbeat payload. Nil until the first heartbeat.
	Status Status

	// The latest resource snapshot.
	Resources ResourceStats

	// The time of the last accepted heartbeat (or registration).
	LastSeen time.Time

	dead bool
}

// State returns the worker's current phase, folding in liveness: a worker
// evicted by the sweep reports StateDead regardless of its last heartbeat.
func (w *WorkerInfo) State() State {
	if w.dead {
		return StateDead
	}
	if w.Status == nil {
		return StateIdle
	}
	return w.Status.State()
}
