package coordinator

import (
	"time"

	"github.com/mberk/shepherd/barrier"
	"github.com/mberk/shepherd/checkpoint"
	"github.com/mberk/shepherd/registry"
	"github.com/mberk/shepherd/shardplan"
)

// CoordinatorStatus describes the coordinator process itself.
type CoordinatorStatus struct {
	Address string        `json:"address"`
	Version string        `json:"version"`
	Uptime  time.Duration `json:"uptime"`
}

// WorkerView is the serialization-friendly projection of a tracked
// worker record.
type WorkerView struct {
	ID           string                 `json:"id"`
	Hostname     string                 `json:"hostname"`
	Port         int                    `json:"port"`
	GPUCount     int                    `json:"gpu_count"`
	Rank         int                    `json:"rank"`
	State        string                 `json:"state"`
	Resources    registry.ResourceStats `json:"resources"`
	RegisteredAt time.Time              `json:"registered_at"`
	LastSeen     time.Time              `json:"last_seen"`
}

// SnapshotMetrics carries aggregate counts derived at snapshot time.
type SnapshotMetrics struct {
	LiveWorkers        int                    `json:"live_workers"`
	TrackedWorkers     int                    `json:"tracked_workers"`
	AggregateResources registry.ResourceStats `json:"aggregate_resources"`
}

// Snapshot is the read-only monitoring view of a training run. It is
// assembled on demand and safe to serialize.
type Snapshot struct {
	Coordinator CoordinatorStatus       `json:"coordinator"`
	Workers     []WorkerView            `json:"workers"`
	Datasets    []shardplan.DatasetSpec `json:"datasets"`
	Checkpoints []checkpoint.Record     `json:"checkpoints"`
	Barriers    []barrier.Info          `json:"barriers"`
	Metrics     SnapshotMetrics         `json:"metrics"`
}

func workerView(info registry.WorkerInfo) WorkerView {
	return WorkerView{
		ID:           info.ID,
		Hostname:     info.Hostname,
		Port:         info.Port,
		GPUCount:     info.GPUCount,
		Rank:         info.Rank,
		State:        info.State().String(),
		Resources:    info.Resources,
		RegisteredAt: info.RegisteredAt,
		LastSeen:     info.LastSeen,
	}
}
