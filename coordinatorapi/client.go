package coordinatorapi

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"golang.org/x/xerrors"

	"github.com/mberk/shepherd/barrier"
	"github.com/mberk/shepherd/checkpoint"
	"github.com/mberk/shepherd/coordinatorapi/proto"
	"github.com/mberk/shepherd/registry"
	"github.com/mberk/shepherd/shardplan"
)

// CoordinatorClient provides a Go-native API for interacting with a
// coordinator exposed by a remote gRPC server.
type CoordinatorClient struct {
	ctx context.Context
	cli proto.TrainingCoordinatorClient
}

// NewCoordinatorClient returns a new client instance that delegates
// methods to a coordinator instance exposed by a remote gRPC server.
func NewCoordinatorClient(ctx context.Context, rpcClient proto.TrainingCoordinatorClient) *CoordinatorClient {
	return &CoordinatorClient{ctx: ctx, cli: rpcClient}
}

// RegisterWorker admits this worker and returns its assigned rank and
// the world size at admission time.
func (c *CoordinatorClient) RegisterWorker(info registry.WorkerInfo) (rank, worldSize int, err error) {
	req := &proto.RegisterWorkerRequest{
		WorkerId:    info.ID,
		Hostname:    info.Hostname,
		Port:        int32(info.Port),
		GpuCount:    int32(info.GPUCount),
		MemoryBytes: info.MemoryBytes,
	}
	res, err := c.cli.RegisterWorker(c.ctx, req)
	if err != nil {
		return 0, 0, fromRemoteError(err, registry.ErrUnknownWorker)
	}
	return int(res.Rank), int(res.WorldSize), nil
}

// DeregisterWorker removes a worker from the remote registry.
func (c *CoordinatorClient) DeregisterWorker(workerID string) error {
	_, err := c.cli.DeregisterWorker(c.ctx, &proto.DeregisterWorkerRequest{WorkerId: workerID})
	return fromRemoteError(err, registry.ErrUnknownWorker)
}

// RegisterDataset records a dataset spec with the remote shard planner.
func (c *CoordinatorClient) RegisterDataset(spec shardplan.DatasetSpec) error {
	req := &proto.RegisterDatasetRequest{
		DatasetId:    spec.ID,
		Path:         spec.Path,
		Format:       spec.Format,
		TotalSamples: spec.TotalSamples,
		ShardSize:    spec.ShardSize,
		Shuffle:      spec.Shuffle,
		Seed:         spec.Seed,
	}
	_, err := c.cli.RegisterDataset(c.ctx, req)
	return fromRemoteError(err, shardplan.ErrDatasetNotFound)
}

// GetDataShard fetches this worker's shard of the dataset for the given
// epoch.
func (c *CoordinatorClient) GetDataShard(workerID, datasetID string, epoch uint64) (shardplan.Assignment, error) {
	req := &proto.ShardRequest{
		WorkerId:  workerID,
		DatasetId: datasetID,
		Epoch:     epoch,
	}
	res, err := c.cli.GetDataShard(c.ctx, req)
	if err != nil {
		return shardplan.Assignment{}, fromRemoteError(err, shardplan.ErrDatasetNotFound)
	}
	return assignmentFromProto(res), nil
}

// Heartbeat reports the worker's status and resource snapshot.
func (c *CoordinatorClient) Heartbeat(workerID string, st registry.Status, res registry.ResourceStats) error {
	req := &proto.HeartbeatRequest{
		WorkerId:    workerID,
		TimestampMs: time.Now().UnixMilli(),
		Status:      statusToProto(st),
		Resources:   resourcesToProto(res),
	}
	_, err := c.cli.Heartbeat(c.ctx, req)
	return fromRemoteError(err, registry.ErrUnknownWorker)
}

// NotifyCheckpoint reports a completed checkpoint to the coordinator.
func (c *CoordinatorClient) NotifyCheckpoint(rec checkpoint.Record) error {
	_, err := c.cli.NotifyCheckpoint(c.ctx, recordToProto(rec))
	return fromRemoteError(err, registry.ErrUnknownWorker)
}

// WaitBarrier blocks at the named barrier until the quorum forms or the
// timeout expires. A zero timeout applies the server-side default.
func (c *CoordinatorClient) WaitBarrier(workerID, barrierID string, step uint64, timeout time.Duration) (arrivalOrder, participants int, err error) {
	req := &proto.BarrierRequest{
		WorkerId:  workerID,
		BarrierId: barrierID,
		Step:      step,
		TimeoutMs: timeout.Milliseconds(),
	}
	res, err := c.cli.WaitBarrier(c.ctx, req)
	if err != nil {
		return 0, 0, fromRemoteError(err, registry.ErrUnknownWorker)
	}
	return int(res.ArrivalOrder), int(res.Participants), nil
}

// LatestCheckpoint returns the most recent checkpoint any worker has
// reported. Recovering workers use it to locate the state to resume from.
func (c *CoordinatorClient) LatestCheckpoint() (checkpoint.Record, error) {
	res, err := c.cli.GetLatestCheckpoint(c.ctx, new(proto.LatestCheckpointRequest))
	if err != nil {
		return checkpoint.Record{}, fromRemoteError(err, checkpoint.ErrCheckpointNotFound)
	}
	return recordFromProto(res), nil
}

// fromRemoteError maps gRPC status codes back onto the domain error
// taxonomy so callers can branch with xerrors.Is. The notFound sentinel
// names the entity the calling method looks up.
func fromRemoteError(err, notFound error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return xerrors.Errorf("%s: %w", st.Message(), notFound)
	case codes.AlreadyExists:
		return xerrors.Errorf("%s: %w", st.Message(), registry.ErrWorkerAlreadyRegistered)
	case codes.DeadlineExceeded:
		return xerrors.Errorf("%s: %w", st.Message(), barrier.ErrBarrierTimeout)
	default:
		return err
	}
}
