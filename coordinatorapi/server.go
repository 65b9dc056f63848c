package coordinatorapi

import (
	"context"
	"time"

	"golang.org/x/xerrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mberk/shepherd/barrier"
	"github.com/mberk/shepherd/checkpoint"
	"github.com/mberk/shepherd/coordinator"
	"github.com/mberk/shepherd/coordinatorapi/proto"
	"github.com/mberk/shepherd/registry"
	"github.com/mberk/shepherd/shardplan"
)

var _ proto.TrainingCoordinatorServer = (*CoordinatorServer)(nil)

// CoordinatorServer provides a gRPC layer for accessing a coordinator.
type CoordinatorServer struct {
	co *coordinator.Coordinator
}

// NewCoordinatorServer returns a new server instance that exposes the
// provided coordinator.
func NewCoordinatorServer(co *coordinator.Coordinator) *CoordinatorServer {
	return &CoordinatorServer{co: co}
}

func (s *CoordinatorServer) RegisterWorker(_ context.Context, req *proto.RegisterWorkerRequest) (*proto.RegisterWorkerResponse, error) {
	rank, worldSize, err := s.co.RegisterWorker(registry.WorkerInfo{
		ID:          req.WorkerId,
		Hostname:    req.Hostname,
		Port:        int(req.Port),
		GPUCount:    int(req.GpuCount),
		MemoryBytes: req.MemoryBytes,
	})
	if err != nil {
		return nil, toRemoteError(err)
	}
	return &proto.RegisterWorkerResponse{
		Rank:      int32(rank),
		WorldSize: int32(worldSize),
	}, nil
}

func (s *CoordinatorServer) DeregisterWorker(_ context.Context, req *proto.DeregisterWorkerRequest) (*proto.Ack, error) {
	if err := s.co.DeregisterWorker(req.WorkerId); err != nil {
		return nil, toRemoteError(err)
	}
	return new(proto.Ack), nil
}

func (s *CoordinatorServer) RegisterDataset(_ context.Context, req *proto.RegisterDatasetRequest) (*proto.Ack, error) {
	err := s.co.RegisterDataset(shardplan.DatasetSpec{
		ID:           req.DatasetId,
		Path:         req.Path,
		Format:       req.Format,
		TotalSamples: req.TotalSamples,
		ShardSize:    req.ShardSize,
		Shuffle:      req.Shuffle,
		Seed:         req.Seed,
	})
	if err != nil {
		return nil, toRemoteError(err)
	}
	return new(proto.Ack), nil
}

func (s *CoordinatorServer) GetDataShard(_ context.Context, req *proto.ShardRequest) (*proto.ShardAssignment, error) {
	asn, err := s.co.GetDataShard(req.WorkerId, req.DatasetId, req.Epoch)
	if err != nil {
		return nil, toRemoteError(err)
	}
	return assignmentToProto(asn), nil
}

func (s *CoordinatorServer) Heartbeat(_ context.Context, req *proto.HeartbeatRequest) (*proto.Ack, error) {
	err := s.co.Heartbeat(req.WorkerId, statusFromProto(req.GetStatus()), resourcesFromProto(req.GetResources()))
	if err != nil {
		return nil, toRemoteError(err)
	}
	return new(proto.Ack), nil
}

func (s *CoordinatorServer) NotifyCheckpoint(_ context.Context, req *proto.CheckpointRecord) (*proto.Ack, error) {
	if err := s.co.NotifyCheckpoint(recordFromProto(req)); err != nil {
		return nil, toRemoteError(err)
	}
	return new(proto.Ack), nil
}

func (s *CoordinatorServer) WaitBarrier(ctx context.Context, req *proto.BarrierRequest) (*proto.BarrierResponse, error) {
	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	order, participants, err := s.co.WaitBarrier(ctx, req.WorkerId, req.BarrierId, req.Step, timeout)
	if err != nil {
		return nil, toRemoteError(err)
	}
	return &proto.BarrierResponse{
		ArrivalOrder: int32(order),
		Participants: int32(participants),
	}, nil
}

func (s *CoordinatorServer) GetLatestCheckpoint(_ context.Context, _ *proto.LatestCheckpointRequest) (*proto.CheckpointRecord, error) {
	rec, err := s.co.LatestCheckpoint()
	if err != nil {
		return nil, toRemoteError(err)
	}
	return recordToProto(rec), nil
}

// toRemoteError maps the domain error taxonomy onto gRPC status codes.
func toRemoteError(err error) error {
	switch {
	case xerrors.Is(err, registry.ErrUnknownWorker),
		xerrors.Is(err, shardplan.ErrDatasetNotFound),
		xerrors.Is(err, checkpoint.ErrCheckpointNotFound):
		return status.Error(codes.NotFound, err.Error())
	case xerrors.Is(err, registry.ErrWorkerAlreadyRegistered):
		return status.Error(codes.AlreadyExists, err.Error())
	case xerrors.Is(err, shardplan.ErrSpecMismatch),
		xerrors.Is(err, barrier.ErrBarrierComplete),
		xerrors.Is(err, barrier.ErrNoParticipants):
		return status.Error(codes.FailedPrecondition, err.Error())
	case xerrors.Is(err, registry.ErrInvalidWorker),
		xerrors.Is(err, shardplan.ErrInvalidDataset),
		xerrors.Is(err, checkpoint.ErrInvalidRecord):
		return status.Error(codes.InvalidArgument, err.Error())
	case xerrors.Is(err, registry.ErrMaxWorkers):
		return status.Error(codes.ResourceExhausted, err.Error())
	case xerrors.Is(err, barrier.ErrBarrierTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return err
	}
}
