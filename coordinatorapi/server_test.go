package coordinatorapi

import (
	"context"
	"testing"
	"time"

	"golang.org/x/xerrors"
	"google.golang.org/grpc"
	gc "gopkg.in/check.v1"

	"github.com/mberk/shepherd/barrier"
	"github.com/mberk/shepherd/checkpoint"
	"github.com/mberk/shepherd/coordinator"
	"github.com/mberk/shepherd/coordinatorapi/proto"
	"github.com/mberk/shepherd/registry"
	"github.com/mberk/shepherd/shardplan"
)

var _ = gc.Suite(new(ServerTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type ServerTestSuite struct {
	co  *coordinator.Coordinator
	cli *CoordinatorClient
}

func (s *ServerTestSuite) SetUpTest(c *gc.C) {
	reg, err := registry.NewRegistry(registry.Config{})
	c.Assert(err, gc.IsNil)
	planner, err := shardplan.NewPlanner(shardplan.PlannerConfig{})
	c.Assert(err, gc.IsNil)
	barriers, err := barrier.NewCoordinator(barrier.Config{WorldSize: reg.WorldSize})
	c.Assert(err, gc.IsNil)
	ckpts, err := checkpoint.NewRegistry(checkpoint.RegistryConfig{})
	c.Assert(err, gc.IsNil)

	co, err := coordinator.New(coordinator.Config{
		Workers:     reg,
		Datasets:    planner,
		Barriers:    barriers,
		Checkpoints: ckpts,
	})
	c.Assert(err, gc.IsNil)
	s.co = co
	s.cli = NewCoordinatorClient(context.TODO(), &loopbackClient{srv: NewCoordinatorServer(co)})
}

func (s *ServerTestSuite) TestWorkerLifecycle(c *gc.C) {
	rank, worldSize, err := s.cli.RegisterWorker(registry.WorkerInfo{ID: "w0", Hostname: "node-0"})
	c.Assert(err, gc.IsNil)
	c.Assert(rank, gc.Equals, 0)
	c.Assert(worldSize, gc.Equals, 1)

	// Duplicate registration surfaces the already-exists sentinel across
	// the wire.
	_, _, err = s.cli.RegisterWorker(registry.WorkerInfo{ID: "w0"})
	c.Assert(xerrors.Is(err, registry.ErrWorkerAlreadyRegistered), gc.Equals, true)

	err = s.cli.Heartbeat("w0", registry.Training{Step: 1, Epoch: 0, Task: "fwd"}, registry.ResourceStats{CPUPercent: 12.5})
	c.Assert(err, gc.IsNil)
	err = s.cli.Heartbeat("ghost", registry.Idle{}, registry.ResourceStats{})
	c.Assert(xerrors.Is(err, registry.ErrUnknownWorker), gc.Equals, true)

	c.Assert(s.cli.DeregisterWorker("w0"), gc.IsNil)
}

func (s *ServerTestSuite) TestShardFetch(c *gc.C) {
	for _, id := range []string{"w0", "w1", "w2", "w3"} {
		_, _, err := s.cli.RegisterWorker(registry.WorkerInfo{ID: id})
		c.Assert(err, gc.IsNil)
	}
	err := s.cli.RegisterDataset(shardplan.DatasetSpec{
		ID:           "imagenet",
		Path:         "/data/imagenet",
		TotalSamples: 10000,
		ShardSize:    1000,
	})
	c.Assert(err, gc.IsNil)

	asn, err := s.cli.GetDataShard("w0", "imagenet", 0)
	c.Assert(err, gc.IsNil)
	c.Assert(asn.Rank, gc.Equals, 0)
	c.Assert(asn.WorldSize, gc.Equals, 4)
	c.Assert(asn.Ranges, gc.DeepEquals, []shardplan.Range{{Start: 0, End: 2500}})
	c.Assert(asn.Paths, gc.DeepEquals, []string{"/data/imagenet"})

	_, err = s.cli.GetDataShard("w0", "ghost", 0)
	c.Assert(xerrors.Is(err, shardplan.ErrDatasetNotFound), gc.Equals, true)
}

func (s *ServerTestSuite) TestCheckpointFlow(c *gc.C) {
	_, _, err := s.cli.RegisterWorker(registry.WorkerInfo{ID: "w0"})
	c.Assert(err, gc.IsNil)

	_, err = s.cli.LatestCheckpoint()
	c.Assert(xerrors.Is(err, checkpoint.ErrCheckpointNotFound), gc.Equals, true)

	now := time.Now().Truncate(time.Millisecond)
	err = s.cli.NotifyCheckpoint(checkpoint.Record{
		CheckpointID: "ckpt-10-a",
		WorkerID:     "w0",
		Step:         10,
		Epoch:        2,
		StoragePath:  "/ckpt/checkpoint-10.ckpt",
		SizeBytes:    512,
		CreatedAt:    now,
	})
	c.Assert(err, gc.IsNil)

	rec, err := s.cli.LatestCheckpoint()
	c.Assert(err, gc.IsNil)
	c.Assert(rec.CheckpointID, gc.Equals, "ckpt-10-a")
	c.Assert(rec.Step, gc.Equals, uint64(10))
	c.Assert(rec.CreatedAt.UnixMilli(), gc.Equals, now.UnixMilli())
}

func (s *ServerTestSuite) TestBarrier(c *gc.C) {
	_, _, err := s.cli.RegisterWorker(registry.WorkerInfo{ID: "w0"})
	c.Assert(err, gc.IsNil)

	// World size is one, so the first arrival forms the quorum.
	order, participants, err := s.cli.WaitBarrier("w0", "epoch-0", 5, time.Second)
	c.Assert(err, gc.IsNil)
	c.Assert(order, gc.Equals, 1)
	c.Assert(participants, gc.Equals, 1)
}

func (s *ServerTestSuite) TestBarrierTimeout(c *gc.C) {
	for _, id := range []string{"w0", "w1"} {
		_, _, err := s.cli.RegisterWorker(registry.WorkerInfo{ID: id})
		c.Assert(err, gc.IsNil)
	}

	_, _, err := s.cli.WaitBarrier("w0", "epoch-0", 5, 20*time.Millisecond)
	c.Assert(xerrors.Is(err, barrier.ErrBarrierTimeout), gc.Equals, true)
}

// loopbackClient satisfies the generated client interface by invoking
// the server implementation directly, skipping the network.
type loopbackClient struct {
	srv proto.TrainingCoordinatorServer
}

func (l *loopbackClient) RegisterWorker(ctx context.Context, in *proto.RegisterWorkerRequest, _ ...grpc.CallOption) (*proto.RegisterWorkerResponse, error) {
	return l.srv.RegisterWorker(ctx, in)
}

func (l *loopbackClient) DeregisterWorker(ctx context.Context, in *proto.DeregisterWorkerRequest, _ ...grpc.CallOption) (*proto.Ack, error) {
	return l.srv.DeregisterWorker(ctx, in)
}

func (l *loopbackClient) RegisterDataset(ctx context.Context, in *proto.RegisterDatasetRequest, _ ...grpc.CallOption) (*proto.Ack, error) {
	return l.srv.RegisterDataset(ctx, in)
}

func (l *loopbackClient) GetDataShard(ctx context.Context, in *proto.ShardRequest, _ ...grpc.CallOption) (*proto.ShardAssignment, error) {
	return l.srv.GetDataShard(ctx, in)
}

func (l *loopbackClient) Heartbeat(ctx context.Context, in *proto.HeartbeatRequest, _ ...grpc.CallOption) (*proto.Ack, error) {
	return l.srv.Heartbeat(ctx, in)
}

func (l *loopbackClient) NotifyCheckpoint(ctx context.Context, in *proto.CheckpointRecord, _ ...grpc.CallOption) (*proto.Ack, error) {
	return l.srv.NotifyCheckpoint(ctx, in)
}

func (l *loopbackClient) WaitBarrier(ctx context.Context, in *proto.BarrierRequest, _ ...grpc.CallOption) (*proto.BarrierResponse, error) {
	return l.srv.WaitBarrier(ctx, in)
}

func (l *loopbackClient) GetLatestCheckpoint(ctx context.Context, in *proto.LatestCheckpointRequest, _ ...grpc.CallOption) (*proto.CheckpointRecord, error) {
	return l.srv.GetLatestCheckpoint(ctx, in)
}
