package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"

	"github.com/mberk/shepherd/checkpoint"
	"github.com/mberk/shepherd/registry"
	"github.com/mberk/shepherd/shardplan"
)

var _ = gc.Suite(new(AgentTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type AgentTestSuite struct {
	clk   *testclock.Clock
	api   *fakeAPI
	agent *Agent
}

func (s *AgentTestSuite) SetUpTest(c *gc.C) {
	s.clk = testclock.NewClock(time.Now())
	s.api = newFakeAPI()

	mgr, err := checkpoint.NewManager(checkpoint.ManagerConfig{Dir: c.MkDir()})
	c.Assert(err, gc.IsNil)

	agent, err := NewAgent(Config{
		API:               s.api,
		WorkerID:          "w0",
		Hostname:          "node-0",
		GPUCount:          8,
		Checkpoints:       mgr,
		HeartbeatInterval: 10 * time.Second,
		Clock:             s.clk,
	})
	c.Assert(err, gc.IsNil)
	s.agent = agent
}

func (s *AgentTestSuite) TestRunLifecycle(c *gc.C) {
	ctx, cancel := context.WithCancel(context.TODO())
	doneCh := make(chan error, 1)
	go func() { doneCh <- s.agent.Run(ctx) }()

	// Registration happens synchronously before the first heartbeat.
	s.api.waitRegistered(c)
	c.Assert(s.agent.Rank(), gc.Equals, 0)
	c.Assert(s.agent.WorldSize(), gc.Equals, 1)

	s.agent.SetStatus(registry.Training{Step: 7, Epoch: 1, Task: "fwd"})
	c.Assert(s.clk.WaitAdvance(10*time.Second, time.Second, 1), gc.IsNil)
	st := s.api.waitHeartbeat(c)
	c.Assert(st, gc.DeepEquals, registry.Status(registry.Training{Step: 7, Epoch: 1, Task: "fwd"}))

	cancel()
	c.Assert(<-doneCh, gc.IsNil)
	c.Assert(s.api.deregistered(), gc.Equals, true)
}

func (s *AgentTestSuite) TestReRegisterAfterEviction(c *gc.C) {
	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	doneCh := make(chan error, 1)
	go func() { doneCh <- s.agent.Run(ctx) }()
	s.api.waitRegistered(c)

	// The liveness sweep evicted us; the next heartbeat re-admits.
	s.api.setHeartbeatErr(xerrors.Errorf("gone: %w", registry.ErrUnknownWorker))
	c.Assert(s.clk.WaitAdvance(10*time.Second, time.Second, 1), gc.IsNil)
	s.api.waitRegistrations(c, 2)

	cancel()
	c.Assert(<-doneCh, gc.IsNil)
}

func (s *AgentTestSuite) TestSaveCheckpointNotifies(c *gc.C) {
	id, err := s.agent.SaveCheckpoint([]byte("state"), 10, 2)
	c.Assert(err, gc.IsNil)

	recs := s.api.records()
	c.Assert(recs, gc.HasLen, 1)
	c.Assert(recs[0].CheckpointID, gc.Equals, id)
	c.Assert(recs[0].WorkerID, gc.Equals, "w0")
	c.Assert(recs[0].Step, gc.Equals, uint64(10))
	c.Assert(recs[0].Epoch, gc.Equals, uint64(2))
	c.Assert(recs[0].SizeBytes, gc.Equals, uint64(5))
	c.Assert(recs[0].StoragePath, gc.Matches, ".*checkpoint-10.ckpt")
}

func (s *AgentTestSuite) TestAsyncCheckpointsNotifyAfterFence(c *gc.C) {
	_, err := s.agent.SaveCheckpointAsync([]byte("a"), 1, 0)
	c.Assert(err, gc.IsNil)
	_, err = s.agent.SaveCheckpointAsync([]byte("b"), 2, 0)
	c.Assert(err, gc.IsNil)

	c.Assert(s.agent.WaitPendingCheckpoints(), gc.IsNil)
	c.Assert(s.api.records(), gc.HasLen, 2)

	// The fence reported everything; a second drain has nothing to add.
	c.Assert(s.agent.WaitPendingCheckpoints(), gc.IsNil)
	c.Assert(s.api.records(), gc.HasLen, 2)
}

func (s *AgentTestSuite) TestRecover(c *gc.C) {
	_, _, err := s.agent.Recover()
	c.Assert(xerrors.Is(err, checkpoint.ErrCheckpointNotFound), gc.Equals, true)

	// A checkpoint retained locally is loaded straight away.
	id, err2 := s.agent.SaveCheckpoint([]byte("resume-state"), 50, 9)
	c.Assert(err2, gc.IsNil)
	rec, payload, err := s.agent.Recover()
	c.Assert(err, gc.IsNil)
	c.Assert(rec.CheckpointID, gc.Equals, id)
	c.Assert(payload, gc.DeepEquals, []byte("resume-state"))

	// A checkpoint only another worker retains yields its record but no
	// payload.
	s.api.setLatest(checkpoint.Record{CheckpointID: "ckpt-60-peer", WorkerID: "w1", Step: 60})
	rec, payload, err = s.agent.Recover()
	c.Assert(err, gc.IsNil)
	c.Assert(rec.CheckpointID, gc.Equals, "ckpt-60-peer")
	c.Assert(payload, gc.IsNil)
}

func (s *AgentTestSuite) TestShardAndBarrierPassthrough(c *gc.C) {
	s.api.shard = shardplan.Assignment{DatasetID: "d", Rank: 0, WorldSize: 1, Ranges: []shardplan.Range{{Start: 0, End: 10}}}
	asn, err := s.agent.FetchShard("d", 3)
	c.Assert(err, gc.IsNil)
	c.Assert(asn, gc.DeepEquals, s.api.shard)

	order, parts, err := s.agent.Barrier("epoch-3", 100, time.Second)
	c.Assert(err, gc.IsNil)
	c.Assert(order, gc.Equals, 1)
	c.Assert(parts, gc.Equals, 1)
}

// fakeAPI is an in-memory CoordinatorAPI for driving the agent in tests.
type fakeAPI struct {
	mu sync.Mutex

	registrations int
	deregs        int
	heartbeats    []registry.Status
	notified      []checkpoint.Record
	heartbeatErr  error
	latest        *checkpoint.Record

	shard shardplan.Assignment

	registeredCh chan struct{}
	heartbeatCh  chan registry.Status
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		registeredCh: make(chan struct{}, 16),
		heartbeatCh:  make(chan registry.Status, 16),
	}
}

func (f *fakeAPI) RegisterWorker(info registry.WorkerInfo) (int, int, error) {
	f.mu.Lock()
	f.registrations++
	f.heartbeatErr = nil
	f.mu.Unlock()
	f.registeredCh <- struct{}{}
	return 0, 1, nil
}

func (f *fakeAPI) DeregisterWorker(workerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deregs++
	return nil
}

func (f *fakeAPI) RegisterDataset(spec shardplan.DatasetSpec) error { return nil }

func (f *fakeAPI) GetDataShard(workerID, datasetID string, epoch uint64) (shardplan.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shard, nil
}

func (f *fakeAPI) Heartbeat(workerID string, st registry.Status, res registry.ResourceStats) error {
	f.mu.Lock()
	err := f.heartbeatErr
	if err == nil {
		f.heartbeats = append(f.heartbeats, st)
	}
	f.mu.Unlock()
	if err == nil {
		f.heartbeatCh <- st
	}
	return err
}

func (f *fakeAPI) NotifyCheckpoint(rec checkpoint.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, rec)
	if f.latest == nil || rec.Step > f.latest.Step {
		f.latest = &rec
	}
	return nil
}

func (f *fakeAPI) WaitBarrier(workerID, barrierID string, step uint64, timeout time.Duration) (int, int, error) {
	return 1, 1, nil
}

func (f *fakeAPI) LatestCheckpoint() (checkpoint.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return checkpoint.Record{}, xerrors.Errorf("none reported: %w", checkpoint.ErrCheckpointNotFound)
	}
	return *f.latest, nil
}

func (f *fakeAPI) setHeartbeatErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeatErr = err
}

func (f *fakeAPI) setLatest(rec checkpoint.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = &rec
}

func (f *fakeAPI) records() []checkpoint.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]checkpoint.Record, len(f.notified))
	copy(out, f.notified)
	return out
}

func (f *fakeAPI) deregistered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deregs > 0
}

func (f *fakeAPI) waitRegistered(c *gc.C) {
	select {
	case <-f.registeredCh:
	case <-time.After(2 * time.Second):
		c.Fatal("timed out waiting for registration")
	}
}

func (f *fakeAPI) waitRegistrations(c *gc.C, n int) {
	deadline := time.After(2 * time.Second)
	for {
		f.mu.Lock()
		regs := f.registrations
		f.mu.Unlock()
		if regs >= n {
			return
		}
		select {
		case <-deadline:
			c.Fatalf("timed out waiting for %d registrations", n)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func (f *fakeAPI) waitHeartbeat(c *gc.C) registry.Status {
	select {
	case st := <-f.heartbeatCh:
		return st
	case <-time.After(2 * time.Second):
		c.Fatal("timed out waiting for heartbeat")
		return nil
	}
}
