package checkpoint

import (
	"fmt"
	"time"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RegistryTestSuite))

type RegistryTestSuite struct {
	r *Registry
}

func (s *RegistryTestSuite) SetUpTest(c *gc.C) {
	r, err := NewRegistry(RegistryConfig{})
	c.Assert(err, gc.IsNil)
	s.r = r
}

func (s *RegistryTestSuite) TestNotifyInsertsAndOverwrites(c *gc.C) {
	rec := Record{
		CheckpointID: "ckpt-10-a",
		WorkerID:     "w0",
		Step:         10,
		Epoch:        1,
		StoragePath:  "/ckpt/checkpoint-10.ckpt",
		SizeBytes:    128,
	}
	c.Assert(s.r.Notify(rec), gc.IsNil)

	// Re-notifying the same checkpoint ID overwrites the record in place.
	rec.SizeBytes = 256
	c.Assert(s.r.Notify(rec), gc.IsNil)

	recs := s.r.Checkpoints()
	c.Assert(recs, gc.HasLen, 1)
	c.Assert(recs[0].SizeBytes, gc.Equals, uint64(256))
	c.Assert(recs[0].CreatedAt.IsZero(), gc.Equals, false)
}

func (s *RegistryTestSuite) TestNotifyValidation(c *gc.C) {
	c.Assert(s.r.Notify(Record{WorkerID: "w0"}), gc.ErrorMatches, ".*invalid checkpoint record.*")
	c.Assert(s.r.Notify(Record{CheckpointID: "ckpt-1-a"}), gc.ErrorMatches, ".*invalid checkpoint record.*")
	c.Assert(s.r.Checkpoints(), gc.HasLen, 0)
}

func (s *RegistryTestSuite) TestCheckpointsOrderedByStep(c *gc.C) {
	for _, step := range []uint64{30, 10, 20} {
		rec := Record{
			CheckpointID: fmt.Sprintf("ckpt-%d-a", step),
			WorkerID:     "w0",
			Step:         step,
		}
		c.Assert(s.r.Notify(rec), gc.IsNil)
	}

	var steps []uint64
	for _, rec := range s.r.Checkpoints() {
		steps = append(steps, rec.Step)
	}
	c.Assert(steps, gc.DeepEquals, []uint64{10, 20, 30})
}

func (s *RegistryTestSuite) TestLatest(c *gc.C) {
	_, err := s.r.Latest()
	c.Assert(err, gc.ErrorMatches, ".*checkpoint not found.*")

	now := time.Now()
	for i, step := range []uint64{10, 30, 20} {
		rec := Record{
			CheckpointID: fmt.Sprintf("ckpt-%d-a", step),
			WorkerID:     "w0",
			Step:         step,
			CreatedAt:    now.Add(time.Duration(i) * time.Second),
		}
		c.Assert(s.r.Notify(rec), gc.IsNil)
	}

	latest, err := s.r.Latest()
	c.Assert(err, gc.IsNil)
	c.Assert(latest.Step, gc.Equals, uint64(30))
}

func (s *RegistryTestSuite) TestBoundedRetention(c *gc.C) {
	r, err := NewRegistry(RegistryConfig{KeepCount: 3})
	c.Assert(err, gc.IsNil)

	for step := uint64(1); step <= 5; step++ {
		rec := Record{
			CheckpointID: fmt.Sprintf("ckpt-%d-a", step),
			WorkerID:     "w0",
			Step:         step,
		}
		c.Assert(r.Notify(rec), gc.IsNil)
	}

	var steps []uint64
	for _, rec := range r.Checkpoints() {
		steps = append(steps, rec.Step)
	}
	c.Assert(steps, gc.DeepEquals, []uint64{3, 4, 5})
}
