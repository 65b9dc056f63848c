package barrier

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(BarrierTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type BarrierTestSuite struct {
	worldSize int
	co        *Coordinator
}

func (s *BarrierTestSuite) SetUpTest(c *gc.C) {
	s.worldSize = 0
	co, err := NewCoordinator(Config{
		WorldSize:     func() int { return s.worldSize },
		CompleteGrace: 100 * time.Millisecond,
	})
	c.Assert(err, gc.IsNil)
	s.co = co
}

type waitResult struct {
	workerID string
	order    int
	parts    int
	err      error
}

func (s *BarrierTestSuite) TestQuorumReleasesAllWaiters(c *gc.C) {
	s.worldSize = 4

	resCh := make(chan waitResult, 4)
	var wg sync.WaitGroup
	for _, id := range []string{"w0", "w1", "w2", "w3"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			order, parts, err := s.co.Wait(context.TODO(), id, "epoch-0", 100)
			resCh <- waitResult{workerID: id, order: order, parts: parts, err: err}
		}(id)
	}
	wg.Wait()
	close(resCh)

	var orders []int
	for res := range resCh {
		c.Assert(res.err, gc.IsNil, gc.Commentf("worker %s", res.workerID))
		c.Assert(res.parts, gc.Equals, 4)
		orders = append(orders, res.order)
	}
	sort.Ints(orders)
	c.Assert(orders, gc.DeepEquals, []int{1, 2, 3, 4})
}

func (s *BarrierTestSuite) TestTimeoutScopedToCaller(c *gc.C) {
	s.worldSize = 3

	// The impatient caller arrives first and gives up quickly while a
	// patient peer keeps waiting.
	resCh := make(chan waitResult, 3)
	timeoutCh := make(chan error, 1)
	go func() {
		_, _, err := s.co.WaitTimeout(context.TODO(), "impatient", "sync", 1, 20*time.Millisecond)
		timeoutCh <- err
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		order, parts, err := s.co.Wait(context.TODO(), "w0", "sync", 1)
		resCh <- waitResult{workerID: "w0", order: order, parts: parts, err: err}
	}()
	c.Assert(<-timeoutCh, gc.ErrorMatches, ".*barrier timeout.*")

	// The barrier stays open and the abandoned slot no longer counts
	// towards the quorum, so two more arrivals are needed.
	for _, id := range []string{"w1", "w2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			order, parts, err := s.co.Wait(context.TODO(), id, "sync", 1)
			resCh <- waitResult{workerID: id, order: order, parts: parts, err: err}
		}(id)
	}
	wg.Wait()
	close(resCh)

	var orders []int
	for res := range resCh {
		c.Assert(res.err, gc.IsNil, gc.Commentf("worker %s", res.workerID))
		c.Assert(res.parts, gc.Equals, 3)
		orders = append(orders, res.order)
	}
	sort.Ints(orders)
	c.Assert(orders, gc.DeepEquals, []int{1, 2, 3})
}

func (s *BarrierTestSuite) TestDuplicateArrivalIdempotent(c *gc.C) {
	s.worldSize = 2

	resCh := make(chan waitResult, 3)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, parts, err := s.co.Wait(context.TODO(), "w0", "dup", 5)
			resCh <- waitResult{workerID: "w0", order: order, parts: parts, err: err}
		}()
	}

	// Give the duplicate calls a chance to park before the quorum forms.
	time.Sleep(20 * time.Millisecond)
	order, parts, err := s.co.Wait(context.TODO(), "w1", "dup", 5)
	c.Assert(err, gc.IsNil)
	c.Assert(order, gc.Equals, 2)
	c.Assert(parts, gc.Equals, 2)
	wg.Wait()
	close(resCh)

	// Both calls from the duplicated worker observe the same order.
	for res := range resCh {
		c.Assert(res.err, gc.IsNil)
		c.Assert(res.order, gc.Equals, 1)
		c.Assert(res.parts, gc.Equals, 2)
	}
}

func (s *BarrierTestSuite) TestNoLiveWorkers(c *gc.C) {
	s.worldSize = 0
	_, _, err := s.co.Wait(context.TODO(), "w0", "empty", 0)
	c.Assert(err, gc.ErrorMatches, ".*no live workers.*")
}

func (s *BarrierTestSuite) TestLateCallerAfterCompletion(c *gc.C) {
	s.worldSize = 1

	order, parts, err := s.co.Wait(context.TODO(), "w0", "solo", 9)
	c.Assert(err, gc.IsNil)
	c.Assert(order, gc.Equals, 1)
	c.Assert(parts, gc.Equals, 1)

	// A released participant retrying inside the grace window re-reads
	// its result; a stranger is rejected.
	order, parts, err = s.co.Wait(context.TODO(), "w0", "solo", 9)
	c.Assert(err, gc.IsNil)
	c.Assert(order, gc.Equals, 1)
	c.Assert(parts, gc.Equals, 1)
	_, _, err = s.co.Wait(context.TODO(), "stranger", "solo", 9)
	c.Assert(err, gc.ErrorMatches, ".*barrier already complete.*")
}

func (s *BarrierTestSuite) TestContextCancellation(c *gc.C) {
	s.worldSize = 2

	ctx, cancel := context.WithCancel(context.TODO())
	resCh := make(chan waitResult, 1)
	go func() {
		order, parts, err := s.co.Wait(ctx, "w0", "cancelled", 0)
		resCh <- waitResult{order: order, parts: parts, err: err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	res := <-resCh
	c.Assert(res.err, gc.ErrorMatches, ".*context canceled.*")
}

func (s *BarrierTestSuite) TestIndependentBarriers(c *gc.C) {
	s.worldSize = 1

	order, parts, err := s.co.Wait(context.TODO(), "w0", "epoch-1", 1)
	c.Assert(err, gc.IsNil)
	c.Assert(order, gc.Equals, 1)
	c.Assert(parts, gc.Equals, 1)

	// A second barrier under a different ID starts from scratch.
	order, parts, err = s.co.Wait(context.TODO(), "w0", "epoch-2", 2)
	c.Assert(err, gc.IsNil)
	c.Assert(order, gc.Equals, 1)
	c.Assert(parts, gc.Equals, 1)
}

func (s *BarrierTestSuite) TestSnapshotListsPendingBarrier(c *gc.C) {
	s.worldSize = 2

	resCh := make(chan waitResult, 1)
	go func() {
		order, parts, err := s.co.Wait(context.TODO(), "w0", "pending", 3)
		resCh <- waitResult{order: order, parts: parts, err: err}
	}()

	time.Sleep(20 * time.Millisecond)
	infos := s.co.Barriers()
	c.Assert(infos, gc.HasLen, 1)
	c.Assert(infos[0].ID, gc.Equals, "pending")
	c.Assert(infos[0].Step, gc.Equals, uint64(3))
	c.Assert(infos[0].Participants, gc.Equals, 2)
	c.Assert(infos[0].Arrived, gc.DeepEquals, []string{"w0"})
	c.Assert(infos[0].Completed, gc.Equals, false)

	_, _, err := s.co.Wait(context.TODO(), "w1", "pending", 3)
	c.Assert(err, gc.IsNil)
	res := <-resCh
	c.Assert(res.err, gc.IsNil)
}
