package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gc "gopkg.in/check.v1"

	"github.com/mberk/shepherd/coordinator"
)

var _ = gc.Suite(new(MonitorTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type MonitorTestSuite struct {
	m *Monitor
}

type staticSource struct {
	snap coordinator.Snapshot
}

func (s staticSource) Snapshot() coordinator.Snapshot { return s.snap }

func (s *MonitorTestSuite) SetUpTest(c *gc.C) {
	src := staticSource{
		snap: coordinator.Snapshot{
			Coordinator: coordinator.CoordinatorStatus{
				Address: "localhost:9090",
				Version: "test",
				Uptime:  time.Minute,
			},
			Workers: []coordinator.WorkerView{
				{ID: "w0", Rank: 0, State: "TRAINING"},
			},
			Metrics: coordinator.SnapshotMetrics{LiveWorkers: 1, TrackedWorkers: 1},
		},
	}

	m, err := NewMonitor(Config{Source: src, ListenAddr: "localhost:0"})
	c.Assert(err, gc.IsNil)
	s.m = m
}

func (s *MonitorTestSuite) TestConfigValidation(c *gc.C) {
	_, err := NewMonitor(Config{})
	c.Assert(err, gc.ErrorMatches, "(?s).*listen address has not been specified.*")
}

func (s *MonitorTestSuite) TestSnapshotEndpoint(c *gc.C) {
	w := httptest.NewRecorder()
	s.m.router.ServeHTTP(w, httptest.NewRequest("GET", snapshotEndpoint, nil))
	c.Assert(w.Code, gc.Equals, http.StatusOK)
	c.Assert(w.Header().Get("Content-Type"), gc.Equals, "application/json")

	var snap coordinator.Snapshot
	c.Assert(json.Unmarshal(w.Body.Bytes(), &snap), gc.IsNil)
	c.Assert(snap.Coordinator.Address, gc.Equals, "localhost:9090")
	c.Assert(snap.Workers, gc.HasLen, 1)
	c.Assert(snap.Workers[0].State, gc.Equals, "TRAINING")
	c.Assert(snap.Metrics.LiveWorkers, gc.Equals, 1)
}

func (s *MonitorTestSuite) TestHealthEndpoint(c *gc.C) {
	w := httptest.NewRecorder()
	s.m.router.ServeHTTP(w, httptest.NewRequest("GET", healthEndpoint, nil))
	c.Assert(w.Code, gc.Equals, http.StatusOK)
	c.Assert(w.Body.String(), gc.Equals, `{"status":"ok"}`+"\n")
}

func (s *MonitorTestSuite) TestMetricsEndpoint(c *gc.C) {
	w := httptest.NewRecorder()
	s.m.router.ServeHTTP(w, httptest.NewRequest("GET", metricsEndpoint, nil))
	c.Assert(w.Code, gc.Equals, http.StatusOK)
}
