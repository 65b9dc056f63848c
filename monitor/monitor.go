// Package monitor exposes the read-only observability surface of a
// training run over HTTP: a JSON snapshot, prometheus metrics and a
// health probe.
package monitor

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/xerrors"
)

const (
	snapshotEndpoint = "/api/snapshot"
	metricsEndpoint  = "/metrics"
	healthEndpoint   = "/healthz"
)

// Monitor implements the monitoring component for a training run.
type Monitor struct {
	cfg    Config
	router *mux.Router
}

// NewMonitor creates a new monitor instance with the specified config.
func NewMonitor(cfg Config) (*Monitor, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("monitor service: config validation failed: %w", err)
	}

	m := &Monitor{
		cfg:    cfg,
		router: mux.NewRouter(),
	}

	m.router.HandleFunc(snapshotEndpoint, m.renderSnapshot).Methods("GET")
	m.router.Handle(metricsEndpoint, promhttp.Handler()).Methods("GET")
	m.router.HandleFunc(healthEndpoint, m.renderHealth).Methods("GET")
	return m, nil
}

// Serve accepts incoming requests until the provided context expires.
func (m *Monitor) Serve(ctx context.Context) error {
	l, err := net.Listen("tcp", m.cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:    m.cfg.ListenAddr,
		Handler: m.router,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	m.cfg.Logger.WithField("listen_addr", m.cfg.ListenAddr).Info("serving monitoring endpoints")
	if err = srv.Serve(l); err == http.ErrServerClosed {
		// Ignore error when the server shuts down.
		err = nil
	}

	return err
}

func (m *Monitor) renderSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := m.cfg.Source.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		m.cfg.Logger.WithError(err).Error("unable to serialize run snapshot")
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (m *Monitor) renderHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}
