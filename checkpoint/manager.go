package checkpoint

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// ManagerConfig encapsulates the settings for a worker-local checkpoint
// manager.
type ManagerConfig struct {
	// The directory that holds the checkpoint files. Created if it does
	// not exist.
	Dir string

	// The number of most-recent checkpoints to retain. Older ones are
	// evicted after each completed write. If not specified, defaults to 5.
	KeepCount int

	// The number of background write workers. If not specified, defaults
	// to 2.
	WriteWorkers int

	// The capacity of the async write queue. Submissions beyond it block
	// the caller until a slot frees up. If not specified, defaults to 16.
	WriteQueueDepth int

	// A clock instance for generating time-related events. If not
	// specified, the default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *ManagerConfig) validate() error {
	var err error
	if cfg.Dir == "" {
		err = multierror.Append(err, xerrors.Errorf("checkpoint directory not specified"))
	}
	if cfg.KeepCount < 0 {
		err = multierror.Append(err, xerrors.Errorf("keep count must not be negative"))
	}
	if cfg.KeepCount == 0 {
		cfg.KeepCount = 5
	}
	if cfg.WriteWorkers <= 0 {
		cfg.WriteWorkers = 2
	}
	if cfg.WriteQueueDepth <= 0 {
		cfg.WriteQueueDepth = 16
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

type writeReq struct {
	id      string
	step    uint64
	epoch   uint64
	payload []byte
}

// Manager is a worker-local durable checkpoint store. Writes go through
// a write-to-temporary-then-rename discipline so a concurrent load never
// observes partial content, and a bounded pool serves async submissions.
// It can be concurrently accessed by multiple clients.
type Manager struct {
	cfg ManagerConfig

	mu   sync.Mutex
	cond *sync.Cond

	// Retained checkpoints keyed by step. A step is re-saved in place.
	byStep map[uint64]Metadata
	// Read leases per step. An evicted checkpoint with an active lease
	// has its file unlinked only once the last lease is released.
	leases map[uint64]int
	doomed map[uint64]string

	pending int
	failed  []error
	closed  bool

	senders sync.WaitGroup
	writers sync.WaitGroup
	reqCh   chan writeReq
}

// NewManager creates a checkpoint manager rooted at cfg.Dir. Checkpoint
// files already present in the directory are adopted into the retained
// set; leftover temporary files from an interrupted run are removed.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("checkpoint manager: config validation failed: %w", err)
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, xerrors.Errorf("checkpoint manager: create directory: %w", err)
	}

	m := &Manager{
		cfg:    cfg,
		byStep: make(map[uint64]Metadata),
		leases: make(map[uint64]int),
		doomed: make(map[uint64]string),
		reqCh:  make(chan writeReq, cfg.WriteQueueDepth),
	}
	m.cond = sync.NewCond(&m.mu)

	if err := m.adoptExisting(); err != nil {
		return nil, xerrors.Errorf("checkpoint manager: scan directory: %w", err)
	}

	for i := 0; i < cfg.WriteWorkers; i++ {
		m.writers.Add(1)
		go m.writeLoop()
	}
	return m, nil
}

// Save durably writes the payload for the given step and returns once
// the bytes are committed to disk. Saving the same step again replaces
// the previous payload.
func (m *Manager) Save(payload []byte, step, epoch uint64) (string, error) {
	req := writeReq{id: newCheckpointID(step), step: step, epoch: epoch, payload: payload}
	meta, err := m.write(req)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.commitLocked(meta)
	m.mu.Unlock()
	return meta.ID, nil
}

// SaveAsync enqueues the write on the background pool and returns
// without waiting for durability. When the queue is full the call blocks
// until a slot frees up. Failures surface through WaitPending.
func (m *Manager) SaveAsync(payload []byte, step, epoch uint64) (string, error) {
	req := writeReq{id: newCheckpointID(step), step: step, epoch: epoch, payload: payload}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", xerrors.Errorf("save async: %w", ErrManagerClosed)
	}
	m.pending++
	m.senders.Add(1)
	m.mu.Unlock()

	m.reqCh <- req
	m.senders.Done()
	return req.id, nil
}

// WaitPending blocks until every previously enqueued async write has
// completed. It is the durability fence for async saves: it returns the
// accumulated write failures (if any) and clears them.
func (m *Manager) WaitPending() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.pending > 0 {
		m.cond.Wait()
	}

	if len(m.failed) == 0 {
		return nil
	}
	var err error
	for _, werr := range m.failed {
		err = multierror.Append(err, werr)
	}
	m.failed = nil
	return err
}

// Load returns the exact bytes previously saved for the given step.
func (m *Manager) Load(step uint64) ([]byte, error) {
	m.mu.Lock()
	meta, exists := m.byStep[step]
	if !exists {
		m.mu.Unlock()
		return nil, xerrors.Errorf("load step %d: %w", step, ErrCheckpointNotFound)
	}
	m.leases[step]++
	m.mu.Unlock()
	defer m.releaseLease(step)

	payload, err := ioutil.ReadFile(meta.Path)
	if err != nil {
		return nil, xerrors.Errorf("load step %d: %w", step, err)
	}
	return payload, nil
}

// LoadByID returns the exact bytes of the checkpoint with the given ID.
func (m *Manager) LoadByID(checkpointID string) ([]byte, error) {
	m.mu.Lock()
	for step, meta := range m.byStep {
		if meta.ID == checkpointID {
			m.mu.Unlock()
			return m.Load(step)
		}
	}
	m.mu.Unlock()
	return nil, xerrors.Errorf("load checkpoint %q: %w", checkpointID, ErrCheckpointNotFound)
}

// GetByStep returns the metadata of the checkpoint retained for the
// given step.
func (m *Manager) GetByStep(step uint64) (Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, exists := m.byStep[step]
	if !exists {
		return Metadata{}, xerrors.Errorf("get step %d: %w", step, ErrCheckpointNotFound)
	}
	return meta, nil
}

// Latest returns the metadata of the retained checkpoint with the
// highest step.
func (m *Manager) Latest() (Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		best  Metadata
		found bool
	)
	for _, meta := range m.byStep {
		if !found || meta.Step > best.Step {
			best, found = meta, true
		}
	}
	if !found {
		return Metadata{}, xerrors.Errorf("latest checkpoint: %w", ErrCheckpointNotFound)
	}
	return best, nil
}

// Checkpoints returns an iterator over the retained checkpoints ordered
// by step ascending. The iterator works off a point-in-time snapshot.
func (m *Manager) Checkpoints() Iterator {
	m.mu.Lock()
	snapshot := make([]Metadata, 0, len(m.byStep))
	for _, meta := range m.byStep {
		snapshot = append(snapshot, meta)
	}
	m.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Step < snapshot[j].Step })
	return &checkpointIterator{checkpoints: snapshot}
}

// Close drains the async queue, stops the writer pool and returns any
// write failures that have not yet been collected via WaitPending.
// Subsequent saves fail with ErrManagerClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	// Let in-flight SaveAsync calls hand off their requests, then drain.
	m.senders.Wait()
	err := m.WaitPending()
	close(m.reqCh)
	m.writers.Wait()
	return err
}

func (m *Manager) writeLoop() {
	defer m.writers.Done()
	for req := range m.reqCh {
		meta, err := m.write(req)

		m.mu.Lock()
		if err != nil {
			m.failed = append(m.failed, err)
		} else {
			m.commitLocked(meta)
		}
		m.pending--
		m.cond.Broadcast()
		m.mu.Unlock()
	}
}

// write persists the payload to its final per-step file. The payload
// lands in a unique temp file first and is published with an atomic
// rename so concurrent loads never observe partial content.
func (m *Manager) write(req writeReq) (Metadata, error) {
	finalPath := filepath.Join(m.cfg.Dir, checkpointFileName(req.step))
	tmpPath := finalPath + ".tmp-" + uuid.NewString()

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return Metadata{}, xerrors.Errorf("write checkpoint step %d: %w", req.step, err)
	}
	if _, err = f.Write(req.payload); err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpPath, finalPath)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return Metadata{}, xerrors.Errorf("write checkpoint step %d: %w", req.step, err)
	}
	m.syncDir()

	meta := Metadata{
		ID:        req.id,
		Step:      req.step,
		Epoch:     req.epoch,
		Type:      TypeFull,
		Path:      finalPath,
		SizeBytes: uint64(len(req.payload)),
		CreatedAt: m.cfg.Clock.Now(),
	}
	m.cfg.Logger.WithFields(logrus.Fields{
		"checkpoint_id": meta.ID,
		"step":          meta.Step,
		"size_bytes":    meta.SizeBytes,
	}).Info("checkpoint written")
	return meta, nil
}

func (m *Manager) commitLocked(meta Metadata) {
	m.byStep[meta.Step] = meta
	m.evictLocked()
}

// evictLocked removes oldest-by-step checkpoints until at most KeepCount
// remain. Files with an active read lease are unlinked lazily when the
// lease is released.
func (m *Manager) evictLocked() {
	for len(m.byStep) > m.cfg.KeepCount {
		oldest, found := uint64(0), false
		for step := range m.byStep {
			if !found || step < oldest {
				oldest, found = step, true
			}
		}

		meta := m.byStep[oldest]
		delete(m.byStep, oldest)
		if m.leases[oldest] > 0 {
			m.doomed[oldest] = meta.Path
			continue
		}
		if err := os.Remove(meta.Path); err != nil {
			m.cfg.Logger.WithField("path", meta.Path).WithError(err).Warn("unable to remove evicted checkpoint")
		}
		m.cfg.Logger.WithFields(logrus.Fields{
			"checkpoint_id": meta.ID,
			"step":          meta.Step,
		}).Info("checkpoint evicted")
	}
}

func (m *Manager) releaseLease(step uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leases[step]--
	if m.leases[step] > 0 {
		return
	}
	delete(m.leases, step)
	if path, dead := m.doomed[step]; dead {
		delete(m.doomed, step)
		if err := os.Remove(path); err != nil {
			m.cfg.Logger.WithField("path", path).WithError(err).Warn("unable to remove evicted checkpoint")
		}
	}
}

// adoptExisting rebuilds the retained set from files already present in
// the checkpoint directory and cleans up abandoned temp files.
func (m *Manager) adoptExisting() error {
	entries, err := ioutil.ReadDir(m.cfg.Dir)
	if err != nil {
		return err
	}

	for _, fi := range entries {
		if fi.IsDir() {
			continue
		}
		name := fi.Name()
		if strings.Contains(name, ".tmp-") {
			_ = os.Remove(filepath.Join(m.cfg.Dir, name))
			continue
		}

		step, ok := stepFromFileName(name)
		if !ok {
			continue
		}
		m.byStep[step] = Metadata{
			ID:        newCheckpointID(step),
			Step:      step,
			Type:      TypeFull,
			Path:      filepath.Join(m.cfg.Dir, name),
			SizeBytes: uint64(fi.Size()),
			CreatedAt: fi.ModTime(),
		}
	}
	m.evictLocked()

	if len(m.byStep) > 0 {
		m.cfg.Logger.WithField("count", len(m.byStep)).Info("adopted existing checkpoints")
	}
	return nil
}

// syncDir flushes the directory entry after a rename. Failure to sync
// the directory is not fatal to the write.
func (m *Manager) syncDir() {
	d, err := os.Open(m.cfg.Dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func checkpointFileName(step uint64) string {
	return fmt.Sprintf("checkpoint-%d.ckpt", step)
}

func stepFromFileName(name string) (uint64, bool) {
	if !strings.HasPrefix(name, "checkpoint-") || !strings.HasSuffix(name, ".ckpt") {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, "checkpoint-"), ".ckpt")
	step, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return step, true
}

func newCheckpointID(step uint64) string {
	return fmt.Sprintf("ckpt-%d-%s", step, uuid.NewString())
}
