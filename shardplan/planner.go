package shardplan

import (
	"encoding/binary"
	"io/ioutil"
	"math/rand"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// PlannerConfig encapsulates the settings for a shard planner.
type PlannerConfig struct {
	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *PlannerConfig) validate() error {
	var err error
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Planner tracks registered dataset specs and derives shard assignments
// on demand. It can be concurrently accessed by multiple clients.
type Planner struct {
	cfg PlannerConfig

	mu       sync.RWMutex
	datasets map[string]DatasetSpec
}

// NewPlanner creates a new shard planner with the specified config.
func NewPlanner(cfg PlannerConfig) (*Planner, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("shard planner: config validation failed: %w", err)
	}
	return &Planner{
		cfg:      cfg,
		datasets: make(map[string]DatasetSpec),
	}, nil
}

// RegisterDataset records a dataset spec. Registration is idempotent by
// dataset ID: re-registering an identical spec is a no-op, while a
// conflicting respec fails with ErrSpecMismatch (first registration
// wins; silently changing a spec would alter shard derivation for
// in-flight epochs).
func (p *Planner) RegisterDataset(spec DatasetSpec) error {
	var verr error
	if spec.ID == "" {
		verr = multierror.Append(verr, xerrors.Errorf("dataset ID not specified"))
	}
	if spec.TotalSamples == 0 {
		verr = multierror.Append(verr, xerrors.Errorf("total samples must exceed 0"))
	}
	if spec.ShardSize == 0 {
		verr = multierror.Append(verr, xerrors.Errorf("shard size must exceed 0"))
	}
	if verr != nil {
		return xerrors.Errorf("register dataset: %v: %w", verr, ErrInvalidDataset)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, exists := p.datasets[spec.ID]; exists {
		if existing == spec {
			return nil
		}
		return xerrors.Errorf("register dataset %q: %w", spec.ID, ErrSpecMismatch)
	}

	p.datasets[spec.ID] = spec
	p.cfg.Logger.WithFields(logrus.Fields{
		"dataset_id":    spec.ID,
		"total_samples": spec.TotalSamples,
		"shard_size":    spec.ShardSize,
		"shuffle":       spec.Shuffle,
	}).Info("dataset registered")
	return nil
}

// Dataset returns the spec registered under the given ID.
func (p *Planner) Dataset(datasetID string) (DatasetSpec, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	spec, exists := p.datasets[datasetID]
	if !exists {
		return DatasetSpec{}, xerrors.Errorf("dataset %q: %w", datasetID, ErrDatasetNotFound)
	}
	return spec, nil
}

// Datasets returns a copy of every registered spec.
func (p *Planner) Datasets() []DatasetSpec {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]DatasetSpec, 0, len(p.datasets))
	for _, spec := range p.datasets {
		out = append(out, spec)
	}
	return out
}

// Plan derives the shard for one rank of the given world size at the
// given epoch.
//
// The sample sequence is split into worldSize near-equal contiguous
// spans, with the remainder spread over the final spans. When the
// dataset shuffles, the sequence is first permuted block-wise (blocks of
// shard size samples; the permutation is seeded from the dataset seed,
// the dataset ID and the epoch) so shards differ per epoch yet remain
// reproducible. Every sample maps to exactly one rank: nothing is
// dropped and no two ranks overlap.
func (p *Planner) Plan(datasetID string, epoch uint64, rank, worldSize int) (Assignment, error) {
	if worldSize <= 0 {
		return Assignment{}, xerrors.Errorf("plan: world size must exceed 0")
	}
	if rank < 0 || rank >= worldSize {
		return Assignment{}, xerrors.Errorf("plan: rank %d outside [0, %d)", rank, worldSize)
	}

	spec, err := p.Dataset(datasetID)
	if err != nil {
		return Assignment{}, err
	}

	start, end := spanExtents(spec.TotalSamples, rank, worldSize)
	asn := Assignment{
		DatasetID: datasetID,
		Epoch:     epoch,
		Rank:      rank,
		WorldSize: worldSize,
		Paths:     []string{spec.Path},
	}

	if !spec.Shuffle {
		if end > start {
			asn.Ranges = []Range{{Start: start, End: end}}
		}
		return asn, nil
	}

	asn.Ranges = shuffledRanges(spec, epoch, start, end)
	return asn, nil
}

// spanExtents returns the [start, end) positions of the given rank's span
// when totalSamples positions are split into worldSize near-equal
// contiguous spans, remainder pushed onto the final spans.
func spanExtents(totalSamples uint64, rank, worldSize int) (uint64, uint64) {
	var (
		w    = uint64(worldSize)
		r    = uint64(rank)
		base = totalSamples / w
		rem  = totalSamples % w
	)

	// The last rem ranks carry one extra sample each.
	firstExtra := w - rem
	start := r * base
	if r > firstExtra {
		start += r - firstExtra
	}
	end := start + base
	if r >= firstExtra {
		end++
	}
	return start, end
}

// shuffledRanges maps the positional span [start, end) through the
// epoch's block permutation, yielding the concrete sample ranges.
func shuffledRanges(spec DatasetSpec, epoch uint64, start, end uint64) []Range {
	numBlocks := spec.NumBlocks()
	perm := make([]uint64, numBlocks)
	for i := range perm {
		perm[i] = uint64(i)
	}
	rng := rand.New(rand.NewSource(int64(epochSeed(spec, epoch))))
	rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	var (
		ranges []Range
		off    uint64
	)
	for _, block := range perm {
		blockStart := block * spec.ShardSize
		blockEnd := blockStart + spec.ShardSize
		if blockEnd > spec.TotalSamples {
			blockEnd = spec.TotalSamples
		}
		blockLen := blockEnd - blockStart

		// Overlap of [start, end) with this block's positional window.
		lo, hi := off, off+blockLen
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		if lo < hi {
			r := Range{
				Start: blockStart + (lo - off),
				End:   blockStart + (hi - off),
			}
			// Coalesce sample-adjacent ranges.
			if n := len(ranges); n > 0 && ranges[n-1].End == r.Start {
				ranges[n-1].End = r.End
			} else {
				ranges = append(ranges, r)
			}
		}

		off += blockLen
		if off >= end {
			break
		}
	}
	return ranges
}

// epochSeed mixes the dataset seed, dataset ID and epoch into a stable
// 64-bit shuffle seed.
func epochSeed(spec DatasetSpec, epoch uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], spec.Seed)
	binary.LittleEndian.PutUint64(buf[8:16], epoch)

	h := xxhash.New()
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(spec.ID))
	return h.Sum64()
}
