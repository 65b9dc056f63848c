// Package shardplan derives reproducible dataset shards for the workers
// of a training run. Shard assignments are never stored: they are a pure
// function of (dataset, epoch, rank, world size, seed), so the same
// request always yields the same shard while the world size is unchanged.
package shardplan

// DatasetSpec describes a registered dataset. Specs are immutable once
// first registered.
type DatasetSpec struct {
	// The caller-provided unique dataset ID.
	ID string

	// The storage path workers read samples from.
	Path string

	// A format tag (parquet, tfrecord, webdataset, ...). Opaque to the
	// planner.
	Format string

	// The total number of samples in the dataset.
	TotalSamples uint64

	// The number of samples per shuffle block.
	ShardSize uint64

	// Whether the sample order is re-shuffled every epoch.
	Shuffle bool

	// The seed anchoring the per-epoch shuffle.
	Seed uint64
}

// NumBlocks returns the number of shard-size sample blocks the dataset
// splits into; the final block may be short.
func (s DatasetSpec) NumBlocks() uint64 {
	if s.ShardSize == 0 {
		return 0
	}
	return (s.TotalSamples + s.ShardSize - 1) / s.ShardSize
}

// Range is a half-open [Start, End) span of sample indices.
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of samples in the range.
func (r Range) Len() uint64 { return r.End - r.Start }

// Assignment is the shard derived for one rank and one epoch: an ordered
// list of non-overlapping sample ranges plus the paths to read them from.
type Assignment struct {
	DatasetID string
	Epoch     uint64

	// The rank this assignment belongs to and the world size it was
	// derived against.
	Rank      int
	WorldSize int

	// Coalesced sample ranges, in read order.
	Ranges []Range

	// The file paths backing the dataset.
	Paths []string
}

// SampleCount returns the total number of samples across all ranges.
func (a Assignment) SampleCount() uint64 {
	var n uint64
	for _, r := range a.Ranges {
		n += r.Len()
	}
	return n
}
