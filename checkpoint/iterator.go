package checkpoint

// Compile-time check for ensuring checkpointIterator implements Iterator.
var _ Iterator = (*checkpointIterator)(nil)

// checkpointIterator iterates a point-in-time snapshot of the retained
// checkpoints, ordered by step ascending.
type checkpointIterator struct {
	checkpoints []Metadata
	cur         int
}

// Close implements Iterator.
func (i *checkpointIterator) Close() error {
	i.checkpoints = nil
	return nil
}

// Next implements Iterator.
func (i *checkpointIterator) Next() bool {
	if i.cur >= len(i.checkpoints) {
		return false
	}
	i.cur++
	return true
}

// Error implements Iterator.
func (i *checkpointIterator) Error() error {
	return nil
}

// Checkpoint implements Iterator.
func (i *checkpointIterator) Checkpoint() Metadata {
	return i.checkpoints[i.cur-1]
}
