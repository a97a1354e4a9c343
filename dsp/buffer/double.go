// Package buffer provides the double buffer that hands processed, encoded
// audio from the producer (the effect's pull path) to its consumer (the
// downstream output driver). The consumer reads one half while the
// producer fills the other; publishing is a single atomic store of the
// ready index, so no shared-memory race exists between the two contexts.
package buffer

import (
	"fmt"
	"sync/atomic"
)

// Double is a pair of fixed-size byte buffers alternately filled and
// published. Fill and Publish belong to the producer context, Ready to
// the consumer context.
type Double struct {
	halves [2][]byte
	ready  atomic.Int32
	next   int
}

// NewDouble allocates a double buffer with two halves of halfSize bytes.
func NewDouble(halfSize int) (*Double, error) {
	if halfSize <= 0 {
		return nil, fmt.Errorf("buffer half size must be > 0: %d", halfSize)
	}

	d := &Double{}
	d.halves[0] = make([]byte, halfSize)
	d.halves[1] = make([]byte, halfSize)
	d.ready.Store(-1)
	return d, nil
}

// HalfSize returns the size of each half in bytes.
func (d *Double) HalfSize() int {
	return len(d.halves[0])
}

// Half returns one of the two halves for maintenance such as silence
// reinitialization. i must be 0 or 1.
func (d *Double) Half(i int) []byte {
	return d.halves[i]
}

// Fill returns the half the producer should write next. The returned
// slice is not visible to the consumer until Publish.
func (d *Double) Fill() []byte {
	return d.halves[d.next]
}

// Publish marks the half returned by Fill as ready, flips the producer to
// the other half, and returns the published bytes.
func (d *Double) Publish() []byte {
	h := d.halves[d.next]
	d.ready.Store(int32(d.next))
	d.next ^= 1
	return h
}

// Ready returns the most recently published half, or nil if nothing has
// been published since construction or the last Rewind.
func (d *Double) Ready() []byte {
	r := d.ready.Load()
	if r < 0 {
		return nil
	}
	return d.halves[r]
}

// Rewind forgets any published half and restarts filling at half 0.
// Content is left untouched; callers reinitialize it as needed.
func (d *Double) Rewind() {
	d.ready.Store(-1)
	d.next = 0
}
