// Package delay provides the fixed-capacity circular buffer backing
// delay-based effects. Capacity is fixed at construction; changing the
// effective delay length only moves the read window, it never reallocates
// or clears previously written content.
package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-multitap/dsp/interp"
)

// Line is a circular delay line with a monotonically advancing write
// cursor. Read offsets are expressed in samples of age: offset 0 is the
// most recently written sample.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line of fixed capacity.
func New(capacity int) (*Line, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("delay capacity must be > 0: %d", capacity)
	}
	return &Line{buffer: make([]float64, capacity)}, nil
}

// Cap returns the fixed capacity in samples.
func (d *Line) Cap() int {
	return len(d.buffer)
}

// Write stores one sample at the write cursor and advances it.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read returns the sample written offset samples ago. Offset 0 is the most
// recently written sample. Offsets are clamped to the buffer capacity.
func (d *Line) Read(offset int) float64 {
	size := len(d.buffer)
	if offset < 0 {
		offset = 0
	}
	if offset > size-1 {
		offset = size - 1
	}

	readPos := (d.writePos - 1 - offset + 2*size) % size
	return d.buffer[readPos]
}

// ReadAtTap maps a relative tap position in [0, 1] onto the current delay
// window and returns the sample there. Position 0 reads the most recently
// written sample, position 1 the oldest sample within currentDelay. With a
// zero-length window every position reads the most recent sample.
func (d *Line) ReadAtTap(position float64, currentDelay int) float64 {
	if currentDelay <= 0 {
		return d.Read(0)
	}

	offset := int(math.Round(position * float64(currentDelay)))
	if offset < 0 {
		offset = 0
	}
	if offset > currentDelay-1 {
		offset = currentDelay - 1
	}

	return d.Read(offset)
}

// ReadFractional returns the sample at a fractional age using cubic
// Hermite interpolation between neighboring samples.
func (d *Line) ReadFractional(offset float64) float64 {
	size := len(d.buffer)
	if offset < 0 {
		offset = 0
	}

	maxOffset := float64(size - 3)
	if maxOffset < 0 {
		return d.Read(0)
	}
	if offset > maxOffset {
		offset = maxOffset
	}

	p := int(math.Floor(offset))
	t := offset - float64(p)

	xm1 := d.Read(maxInt(0, p-1))
	x0 := d.Read(p)
	x1 := d.Read(p + 1)
	x2 := d.Read(p + 2)
	return interp.Hermite4(t, xm1, x0, x1, x2)
}

// MaxAbs returns the largest absolute sample value currently stored.
func (d *Line) MaxAbs() float64 {
	peak := 0.0
	for _, v := range d.buffer {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// Reset clears line content and rewinds the write cursor.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
