// Package block models block-rate control inputs. An effect parameter is
// either a fixed scalar or an externally driven modulation source; either
// way it is resolved to one value per processing block, never per sample.
package block

import (
	"fmt"
	"math"
)

// Input is a control value resolved once at the start of each processing
// block. Resolve is only ever called from the processing context.
type Input interface {
	Resolve() float64
}

// Constant is a fixed scalar control value.
type Constant float64

// Resolve returns the stored value.
func (c Constant) Resolve() float64 {
	return float64(c)
}

// LFO is a sinusoidal modulation source stepped once per Resolve call.
// Output is offset + scale*sin(phase), advancing rateHz cycles per second
// of block time.
type LFO struct {
	rateHz    float64
	scale     float64
	offset    float64
	blockRate float64

	phase float64
}

// NewLFO creates a block-rate sine modulator. blockRate is the number of
// Resolve calls per second, i.e. sampleRate / blockFrames for a streaming
// consumer.
func NewLFO(rateHz, scale, offset, blockRate float64) (*LFO, error) {
	if rateHz <= 0 || math.IsNaN(rateHz) || math.IsInf(rateHz, 0) {
		return nil, fmt.Errorf("lfo rate must be > 0 and finite: %f", rateHz)
	}
	if blockRate <= 0 || math.IsNaN(blockRate) || math.IsInf(blockRate, 0) {
		return nil, fmt.Errorf("lfo block rate must be > 0 and finite: %f", blockRate)
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("lfo scale must be finite: %f", scale)
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return nil, fmt.Errorf("lfo offset must be finite: %f", offset)
	}

	return &LFO{
		rateHz:    rateHz,
		scale:     scale,
		offset:    offset,
		blockRate: blockRate,
	}, nil
}

// Resolve returns the current modulator value and advances the phase by
// one block.
func (l *LFO) Resolve() float64 {
	v := l.offset + l.scale*math.Sin(2*math.Pi*l.phase)

	l.phase += l.rateHz / l.blockRate
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
	}

	return v
}

// Reset rewinds the modulator phase.
func (l *LFO) Reset() {
	l.phase = 0
}
