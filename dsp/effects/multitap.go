// Package effects implements the multi-tap delay effect core. Processing
// happens in float64 samples in [-1, 1]; format conversion and streaming
// live in dsp/audioio and dsp/stream.
package effects

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-multitap/dsp/block"
	"github.com/cwbudde/algo-multitap/dsp/core"
	"github.com/cwbudde/algo-multitap/dsp/delay"
)

const (
	// MinMaxDelayMs and MaxMaxDelayMs bound the configurable maximum
	// delay time.
	MinMaxDelayMs = 1.0
	MaxMaxDelayMs = 4000.0

	// MaxTaps bounds the tap table so per-sample cost stays constant.
	MaxTaps = 32

	defaultDelayMs = 250.0
	defaultDecay   = 0.7
	defaultMix     = 0.25
)

// Tap is a read position within the delay window. Position 0 maps to the
// most recently written sample, 1 to the oldest sample at the current
// delay length. Level weighs the tap's contribution to the wet signal.
type Tap struct {
	Position float64
	Level    float64
}

// TapAt returns a full-level tap at the given position.
func TapAt(position float64) Tap {
	return Tap{Position: position, Level: 1}
}

// paramSet is an immutable parameter snapshot. Setters build a new set and
// publish it atomically so the processing context never observes a
// half-updated tap table or control input.
type paramSet struct {
	delayMs block.Input
	decay   block.Input
	mix     block.Input
	taps    []Tap
}

// MultiTapDelay reads a circular delay buffer at multiple weighted
// positions per sample, feeds the decayed wet sum back into the buffer,
// and blends dry input with the wet signal.
//
// Control methods (setters and getters) may run concurrently with the
// processing methods; the processing path (StartBlock, ProcessSample)
// itself is single-context, lock-free, and allocation-free.
type MultiTapDelay struct {
	sampleRate      float64
	maxDelayMs      float64
	maxDelaySamples int
	channels        int
	lines           []*delay.Line

	mu     sync.Mutex
	params atomic.Pointer[paramSet]

	lastDelayMs atomic.Uint64 // math.Float64bits

	// Block state owned by the processing context, valid from StartBlock
	// until the next StartBlock.
	curTaps         []Tap
	curDelaySamples int
	curDecay        float64
	curMix          float64
}

// Option mutates multi-tap delay construction parameters.
type Option func(*paramSet) error

// WithDelayMs sets the delay time control input. A constant must lie in
// [0, maxDelayMs]; the bound is checked at construction.
func WithDelayMs(in block.Input) Option {
	return func(p *paramSet) error {
		if in == nil {
			return fmt.Errorf("delay_ms input must not be nil")
		}
		p.delayMs = in
		return nil
	}
}

// WithDecay sets the feedback decay control input.
func WithDecay(in block.Input) Option {
	return func(p *paramSet) error {
		if in == nil {
			return fmt.Errorf("decay input must not be nil")
		}
		p.decay = in
		return nil
	}
}

// WithMix sets the dry/wet mix control input.
func WithMix(in block.Input) Option {
	return func(p *paramSet) error {
		if in == nil {
			return fmt.Errorf("mix input must not be nil")
		}
		p.mix = in
		return nil
	}
}

// WithTaps sets the initial tap table.
func WithTaps(taps []Tap) Option {
	return func(p *paramSet) error {
		validated, err := validateTaps(taps)
		if err != nil {
			return err
		}
		p.taps = validated
		return nil
	}
}

// NewMultiTapDelay creates a multi-tap delay sized for maxDelayMs at the
// given sample rate. The delay buffer capacity is fixed for the instance's
// life; delay time can move below maxDelayMs at runtime but never above.
func NewMultiTapDelay(sampleRate, maxDelayMs float64, channels int, opts ...Option) (*MultiTapDelay, error) {
	if sampleRate < 1 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("sample rate must be >= 1: %f", sampleRate)
	}
	if maxDelayMs < MinMaxDelayMs || maxDelayMs > MaxMaxDelayMs ||
		math.IsNaN(maxDelayMs) || math.IsInf(maxDelayMs, 0) {
		return nil, fmt.Errorf("max delay must be in [%v, %v] ms: %f",
			MinMaxDelayMs, MaxMaxDelayMs, maxDelayMs)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("channel count must be 1 or 2: %d", channels)
	}

	maxDelaySamples := core.MsToSamples(maxDelayMs, sampleRate)
	capacity := maxDelaySamples
	if capacity < 1 {
		capacity = 1
	}

	lines := make([]*delay.Line, channels)
	for i := range lines {
		line, err := delay.New(capacity)
		if err != nil {
			return nil, err
		}
		lines[i] = line
	}

	params := &paramSet{
		delayMs: block.Constant(math.Min(defaultDelayMs, maxDelayMs)),
		decay:   block.Constant(defaultDecay),
		mix:     block.Constant(defaultMix),
	}
	for _, opt := range opts {
		if err := opt(params); err != nil {
			return nil, err
		}
	}

	e := &MultiTapDelay{
		sampleRate:      sampleRate,
		maxDelayMs:      maxDelayMs,
		maxDelaySamples: maxDelaySamples,
		channels:        channels,
		lines:           lines,
	}

	if err := e.checkDelayInput(params.delayMs); err != nil {
		return nil, err
	}

	e.params.Store(params)
	return e, nil
}

func validateTaps(taps []Tap) ([]Tap, error) {
	if len(taps) > MaxTaps {
		return nil, fmt.Errorf("tap count must be <= %d: %d", MaxTaps, len(taps))
	}

	out := make([]Tap, len(taps))
	for i, tap := range taps {
		if tap.Position < 0 || tap.Position > 1 ||
			math.IsNaN(tap.Position) || math.IsInf(tap.Position, 0) {
			return nil, fmt.Errorf("tap %d position must be in [0, 1]: %f", i, tap.Position)
		}
		if tap.Level < 0 || tap.Level > 1 ||
			math.IsNaN(tap.Level) || math.IsInf(tap.Level, 0) {
			return nil, fmt.Errorf("tap %d level must be in [0, 1]: %f", i, tap.Level)
		}
		out[i] = tap
	}

	return out, nil
}

// checkDelayInput rejects constant delay times outside [0, maxDelayMs] at
// assignment time. Modulated inputs are clamped per block instead.
func (e *MultiTapDelay) checkDelayInput(in block.Input) error {
	c, ok := in.(block.Constant)
	if !ok {
		return nil
	}

	v := float64(c)
	if v < 0 || v > e.maxDelayMs || math.IsNaN(v) {
		return fmt.Errorf("delay_ms must be in [0, %v]: %f", e.maxDelayMs, v)
	}

	return nil
}

func checkFiniteConstant(name string, in block.Input) error {
	if in == nil {
		return fmt.Errorf("%s input must not be nil", name)
	}

	if c, ok := in.(block.Constant); ok {
		v := float64(c)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite: %f", name, v)
		}
	}

	return nil
}

// publish swaps in a new parameter snapshot derived from the current one.
func (e *MultiTapDelay) publish(mutate func(p *paramSet)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := *e.params.Load()
	mutate(&next)
	e.params.Store(&next)
}

// SetDelayMs replaces the delay time control input. A constant exceeding
// the configured maximum is a configuration error, not a clamp.
func (e *MultiTapDelay) SetDelayMs(in block.Input) error {
	if in == nil {
		return fmt.Errorf("delay_ms input must not be nil")
	}
	if err := e.checkDelayInput(in); err != nil {
		return err
	}

	e.publish(func(p *paramSet) { p.delayMs = in })
	return nil
}

// SetDecay replaces the decay control input. Resolved values are clamped
// to [0, 1] each block.
func (e *MultiTapDelay) SetDecay(in block.Input) error {
	if err := checkFiniteConstant("decay", in); err != nil {
		return err
	}

	e.publish(func(p *paramSet) { p.decay = in })
	return nil
}

// SetMix replaces the dry/wet mix control input. Resolved values are
// clamped to [0, 1] each block.
func (e *MultiTapDelay) SetMix(in block.Input) error {
	if err := checkFiniteConstant("mix", in); err != nil {
		return err
	}

	e.publish(func(p *paramSet) { p.mix = in })
	return nil
}

// SetTaps replaces the tap table wholesale. The table becomes visible to
// the processing context at its next block boundary, never mid-block.
func (e *MultiTapDelay) SetTaps(taps []Tap) error {
	validated, err := validateTaps(taps)
	if err != nil {
		return err
	}

	e.publish(func(p *paramSet) { p.taps = validated })
	return nil
}

// Taps returns a copy of the current tap table with levels materialized.
func (e *MultiTapDelay) Taps() []Tap {
	taps := e.params.Load().taps
	out := make([]Tap, len(taps))
	copy(out, taps)
	return out
}

// DelayMs returns the current delay time: the stored value for constant
// inputs, otherwise the value resolved at the most recent block start.
func (e *MultiTapDelay) DelayMs() float64 {
	if c, ok := e.params.Load().delayMs.(block.Constant); ok {
		return float64(c)
	}
	return math.Float64frombits(e.lastDelayMs.Load())
}

// DelayInput returns the delay time control input.
func (e *MultiTapDelay) DelayInput() block.Input {
	return e.params.Load().delayMs
}

// DecayInput returns the decay control input.
func (e *MultiTapDelay) DecayInput() block.Input {
	return e.params.Load().decay
}

// MixInput returns the mix control input.
func (e *MultiTapDelay) MixInput() block.Input {
	return e.params.Load().mix
}

// SampleRate returns the processing sample rate in Hz.
func (e *MultiTapDelay) SampleRate() float64 { return e.sampleRate }

// MaxDelayMs returns the configured maximum delay time.
func (e *MultiTapDelay) MaxDelayMs() float64 { return e.maxDelayMs }

// MaxDelaySamples returns the fixed delay buffer capacity in samples.
func (e *MultiTapDelay) MaxDelaySamples() int { return e.maxDelaySamples }

// Channels returns the channel count.
func (e *MultiTapDelay) Channels() int { return e.channels }

// CurrentDelaySamples returns the delay window length resolved at the
// most recent block start.
func (e *MultiTapDelay) CurrentDelaySamples() int { return e.curDelaySamples }

// StartBlock resolves the control inputs for the next processing block.
// It loads the published parameter snapshot exactly once, so a concurrent
// table replacement is visible either entirely before or entirely after
// the block.
func (e *MultiTapDelay) StartBlock() {
	p := e.params.Load()

	delayMs := core.Clamp(p.delayMs.Resolve(), 0, e.maxDelayMs)
	e.lastDelayMs.Store(math.Float64bits(delayMs))

	samples := core.MsToSamples(delayMs, e.sampleRate)
	if samples > e.maxDelaySamples {
		samples = e.maxDelaySamples
	}

	e.curDelaySamples = samples
	e.curDecay = core.Clamp(p.decay.Resolve(), 0, 1)
	e.curMix = core.Clamp(p.mix.Resolve(), 0, 1)
	e.curTaps = p.taps
}

// ProcessSample processes one sample on the given channel using the
// parameters resolved by the last StartBlock. The channel index must be
// in [0, Channels()).
func (e *MultiTapDelay) ProcessSample(channel int, input float64) float64 {
	line := e.lines[channel]

	wet := 0.0
	for _, tap := range e.curTaps {
		wet += tap.Level * line.ReadAtTap(tap.Position, e.curDelaySamples)
	}

	// Feedback write: what persists for future repeats is attenuated by
	// decay; the mixer below observes the raw tap sum instead.
	stored := core.ClampSample(input + wet*e.curDecay)
	line.Write(core.FlushDenormals(stored))

	return core.ClampSample(input*(1-e.curMix) + wet*e.curMix)
}

// ProcessInPlace processes a mono block in place, resolving the control
// inputs once at the block start.
func (e *MultiTapDelay) ProcessInPlace(buf []float64) {
	e.StartBlock()
	for i := range buf {
		buf[i] = e.ProcessSample(0, buf[i])
	}
}

// TailPeak returns the largest absolute sample value still stored in any
// channel's delay buffer. A zero tail means all echoes have decayed.
func (e *MultiTapDelay) TailPeak() float64 {
	peak := 0.0
	for _, line := range e.lines {
		if p := line.MaxAbs(); p > peak {
			peak = p
		}
	}
	return peak
}

// Reset clears delay buffer content on all channels. Parameters and the
// tap table are unaffected.
func (e *MultiTapDelay) Reset() {
	for _, line := range e.lines {
		line.Reset()
	}
}
