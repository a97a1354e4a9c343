// Package stream drives a multi-tap delay effect from a pull-based
// consumer. One real-time context calls GetBuffer on a fixed cadence; a
// separate control context may call Play, Stop and the effect's parameter
// setters concurrently. The pull path never blocks, never allocates, and
// takes no locks; control handoff happens through atomic publishes.
package stream

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-multitap/dsp/audioio"
	"github.com/cwbudde/algo-multitap/dsp/buffer"
	"github.com/cwbudde/algo-multitap/dsp/effects"
)

// ErrDeinited is returned by every operation invoked after Deinit.
var ErrDeinited = errors.New("stream: instance deinitialized")

// Residual delay-line content below this peak counts as silence when
// deciding the Done status.
const silenceFloor = 1e-4

// playback is the active-source state. Play publishes a fresh value; the
// pull path owns and mutates it afterwards, so the two contexts never
// write the same fields.
type playback struct {
	source audioio.Source
	loop   bool

	chunk []byte
	pos   int
}

// Stream owns the output double buffer and the playback state machine
// around a MultiTapDelay: decode the active source, process, encode into
// the current half, and hand halves to the consumer.
type Stream struct {
	effect *effects.MultiTapDelay
	format audioio.Format
	frames int // frames per output half
	out    *buffer.Double

	mu       sync.Mutex
	deinited atomic.Bool
	pb       atomic.Pointer[playback]

	// Pull-path state.
	served      [2]bool
	cycleStatus audioio.Result
}

// New wraps an effect in a streaming adapter. format fixes the encoding of
// both the expected source data and the produced output; bufferSize is
// the size in bytes of each of the two output buffer halves.
func New(effect *effects.MultiTapDelay, format audioio.Format, bufferSize int) (*Stream, error) {
	if effect == nil {
		return nil, fmt.Errorf("stream: effect must not be nil")
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	if float64(format.SampleRate) != effect.SampleRate() {
		return nil, fmt.Errorf("stream: format sample rate %d does not match effect rate %v",
			format.SampleRate, effect.SampleRate())
	}
	if format.Channels != effect.Channels() {
		return nil, fmt.Errorf("stream: format channel count %d does not match effect channels %d",
			format.Channels, effect.Channels())
	}

	frames := bufferSize / format.BytesPerFrame()
	if frames < 1 {
		return nil, fmt.Errorf("stream: buffer size %d holds no complete %d-byte frame",
			bufferSize, format.BytesPerFrame())
	}

	out, err := buffer.NewDouble(frames * format.BytesPerFrame())
	if err != nil {
		return nil, err
	}

	s := &Stream{
		effect: effect,
		format: format,
		frames: frames,
		out:    out,
	}
	s.markCycleServed()
	s.fillSilence()
	return s, nil
}

// Effect returns the wrapped multi-tap delay for parameter access.
func (s *Stream) Effect() *effects.MultiTapDelay {
	return s.effect
}

// Format returns the stream's fixed encoding.
func (s *Stream) Format() audioio.Format {
	return s.format
}

// FramesPerBuffer returns the number of frames in each output half.
func (s *Stream) FramesPerBuffer() int {
	return s.frames
}

// Play starts pulling dry samples from source, replacing any active
// source wholesale. The source encoding must match the stream's own; a
// mismatch is a caller error, never an implicit conversion. Existing
// delay buffer content is untouched, so prior echoes keep decaying under
// the new source.
func (s *Stream) Play(source audioio.Source, loop bool) error {
	if s.deinited.Load() {
		return ErrDeinited
	}
	if source == nil {
		return fmt.Errorf("stream: source must not be nil")
	}
	if sf := source.Format(); !sf.Matches(s.format) {
		return fmt.Errorf("stream: source format %+v does not match effect format %+v", sf, s.format)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	source.ResetBuffer()
	s.pb.Store(&playback{source: source, loop: loop})
	return nil
}

// Stop drops the active source and returns to idle. Buffered echoes are
// preserved and remain audible in subsequent pulls until they decay.
func (s *Stream) Stop() error {
	if s.deinited.Load() {
		return ErrDeinited
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pb.Store(nil)
	return nil
}

// Playing reports whether an active source is being pulled.
func (s *Stream) Playing() bool {
	return !s.deinited.Load() && s.pb.Load() != nil
}

// Deinit tears the stream down. It is idempotent; any later Play, Stop,
// ResetBuffer or GetBuffer call fails with ErrDeinited.
func (s *Stream) Deinit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deinited.Store(true)
	s.pb.Store(nil)
}

// ResetBuffer reinitializes both output halves to encoded silence and
// restarts the fill cycle. Delay buffer content is a separate concern and
// is deliberately left alone.
func (s *Stream) ResetBuffer() error {
	if s.deinited.Load() {
		return ErrDeinited
	}

	s.out.Rewind()
	s.fillSilence()
	s.markCycleServed()
	return nil
}

// GetBuffer processes the next block when needed and returns the encoded
// samples of one channel, together with a status: MoreData while a source
// is active or echoes persist, Done once both are silent. Requesting a
// channel twice within one cycle, or requesting after all channels were
// served, starts the next cycle.
func (s *Stream) GetBuffer(channel int) (audioio.Result, []byte, error) {
	if s.deinited.Load() {
		return audioio.Done, nil, ErrDeinited
	}
	if channel < 0 || channel >= s.format.Channels {
		return audioio.Done, nil, fmt.Errorf("stream: channel must be in [0, %d): %d",
			s.format.Channels, channel)
	}

	if s.served[channel] {
		s.processCycle()
	}
	s.served[channel] = true

	half := s.out.Ready()
	perChannel := s.frames * s.format.BytesPerSample()
	return s.cycleStatus, half[channel*perChannel : (channel+1)*perChannel], nil
}

// markCycleServed forces the next GetBuffer call to process a new block.
func (s *Stream) markCycleServed() {
	for c := 0; c < s.format.Channels; c++ {
		s.served[c] = true
	}
}

// fillSilence writes encoded silence into both halves. Unsigned formats
// encode silence as the midpoint value, so zeroing bytes is not enough.
func (s *Stream) fillSilence() {
	samples := s.frames * s.format.Channels
	for h := 0; h < 2; h++ {
		half := s.out.Half(h)
		for i := 0; i < samples; i++ {
			s.format.PutSampleAt(half, i, 0)
		}
	}
}

// processCycle runs one block: resolve control inputs, pull and decode dry
// samples, process every frame, and publish the encoded result. Channel
// data is laid out planar within the half so each channel's bytes form
// one contiguous slice.
func (s *Stream) processCycle() {
	s.effect.StartBlock()

	half := s.out.Fill()
	channels := s.format.Channels

	for frame := 0; frame < s.frames; frame++ {
		for c := 0; c < channels; c++ {
			out := s.effect.ProcessSample(c, s.nextSourceSample())
			s.format.PutSampleAt(half, c*s.frames+frame, out)
		}
	}

	s.out.Publish()

	switch {
	case s.pb.Load() != nil:
		s.cycleStatus = audioio.MoreData
	case s.effect.TailPeak() > silenceFloor:
		s.cycleStatus = audioio.MoreData
	default:
		s.cycleStatus = audioio.Done
	}

	for c := 0; c < channels; c++ {
		s.served[c] = false
	}
}

// nextSourceSample decodes the next dry sample from the active source, or
// returns silence when idle. Source exhaustion either rewinds (looping)
// or drops the source and transitions to idle.
func (s *Stream) nextSourceSample() float64 {
	pb := s.pb.Load()
	if pb == nil {
		return 0
	}

	rewound := false
	for pb.chunk == nil || pb.pos >= s.format.SamplesIn(pb.chunk) {
		res, chunk := pb.source.GetBuffer()
		pb.chunk = chunk
		pb.pos = 0

		if len(chunk) > 0 {
			break
		}

		if res != audioio.Done {
			// Underrun: hold silence for this sample.
			return 0
		}

		if !pb.loop || rewound {
			// Exhausted: drop the source, echoes keep playing.
			s.pb.CompareAndSwap(pb, nil)
			return 0
		}

		pb.source.ResetBuffer()
		rewound = true
	}

	v := s.format.SampleAt(pb.chunk, pb.pos)
	pb.pos++
	return v
}
