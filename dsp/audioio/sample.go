package audioio

import "fmt"

// Result is the status a source reports alongside each pulled chunk.
type Result int

const (
	// MoreData means further chunks follow the returned one.
	MoreData Result = iota
	// Done means the returned chunk (possibly empty) is the last until
	// the source is rewound with ResetBuffer.
	Done
)

// Source is a pull-based stream of encoded PCM. One consumer pulls chunks
// in order; ResetBuffer rewinds to the beginning.
type Source interface {
	Format() Format
	ResetBuffer()
	GetBuffer() (Result, []byte)
}

// RawSample is an in-memory PCM buffer exposed as a Source. It serves as
// the canonical test and demo input for effects.
type RawSample struct {
	format     Format
	data       []byte
	chunkBytes int
	off        int
}

// NewRawSample wraps encoded PCM data in the given format. The data length
// must be frame-aligned. By default the whole buffer is delivered as a
// single chunk; use SetChunkBytes to stream it in smaller pieces.
func NewRawSample(data []byte, format Format) (*RawSample, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if len(data)%format.BytesPerFrame() != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of the %d-byte frame size",
			len(data), format.BytesPerFrame())
	}

	return &RawSample{
		format:     format,
		data:       data,
		chunkBytes: len(data),
	}, nil
}

// SetChunkBytes limits each GetBuffer chunk to n bytes. n must be positive
// and frame-aligned.
func (s *RawSample) SetChunkBytes(n int) error {
	if n <= 0 || n%s.format.BytesPerFrame() != 0 {
		return fmt.Errorf("chunk size must be a positive multiple of the frame size: %d", n)
	}
	s.chunkBytes = n
	return nil
}

// Format returns the sample's encoding.
func (s *RawSample) Format() Format {
	return s.format
}

// ResetBuffer rewinds playback to the first frame.
func (s *RawSample) ResetBuffer() {
	s.off = 0
}

// GetBuffer returns the next chunk. The final chunk is delivered together
// with Done; subsequent calls return an empty Done until ResetBuffer.
func (s *RawSample) GetBuffer() (Result, []byte) {
	if s.off >= len(s.data) {
		return Done, nil
	}

	end := s.off + s.chunkBytes
	if end > len(s.data) {
		end = len(s.data)
	}

	chunk := s.data[s.off:end]
	s.off = end

	if s.off >= len(s.data) {
		return Done, chunk
	}
	return MoreData, chunk
}
