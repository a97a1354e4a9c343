// Package audioio defines the encoded PCM sample format, the conversion
// between encoded bytes and the internal float64 representation, and the
// pull interface sources expose to streaming consumers.
package audioio

import "fmt"

// Format describes an encoded PCM stream: 8 or 16 bits per sample, signed
// or unsigned, mono or stereo, little-endian for 16-bit. Stereo data is
// interleaved frame by frame.
type Format struct {
	SampleRate    int
	BitsPerSample int
	Signed        bool
	Channels      int
}

// Validate reports whether the format describes a supported encoding.
func (f Format) Validate() error {
	if f.SampleRate < 1 {
		return fmt.Errorf("sample rate must be >= 1: %d", f.SampleRate)
	}
	if f.BitsPerSample != 8 && f.BitsPerSample != 16 {
		return fmt.Errorf("bits per sample must be 8 or 16: %d", f.BitsPerSample)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channel count must be 1 or 2: %d", f.Channels)
	}
	return nil
}

// Matches reports whether two formats are identical. Effects require their
// source's format to match their own; no implicit conversion happens.
func (f Format) Matches(other Format) bool {
	return f == other
}

// BytesPerSample returns the encoded size of one sample value.
func (f Format) BytesPerSample() int {
	return f.BitsPerSample / 8
}

// BytesPerFrame returns the encoded size of one frame (one sample per
// channel).
func (f Format) BytesPerFrame() int {
	return f.BytesPerSample() * f.Channels
}

// SamplesIn returns the number of whole sample values encoded in data.
func (f Format) SamplesIn(data []byte) int {
	return len(data) / f.BytesPerSample()
}

// SampleAt decodes the i-th sample value (interleaved sample index, not
// frame index) from encoded PCM into the internal [-1, 1) representation.
func (f Format) SampleAt(data []byte, i int) float64 {
	if f.BitsPerSample == 8 {
		b := data[i]
		if f.Signed {
			return float64(int8(b)) / 128
		}
		return float64(int(b)-128) / 128
	}

	raw := uint16(data[2*i]) | uint16(data[2*i+1])<<8
	if f.Signed {
		return float64(int16(raw)) / 32768
	}
	return float64(int(raw)-32768) / 32768
}

// PutSampleAt encodes one internal-representation sample value into the
// i-th slot of data, saturating to the encodable range.
func (f Format) PutSampleAt(data []byte, i int, v float64) {
	if f.BitsPerSample == 8 {
		s := int(roundSample(v * 127))
		if s < -128 {
			s = -128
		} else if s > 127 {
			s = 127
		}
		if f.Signed {
			data[i] = byte(int8(s))
		} else {
			data[i] = byte(s + 128)
		}
		return
	}

	s := int(roundSample(v * 32767))
	if s < -32768 {
		s = -32768
	} else if s > 32767 {
		s = 32767
	}
	if !f.Signed {
		s += 32768
	}
	data[2*i] = byte(s)
	data[2*i+1] = byte(s >> 8)
}

func roundSample(v float64) float64 {
	if v >= 0 {
		return float64(int(v + 0.5))
	}
	return float64(int(v - 0.5))
}

// EncodeSamples encodes src values into dst, which must hold at least
// len(src) samples of the format. It returns the number of bytes written.
func (f Format) EncodeSamples(dst []byte, src []float64) int {
	for i, v := range src {
		f.PutSampleAt(dst, i, v)
	}
	return len(src) * f.BytesPerSample()
}

// DecodeSamples decodes all whole samples from src into dst and returns
// the number of samples decoded.
func (f Format) DecodeSamples(dst []float64, src []byte) int {
	n := f.SamplesIn(src)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = f.SampleAt(src, i)
	}
	return n
}
