// Package response measures the time and frequency behavior of a
// multi-tap delay: impulse response capture, echo peak detection, and
// magnitude response via FFT.
package response

import (
	"errors"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-multitap/dsp/effects"
)

// Errors returned by response analysis functions.
var (
	ErrNilEffect      = errors.New("response: effect must not be nil")
	ErrInvalidLength  = errors.New("response: length must be positive")
	ErrEmptyResponse  = errors.New("response: impulse response is empty")
	ErrInvalidRate    = errors.New("response: sample rate must be positive")
	ErrInvalidFFTSize = errors.New("response: fft size must be a power of two covering the response")
)

// Peak describes one detected echo in an impulse response.
type Peak struct {
	Index  int     // sample index of the peak
	TimeMs float64 // peak position in milliseconds
	Level  float64 // absolute peak amplitude
}

// Analyzer captures and analyzes effect responses. Control inputs are
// re-resolved every BlockSize samples during capture, so modulated
// parameters are observed at their block rate.
type Analyzer struct {
	BlockSize int
}

// NewAnalyzer creates an analyzer with the default capture block size.
func NewAnalyzer() *Analyzer {
	return &Analyzer{BlockSize: 512}
}

// ImpulseResponse resets the effect, feeds a unit impulse into channel 0
// and captures length output samples. The effect's delay buffers are
// cleared before and after the capture.
func (a *Analyzer) ImpulseResponse(e *effects.MultiTapDelay, length int) ([]float64, error) {
	if e == nil {
		return nil, ErrNilEffect
	}
	if length <= 0 {
		return nil, ErrInvalidLength
	}

	blockSize := a.BlockSize
	if blockSize <= 0 {
		blockSize = 512
	}

	e.Reset()

	out := make([]float64, length)
	for start := 0; start < length; start += blockSize {
		e.StartBlock()

		end := start + blockSize
		if end > length {
			end = length
		}
		for i := start; i < end; i++ {
			in := 0.0
			if i == 0 {
				in = 1
			}
			out[i] = e.ProcessSample(0, in)
		}
	}

	e.Reset()
	return out, nil
}

// EchoPeaks returns the local maxima of |ir| at or above threshold,
// ordered by sample index.
func (a *Analyzer) EchoPeaks(ir []float64, sampleRate, threshold float64) ([]Peak, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyResponse
	}
	if sampleRate <= 0 {
		return nil, ErrInvalidRate
	}

	var peaks []Peak
	for i, v := range ir {
		av := math.Abs(v)
		if av < threshold {
			continue
		}

		prev := 0.0
		if i > 0 {
			prev = math.Abs(ir[i-1])
		}
		next := 0.0
		if i < len(ir)-1 {
			next = math.Abs(ir[i+1])
		}

		if av >= prev && av > next {
			peaks = append(peaks, Peak{
				Index:  i,
				TimeMs: float64(i) / sampleRate * 1000,
				Level:  av,
			})
		}
	}
	return peaks, nil
}

// FrequencyResponse computes the magnitude response |H[k]| of an impulse
// response for bins 0 through Nyquist. fftSize must be a power of two at
// least as long as ir; pass 0 to choose the smallest fitting size.
func (a *Analyzer) FrequencyResponse(ir []float64, fftSize int) ([]float64, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyResponse
	}

	if fftSize <= 0 {
		fftSize = nextPowerOf2(len(ir))
	}
	if fftSize < len(ir) || fftSize&(fftSize-1) != 0 {
		return nil, ErrInvalidFFTSize
	}

	in := make([]complex128, fftSize)
	for i, v := range ir {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, err
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, err
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for i := 0; i < bins; i++ {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}

	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)
	return mag, nil
}

// nextPowerOf2 returns the smallest power of two >= n.
func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
