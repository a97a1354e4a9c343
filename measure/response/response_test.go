package response

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-multitap/dsp/block"
	"github.com/cwbudde/algo-multitap/dsp/effects"
	"github.com/cwbudde/algo-multitap/internal/testutil"
)

func newEchoEffect(t *testing.T, delayMs, decay, mix float64, taps []effects.Tap) *effects.MultiTapDelay {
	t.Helper()

	e, err := effects.NewMultiTapDelay(1000, 100, 1,
		effects.WithDelayMs(block.Constant(delayMs)),
		effects.WithDecay(block.Constant(decay)),
		effects.WithMix(block.Constant(mix)),
		effects.WithTaps(taps),
	)
	if err != nil {
		t.Fatalf("NewMultiTapDelay: %v", err)
	}
	return e
}

func TestImpulseResponseValidation(t *testing.T) {
	a := NewAnalyzer()

	if _, err := a.ImpulseResponse(nil, 64); err != ErrNilEffect {
		t.Errorf("nil effect: %v, want ErrNilEffect", err)
	}

	e := newEchoEffect(t, 10, 0, 1, []effects.Tap{effects.TapAt(1)})
	if _, err := a.ImpulseResponse(e, 0); err != ErrInvalidLength {
		t.Errorf("zero length: %v, want ErrInvalidLength", err)
	}
}

func TestImpulseResponseCapturesEchoTrain(t *testing.T) {
	a := NewAnalyzer()
	e := newEchoEffect(t, 10, 0.5, 1, []effects.Tap{effects.TapAt(1)})

	ir, err := a.ImpulseResponse(e, 45)
	if err != nil {
		t.Fatalf("ImpulseResponse: %v", err)
	}

	want := make([]float64, 45)
	want[10] = 1
	want[20] = 0.5
	want[30] = 0.25
	want[40] = 0.125
	testutil.RequireSliceNearlyEqual(t, ir, want, 1e-12)

	if got := e.TailPeak(); got != 0 {
		t.Errorf("TailPeak after capture = %v, want 0", got)
	}
}

func TestImpulseResponseSpansBlockBoundaries(t *testing.T) {
	a := NewAnalyzer()
	a.BlockSize = 16

	e := newEchoEffect(t, 10, 0.5, 1, []effects.Tap{effects.TapAt(1)})

	ir, err := a.ImpulseResponse(e, 45)
	if err != nil {
		t.Fatalf("ImpulseResponse: %v", err)
	}

	if math.Abs(ir[20]-0.5) > 1e-12 || math.Abs(ir[30]-0.25) > 1e-12 {
		t.Errorf("echoes across block boundaries: ir[20]=%v ir[30]=%v", ir[20], ir[30])
	}
}

func TestEchoPeaksFindsDecayingRepeats(t *testing.T) {
	a := NewAnalyzer()
	e := newEchoEffect(t, 10, 0.5, 1, []effects.Tap{effects.TapAt(1)})

	ir, err := a.ImpulseResponse(e, 45)
	if err != nil {
		t.Fatalf("ImpulseResponse: %v", err)
	}

	peaks, err := a.EchoPeaks(ir, 1000, 0.05)
	if err != nil {
		t.Fatalf("EchoPeaks: %v", err)
	}

	wantIdx := []int{10, 20, 30, 40}
	wantLevel := []float64{1, 0.5, 0.25, 0.125}

	if len(peaks) != len(wantIdx) {
		t.Fatalf("found %d peaks, want %d: %+v", len(peaks), len(wantIdx), peaks)
	}

	for i, p := range peaks {
		if p.Index != wantIdx[i] {
			t.Errorf("peak %d at index %d, want %d", i, p.Index, wantIdx[i])
		}
		if math.Abs(p.Level-wantLevel[i]) > 1e-12 {
			t.Errorf("peak %d level %v, want %v", i, p.Level, wantLevel[i])
		}
		if wantMs := float64(wantIdx[i]); math.Abs(p.TimeMs-wantMs) > 1e-9 {
			t.Errorf("peak %d at %v ms, want %v", i, p.TimeMs, wantMs)
		}
	}
}

func TestEchoPeaksValidation(t *testing.T) {
	a := NewAnalyzer()

	if _, err := a.EchoPeaks(nil, 1000, 0.1); err != ErrEmptyResponse {
		t.Errorf("empty ir: %v, want ErrEmptyResponse", err)
	}
	if _, err := a.EchoPeaks([]float64{1}, 0, 0.1); err != ErrInvalidRate {
		t.Errorf("zero rate: %v, want ErrInvalidRate", err)
	}
}

func TestFrequencyResponseCombNotch(t *testing.T) {
	a := NewAnalyzer()

	// Single 8-sample echo at equal dry/wet mix: H(z) = 0.5 + 0.5*z^-8.
	// At fftSize 64 the first notch lands exactly on bin 4.
	e := newEchoEffect(t, 8, 0, 0.5, []effects.Tap{effects.TapAt(1)})

	ir, err := a.ImpulseResponse(e, 64)
	if err != nil {
		t.Fatalf("ImpulseResponse: %v", err)
	}
	testutil.RequireFinite(t, ir)

	mag, err := a.FrequencyResponse(ir, 64)
	if err != nil {
		t.Fatalf("FrequencyResponse: %v", err)
	}

	if len(mag) != 33 {
		t.Fatalf("len(mag) = %d, want 33", len(mag))
	}

	if math.Abs(mag[0]-1) > 1e-9 {
		t.Errorf("DC magnitude = %v, want 1", mag[0])
	}
	if mag[4] > 1e-9 {
		t.Errorf("notch bin magnitude = %v, want 0", mag[4])
	}
	if math.Abs(mag[8]-1) > 1e-9 {
		t.Errorf("comb peak magnitude = %v, want 1", mag[8])
	}
}

func TestFrequencyResponseValidation(t *testing.T) {
	a := NewAnalyzer()

	if _, err := a.FrequencyResponse(nil, 0); err != ErrEmptyResponse {
		t.Errorf("empty ir: %v, want ErrEmptyResponse", err)
	}
	if _, err := a.FrequencyResponse(make([]float64, 10), 8); err != ErrInvalidFFTSize {
		t.Errorf("undersized fft: %v, want ErrInvalidFFTSize", err)
	}
	if _, err := a.FrequencyResponse(make([]float64, 10), 12); err != ErrInvalidFFTSize {
		t.Errorf("non power of two fft: %v, want ErrInvalidFFTSize", err)
	}
}
