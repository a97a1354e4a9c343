package delay

import (
	"math"
	"testing"
)

func TestNewRejectsInvalidCapacity(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) should fail")
	}

	if _, err := New(-4); err == nil {
		t.Error("New(-4) should fail")
	}
}

func TestReadOffsetZeroIsNewest(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 1; i <= 5; i++ {
		d.Write(float64(i))
	}

	if got := d.Read(0); got != 5 {
		t.Errorf("Read(0) = %v, want 5 (most recent)", got)
	}

	if got := d.Read(4); got != 1 {
		t.Errorf("Read(4) = %v, want 1 (oldest written)", got)
	}
}

func TestReadWrapsAroundCapacity(t *testing.T) {
	d, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Write 10 samples into a 4-sample line; only the last 4 survive.
	for i := 1; i <= 10; i++ {
		d.Write(float64(i))
	}

	for offset := 0; offset < 4; offset++ {
		want := float64(10 - offset)
		if got := d.Read(offset); got != want {
			t.Errorf("Read(%d) = %v, want %v", offset, got, want)
		}
	}
}

func TestReadClampsOffsetToCapacity(t *testing.T) {
	d, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 1; i <= 4; i++ {
		d.Write(float64(i))
	}

	// Beyond-capacity offsets pin to the oldest retained sample.
	if got := d.Read(100); got != 1 {
		t.Errorf("Read(100) = %v, want 1", got)
	}

	if got := d.Read(-3); got != 4 {
		t.Errorf("Read(-3) = %v, want 4", got)
	}
}

func TestReadAtTapPositionMapping(t *testing.T) {
	d, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 1; i <= 16; i++ {
		d.Write(float64(i))
	}

	const window = 10

	// Position 0 reads the most recently written sample.
	if got := d.ReadAtTap(0, window); got != 16 {
		t.Errorf("ReadAtTap(0) = %v, want 16", got)
	}

	// Position 1 reads the oldest sample within the current window
	// (offset clamped to window-1).
	if got := d.ReadAtTap(1, window); got != 16-(window-1) {
		t.Errorf("ReadAtTap(1) = %v, want %v", got, 16-(window-1))
	}

	// Offsets grow monotonically with position.
	prevOffset := -1
	for pos := 0.0; pos <= 1.0; pos += 0.1 {
		got := d.ReadAtTap(pos, window)
		offset := 16 - int(got)
		if offset < prevOffset {
			t.Fatalf("offset not monotonic at position %v: %d < %d", pos, offset, prevOffset)
		}
		prevOffset = offset
	}
}

func TestReadAtTapZeroWindow(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	d.Write(0.5)
	d.Write(0.75)

	// With a zero-length delay window every tap reads the newest sample.
	for _, pos := range []float64{0, 0.3, 1} {
		if got := d.ReadAtTap(pos, 0); got != 0.75 {
			t.Errorf("ReadAtTap(%v, 0) = %v, want 0.75", pos, got)
		}
	}
}

func TestReadFractionalMatchesIntegerOffsets(t *testing.T) {
	d, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 16; i++ {
		d.Write(math.Sin(float64(i) / 3))
	}

	for offset := 1; offset < 12; offset++ {
		want := d.Read(offset)
		got := d.ReadFractional(float64(offset))

		if math.Abs(got-want) > 1e-12 {
			t.Errorf("ReadFractional(%d) = %v, want %v", offset, got, want)
		}
	}
}

func TestMaxAbsAndReset(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	d.Write(0.25)
	d.Write(-0.9)
	d.Write(0.5)

	if got := d.MaxAbs(); got != 0.9 {
		t.Errorf("MaxAbs() = %v, want 0.9", got)
	}

	d.Reset()

	if got := d.MaxAbs(); got != 0 {
		t.Errorf("MaxAbs() after Reset = %v, want 0", got)
	}

	if got := d.Read(0); got != 0 {
		t.Errorf("Read(0) after Reset = %v, want 0", got)
	}
}
