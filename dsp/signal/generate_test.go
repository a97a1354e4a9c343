package signal

import "testing"

func TestNewGeneratorValidation(t *testing.T) {
	if _, err := NewGenerator(0); err == nil {
		t.Error("zero sample rate should fail")
	}
	if _, err := NewGenerator(-8000); err == nil {
		t.Error("negative sample rate should fail")
	}
}

func TestSineLength(t *testing.T) {
	g, err := NewGenerator(48000)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	s, err := g.Sine(1000, 1, 64)
	if err != nil {
		t.Fatalf("Sine() error = %v", err)
	}
	if len(s) != 64 {
		t.Fatalf("len = %d, want 64", len(s))
	}
	if s[0] != 0 {
		t.Fatalf("sine must start at zero, got %v", s[0])
	}
}

func TestImpulse(t *testing.T) {
	g, err := NewGenerator(8000)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	out, err := g.Impulse(0.75, 8, 3)
	if err != nil {
		t.Fatalf("Impulse() error = %v", err)
	}
	for i, v := range out {
		want := 0.0
		if i == 3 {
			want = 0.75
		}
		if v != want {
			t.Fatalf("out[%d]=%v, want %v", i, v, want)
		}
	}

	if _, err := g.Impulse(1, 8, 8); err == nil {
		t.Error("out-of-range position should fail")
	}
}

func TestWhiteNoiseDeterministic(t *testing.T) {
	g1, _ := NewGenerator(8000, WithSeed(42))
	g2, _ := NewGenerator(8000, WithSeed(42))

	n1, err := g1.WhiteNoise(1, 16)
	if err != nil {
		t.Fatalf("WhiteNoise() error = %v", err)
	}
	n2, err := g2.WhiteNoise(1, 16)
	if err != nil {
		t.Fatalf("WhiteNoise() error = %v", err)
	}

	for i := range n1 {
		if n1[i] != n2[i] {
			t.Fatalf("noise mismatch at %d: %v != %v", i, n1[i], n2[i])
		}
	}
}

func TestDC(t *testing.T) {
	g, _ := NewGenerator(8000)
	out, err := g.DC(0.25, 4)
	if err != nil {
		t.Fatalf("DC() error = %v", err)
	}
	for i, v := range out {
		if v != 0.25 {
			t.Fatalf("out[%d]=%v, want 0.25", i, v)
		}
	}
}

func TestNormalize(t *testing.T) {
	out, err := Normalize([]float64{-0.5, 1.0, -0.25}, 0.5)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if out[1] != 0.5 {
		t.Fatalf("peak = %v, want 0.5", out[1])
	}

	if _, err := Normalize(nil, 1); err == nil {
		t.Error("empty input should fail")
	}
}
