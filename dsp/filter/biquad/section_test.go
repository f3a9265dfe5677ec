package biquad

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-livefx/internal/testutil"
)

const sr = 48000.0

func TestLowpassResponse(t *testing.T) {
	t.Parallel()

	c := Lowpass(1000, defaultQ, sr)

	if db := c.MagnitudeDB(10, sr); math.Abs(db) > 0.01 {
		t.Fatalf("DC gain = %v dB, want 0", db)
	}

	if db := c.MagnitudeDB(1000, sr); math.Abs(db+3.01) > 0.05 {
		t.Fatalf("cutoff gain = %v dB, want -3", db)
	}

	if db := c.MagnitudeDB(10000, sr); db > -30 {
		t.Fatalf("stopband gain = %v dB, want < -30", db)
	}
}

func TestHighpassResponse(t *testing.T) {
	t.Parallel()

	c := Highpass(200, defaultQ, sr)

	if db := c.MagnitudeDB(20, sr); db > -30 {
		t.Fatalf("stopband gain = %v dB, want < -30", db)
	}

	if db := c.MagnitudeDB(10000, sr); math.Abs(db) > 0.01 {
		t.Fatalf("passband gain = %v dB, want 0", db)
	}
}

func TestResonancePeak(t *testing.T) {
	t.Parallel()

	c := Lowpass(1000, QFromDB(12), sr)
	if db := c.MagnitudeDB(1000, sr); math.Abs(db-12) > 0.1 {
		t.Fatalf("gain at cutoff = %v dB, want 12", db)
	}
}

func TestDesignEdgeCases(t *testing.T) {
	t.Parallel()

	if c := Lowpass(30000, 1, sr); c != (Coefficients{B0: 1}) {
		t.Fatalf("lowpass above Nyquist = %+v, want pass-through", c)
	}

	if c := Highpass(0, 1, sr); c != (Coefficients{B0: 1}) {
		t.Fatalf("highpass at 0 Hz = %+v, want pass-through", c)
	}

	if c := Lowpass(1000, 1, 0); c != (Coefficients{B0: 1}) {
		t.Fatalf("invalid sample rate = %+v", c)
	}
}

func TestProcessBlockMatchesSample(t *testing.T) {
	t.Parallel()

	c := Lowpass(2000, 2, sr)
	x := testutil.Noise(4, 1, 512)

	a := NewSection(c)
	want := make([]float64, len(x))

	for i, v := range x {
		want[i] = a.ProcessSample(v)
	}

	b := NewSection(c)
	got := append([]float64(nil), x...)
	b.ProcessBlock(got[:100])
	b.ProcessBlock(got[100:])

	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}

func TestSetCoefficientsKeepsState(t *testing.T) {
	t.Parallel()

	s := NewSection(Lowpass(1000, 1, sr))
	s.ProcessSample(1)

	s1, s2 := s.s1, s.s2
	s.SetCoefficients(Lowpass(2000, 1, sr))

	if s.s1 != s1 || s.s2 != s2 {
		t.Fatal("SetCoefficients must keep state")
	}

	s.Reset()

	if s.s1 != 0 || s.s2 != 0 {
		t.Fatal("Reset must clear state")
	}
}

func TestQFromDB(t *testing.T) {
	t.Parallel()

	if q := QFromDB(0); q != 1 {
		t.Fatalf("QFromDB(0) = %v, want 1", q)
	}

	if q := QFromDB(20); math.Abs(q-10) > 1e-12 {
		t.Fatalf("QFromDB(20) = %v, want 10", q)
	}
}
