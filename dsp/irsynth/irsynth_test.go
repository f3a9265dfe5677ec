package irsynth

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-livefx/internal/testutil"
)

func TestSynthesizeLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sampleRate float64
		decay      float64
		room       float64
		want       int
	}{
		{48000, 3, 70, 144000},
		{48000, 2, 50, 96000},
		{44100, 0.1, 0, 4410},
		{44100, 10, 100, 441000},
		{22050, 0.33333, 20, 7350},
	}

	for _, tc := range tests {
		buf, err := Synthesize(tc.sampleRate, tc.decay, tc.room)
		if err != nil {
			t.Fatalf("Synthesize(%v,%v,%v): %v", tc.sampleRate, tc.decay, tc.room, err)
		}

		if buf.Channels() != 2 {
			t.Fatalf("channels = %d, want 2", buf.Channels())
		}

		for ch := range buf.Data {
			if len(buf.Data[ch]) != tc.want {
				t.Fatalf("channel %d length = %d, want %d", ch, len(buf.Data[ch]), tc.want)
			}
		}

		if buf.Len() != tc.want {
			t.Fatalf("Len = %d, want %d", buf.Len(), tc.want)
		}
	}
}

func TestSynthesizeBoundsAndEnvelope(t *testing.T) {
	t.Parallel()

	buf, err := Synthesize(8000, 1, 0, WithSource(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}

	for ch, data := range buf.Data {
		testutil.RequireFinite(t, data)

		n := float64(len(data))
		for i, v := range data {
			env := math.Pow(1-float64(i)/n, 2)
			if math.Abs(v) > env+1e-12 {
				t.Fatalf("ch %d sample %d: |%v| exceeds envelope %v", ch, i, v, env)
			}
		}

		head := testutil.RMS(data[:800])
		tail := testutil.RMS(data[len(data)-800:])

		if tail >= head {
			t.Fatalf("ch %d: tail RMS %v not below head RMS %v", ch, tail, head)
		}
	}
}

func TestSynthesizeChannelsIndependent(t *testing.T) {
	t.Parallel()

	buf, err := Synthesize(8000, 0.5, 50, WithSource(rand.NewSource(2)))
	if err != nil {
		t.Fatal(err)
	}

	d, err := testutil.MaxAbsDiff(buf.Data[0], buf.Data[1])
	if err != nil {
		t.Fatal(err)
	}

	if d == 0 {
		t.Fatal("left and right channels are identical")
	}
}

func TestSynthesizeDeterministicWithSource(t *testing.T) {
	t.Parallel()

	a, err := Synthesize(8000, 0.25, 30, WithSource(rand.NewSource(9)))
	if err != nil {
		t.Fatal(err)
	}

	b, err := Synthesize(8000, 0.25, 30, WithSource(rand.NewSource(9)))
	if err != nil {
		t.Fatal(err)
	}

	testutil.RequireSliceNearlyEqual(t, a.Data[0], b.Data[0], 0)
}

func TestSynthesizeErrors(t *testing.T) {
	t.Parallel()

	if _, err := Synthesize(0, 1, 50); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("expected ErrInvalidSampleRate, got %v", err)
	}

	if _, err := Synthesize(math.NaN(), 1, 50); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("expected ErrInvalidSampleRate for NaN, got %v", err)
	}

	if _, err := Synthesize(48000, 0, 50); !errors.Is(err, ErrInvalidDecay) {
		t.Fatalf("expected ErrInvalidDecay, got %v", err)
	}

	if _, err := Synthesize(48000, 1e-9, 50); !errors.Is(err, ErrInvalidDecay) {
		t.Fatalf("expected ErrInvalidDecay for sub-sample decay, got %v", err)
	}
}

func TestExponent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		room float64
		want float64
	}{
		{0, 2.0},
		{50, 1.1},
		{100, 0.2},
		{-10, 2.0},
		{250, 0.2},
		{math.NaN(), 2.0},
	}

	for _, tc := range tests {
		if got := Exponent(tc.room); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("Exponent(%v) = %v, want %v", tc.room, got, tc.want)
		}
	}
}
