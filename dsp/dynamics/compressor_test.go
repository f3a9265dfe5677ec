package dynamics

import (
	"math"
	"testing"
)

func TestNewCompressor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		sampleRate float64
		wantErr    bool
	}{
		{"valid 44100", 44100, false},
		{"valid 48000", 48000, false},
		{"invalid zero", 0, true},
		{"invalid negative", -1, true},
		{"invalid NaN", math.NaN(), true},
		{"invalid +Inf", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewCompressor(tt.sampleRate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCompressor() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr && c.Knee() != 30 {
				t.Fatalf("default knee = %v, want 30", c.Knee())
			}
		})
	}
}

func TestSettersClamp(t *testing.T) {
	t.Parallel()

	c, err := NewCompressor(48000)
	if err != nil {
		t.Fatal(err)
	}

	c.SetThreshold(12)
	c.SetRatio(50)
	c.SetAttack(-1)
	c.SetRelease(math.NaN())
	c.SetKnee(100)

	if c.Threshold() != 0 || c.Ratio() != 20 || c.Attack() != 0 || c.Release() != defaultRelease || c.Knee() != 40 {
		t.Fatalf("clamped = %v %v %v %v %v", c.Threshold(), c.Ratio(), c.Attack(), c.Release(), c.Knee())
	}
}

func TestHardKneeStaticCurve(t *testing.T) {
	t.Parallel()

	c, err := NewCompressor(48000)
	if err != nil {
		t.Fatal(err)
	}

	c.SetKnee(0)
	c.SetThreshold(-20)
	c.SetRatio(4)

	// 20 dB over threshold at 4:1 leaves 5 dB: output -15 dB.
	want := math.Pow(10, -15.0/20)
	if got := c.CalculateOutputLevel(1); math.Abs(got-want) > 1e-9 {
		t.Fatalf("output level = %v, want %v", got, want)
	}

	below := math.Pow(10, -30.0/20)
	if got := c.CalculateOutputLevel(below); math.Abs(got-below) > 1e-12 {
		t.Fatalf("below threshold = %v, want %v", got, below)
	}
}

func TestSoftKneeIsContinuous(t *testing.T) {
	t.Parallel()

	c, err := NewCompressor(48000)
	if err != nil {
		t.Fatal(err)
	}

	prev := c.CalculateOutputLevel(math.Pow(10, -60.0/20))
	for db := -59.9; db <= 0; db += 0.1 {
		got := c.CalculateOutputLevel(math.Pow(10, db/20))
		if got < prev {
			t.Fatalf("curve not monotonic at %v dB", db)
		}

		prev = got
	}
}

func TestProcessStereoReducesLoudSignal(t *testing.T) {
	t.Parallel()

	c, err := NewCompressor(48000)
	if err != nil {
		t.Fatal(err)
	}

	c.SetAttack(0)

	left := make([]float64, 4800)
	right := make([]float64, 4800)

	for i := range left {
		left[i] = 0.9
		right[i] = 0.1
	}

	c.ProcessStereo(left, right)

	if left[len(left)-1] >= 0.9 {
		t.Fatalf("loud channel not reduced: %v", left[len(left)-1])
	}

	// Linked detector applies the same gain to both channels.
	ratio := right[len(right)-1] / left[len(left)-1]
	if math.Abs(ratio-0.1/0.9) > 1e-12 {
		t.Fatalf("channel ratio = %v, want %v", ratio, 0.1/0.9)
	}

	if r := c.Reduction(); r >= 0 {
		t.Fatalf("Reduction = %v, want < 0", r)
	}

	if r := c.Reduction(); r != 0 {
		t.Fatalf("meter not reset: %v", r)
	}
}
