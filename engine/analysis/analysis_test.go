package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-livefx/dsp/core"
	"github.com/cwbudde/algo-livefx/dsp/graph"
)

func newTapped(t *testing.T, opts ...Option) (*graph.Context, *Analyser) {
	t.Helper()

	c, err := graph.NewContext(core.WithSampleRate(48000), core.WithQuantumSize(128))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	a, err := New(c, opts...)
	require.NoError(t, err)

	g := graph.New(c)
	require.NoError(t, g.Connect(c.Source(), a.Node()))

	p, err := g.Compile()
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), p)
	require.NoError(t, err)

	return c, a
}

func sine(freq float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.9 * math.Sin(2*math.Pi*freq*float64(i)/48000))
	}

	return out
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	c, err := graph.NewContext()
	require.NoError(t, err)
	t.Cleanup(c.Close)

	for name, opt := range map[string]Option{
		"size not power of two": WithFFTSize(1000),
		"size too small":        WithFFTSize(16),
		"smoothing":             WithSmoothing(1.5),
		"range":                 WithDecibelRange(-30, -100),
	} {
		_, err := New(c, opt)
		require.ErrorIs(t, err, ErrInvalidConfig, name)
	}
}

func TestOptionsApply(t *testing.T) {
	t.Parallel()

	_, a := newTapped(t, WithFFTSize(512), WithSmoothing(0), WithDecibelRange(-90, -10))

	cfg := a.Config()
	assert.Equal(t, 512, cfg.FFTSize)
	assert.InDelta(t, 0, cfg.Smoothing, 0)
	assert.InDelta(t, -90, cfg.MinDB, 0)
	assert.InDelta(t, -10, cfg.MaxDB, 0)
	assert.Equal(t, 256, a.FrequencyBinCount())
	assert.Len(t, a.Poll(), 256)
}

func TestSilenceIsZero(t *testing.T) {
	t.Parallel()

	c, a := newTapped(t)
	c.Render(make([]float32, 4096), 1, make([]float32, 8192))

	out := a.Poll()
	require.Len(t, out, 1024)
	assert.Equal(t, 1024, a.FrequencyBinCount())

	for k, v := range out {
		require.Zero(t, v, "bin %d", k)
	}
}

func TestToneProducesPeakAtItsBin(t *testing.T) {
	t.Parallel()

	c, a := newTapped(t, WithSmoothing(0))
	c.Render(sine(3000, 4096), 1, make([]float32, 8192))

	out := a.Poll()
	require.Len(t, out, 1024)

	peak := 0
	for k := range out {
		if out[k] > out[peak] {
			peak = k
		}
	}

	want := 3000 / (48000.0 / 2048)
	assert.InDelta(t, want, float64(peak), 1)
	assert.Equal(t, uint8(255), out[peak])
	assert.Zero(t, out[900])

	db := a.FloatFrequencyData()
	require.Len(t, db, 1024)
	assert.Greater(t, db[peak], -30.0)
}

func TestSmoothingConvergesOnRepeatedPolls(t *testing.T) {
	t.Parallel()

	c, a := newTapped(t, WithDecibelRange(-100, 0))
	c.Render(sine(1000, 4096), 1, make([]float32, 8192))

	bin := int(math.Round(1000 / (48000.0 / 2048)))

	first := a.Poll()[bin]
	var last uint8

	for range 50 {
		last = a.Poll()[bin]
	}

	assert.Greater(t, last, first)

	a.Reset()
	assert.Equal(t, first, a.Poll()[bin])
}
