package wavfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-livefx/engine"
)

func constant(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}

	return out
}

func newEngine(t *testing.T, dev *Device) *engine.Engine {
	t.Helper()

	e := engine.New(dev, engine.WithSampleRate(48000), engine.WithFramesPerBuffer(256))
	t.Cleanup(e.Cleanup)
	require.NoError(t, e.Initialize(t.Context()))

	return e
}

func TestNewRejectsBadFormat(t *testing.T) {
	t.Parallel()

	_, err := New(nil, 0, 48000)
	require.ErrorIs(t, err, ErrInvalidFile)

	_, err = New(nil, 1, 0)
	require.ErrorIs(t, err, ErrInvalidFile)
}

func TestOpenChecksSampleRate(t *testing.T) {
	t.Parallel()

	dev, err := New(constant(0, 10), 1, 44100)
	require.NoError(t, err)

	e := engine.New(dev, engine.WithSampleRate(48000))
	t.Cleanup(e.Cleanup)

	err = e.Initialize(t.Context())
	require.ErrorIs(t, err, ErrSampleRate)
	assert.ErrorIs(t, err, engine.ErrInitializationFailed)
	assert.Equal(t, engine.Uninitialized, e.State())
}

func TestRunBeforeStart(t *testing.T) {
	t.Parallel()

	dev, err := New(constant(0, 10), 1, 48000)
	require.NoError(t, err)

	require.ErrorIs(t, dev.Run(t.Context()), ErrNotStarted)
}

func TestRunPassesCleanChainThrough(t *testing.T) {
	t.Parallel()

	dev, err := New(constant(0.5, 1000), 1, 48000)
	require.NoError(t, err)

	newEngine(t, dev)
	require.NoError(t, dev.Run(t.Context()))

	out := dev.Output()
	require.Len(t, out, 2000)

	for i, v := range out {
		require.InDelta(t, 0.5, v, 1e-6, "sample %d", i)
	}
}

func TestRunRendersTail(t *testing.T) {
	t.Parallel()

	dev, err := New(constant(0.5, 1000), 1, 48000, WithTail(10*time.Millisecond))
	require.NoError(t, err)

	newEngine(t, dev)
	require.NoError(t, dev.Run(t.Context()))

	out := dev.Output()
	require.Len(t, out, 2*1480)
	assert.InDelta(t, 0.5, out[2*999], 1e-6)
	assert.InDelta(t, 0, out[2*1200], 1e-6)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	dev, err := New(constant(0.5, 1000), 1, 48000)
	require.NoError(t, err)

	newEngine(t, dev)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.ErrorIs(t, dev.Run(ctx), context.Canceled)
}

func TestRunStopsAfterCleanup(t *testing.T) {
	t.Parallel()

	dev, err := New(constant(0.5, 1000), 1, 48000)
	require.NoError(t, err)

	e := newEngine(t, dev)
	e.Cleanup()

	require.ErrorIs(t, dev.Run(t.Context()), ErrNotStarted)
}

func TestWriteOutputRoundTrip(t *testing.T) {
	t.Parallel()

	// Stereo file with distinct channels; the engine input takes the left.
	samples := make([]float32, 2*600)
	for i := range 600 {
		samples[2*i] = 0.25
		samples[2*i+1] = -0.75
	}

	dev, err := New(samples, 2, 48000)
	require.NoError(t, err)

	newEngine(t, dev)
	require.NoError(t, dev.Run(t.Context()))

	path := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, dev.WriteOutput(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, back.Channels())
	assert.Equal(t, 48000, back.SampleRate())
	assert.Equal(t, 600, back.Frames())

	for i, v := range back.samples {
		require.InDelta(t, 0.25, v, 1.0/16384, "sample %d", i)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorIs(t, err, engine.ErrDeviceNotFound)
}

func TestWithSampleRateResamples(t *testing.T) {
	t.Parallel()

	dev, err := New(constant(0.5, 4410), 1, 44100, WithSampleRate(48000))
	require.NoError(t, err)
	assert.Equal(t, 48000, dev.SampleRate())
	assert.Equal(t, 4800, dev.Frames())

	newEngine(t, dev)
	require.NoError(t, dev.Run(t.Context()))

	out := dev.Output()
	require.Len(t, out, 2*4800)
	assert.InDelta(t, 0.5, out[2*2400], 1e-2)
}
