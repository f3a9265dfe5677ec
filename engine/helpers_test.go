package engine

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	startErr error
	started  bool
	stopped  bool
	closed   bool
}

func (s *fakeStream) Start() error {
	s.started = true
	return s.startErr
}

func (s *fakeStream) Stop() error {
	s.stopped = true
	return nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeDevice hands the process callback to the test, which drives the
// render path by calling pump.
type fakeDevice struct {
	mu       sync.Mutex
	openErr  error
	startErr error
	cfg      StreamConfig
	process  ProcessFunc
	stream   *fakeStream
}

func (d *fakeDevice) Open(cfg StreamConfig, process ProcessFunc) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.openErr != nil {
		return nil, d.openErr
	}

	d.cfg = cfg
	d.process = process
	d.stream = &fakeStream{startErr: d.startErr}

	return d.stream, nil
}

// pump renders mono input and returns the left output channel.
func (d *fakeDevice) pump(in []float32) []float32 {
	d.mu.Lock()
	process, cfg := d.process, d.cfg
	d.mu.Unlock()

	out := make([]float32, len(in)*cfg.OutputChannels)
	process(in, out)

	left := make([]float32, len(in))
	for i := range left {
		left[i] = out[i*cfg.OutputChannels]
	}

	return left
}

func constant(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}

	return out
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *fakeDevice) {
	t.Helper()

	log, _ := test.NewNullLogger()
	dev := &fakeDevice{}
	e := New(dev, append([]Option{WithLogger(log)}, opts...)...)
	t.Cleanup(e.Cleanup)

	return e, dev
}

func newReadyEngine(t *testing.T, opts ...Option) (*Engine, *fakeDevice) {
	t.Helper()

	e, dev := newEngine(t, opts...)
	require.NoError(t, e.Initialize(t.Context()))
	require.Equal(t, Ready, e.State())

	return e, dev
}
