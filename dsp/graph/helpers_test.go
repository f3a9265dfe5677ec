package graph

import (
	"context"
	"testing"

	"github.com/cwbudde/algo-livefx/dsp/core"
	"github.com/cwbudde/algo-livefx/internal/testutil"
)

const testRate = 48000

func newTestContext(t *testing.T) *Context {
	t.Helper()

	c, err := NewContext(core.WithSampleRate(testRate), core.WithQuantumSize(128))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	t.Cleanup(c.Close)

	return c
}

func mustPublish(t *testing.T, g *Graph) *Program {
	t.Helper()

	p, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if _, err := g.ctx.Publish(context.Background(), p); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	return p
}

// render feeds mono input through the context in device-sized buffers and
// returns the left output channel.
func render(c *Context, input []float32, bufferFrames int) []float32 {
	out := make([]float32, 0, len(input))

	for off := 0; off < len(input); off += bufferFrames {
		end := min(off+bufferFrames, len(input))
		buf := make([]float32, (end-off)*c.Channels())
		c.Render(input[off:end], 1, buf)
		out = append(out, testutil.Channel(buf, c.Channels(), 0)...)
	}

	return out
}

func constant(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}

	return out
}

func impulse(n, pos int) []float32 {
	out := make([]float32, n)
	out[pos] = 1

	return out
}

func nearly(a, b float32, eps float64) bool {
	d := float64(a - b)
	return d < eps && d > -eps
}
