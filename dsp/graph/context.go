package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-livefx/dsp/core"
)

// Errors returned by the graph runtime.
var (
	ErrClosed          = errors.New("graph: context closed")
	ErrInvalidQuantum  = errors.New("graph: render quantum must be a power of two")
	ErrForeignNode     = errors.New("graph: node belongs to another context")
	ErrNoInput         = errors.New("graph: node has no input")
	ErrNoOutput        = errors.New("graph: node has no output")
	ErrCycle           = errors.New("graph: cycle without a delay node")
	ErrReleased        = errors.New("graph: graph released")
	ErrInvalidArgument = errors.New("graph: invalid argument")
)

// Context is the processing context: sample clock, node registry, and the
// currently published Program.
//
// Render is called from one device goroutine. Every other method is safe for
// concurrent use.
type Context struct {
	cfg core.ProcessorConfig

	frame  atomic.Int64
	seq    atomic.Uint64 // odd while a quantum is rendering
	closed atomic.Bool
	prog   atomic.Pointer[Program]

	mu     sync.Mutex
	nodes  map[uint64]Node
	nextID uint64

	source *Source
	dest   *Destination

	// render path only
	input      []float64
	pendingIn  []float64
	pendingOut []float32
	quantumOut [][]float64
}

// NewContext creates a processing context. The quantum must be a power of
// two so partitioned convolution can run one partition per quantum.
func NewContext(opts ...core.ProcessorOption) (*Context, error) {
	cfg := core.ApplyProcessorOptions(opts...)
	if q := cfg.QuantumSize; q <= 0 || q&(q-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantum, q)
	}

	c := &Context{
		cfg:        cfg,
		nodes:      make(map[uint64]Node),
		input:      make([]float64, cfg.QuantumSize),
		quantumOut: [][]float64{make([]float64, cfg.QuantumSize), make([]float64, cfg.QuantumSize)},
	}

	c.source = &Source{}
	_ = c.source.init(c.source, c, "source", 0, 1)

	c.dest = &Destination{}
	_ = c.dest.init(c.dest, c, "destination", 1, 0)

	return c, nil
}

// SampleRate returns the sample rate in Hz.
func (c *Context) SampleRate() float64 { return c.cfg.SampleRate }

// QuantumSize returns the number of frames per render pass.
func (c *Context) QuantumSize() int { return c.cfg.QuantumSize }

// Channels returns the output channel count expected by Render.
func (c *Context) Channels() int { return c.cfg.Channels }

// CurrentFrame returns the start frame of the next quantum to render.
func (c *Context) CurrentFrame() int64 { return c.frame.Load() }

// CurrentTime returns CurrentFrame in seconds.
func (c *Context) CurrentTime() float64 {
	return float64(c.frame.Load()) / c.cfg.SampleRate
}

// Source returns the node carrying the device input.
func (c *Context) Source() *Source { return c.source }

// Destination returns the node whose input is rendered to the device.
func (c *Context) Destination() *Destination { return c.dest }

// LiveNodes returns the number of registered nodes, Source and
// Destination included.
func (c *Context) LiveNodes() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.nodes)
}

// Closed reports whether Close was called.
func (c *Context) Closed() bool { return c.closed.Load() }

// Program returns the currently published program, or nil.
func (c *Context) Program() *Program { return c.prog.Load() }

// Publish makes p the rendered program and waits until no render pass can
// still be using the previous one, which it returns. The wait ends early
// with ctx's error.
func (c *Context) Publish(ctx context.Context, p *Program) (*Program, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	if p != nil && p.ctx != c {
		return nil, ErrForeignNode
	}

	old := c.prog.Swap(p)

	return old, c.quiesce(ctx)
}

// Close stops rendering: subsequent quanta are silent and node creation
// fails. It is idempotent.
func (c *Context) Close() {
	if c.closed.Swap(true) {
		return
	}

	c.prog.Store(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = c.quiesce(ctx)
}

// quiesce waits until the render pass in flight, if any, has finished.
func (c *Context) quiesce(ctx context.Context) error {
	s := c.seq.Load()
	if s%2 == 0 {
		return nil
	}

	for c.seq.Load() == s {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Microsecond):
		}
	}

	return nil
}

func (c *Context) register(n Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}

	c.nextID++
	n.base().id = c.nextID
	c.nodes[c.nextID] = n

	return nil
}

func (c *Context) unregister(n Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.nodes, n.base().id)
}

// Render processes one device buffer. in holds inChannels interleaved input
// channels (downmixed to mono), out receives Channels() interleaved output
// channels. Buffers whose frame count is a multiple of the quantum are
// processed without added latency.
func (c *Context) Render(in []float32, inChannels int, out []float32) {
	q := c.cfg.QuantumSize
	outCh := c.cfg.Channels

	if inChannels <= 0 {
		inChannels = 1
	}

	frames := len(in) / inChannels
	start := len(c.pendingIn)
	c.pendingIn = growFloat64(c.pendingIn, start+frames)
	core.DownmixInterleaved(c.pendingIn[start:], in, inChannels)

	consumed := 0
	for len(c.pendingIn)-consumed >= q {
		c.renderQuantum(c.pendingIn[consumed : consumed+q])
		consumed += q

		n := len(c.pendingOut)
		c.pendingOut = growFloat32(c.pendingOut, n+q*outCh)
		core.Interleave(c.pendingOut[n:], c.quantumOut, outCh)
	}

	c.pendingIn = c.pendingIn[:copy(c.pendingIn, c.pendingIn[consumed:])]

	written := copy(out, c.pendingOut)
	clear(out[written:])
	c.pendingOut = c.pendingOut[:copy(c.pendingOut, c.pendingOut[written:])]
}

func (c *Context) renderQuantum(in []float64) {
	c.seq.Add(1)

	copy(c.input, in)

	p := c.prog.Load()
	if p == nil || c.closed.Load() {
		clear(c.quantumOut[0])
		clear(c.quantumOut[1])
	} else {
		q := quantum{
			frame:      c.frame.Load(),
			n:          c.cfg.QuantumSize,
			sampleRate: c.cfg.SampleRate,
		}
		p.render(&q)

		if p.hasDest {
			copy(c.quantumOut[0], c.dest.in[0])
			copy(c.quantumOut[1], c.dest.in[1])
		} else {
			clear(c.quantumOut[0])
			clear(c.quantumOut[1])
		}
	}

	c.frame.Add(int64(c.cfg.QuantumSize))
	c.seq.Add(1)
}

func growFloat64(buf []float64, n int) []float64 {
	if cap(buf) >= n {
		return buf[:n]
	}

	out := make([]float64, n, 2*n)
	copy(out, buf)

	return out
}

func growFloat32(buf []float32, n int) []float32 {
	if cap(buf) >= n {
		return buf[:n]
	}

	out := make([]float32, n, 2*n)
	copy(out, buf)

	return out
}
