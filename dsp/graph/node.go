package graph

import (
	"github.com/cwbudde/algo-vecmath"
)

// Bus is a stereo block of samples, one slice per channel.
type Bus [2][]float64

func newBus(n int) Bus {
	return Bus{make([]float64, n), make([]float64, n)}
}

func (b Bus) zero() {
	clear(b[0])
	clear(b[1])
}

// mono downmixes into dst.
func (b Bus) mono(dst []float64) {
	for i := range dst {
		dst[i] = 0.5 * (b[0][i] + b[1][i])
	}
}

// Node is a processing node created from a Context.
type Node interface {
	// Kind names the node type, e.g. "gain" or "delay".
	Kind() string
	// ID is unique within the owning Context.
	ID() uint64
	// Context returns the owning Context.
	Context() *Context

	base() *nodeBase
}

type processor interface {
	process(q *quantum, in, out Bus)
}

type nodeBase struct {
	self    Node
	ctx     *Context
	id      uint64
	kind    string
	inputs  int
	outputs int
	params  []*Param
	proc    processor

	in  Bus
	out Bus
}

func (b *nodeBase) init(self Node, c *Context, kind string, inputs, outputs int) error {
	b.self = self
	b.ctx = c
	b.kind = kind
	b.inputs = inputs
	b.outputs = outputs
	b.in = newBus(c.cfg.QuantumSize)
	b.out = newBus(c.cfg.QuantumSize)

	if p, ok := self.(processor); ok {
		b.proc = p
	}

	return c.register(self)
}

func (b *nodeBase) Kind() string { return b.kind }
func (b *nodeBase) ID() uint64 { return b.id }
func (b *nodeBase) Context() *Context { return b.ctx }
func (b *nodeBase) base() *nodeBase { return b }

func (b *nodeBase) newParam(name string, def, minValue, maxValue float64, rate Rate) *Param {
	p := newParam(b, name, def, minValue, maxValue, rate)
	b.params = append(b.params, p)

	return p
}

// gather sums the outputs of srcs into the input bus.
func (b *nodeBase) gather(srcs []*nodeBase, n int) {
	in := Bus{b.in[0][:n], b.in[1][:n]}
	in.zero()

	for _, s := range srcs {
		vecmath.AddBlockInPlace(in[0], s.out[0][:n])
		vecmath.AddBlockInPlace(in[1], s.out[1][:n])
	}
}

type quantum struct {
	frame      int64
	n          int
	sampleRate float64
}

// time returns the time of sample i in seconds.
func (q *quantum) time(i int) float64 {
	return float64(q.frame+int64(i)) / q.sampleRate
}
