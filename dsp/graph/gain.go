package graph

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Gain multiplies its input by the a-rate gain param.
type Gain struct {
	nodeBase

	gain *Param
}

// NewGain creates a unity gain node.
func (c *Context) NewGain() (*Gain, error) {
	g := &Gain{}
	if err := g.init(g, c, "gain", 1, 1); err != nil {
		return nil, err
	}

	g.gain = g.newParam("gain", 1, -math.MaxFloat32, math.MaxFloat32, ARate)

	return g, nil
}

// Gain returns the gain param.
func (g *Gain) Gain() *Param { return g.gain }

func (g *Gain) process(q *quantum, in, out Bus) {
	tl := g.gain.tl.Load()
	if len(tl.events) == 0 && !g.gain.modActive {
		v := g.gain.clamp(tl.base)
		vecmath.ScaleBlock(out[0], in[0], v)
		vecmath.ScaleBlock(out[1], in[1], v)

		return
	}

	vals := g.gain.block(q)
	vecmath.MulBlock(out[0], in[0], vals)
	vecmath.MulBlock(out[1], in[1], vals)
}
