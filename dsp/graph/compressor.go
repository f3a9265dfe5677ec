package graph

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-livefx/dsp/dynamics"
)

// Compressor is a stereo-linked dynamics compressor with k-rate threshold,
// knee, ratio, attack and release params.
type Compressor struct {
	nodeBase

	threshold *Param
	knee      *Param
	ratio     *Param
	attack    *Param
	release   *Param

	comp      *dynamics.Compressor
	reduction atomic.Uint64
}

// NewCompressor creates a compressor with Web Audio defaults.
func (c *Context) NewCompressor() (*Compressor, error) {
	comp, err := dynamics.NewCompressor(c.cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	n := &Compressor{comp: comp}
	if err := n.init(n, c, "compressor", 1, 1); err != nil {
		return nil, err
	}

	n.threshold = n.newParam("threshold", -24, -100, 0, KRate)
	n.knee = n.newParam("knee", 30, 0, 40, KRate)
	n.ratio = n.newParam("ratio", 12, 1, 20, KRate)
	n.attack = n.newParam("attack", 0.003, 0, 1, KRate)
	n.release = n.newParam("release", 0.25, 0, 1, KRate)

	return n, nil
}

// Threshold returns the threshold param (dB).
func (n *Compressor) Threshold() *Param { return n.threshold }

// Knee returns the knee param (dB).
func (n *Compressor) Knee() *Param { return n.knee }

// Ratio returns the ratio param.
func (n *Compressor) Ratio() *Param { return n.ratio }

// Attack returns the attack param (seconds).
func (n *Compressor) Attack() *Param { return n.attack }

// Release returns the release param (seconds).
func (n *Compressor) Release() *Param { return n.release }

// Reduction returns the deepest gain reduction of the last quantum in dB.
func (n *Compressor) Reduction() float64 {
	return math.Float64frombits(n.reduction.Load())
}

func (n *Compressor) process(q *quantum, in, out Bus) {
	n.comp.SetThreshold(n.threshold.scalar(q))
	n.comp.SetKnee(n.knee.scalar(q))
	n.comp.SetRatio(n.ratio.scalar(q))
	n.comp.SetAttack(n.attack.scalar(q))
	n.comp.SetRelease(n.release.scalar(q))

	copy(out[0], in[0])
	copy(out[1], in[1])
	n.comp.ProcessStereo(out[0], out[1])

	n.reduction.Store(math.Float64bits(n.comp.Reduction()))
}
