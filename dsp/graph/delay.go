package graph

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-livefx/dsp/delay"
)

// Delay is a fractional stereo delay with an a-rate delayTime param in
// seconds.
//
// Outside a cycle the delay may be zero. Inside a cycle the delay renders
// in two phases and is clamped to at least one quantum.
type Delay struct {
	nodeBase

	delayTime *Param
	maxDelay  float64
	lines     [2]*delay.Line
}

// NewDelay creates a delay that can reach maxDelay seconds.
func (c *Context) NewDelay(maxDelay float64) (*Delay, error) {
	if !(maxDelay > 0) || math.IsInf(maxDelay, 0) {
		return nil, fmt.Errorf("%w: max delay %v", ErrInvalidArgument, maxDelay)
	}

	// Room for the longest delay, one quantum of look-back and the
	// interpolator's neighbours.
	size := int(math.Ceil(maxDelay*c.cfg.SampleRate)) + c.cfg.QuantumSize + 4

	d := &Delay{maxDelay: maxDelay}
	for ch := range d.lines {
		line, err := delay.New(size)
		if err != nil {
			return nil, err
		}

		d.lines[ch] = line
	}

	if err := d.init(d, c, "delay", 1, 1); err != nil {
		return nil, err
	}

	d.delayTime = d.newParam("delayTime", 0, 0, maxDelay, ARate)

	return d, nil
}

// DelayTime returns the delay time param (seconds).
func (d *Delay) DelayTime() *Param { return d.delayTime }

// MaxDelay returns the longest delay in seconds.
func (d *Delay) MaxDelay() float64 { return d.maxDelay }

func (d *Delay) process(q *quantum, in, out Bus) {
	times := d.delayTime.block(q)

	for ch, line := range d.lines {
		src, dst := in[ch], out[ch]
		for i, x := range src {
			line.Write(x)
			dst[i] = line.ReadFractional(times[i] * q.sampleRate)
		}
	}
}

// readAhead renders the output of a delay in a cycle before its input is
// known. Sample i of the quantum reads D samples back from frame+i, which is
// D-i-1 samples behind the last written frame.
func (d *Delay) readAhead(q *quantum, out Bus) {
	times := d.delayTime.block(q)
	minDelay := float64(q.n)

	for ch, line := range d.lines {
		dst := out[ch][:q.n]
		for i := range dst {
			samples := math.Max(times[i]*q.sampleRate, minDelay)
			dst[i] = line.ReadFractional(samples - float64(i) - 1)
		}
	}
}

// commit writes the input of a delay in a cycle once the quantum rendered.
func (d *Delay) commit(q *quantum, in Bus) {
	for ch, line := range d.lines {
		for _, x := range in[ch][:q.n] {
			line.Write(x)
		}
	}
}
