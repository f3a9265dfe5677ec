package graph

import (
	"math"

	"github.com/cwbudde/algo-livefx/dsp/core"
	"github.com/cwbudde/algo-livefx/dsp/delay"
)

// pitchWindow is the sweep length of the shifter's read taps in seconds.
const pitchWindow = 0.05

// PitchShifter shifts pitch with two delay taps sweeping through a short
// window half a period apart. Each tap is faded by sin² of its position so
// the pair always sums to unity gain. The shift param is in semitones.
type PitchShifter struct {
	nodeBase

	shift  *Param
	lines  [2]*delay.Line
	phase  float64
	window float64 // samples
}

// NewPitchShifter creates a shifter with no shift.
func (c *Context) NewPitchShifter() (*PitchShifter, error) {
	window := pitchWindow * c.cfg.SampleRate

	p := &PitchShifter{window: window}
	for ch := range p.lines {
		line, err := delay.New(int(math.Ceil(window))+4, delay.WithInterpolation(delay.InterpolationLinear))
		if err != nil {
			return nil, err
		}

		p.lines[ch] = line
	}

	if err := p.init(p, c, "pitchshifter", 1, 1); err != nil {
		return nil, err
	}

	p.shift = p.newParam("shift", 0, -24, 24, KRate)

	return p, nil
}

// Shift returns the shift param (semitones).
func (p *PitchShifter) Shift() *Param { return p.shift }

func (p *PitchShifter) process(q *quantum, in, out Bus) {
	ratio := core.SemitonesToRatio(p.shift.scalar(q))
	// The tap delay shrinks by (ratio-1) samples per sample.
	dphase := (1 - ratio) / p.window

	for i := range in[0] {
		for ch, line := range p.lines {
			line.Write(in[ch][i])
		}

		a := p.phase
		b := a + 0.5
		if b >= 1 {
			b--
		}

		ga := math.Sin(math.Pi * a)
		gb := math.Sin(math.Pi * b)
		ga *= ga
		gb *= gb

		for ch, line := range p.lines {
			out[ch][i] = ga*line.ReadFractional(a*p.window) + gb*line.ReadFractional(b*p.window)
		}

		p.phase += dphase
		p.phase -= math.Floor(p.phase)
	}
}
