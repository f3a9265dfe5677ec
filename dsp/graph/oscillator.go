package graph

import (
	"math"
	"sync/atomic"
)

const never = math.MaxInt64

// Oscillator is a sine source with an a-rate frequency param (Hz). It is
// silent until started and after it is stopped.
type Oscillator struct {
	nodeBase

	frequency *Param
	phase     float64

	startAt atomic.Int64
	stopAt  atomic.Int64
}

// NewOscillator creates a 440 Hz sine oscillator.
func (c *Context) NewOscillator() (*Oscillator, error) {
	o := &Oscillator{}
	if err := o.init(o, c, "oscillator", 0, 1); err != nil {
		return nil, err
	}

	nyquist := c.cfg.SampleRate / 2
	o.frequency = o.newParam("frequency", 440, -nyquist, nyquist, ARate)
	o.startAt.Store(never)
	o.stopAt.Store(never)

	return o, nil
}

// Frequency returns the frequency param.
func (o *Oscillator) Frequency() *Param { return o.frequency }

// Start starts the oscillator at the context's current time.
func (o *Oscillator) Start() {
	o.startAt.Store(o.ctx.CurrentFrame())
}

// StartAt starts the oscillator at time t (seconds).
func (o *Oscillator) StartAt(t float64) {
	o.startAt.Store(int64(math.Round(t * o.ctx.cfg.SampleRate)))
}

// Stop stops the oscillator at the context's current time. A stopped
// oscillator cannot be restarted.
func (o *Oscillator) Stop() {
	o.stopAt.Store(o.ctx.CurrentFrame())
}

// Playing reports whether the oscillator produces output at the current
// time.
func (o *Oscillator) Playing() bool {
	f := o.ctx.CurrentFrame()
	return f >= o.startAt.Load() && f < o.stopAt.Load()
}

func (o *Oscillator) process(q *quantum, _, out Bus) {
	freqs := o.frequency.block(q)
	start, stop := o.startAt.Load(), o.stopAt.Load()
	step := 2 * math.Pi / q.sampleRate

	for i := range out[0] {
		f := q.frame + int64(i)
		if f < start || f >= stop {
			out[0][i] = 0
			continue
		}

		out[0][i] = math.Sin(o.phase)

		o.phase += freqs[i] * step
		if o.phase >= 2*math.Pi || o.phase < 0 {
			o.phase = math.Mod(o.phase, 2*math.Pi)
		}
	}

	copy(out[1], out[0])
}
