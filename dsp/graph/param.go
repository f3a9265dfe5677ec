package graph

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-livefx/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

// Rate selects how often a Param is evaluated.
type Rate int

const (
	// ARate params are evaluated for every sample.
	ARate Rate = iota
	// KRate params are evaluated once per quantum.
	KRate
)

type eventKind int

const (
	eventSet eventKind = iota
	eventRamp
	eventTarget
)

type event struct {
	kind  eventKind
	time  float64
	value float64
	tau   float64
	start float64 // value at time, eventTarget only
}

// timeline is immutable once published.
type timeline struct {
	base   float64
	events []event
}

func (tl *timeline) valueAt(t float64) float64 {
	prevT, prevV := 0.0, tl.base

	var active *event

	for i := range tl.events {
		e := &tl.events[i]
		if e.time > t {
			if e.kind == eventRamp {
				if e.time <= prevT {
					return e.value
				}

				return prevV + (e.value-prevV)*(t-prevT)/(e.time-prevT)
			}

			break
		}

		switch e.kind {
		case eventSet, eventRamp:
			prevT, prevV, active = e.time, e.value, nil
		case eventTarget:
			prevT, prevV, active = e.time, e.start, e
		}
	}

	if active != nil {
		return active.value + (active.start-active.value)*math.Exp(-(t-active.time)/active.tau)
	}

	return prevV
}

// Param is an automatable node parameter.
//
// Scheduling methods run on the control path under a mutex and publish a
// new timeline; the render path only loads the current one.
type Param struct {
	owner    *nodeBase
	name     string
	def      float64
	minValue float64
	maxValue float64
	rate     Rate

	mu sync.Mutex
	tl atomic.Pointer[timeline]

	// render path only
	values    []float64
	mod       []float64
	modActive bool
}

func newParam(owner *nodeBase, name string, def, minValue, maxValue float64, rate Rate) *Param {
	n := owner.ctx.cfg.QuantumSize
	p := &Param{
		owner:    owner,
		name:     name,
		def:      def,
		minValue: minValue,
		maxValue: maxValue,
		rate:     rate,
		values:   make([]float64, n),
		mod:      make([]float64, n),
	}
	p.tl.Store(&timeline{base: def})

	return p
}

// Name returns the parameter name.
func (p *Param) Name() string { return p.name }

// Default returns the initial value.
func (p *Param) Default() float64 { return p.def }

// Min returns the lower bound of the computed value.
func (p *Param) Min() float64 { return p.minValue }

// Max returns the upper bound of the computed value.
func (p *Param) Max() float64 { return p.maxValue }

// Rate reports whether the param is evaluated per sample or per quantum.
func (p *Param) Rate() Rate { return p.rate }

// Owner returns the node the param belongs to.
func (p *Param) Owner() Node { return p.owner.self }

// Value returns the automated value at the context's current time, clamped
// to [Min, Max]. Audio-rate modulation is not included.
func (p *Param) Value() float64 {
	return p.clamp(p.tl.Load().valueAt(p.owner.ctx.CurrentTime()))
}

// Events returns the number of scheduled automation events.
func (p *Param) Events() int { return len(p.tl.Load().events) }

// Set cancels all automation and sets the value immediately.
func (p *Param) Set(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tl.Store(&timeline{base: core.FiniteOr(v, p.def)})
}

// SetValueAtTime schedules a step to v at time t (seconds).
func (p *Param) SetValueAtTime(v, t float64) error {
	if err := checkTime(t); err != nil {
		return err
	}

	p.insert(event{kind: eventSet, time: t, value: core.FiniteOr(v, p.def)})

	return nil
}

// LinearRampToValueAtTime schedules a linear ramp from the previous event
// to v, reaching it at time t.
func (p *Param) LinearRampToValueAtTime(v, t float64) error {
	if err := checkTime(t); err != nil {
		return err
	}

	p.insert(event{kind: eventRamp, time: t, value: core.FiniteOr(v, p.def)})

	return nil
}

// SetTargetAtTime starts an exponential approach to target at time t with
// time constant tau (seconds). tau == 0 is a step.
func (p *Param) SetTargetAtTime(target, t, tau float64) error {
	if err := checkTime(t); err != nil {
		return err
	}

	if tau < 0 || !core.IsFinite(tau) {
		return fmt.Errorf("%w: time constant %v", ErrInvalidArgument, tau)
	}

	target = core.FiniteOr(target, p.def)
	if tau == 0 {
		p.insert(event{kind: eventSet, time: t, value: target})
		return nil
	}

	p.insert(event{kind: eventTarget, time: t, value: target, tau: tau})

	return nil
}

// CancelScheduledValues removes every event at or after t.
func (p *Param) CancelScheduledValues(t float64) error {
	if err := checkTime(t); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.tl.Load()
	events := make([]event, 0, len(old.events))

	for _, e := range old.events {
		if e.time < t {
			events = append(events, e)
		}
	}

	p.tl.Store(&timeline{base: old.base, events: events})

	return nil
}

func (p *Param) insert(e event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.tl.Load()
	now := p.owner.ctx.CurrentTime()

	// Events entirely in the past collapse into the last one at or before
	// now; the render clock never goes back.
	first := 0
	for i, ev := range old.events {
		if ev.time <= now {
			first = i
		}
	}

	kept := old.events[first:]
	events := make([]event, 0, len(kept)+1)
	events = append(events, kept...)

	at := len(events)
	for i, ev := range events {
		if ev.time > e.time {
			at = i
			break
		}
	}

	events = slices.Insert(events, at, e)

	tl := &timeline{base: old.base, events: events}
	if first > 0 {
		tl.base = old.valueAt(kept[0].time)
	}

	for i := range tl.events {
		if tl.events[i].kind == eventTarget {
			prefix := timeline{base: tl.base, events: tl.events[:i]}
			tl.events[i].start = prefix.valueAt(tl.events[i].time)
		}
	}

	p.tl.Store(tl)
}

func checkTime(t float64) error {
	if t < 0 || !core.IsFinite(t) {
		return fmt.Errorf("%w: time %v", ErrInvalidArgument, t)
	}

	return nil
}

func (p *Param) clamp(v float64) float64 {
	return core.Clamp(v, p.minValue, p.maxValue)
}

// modulate sums audio-rate inputs into the modulation buffer.
func (p *Param) modulate(srcs []*nodeBase, n int) {
	p.modActive = len(srcs) > 0
	if !p.modActive {
		return
	}

	mod := p.mod[:n]
	clear(mod)

	tmp := p.values[:n]
	for _, s := range srcs {
		Bus{s.out[0][:n], s.out[1][:n]}.mono(tmp)
		vecmath.AddBlockInPlace(mod, tmp)
	}
}

// block returns the per-sample values for one quantum.
func (p *Param) block(q *quantum) []float64 {
	vals := p.values[:q.n]
	tl := p.tl.Load()

	switch {
	case len(tl.events) == 0:
		fill(vals, tl.base)
	case p.rate == KRate:
		fill(vals, tl.valueAt(q.time(0)))
	default:
		for i := range vals {
			vals[i] = tl.valueAt(q.time(i))
		}
	}

	if p.modActive {
		vecmath.AddBlockInPlace(vals, p.mod[:q.n])
	}

	for i, v := range vals {
		vals[i] = p.clamp(v)
	}

	return vals
}

// scalar returns the value at the start of the quantum.
func (p *Param) scalar(q *quantum) float64 {
	v := p.tl.Load().valueAt(q.time(0))
	if p.modActive {
		v += p.mod[0]
	}

	return p.clamp(v)
}

func fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}
