package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-livefx/dsp/core"
	"github.com/cwbudde/algo-livefx/dsp/graph"
	"github.com/cwbudde/algo-livefx/fx"
)

const maxMicGain = 2

func clampMicGain(v, fallback float64) float64 {
	return core.Clamp(core.FiniteOr(v, fallback), 0, maxMicGain)
}

// SetMicGain ramps the microphone gain to v, clamped to [0, 2], and
// returns the applied value. Before Initialize the value is stored.
func (e *Engine) SetMicGain(v float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	v = clampMicGain(v, e.micGain)
	e.micGain = v

	if e.b != nil {
		e.ramp(e.b.micGain.Gain(), v)
	}

	return v
}

// MicGain returns the current microphone gain setting.
func (e *Engine) MicGain() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.micGain
}

// SetParam sets one effect parameter and returns the clamped value. The
// stored chain is updated; a live node of that kind is ramped, and
// parameters that change the impulse response rebuild the graph. ok is
// false for unknown kinds or parameters, which are otherwise ignored.
func (e *Engine) SetParam(kind fx.Kind, name string, v float64) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	spec, ok := fx.Lookup(kind, name)
	if !ok {
		e.log.WithFields(logrus.Fields{"kind": kind, "param": name}).Debug("unknown parameter ignored")
		return 0, false
	}

	v, _ = e.chain.Set(kind, name, v)

	if e.b == nil {
		return v, true
	}

	inst := e.b.instance(kind)
	if inst == nil {
		return v, true
	}

	if spec.Rebuild {
		ctx, cancel := e.publishContext()
		defer cancel()

		if err := e.b.rebuild(ctx, e.chain); err != nil {
			e.log.WithError(err).WithField("kind", kind).Warn("rebuild failed")
		}

		return v, true
	}

	targets, _ := inst.Update(name, v)
	for _, t := range targets {
		e.ramp(t.Param, t.Value)
	}

	return v, true
}

// ramp moves p linearly from its current value to target over the ramp
// time, starting at the processing clock's current time.
func (e *Engine) ramp(p *graph.Param, target float64) {
	if e.cfg.RampTime <= 0 {
		p.Set(target)
		return
	}

	now := e.b.ctx.CurrentTime()
	current := p.Value()

	// Times are never negative here, so the calls cannot fail.
	_ = p.CancelScheduledValues(now)
	_ = p.SetValueAtTime(current, now)
	_ = p.LinearRampToValueAtTime(target, now+e.cfg.RampTime.Seconds())
}
