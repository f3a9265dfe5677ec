package graph

import (
	"errors"
	"math"
	"testing"
)

func TestTimelineValueAt(t *testing.T) {
	t.Parallel()

	tl := &timeline{base: 1}
	tl.events = []event{
		{kind: eventSet, time: 1, value: 2},
		{kind: eventRamp, time: 2, value: 4},
		{kind: eventTarget, time: 3, value: 0, tau: 0.5, start: 4},
	}

	tests := []struct {
		t    float64
		want float64
	}{
		{0, 1},
		{0.999, 1},
		{1, 2},
		{1.5, 3},
		{2, 4},
		{2.5, 4},
		{3, 4},
		{3.5, 4 * math.Exp(-1)},
	}

	for _, tc := range tests {
		if got := tl.valueAt(tc.t); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("valueAt(%v) = %v, want %v", tc.t, got, tc.want)
		}
	}
}

func TestRampWithoutPriorEventStartsAtZeroTime(t *testing.T) {
	t.Parallel()

	tl := &timeline{base: 0, events: []event{{kind: eventRamp, time: 2, value: 1}}}
	if got := tl.valueAt(1); got != 0.5 {
		t.Fatalf("valueAt(1) = %v, want 0.5", got)
	}
}

func TestParamScheduling(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)

	g, err := c.NewGain()
	if err != nil {
		t.Fatal(err)
	}

	p := g.Gain()
	if p.Name() != "gain" || p.Default() != 1 || p.Value() != 1 {
		t.Fatalf("param = %s %v %v", p.Name(), p.Default(), p.Value())
	}

	if err := p.SetValueAtTime(0.5, 0); err != nil {
		t.Fatal(err)
	}

	if err := p.LinearRampToValueAtTime(1.5, 1); err != nil {
		t.Fatal(err)
	}

	if p.Events() != 2 || p.Value() != 0.5 {
		t.Fatalf("events = %d, value = %v", p.Events(), p.Value())
	}

	if err := p.CancelScheduledValues(0.5); err != nil {
		t.Fatal(err)
	}

	if p.Events() != 1 {
		t.Fatalf("events after cancel = %d, want 1", p.Events())
	}

	p.Set(0.25)

	if p.Events() != 0 || p.Value() != 0.25 {
		t.Fatalf("after Set: events = %d, value = %v", p.Events(), p.Value())
	}
}

func TestParamRejectsInvalidTimes(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	g, _ := c.NewGain()
	p := g.Gain()

	for name, err := range map[string]error{
		"negative set":    p.SetValueAtTime(1, -1),
		"NaN ramp":        p.LinearRampToValueAtTime(1, math.NaN()),
		"negative tau":    p.SetTargetAtTime(1, 0, -1),
		"infinite cancel": p.CancelScheduledValues(math.Inf(1)),
	} {
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: got %v, want ErrInvalidArgument", name, err)
		}
	}
}

func TestParamClampsToRange(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)

	d, err := c.NewDelay(0.5)
	if err != nil {
		t.Fatal(err)
	}

	d.DelayTime().Set(3)
	if got := d.DelayTime().Value(); got != 0.5 {
		t.Fatalf("Value = %v, want clamp to max delay 0.5", got)
	}

	if d.DelayTime().Rate() != ARate || d.DelayTime().Owner() != Node(d) {
		t.Fatal("delayTime must be an a-rate param owned by the delay")
	}
}

func TestPastEventsArePruned(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	g, _ := c.NewGain()
	p := g.Gain()

	for i := range 10 {
		if err := p.SetValueAtTime(float64(i), 0); err != nil {
			t.Fatal(err)
		}
	}

	if p.Events() > 2 {
		t.Fatalf("events = %d, past events must collapse", p.Events())
	}

	if p.Value() != 9 {
		t.Fatalf("Value = %v, want last set value 9", p.Value())
	}
}

func TestGainRampRendersLinearly(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	g := New(c)

	gain, _ := c.NewGain()
	g.Add(gain)

	if err := g.Chain(c.Source(), gain, c.Destination()); err != nil {
		t.Fatal(err)
	}

	mustPublish(t, g)

	if err := gain.Gain().SetValueAtTime(0, 0); err != nil {
		t.Fatal(err)
	}

	if err := gain.Gain().LinearRampToValueAtTime(1, 256.0/testRate); err != nil {
		t.Fatal(err)
	}

	out := render(c, constant(1, 384), 128)

	for _, i := range []int{0, 64, 128, 192, 256, 300} {
		want := math.Min(float64(i)/256, 1)
		if math.Abs(float64(out[i])-want) > 1e-5 {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want)
		}
	}

	if v := gain.Gain().Value(); v != 1 {
		t.Fatalf("Value after ramp = %v, want 1", v)
	}
}

func TestParamModulationByOscillator(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	g := New(c)

	gain, _ := c.NewGain()
	osc, _ := c.NewOscillator()
	gain.Gain().Set(0)
	osc.Frequency().Set(375) // 128 samples per period
	osc.Start()
	g.Add(gain, osc)

	if err := g.Chain(c.Source(), gain, c.Destination()); err != nil {
		t.Fatal(err)
	}

	if err := g.ConnectParam(osc, gain.Gain()); err != nil {
		t.Fatal(err)
	}

	mustPublish(t, g)

	out := render(c, constant(0.5, 128), 128)

	if !nearly(out[0], 0, 1e-6) || !nearly(out[32], 0.5, 1e-5) || !nearly(out[96], -0.5, 1e-5) {
		t.Fatalf("out[0,32,96] = %v %v %v", out[0], out[32], out[96])
	}
}
