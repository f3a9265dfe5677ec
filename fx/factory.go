package fx

import (
	"fmt"

	"github.com/cwbudde/algo-livefx/dsp/core"
	"github.com/cwbudde/algo-livefx/dsp/graph"
	"github.com/cwbudde/algo-livefx/dsp/irsynth"
)

const (
	maxDelaySeconds    = 2.0
	chorusBaseDelays   = 2
	chorusMaxDepth     = 0.1
	chorusDetune       = 1.1
	flangerBaseDelay   = 0.005
	flangerMaxDepth    = 0.005
	flangerMaxDelay    = 0.02
	chorusMaxDelay     = 0.2
	compressorKneeDB   = 30
	flangerInternalMix = 0.5
)

var chorusDelays = [chorusBaseDelays]float64{0.020, 0.030}

// Target is a live param and the value it should move to.
type Target struct {
	Param *graph.Param
	Value float64
}

// Instance is one built effect: a sub-graph plus the handles needed to wire
// and control it.
//
// Entry and Exit are the ends of the processing path. For mixable kinds the
// builder feeds the upstream node into both Entry and Dry and routes Exit
// through Wet; Wet and Dry are nil for series kinds.
type Instance struct {
	Kind  Kind
	Entry graph.Node
	Exit  graph.Node
	Wet   *graph.Gain
	Dry   *graph.Gain

	sub         *graph.Graph
	nodes       int
	connections int
	ir          *irsynth.Buffer
	update      func(name string, v float64) []Target
}

// NodeCount returns the number of nodes the effect created.
func (in *Instance) NodeCount() int { return in.nodes }

// ConnectionCount returns the number of internal connections.
func (in *Instance) ConnectionCount() int { return in.connections }

// ImpulseResponse returns the reverb response; ok is false for other kinds.
func (in *Instance) ImpulseResponse() (irsynth.Buffer, bool) {
	if in.ir == nil {
		return irsynth.Buffer{}, false
	}

	return *in.ir, true
}

// Update maps a parameter value to the live params it drives. Values are
// clamped first. Settings that cannot be ramped, like the distortion curve,
// are applied immediately and yield no targets. ok is false for unknown or
// rebuild-only parameters.
func (in *Instance) Update(name string, v float64) ([]Target, bool) {
	spec, ok := Lookup(in.Kind, name)
	if !ok || spec.Rebuild {
		return nil, false
	}

	return in.update(name, spec.Clamp(v)), true
}

// Attach moves the sub-graph into g. It can be called once.
func (in *Instance) Attach(g *graph.Graph) error {
	return g.Merge(in.sub)
}

// Discard releases the nodes of an instance that was never attached.
func (in *Instance) Discard() {
	in.sub.Teardown()
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithIROptions passes options to impulse response synthesis.
func WithIROptions(opts ...irsynth.Option) FactoryOption {
	return func(f *Factory) {
		f.irOpts = append(f.irOpts, opts...)
	}
}

// Factory builds effect instances on one processing context.
type Factory struct {
	ctx    *graph.Context
	irOpts []irsynth.Option
}

// NewFactory returns a factory for ctx.
func NewFactory(ctx *graph.Context, opts ...FactoryOption) *Factory {
	f := &Factory{ctx: ctx}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Build creates the sub-graph for d with its parameters applied. It does not
// look at d.Enabled. On error every node created so far is released.
func (f *Factory) Build(d Descriptor) (*Instance, error) {
	if !d.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEffect, d.Kind)
	}

	b := &builder{ctx: f.ctx, sub: graph.New(f.ctx), d: d, irOpts: f.irOpts}
	inst := &Instance{Kind: d.Kind, sub: b.sub}

	var err error

	switch d.Kind {
	case Reverb:
		err = b.reverb(inst)
	case Delay:
		err = b.delay(inst)
	case Distortion:
		err = b.distortion(inst)
	case Pitch:
		err = b.pitch(inst)
	case Chorus:
		err = b.chorus(inst)
	case Flanger:
		err = b.flanger(inst)
	case Lowpass:
		err = b.filter(inst, graph.Lowpass)
	case Highpass:
		err = b.filter(inst, graph.Highpass)
	case Compressor:
		err = b.compressor(inst)
	}

	if err == nil && inst.Kind.Mixable() {
		err = b.mix(inst)
	}

	if err != nil {
		b.sub.Teardown()
		return nil, fmt.Errorf("fx: build %s: %w", d.Kind, err)
	}

	inst.nodes = b.sub.OwnedCount()
	inst.connections = b.sub.ConnectionCount()

	return inst, nil
}

// builder collects the nodes of one instance and the first error.
type builder struct {
	ctx    *graph.Context
	sub    *graph.Graph
	d      Descriptor
	irOpts []irsynth.Option
	err    error
}

func (b *builder) gain(v float64) *graph.Gain {
	if b.err != nil {
		return nil
	}

	g, err := b.ctx.NewGain()
	if err != nil {
		b.err = err
		return nil
	}

	g.Gain().Set(v)
	b.sub.Add(g)

	return g
}

func (b *builder) delayNode(maxDelay, t float64) *graph.Delay {
	if b.err != nil {
		return nil
	}

	d, err := b.ctx.NewDelay(maxDelay)
	if err != nil {
		b.err = err
		return nil
	}

	d.DelayTime().Set(t)
	b.sub.Add(d)

	return d
}

func (b *builder) oscillator(freq float64) *graph.Oscillator {
	if b.err != nil {
		return nil
	}

	o, err := b.ctx.NewOscillator()
	if err != nil {
		b.err = err
		return nil
	}

	o.Frequency().Set(freq)
	o.Start()
	b.sub.Add(o)

	return o
}

func (b *builder) lowpass(freq, qDB float64, typ graph.FilterType) *graph.BiquadFilter {
	if b.err != nil {
		return nil
	}

	f, err := b.ctx.NewBiquadFilter(typ)
	if err != nil {
		b.err = err
		return nil
	}

	f.Frequency().Set(freq)
	f.Q().Set(qDB)
	b.sub.Add(f)

	return f
}

func (b *builder) connect(from, to graph.Node) {
	if b.err == nil {
		b.err = b.sub.Connect(from, to)
	}
}

func (b *builder) modulate(from graph.Node, p *graph.Param) {
	if b.err == nil {
		b.err = b.sub.ConnectParam(from, p)
	}
}

// mix adds the wet/dry gains of a mixable kind. Exit feeds Wet; the builder
// wires Dry and the summing node.
func (b *builder) mix(inst *Instance) error {
	wet, dry := WetDry(inst.Kind, b.d.Value("wetness"))
	inst.Wet = b.gain(wet)
	inst.Dry = b.gain(dry)

	if b.err == nil {
		b.connect(inst.Exit, inst.Wet)
	}

	update := inst.update
	inst.update = func(name string, v float64) []Target {
		if name != "wetness" {
			return update(name, v)
		}

		wet, dry := WetDry(inst.Kind, v)

		return []Target{{inst.Wet.Gain(), wet}, {inst.Dry.Gain(), dry}}
	}

	return b.err
}

// WetDry returns the wet and dry gains for a wetness in [0, 100]. They
// always sum to one.
func WetDry(kind Kind, wetness float64) (wet, dry float64) {
	wet = core.Clamp(core.FiniteOr(wetness, 0), 0, 100) / 100 * kind.WetCap()
	return wet, 1 - wet
}

func (b *builder) reverb(inst *Instance) error {
	ir, err := irsynth.Synthesize(b.ctx.SampleRate(), b.d.Value("decay"), b.d.Value("roomSize"), b.irOpts...)
	if err != nil {
		return err
	}

	conv, err := b.ctx.NewConvolver(ir, true)
	if err != nil {
		return err
	}

	b.sub.Add(conv)

	inst.Entry, inst.Exit = conv, conv
	inst.ir = &ir
	inst.update = func(string, float64) []Target { return nil }

	return nil
}

func (b *builder) delay(inst *Instance) error {
	d := b.delayNode(maxDelaySeconds, b.d.Value("time")/1000)
	fb := b.gain(b.d.Value("feedback") / 100)

	b.connect(d, fb)
	b.connect(fb, d)

	if b.err != nil {
		return b.err
	}

	inst.Entry, inst.Exit = d, d
	inst.update = func(name string, v float64) []Target {
		switch name {
		case "time":
			return []Target{{d.DelayTime(), v / 1000}}
		case "feedback":
			return []Target{{fb.Gain(), v / 100}}
		}

		return nil
	}

	return nil
}

func (b *builder) distortion(inst *Instance) error {
	shaper, err := b.ctx.NewWaveShaper(DistortionCurve(b.d.Value("amount")))
	if err != nil {
		return err
	}

	b.sub.Add(shaper)

	tone := b.lowpass(ToneFrequency(b.d.Value("tone")), 1, graph.Lowpass)
	b.connect(shaper, tone)

	if b.err != nil {
		return b.err
	}

	inst.Entry, inst.Exit = shaper, tone
	inst.update = func(name string, v float64) []Target {
		switch name {
		case "amount":
			_ = shaper.SetCurve(DistortionCurve(v))
		case "tone":
			return []Target{{tone.Frequency(), ToneFrequency(v)}}
		}

		return nil
	}

	return nil
}

func (b *builder) pitch(inst *Instance) error {
	shifter, err := b.ctx.NewPitchShifter()
	if err != nil {
		return err
	}

	shifter.Shift().Set(b.d.Value("shift"))
	b.sub.Add(shifter)

	wet := b.d.Value("wetness") / 100
	in := b.gain(1)
	wetGain := b.gain(wet)
	dryGain := b.gain(1 - wet)
	out := b.gain(1)

	b.connect(in, shifter)
	b.connect(shifter, wetGain)
	b.connect(in, dryGain)
	b.connect(wetGain, out)
	b.connect(dryGain, out)

	if b.err != nil {
		return b.err
	}

	inst.Entry, inst.Exit = in, out
	inst.update = func(name string, v float64) []Target {
		switch name {
		case "shift":
			return []Target{{shifter.Shift(), v}}
		case "wetness":
			return []Target{{wetGain.Gain(), v / 100}, {dryGain.Gain(), 1 - v/100}}
		}

		return nil
	}

	return nil
}

func (b *builder) chorus(inst *Instance) error {
	rate := b.d.Value("rate")
	depth := b.d.Value("depth") / 100 * chorusMaxDepth

	in := b.gain(1)
	out := b.gain(1)

	var (
		oscs   [chorusBaseDelays]*graph.Oscillator
		depths [chorusBaseDelays]*graph.Gain
	)

	for i, base := range chorusDelays {
		d := b.delayNode(chorusMaxDelay, base)
		oscs[i] = b.oscillator(rate * detune(i))
		depths[i] = b.gain(depth)

		b.connect(in, d)
		b.connect(d, out)
		b.connect(oscs[i], depths[i])

		if b.err == nil {
			b.modulate(depths[i], d.DelayTime())
		}
	}

	if b.err != nil {
		return b.err
	}

	inst.Entry, inst.Exit = in, out
	inst.update = func(name string, v float64) []Target {
		var targets []Target

		for i := range oscs {
			switch name {
			case "rate":
				targets = append(targets, Target{oscs[i].Frequency(), v * detune(i)})
			case "depth":
				targets = append(targets, Target{depths[i].Gain(), v / 100 * chorusMaxDepth})
			}
		}

		return targets
	}

	return nil
}

func detune(i int) float64 {
	if i == 0 {
		return 1
	}

	return chorusDetune
}

func (b *builder) flanger(inst *Instance) error {
	in := b.gain(1)
	out := b.gain(1)
	d := b.delayNode(flangerMaxDelay, flangerBaseDelay)
	osc := b.oscillator(b.d.Value("rate"))
	depth := b.gain(b.d.Value("depth") / 100 * flangerMaxDepth)
	fb := b.gain(b.d.Value("feedback") / 100)
	wet := b.gain(flangerInternalMix)
	dry := b.gain(flangerInternalMix)

	b.connect(in, d)
	b.connect(in, dry)
	b.connect(d, fb)
	b.connect(fb, d)
	b.connect(d, wet)
	b.connect(wet, out)
	b.connect(dry, out)
	b.connect(osc, depth)

	if b.err == nil {
		b.modulate(depth, d.DelayTime())
	}

	if b.err != nil {
		return b.err
	}

	inst.Entry, inst.Exit = in, out
	inst.update = func(name string, v float64) []Target {
		switch name {
		case "rate":
			return []Target{{osc.Frequency(), v}}
		case "depth":
			return []Target{{depth.Gain(), v / 100 * flangerMaxDepth}}
		case "feedback":
			return []Target{{fb.Gain(), v / 100}}
		}

		return nil
	}

	return nil
}

func (b *builder) filter(inst *Instance, typ graph.FilterType) error {
	f := b.lowpass(b.d.Value("frequency"), b.d.Value("resonance"), typ)
	if b.err != nil {
		return b.err
	}

	inst.Entry, inst.Exit = f, f
	inst.update = func(name string, v float64) []Target {
		switch name {
		case "frequency":
			return []Target{{f.Frequency(), v}}
		case "resonance":
			return []Target{{f.Q(), v}}
		}

		return nil
	}

	return nil
}

func (b *builder) compressor(inst *Instance) error {
	c, err := b.ctx.NewCompressor()
	if err != nil {
		return err
	}

	b.sub.Add(c)

	c.Threshold().Set(b.d.Value("threshold"))
	c.Ratio().Set(b.d.Value("ratio"))
	c.Attack().Set(b.d.Value("attack"))
	c.Release().Set(b.d.Value("release"))
	c.Knee().Set(compressorKneeDB)

	inst.Entry, inst.Exit = c, c
	inst.update = func(name string, v float64) []Target {
		switch name {
		case "threshold":
			return []Target{{c.Threshold(), v}}
		case "ratio":
			return []Target{{c.Ratio(), v}}
		case "attack":
			return []Target{{c.Attack(), v}}
		case "release":
			return []Target{{c.Release(), v}}
		}

		return nil
	}

	return nil
}
