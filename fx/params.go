package fx

import (
	"fmt"
	"maps"

	"github.com/cwbudde/algo-livefx/dsp/core"
)

// ParamSpec declares one effect parameter.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
	Unit    string
	// Rebuild marks parameters that change buffer content or topology and
	// therefore cannot be ramped on a live node.
	Rebuild bool
}

// Clamp limits v to the declared range; non-finite values become the
// default.
func (s ParamSpec) Clamp(v float64) float64 {
	return core.Clamp(core.FiniteOr(v, s.Default), s.Min, s.Max)
}

var table = map[Kind][]ParamSpec{
	Reverb: {
		{Name: "roomSize", Min: 0, Max: 100, Default: 50, Unit: "%", Rebuild: true},
		{Name: "decay", Min: 0.1, Max: 10, Default: 2, Unit: "s", Rebuild: true},
		{Name: "wetness", Min: 0, Max: 100, Default: 30, Unit: "%"},
	},
	Delay: {
		{Name: "time", Min: 0, Max: 2000, Default: 300, Unit: "ms"},
		{Name: "feedback", Min: 0, Max: 90, Default: 40, Unit: "%"},
		{Name: "wetness", Min: 0, Max: 100, Default: 30, Unit: "%"},
	},
	Distortion: {
		{Name: "amount", Min: 0, Max: 100, Default: 20},
		{Name: "tone", Min: 0, Max: 100, Default: 50},
	},
	Pitch: {
		{Name: "shift", Min: -12, Max: 12, Default: 0, Unit: "st"},
		{Name: "wetness", Min: 0, Max: 100, Default: 100, Unit: "%"},
	},
	Chorus: {
		{Name: "rate", Min: 0.1, Max: 10, Default: 1.5, Unit: "Hz"},
		{Name: "depth", Min: 0, Max: 100, Default: 50, Unit: "%"},
		{Name: "wetness", Min: 0, Max: 100, Default: 50, Unit: "%"},
	},
	Flanger: {
		{Name: "rate", Min: 0.1, Max: 10, Default: 0.5, Unit: "Hz"},
		{Name: "depth", Min: 0, Max: 100, Default: 50, Unit: "%"},
		{Name: "feedback", Min: 0, Max: 90, Default: 50, Unit: "%"},
	},
	Lowpass: {
		{Name: "frequency", Min: 20, Max: 20000, Default: 8000, Unit: "Hz"},
		{Name: "resonance", Min: 0, Max: 30, Default: 1, Unit: "dB"},
	},
	Highpass: {
		{Name: "frequency", Min: 20, Max: 20000, Default: 200, Unit: "Hz"},
		{Name: "resonance", Min: 0, Max: 30, Default: 1, Unit: "dB"},
	},
	Compressor: {
		{Name: "threshold", Min: -60, Max: 0, Default: -24, Unit: "dB"},
		{Name: "ratio", Min: 1, Max: 20, Default: 4},
		{Name: "attack", Min: 0, Max: 1, Default: 0.003, Unit: "s"},
		{Name: "release", Min: 0, Max: 1, Default: 0.25, Unit: "s"},
	},
}

// Specs returns the parameter table of a kind, or nil.
func Specs(kind Kind) []ParamSpec {
	return append([]ParamSpec(nil), table[kind]...)
}

// Lookup returns the declaration of one parameter.
func Lookup(kind Kind, name string) (ParamSpec, bool) {
	for _, s := range table[kind] {
		if s.Name == name {
			return s, true
		}
	}

	return ParamSpec{}, false
}

// Defaults returns a disabled descriptor with every parameter at its
// default.
func Defaults(kind Kind) (Descriptor, error) {
	specs, ok := table[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnsupportedEffect, kind)
	}

	params := make(map[string]float64, len(specs))
	for _, s := range specs {
		params[s.Name] = s.Default
	}

	return Descriptor{Kind: kind, Params: params}, nil
}

// Descriptor declares one effect in a chain.
type Descriptor struct {
	Kind    Kind               `yaml:"type"`
	Enabled bool               `yaml:"enabled"`
	Params  map[string]float64 `yaml:"params,omitempty"`
}

// Value returns the named parameter, clamped, or its default when missing.
// Unknown names return 0.
func (d Descriptor) Value(name string) float64 {
	spec, ok := Lookup(d.Kind, name)
	if !ok {
		return 0
	}

	if v, ok := d.Params[name]; ok {
		return spec.Clamp(v)
	}

	return spec.Default
}

// Resolved returns every declared parameter, clamped and default-filled.
// Unknown keys are dropped.
func (d Descriptor) Resolved() map[string]float64 {
	out := make(map[string]float64, len(table[d.Kind]))
	for _, s := range table[d.Kind] {
		out[s.Name] = d.Value(s.Name)
	}

	return out
}

// Clone returns a deep copy.
func (d Descriptor) Clone() Descriptor {
	d.Params = maps.Clone(d.Params)
	return d
}

// Chain is an ordered list of effects; order is signal order. Duplicate
// kinds are allowed.
type Chain []Descriptor

// Clone returns a deep copy.
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}

	out := make(Chain, len(c))
	for i, d := range c {
		out[i] = d.Clone()
	}

	return out
}

// Active returns the number of enabled descriptors with a supported kind.
func (c Chain) Active() int {
	n := 0
	for _, d := range c {
		if d.Enabled && d.Kind.Valid() {
			n++
		}
	}

	return n
}

// Set stores a clamped value for the first enabled descriptor of kind, the
// one a built chain runs, or the first descriptor of kind when none is
// enabled. It returns the clamped value. ok is false when the chain has no
// such kind or the kind no such parameter.
func (c Chain) Set(kind Kind, name string, v float64) (float64, bool) {
	spec, ok := Lookup(kind, name)
	if !ok {
		return 0, false
	}

	v = spec.Clamp(v)

	at := -1

	for i := range c {
		if c[i].Kind != kind {
			continue
		}

		if c[i].Enabled {
			at = i
			break
		}

		if at < 0 {
			at = i
		}
	}

	if at < 0 {
		return v, false
	}

	if c[at].Params == nil {
		c[at].Params = make(map[string]float64)
	}

	c[at].Params[name] = v

	return v, true
}
