// Package preset holds named effect chains with a mic gain, both built in
// and loaded from YAML files.
package preset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-livefx/fx"
)

// ErrUnknownPreset is returned by Lookup for a missing ID.
var ErrUnknownPreset = errors.New("preset: unknown preset")

// Preset is a named chain.
type Preset struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	MicGain float64  `yaml:"micGain"`
	Effects fx.Chain `yaml:"effects,omitempty"`
}

// Clone returns a deep copy.
func (p Preset) Clone() Preset {
	p.Effects = p.Effects.Clone()
	return p
}

type file struct {
	Presets []Preset `yaml:"presets"`
}

func on(kind fx.Kind, params map[string]float64) fx.Descriptor {
	return fx.Descriptor{Kind: kind, Enabled: true, Params: params}
}

var builtin = []Preset{
	{ID: "clean", Name: "Clean", MicGain: 1},
	{
		ID: "karaoke-hall", Name: "Karaoke Hall", MicGain: 1.2,
		Effects: fx.Chain{
			on(fx.Reverb, map[string]float64{"roomSize": 70, "decay": 3, "wetness": 40}),
			on(fx.Compressor, map[string]float64{"threshold": -20, "ratio": 4, "attack": 0.003, "release": 0.25}),
		},
	},
	{
		ID: "echo-chamber", Name: "Echo Chamber", MicGain: 1,
		Effects: fx.Chain{
			on(fx.Delay, map[string]float64{"time": 400, "feedback": 60, "wetness": 50}),
			on(fx.Reverb, map[string]float64{"roomSize": 50, "decay": 2, "wetness": 30}),
		},
	},
	{
		ID: "rock-vocal", Name: "Rock Vocal", MicGain: 1.5,
		Effects: fx.Chain{
			on(fx.Distortion, map[string]float64{"amount": 30, "tone": 70}),
			on(fx.Compressor, map[string]float64{"threshold": -15, "ratio": 10, "attack": 0.001, "release": 0.1}),
			on(fx.Reverb, map[string]float64{"roomSize": 30, "decay": 1, "wetness": 20}),
		},
	},
	{
		ID: "dreamy", Name: "Dreamy", MicGain: 1,
		Effects: fx.Chain{
			on(fx.Chorus, map[string]float64{"rate": 1.5, "depth": 60, "wetness": 50}),
			on(fx.Reverb, map[string]float64{"roomSize": 80, "decay": 5, "wetness": 60}),
			on(fx.Lowpass, map[string]float64{"frequency": 8000, "resonance": 2}),
		},
	},
	{
		ID: "robot", Name: "Robot", MicGain: 1,
		Effects: fx.Chain{
			on(fx.Pitch, map[string]float64{"shift": -5, "wetness": 100}),
			on(fx.Distortion, map[string]float64{"amount": 50, "tone": 30}),
			on(fx.Flanger, map[string]float64{"rate": 2, "depth": 80, "feedback": 70}),
		},
	},
	{
		ID: "telephone", Name: "Telephone", MicGain: 2,
		Effects: fx.Chain{
			on(fx.Highpass, map[string]float64{"frequency": 300, "resonance": 5}),
			on(fx.Lowpass, map[string]float64{"frequency": 3400, "resonance": 5}),
			on(fx.Distortion, map[string]float64{"amount": 20, "tone": 50}),
		},
	},
	{
		ID: "underwater", Name: "Underwater", MicGain: 1,
		Effects: fx.Chain{
			on(fx.Lowpass, map[string]float64{"frequency": 2000, "resonance": 10}),
			on(fx.Chorus, map[string]float64{"rate": 0.5, "depth": 40, "wetness": 70}),
			on(fx.Reverb, map[string]float64{"roomSize": 90, "decay": 4, "wetness": 80}),
		},
	},
}

// Builtin returns a copy of the built-in catalog in display order.
func Builtin() []Preset {
	out := make([]Preset, len(builtin))
	for i, p := range builtin {
		out[i] = p.Clone()
	}

	return out
}

// Lookup finds a preset by ID, case-insensitively, in the given catalogs
// and then in the built-in one.
func Lookup(id string, catalogs ...[]Preset) (Preset, error) {
	id = strings.TrimSpace(id)

	for _, c := range slices.Concat(catalogs, [][]Preset{builtin}) {
		for _, p := range c {
			if strings.EqualFold(p.ID, id) {
				return p.Clone(), nil
			}
		}
	}

	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
}

// Load decodes a YAML preset file. A missing micGain defaults to 1 and a
// missing name to the ID.
func Load(r io.Reader) ([]Preset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("preset: decode: %w", err)
	}

	seen := make(map[string]bool, len(f.Presets))

	for i := range f.Presets {
		p := &f.Presets[i]

		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("preset: entry %d has no id", i)
		}

		key := strings.ToLower(p.ID)
		if seen[key] {
			return nil, fmt.Errorf("preset: duplicate id %q", p.ID)
		}

		seen[key] = true

		if p.Name == "" {
			p.Name = p.ID
		}

		if p.MicGain == 0 {
			p.MicGain = 1
		}
	}

	return f.Presets, nil
}

// LoadFile reads a YAML preset file from disk.
func LoadFile(path string) ([]Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

// Marshal encodes presets in the format Load reads.
func Marshal(presets []Preset) ([]byte, error) {
	return yaml.Marshal(file{Presets: presets})
}
