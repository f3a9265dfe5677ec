package fx

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedEffect is returned for an effect kind outside the closed set.
var ErrUnsupportedEffect = errors.New("fx: unsupported effect")

// Kind identifies an effect type.
type Kind string

const (
	Reverb     Kind = "reverb"
	Delay      Kind = "delay"
	Distortion Kind = "distortion"
	Pitch      Kind = "pitch"
	Chorus     Kind = "chorus"
	Flanger    Kind = "flanger"
	Lowpass    Kind = "lowpass"
	Highpass   Kind = "highpass"
	Compressor Kind = "compressor"
)

var kinds = []Kind{Reverb, Delay, Distortion, Pitch, Chorus, Flanger, Lowpass, Highpass, Compressor}

var aliases = map[string]Kind{
	"pitch-shift": Pitch,
	"pitchshift":  Pitch,
	"low-pass":    Lowpass,
	"high-pass":   Highpass,
}

// Kinds returns every supported kind in display order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	_, ok := table[k]
	return ok
}

// Mixable reports whether the kind is mixed with a parallel dry path.
func (k Kind) Mixable() bool {
	return k == Reverb || k == Delay || k == Chorus
}

// WetCap is the largest wet gain of a mixable kind.
func (k Kind) WetCap() float64 {
	if k == Reverb {
		return 0.8
	}

	return 1
}

// ParseKind parses a kind name, case-insensitively, accepting the hyphenated
// spellings too.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if k := Kind(name); k.Valid() {
		return k, nil
	}

	if k, ok := aliases[name]; ok {
		return k, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedEffect, s)
}

// UnmarshalText normalises a kind name. Unknown names are kept so that a
// chain can carry them; they are skipped when the chain is built.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		*k = Kind(strings.ToLower(strings.TrimSpace(string(text))))
		return nil
	}

	*k = parsed

	return nil
}
