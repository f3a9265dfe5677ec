package graph

import (
	"fmt"

	"github.com/cwbudde/algo-livefx/dsp/filter/biquad"
)

// FilterType selects the BiquadFilter response.
type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
)

// String returns the Web Audio name of the filter type.
func (t FilterType) String() string {
	switch t {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	default:
		return fmt.Sprintf("filter(%d)", int(t))
	}
}

// BiquadFilter is a resonant lowpass or highpass with k-rate frequency (Hz)
// and Q params. Q is in dB, the Web Audio convention for these types.
type BiquadFilter struct {
	nodeBase

	typ       FilterType
	frequency *Param
	q         *Param
	sections  [2]*biquad.Section

	lastFreq, lastQ float64
}

// NewBiquadFilter creates a filter at 350 Hz with Q 1 dB.
func (c *Context) NewBiquadFilter(typ FilterType) (*BiquadFilter, error) {
	if typ != Lowpass && typ != Highpass {
		return nil, fmt.Errorf("%w: filter type %v", ErrInvalidArgument, typ)
	}

	f := &BiquadFilter{typ: typ, lastFreq: -1}
	if err := f.init(f, c, "biquad", 1, 1); err != nil {
		return nil, err
	}

	nyquist := c.cfg.SampleRate / 2
	f.frequency = f.newParam("frequency", 350, 0, nyquist, KRate)
	f.q = f.newParam("Q", 1, -770, 770, KRate)
	f.sections = [2]*biquad.Section{biquad.NewSection(biquad.Coefficients{}), biquad.NewSection(biquad.Coefficients{})}

	return f, nil
}

// Type returns the filter response type.
func (f *BiquadFilter) Type() FilterType { return f.typ }

// Frequency returns the cutoff param (Hz).
func (f *BiquadFilter) Frequency() *Param { return f.frequency }

// Q returns the resonance param (dB).
func (f *BiquadFilter) Q() *Param { return f.q }

// Coefficients returns the current design, for inspection.
func (f *BiquadFilter) Coefficients(sampleRate float64) biquad.Coefficients {
	return f.design(f.frequency.Value(), f.q.Value(), sampleRate)
}

func (f *BiquadFilter) design(freq, qDB, sampleRate float64) biquad.Coefficients {
	q := biquad.QFromDB(qDB)
	if f.typ == Highpass {
		return biquad.Highpass(freq, q, sampleRate)
	}

	return biquad.Lowpass(freq, q, sampleRate)
}

func (f *BiquadFilter) process(q *quantum, in, out Bus) {
	freq := f.frequency.scalar(q)
	qDB := f.q.scalar(q)

	if freq != f.lastFreq || qDB != f.lastQ {
		c := f.design(freq, qDB, q.sampleRate)
		f.sections[0].SetCoefficients(c)
		f.sections[1].SetCoefficients(c)
		f.lastFreq, f.lastQ = freq, qDB
	}

	for ch, s := range f.sections {
		copy(out[ch], in[ch])
		s.ProcessBlock(out[ch])
	}
}

// MagnitudeDB returns the response at freq in dB for the current params.
func (f *BiquadFilter) MagnitudeDB(freq float64) float64 {
	sr := f.ctx.SampleRate()
	return f.Coefficients(sr).MagnitudeDB(freq, sr)
}
