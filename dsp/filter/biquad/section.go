package biquad

import "github.com/cwbudde/algo-livefx/dsp/core"

// Coefficients of one second-order section with a0 normalised to 1:
//
//	H(z) = (B0 + B1 z^-1 + B2 z^-2) / (1 + A1 z^-1 + A2 z^-2)
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Section runs Coefficients in transposed direct form II.
type Section struct {
	Coefficients

	s1, s2 float64
}

// NewSection returns a Section with zero state.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// ProcessSample filters one sample.
func (s *Section) ProcessSample(x float64) float64 {
	return s.step(x)
}

// ProcessBlock filters buf in place. Denormal state is flushed once per
// block.
func (s *Section) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = s.step(x)
	}

	s.s1 = core.FlushDenormals(s.s1)
	s.s2 = core.FlushDenormals(s.s2)
}

func (s *Section) step(x float64) float64 {
	y := s.B0*x + s.s1
	s.s1 = s.B1*x - s.A1*y + s.s2
	s.s2 = s.B2*x - s.A2*y

	return y
}

// SetCoefficients retunes the section. The state is kept so a running
// filter does not click.
func (s *Section) SetCoefficients(c Coefficients) {
	s.Coefficients = c
}

// Reset clears the state.
func (s *Section) Reset() {
	s.s1, s.s2 = 0, 0
}
