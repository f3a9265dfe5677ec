package graph

import (
	"fmt"
	"sync/atomic"
)

// WaveShaper maps each sample through a transfer curve spanning [-1, 1].
// Inputs outside that range use the end points.
type WaveShaper struct {
	nodeBase

	curve atomic.Pointer[[]float64]
}

// NewWaveShaper creates a shaper with a copy of curve.
func (c *Context) NewWaveShaper(curve []float64) (*WaveShaper, error) {
	w := &WaveShaper{}
	if err := w.SetCurve(curve); err != nil {
		return nil, err
	}

	if err := w.init(w, c, "waveshaper", 1, 1); err != nil {
		return nil, err
	}

	return w, nil
}

// SetCurve replaces the transfer curve (at least 2 points). The render path
// picks it up at the next quantum.
func (w *WaveShaper) SetCurve(curve []float64) error {
	if len(curve) < 2 {
		return fmt.Errorf("%w: curve needs at least 2 points, got %d", ErrInvalidArgument, len(curve))
	}

	c := append([]float64(nil), curve...)
	w.curve.Store(&c)

	return nil
}

// Curve returns the transfer curve.
func (w *WaveShaper) Curve() []float64 { return *w.curve.Load() }

// Shape maps one sample through the curve.
func (w *WaveShaper) Shape(x float64) float64 {
	return shape(*w.curve.Load(), x)
}

func shape(curve []float64, x float64) float64 {
	n := len(curve)
	pos := (x + 1) * 0.5 * float64(n-1)

	switch {
	case !(pos > 0):
		return curve[0]
	case pos >= float64(n-1):
		return curve[n-1]
	}

	k := int(pos)
	frac := pos - float64(k)

	return curve[k] + frac*(curve[k+1]-curve[k])
}

func (w *WaveShaper) process(_ *quantum, in, out Bus) {
	curve := *w.curve.Load()

	for ch := range in {
		for i, x := range in[ch] {
			out[ch][i] = shape(curve, x)
		}
	}
}
