package delay

import (
	"fmt"
	"math"
)

// Interpolation selects how fractional delays are read.
type Interpolation int

const (
	// InterpolationHermite uses 4-point cubic Hermite interpolation.
	InterpolationHermite Interpolation = iota
	// InterpolationLinear uses 2-point linear interpolation.
	InterpolationLinear
)

// Option configures a Line.
type Option func(*Line)

// WithInterpolation selects the fractional read mode.
func WithInterpolation(mode Interpolation) Option {
	return func(d *Line) {
		d.mode = mode
	}
}

// Line is a circular delay line.
//
// After Write(x[n]), Read(k) returns x[n-k]: Read(0) is the most recent
// sample and Read(Len()-1) the oldest one still held.
type Line struct {
	buffer   []float64
	writePos int
	mode     Interpolation
}

// New returns a delay line of fixed size.
func New(size int, opts ...Option) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}

	d := &Line{buffer: make([]float64, size)}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// MaxDelay returns the largest fractional delay that can be read with
// full interpolation support.
func (d *Line) MaxDelay() float64 {
	return float64(max(0, len(d.buffer)-3))
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample

	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples, clamped to the buffer.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	if delay < 0 {
		delay = 0
	} else if delay >= size {
		delay = size - 1
	}

	readPos := d.writePos - 1 - delay
	if readPos < 0 {
		readPos += size
	}

	return d.buffer[readPos]
}

// ReadFractional reads a fractional delay in samples.
func (d *Line) ReadFractional(delay float64) float64 {
	if delay <= 0 || math.IsNaN(delay) {
		return d.Read(0)
	}

	if maxDelay := d.MaxDelay(); delay > maxDelay {
		delay = maxDelay
	}

	p := int(delay)
	t := delay - float64(p)

	if d.mode == InterpolationLinear {
		x0 := d.Read(p)
		return x0 + t*(d.Read(p+1)-x0)
	}

	return hermite4(t, d.Read(p-1), d.Read(p), d.Read(p+1), d.Read(p+2))
}

// Reset clears line state.
func (d *Line) Reset() {
	clear(d.buffer)
	d.writePos = 0
}

// hermite4 interpolates between x0 and x1 at fraction t using the
// neighbouring samples xm1 and x2.
func hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)

	return ((c3*t+c2)*t+c1)*t + c0
}
