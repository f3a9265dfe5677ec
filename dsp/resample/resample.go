// Package resample converts interleaved audio between sample rates with a
// rational polyphase FIR.
//
// The prototype filter is a Blackman-windowed sinc, 32 taps long per unit
// of the larger conversion factor.
// Conversion is offline: the filter delay is compensated so the output is
// time-aligned with the input.
package resample

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-livefx/dsp/window"
)

// ErrInvalidRate indicates an invalid input/output sample rate.
var ErrInvalidRate = errors.New("resample: invalid sample rate")

const (
	tapsPerPhase = 32
	cutoffScale  = 0.92
	// maxFactor caps up and down; larger ratios are approximated.
	maxFactor = 1024
)

// Resampler converts between two fixed rates.
type Resampler struct {
	up     int
	down   int
	delay  int
	phases [][]float64
}

// New creates a resampler from inRate to outRate.
func New(inRate, outRate int) (*Resampler, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, inRate, outRate)
	}

	g := gcd(inRate, outRate)
	up, down := outRate/g, inRate/g

	if up > maxFactor || down > maxFactor {
		up, down = approximateRatio(float64(outRate)/float64(inRate), maxFactor)
	}

	r := &Resampler{up: up, down: down}
	r.design()

	return r, nil
}

// Ratio returns the reduced up/down factors.
func (r *Resampler) Ratio() (up, down int) {
	return r.up, r.down
}

// OutputLen returns the number of output frames for n input frames.
func (r *Resampler) OutputLen(n int) int {
	if n <= 0 {
		return 0
	}

	return (n*r.up + r.down - 1) / r.down
}

// Convert resamples interleaved frames with the given channel count.
func (r *Resampler) Convert(in []float32, channels int) []float32 {
	if channels <= 0 {
		return nil
	}

	frames := len(in) / channels
	outFrames := r.OutputLen(frames)
	out := make([]float32, outFrames*channels)

	if r.up == r.down {
		copy(out, in)
		return out
	}

	x := make([]float64, frames)

	for c := range channels {
		for i := range x {
			x[i] = float64(in[i*channels+c])
		}

		for m := range outFrames {
			out[m*channels+c] = float32(r.at(x, m))
		}
	}

	return out
}

// at evaluates output frame m: position m*down on the upsampled grid,
// shifted by the filter delay.
func (r *Resampler) at(x []float64, m int) float64 {
	pos := m*r.down + r.delay
	i, phase := pos/r.up, pos%r.up

	var y float64

	for k, c := range r.phases[phase] {
		idx := i - k
		if idx < 0 {
			break
		}

		if idx < len(x) {
			y += c * x[idx]
		}
	}

	return y
}

func (r *Resampler) design() {
	if r.up == r.down {
		r.phases = [][]float64{{1}}
		return
	}

	n := tapsPerPhase*max(r.up, r.down) + 1
	fc := 0.5 / float64(max(r.up, r.down)) * cutoffScale
	w := window.Generate(window.TypeBlackman, n)
	center := 0.5 * float64(n-1)

	taps := make([]float64, n)

	var sum float64

	for i := range taps {
		t := float64(i) - center
		taps[i] = 2 * fc * sinc(2*fc*t) * w[i]
		sum += taps[i]
	}

	scale := float64(r.up) / sum
	for i := range taps {
		taps[i] *= scale
	}

	r.phases = make([][]float64, r.up)
	for p := range r.up {
		for i := p; i < n; i += r.up {
			r.phases[p] = append(r.phases[p], taps[i])
		}
	}

	r.delay = (n - 1) / 2
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}

	px := math.Pi * x

	return math.Sin(px) / px
}

// approximateRatio returns the continued-fraction approximation of v with
// both terms at most limit.
func approximateRatio(v float64, limit int) (num, den int) {
	p0, q0 := 1.0, 0.0
	p1, q1 := math.Floor(v), 1.0
	x := v

	for {
		frac := x - math.Floor(x)
		if frac < 1e-12 {
			break
		}

		x = 1 / frac
		a := math.Floor(x)
		p2, q2 := a*p1+p0, a*q1+q0

		if p2 > float64(limit) || q2 > float64(limit) {
			break
		}

		p0, q0, p1, q1 = p1, q1, p2, q2
	}

	num, den = int(p1), int(q1)
	if num <= 0 || den <= 0 {
		return 1, 1
	}

	g := gcd(num, den)

	return num / g, den / g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}
