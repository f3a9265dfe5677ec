package graph

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-livefx/dsp/conv"
	"github.com/cwbudde/algo-livefx/dsp/irsynth"
)

const (
	// Normalization constants of the Web Audio convolver.
	gainCalibration           = 0.00125
	gainCalibrationSampleRate = 44100
	minPower                  = 0.000125
)

// Convolver convolves each channel with the matching impulse response
// channel. A mono response is applied to both channels.
type Convolver struct {
	nodeBase

	ir       irsynth.Buffer
	scale    float64
	channels [2]*conv.Partitioned
	tmp      []float64
}

// NewConvolver prepares a convolver for ir. With normalize set, the response
// is scaled to a calibrated power so reverb loudness does not depend on its
// length.
func (c *Context) NewConvolver(ir irsynth.Buffer, normalize bool) (*Convolver, error) {
	if ir.Len() == 0 || ir.Channels() == 0 || ir.Channels() > 2 {
		return nil, fmt.Errorf("%w: impulse response %d ch x %d", ErrInvalidArgument, ir.Channels(), ir.Len())
	}

	v := &Convolver{ir: ir, scale: 1, tmp: make([]float64, c.cfg.QuantumSize)}
	if normalize {
		v.scale = normalizationScale(ir)
	}

	for ch := range v.channels {
		src := ir.Data[min(ch, ir.Channels()-1)]

		kernel := make([]float64, len(src))
		for i, x := range src {
			kernel[i] = x * v.scale
		}

		p, err := conv.NewPartitioned(kernel, c.cfg.QuantumSize)
		if err != nil {
			return nil, fmt.Errorf("graph: convolver: %w", err)
		}

		v.channels[ch] = p
	}

	if err := v.init(v, c, "convolver", 1, 1); err != nil {
		return nil, err
	}

	return v, nil
}

// Buffer returns the impulse response.
func (v *Convolver) Buffer() irsynth.Buffer { return v.ir }

// Scale returns the normalization factor applied to the response.
func (v *Convolver) Scale() float64 { return v.scale }

func (v *Convolver) process(_ *quantum, in, out Bus) {
	for ch, p := range v.channels {
		// Block size always equals the quantum.
		_ = p.ProcessBlock(out[ch], in[ch])
	}
}

func normalizationScale(ir irsynth.Buffer) float64 {
	power := 0.0
	for _, ch := range ir.Data {
		for _, x := range ch {
			power += x * x
		}
	}

	power = math.Sqrt(power / float64(ir.Channels()*ir.Len()))
	if !(power >= minPower) {
		power = minPower
	}

	scale := 1 / power * gainCalibration
	if ir.SampleRate > 0 {
		scale *= gainCalibrationSampleRate / ir.SampleRate
	}

	return scale
}
