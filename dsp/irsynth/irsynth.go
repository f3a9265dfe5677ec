// Package irsynth synthesizes artificial reverb impulse responses.
//
// A response is decaying white noise: each channel is filled independently
// with uniform noise in [-1, 1] shaped by the envelope (1 - i/N)^f, where
// the exponent f falls from 2.0 for a dead room to 0.2 for a large one.
// Independent channels give the tail its stereo width.
package irsynth

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/algo-livefx/dsp/core"
)

// Errors returned by Synthesize.
var (
	ErrInvalidSampleRate = errors.New("irsynth: sample rate must be > 0")
	ErrInvalidDecay      = errors.New("irsynth: decay must be > 0")
)

const (
	// Channels is the number of channels in a synthesized response.
	Channels = 2

	exponentDeadRoom  = 2.0
	exponentSpanRange = 1.8
)

// Buffer holds a multichannel impulse response.
type Buffer struct {
	SampleRate float64
	Data       [][]float64
}

// Len returns the number of samples per channel.
func (b Buffer) Len() int {
	if len(b.Data) == 0 {
		return 0
	}

	return len(b.Data[0])
}

// Channels returns the number of channels.
func (b Buffer) Channels() int { return len(b.Data) }

// Duration returns the response length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}

	return float64(b.Len()) / b.SampleRate
}

// Option configures synthesis.
type Option func(*config)

type config struct {
	source rand.Source
}

// WithSource sets the noise source, for reproducible responses.
func WithSource(src rand.Source) Option {
	return func(c *config) {
		if src != nil {
			c.source = src
		}
	}
}

// Length returns round(sampleRate*decaySeconds), the per-channel length of a
// response.
func Length(sampleRate, decaySeconds float64) int {
	return int(math.Round(sampleRate * decaySeconds))
}

// Exponent maps room size in [0, 100] to the envelope exponent in [0.2, 2.0].
func Exponent(roomSize float64) float64 {
	room := core.Clamp(core.FiniteOr(roomSize, 0), 0, 100)
	return exponentDeadRoom - exponentSpanRange*room/100
}

// Synthesize returns a stereo response of Length(sampleRate, decaySeconds)
// samples per channel. Content is random unless WithSource is given.
func Synthesize(sampleRate, decaySeconds, roomSize float64, opts ...Option) (Buffer, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return Buffer{}, fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}

	if !(decaySeconds > 0) || math.IsInf(decaySeconds, 0) {
		return Buffer{}, fmt.Errorf("%w: %v", ErrInvalidDecay, decaySeconds)
	}

	n := Length(sampleRate, decaySeconds)
	if n < 1 {
		return Buffer{}, fmt.Errorf("%w: %v s is shorter than one sample", ErrInvalidDecay, decaySeconds)
	}

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.source == nil {
		cfg.source = rand.NewSource(time.Now().UnixNano())
	}

	rng := rand.New(cfg.source) //nolint:gosec
	f := Exponent(roomSize)
	buf := Buffer{SampleRate: sampleRate, Data: make([][]float64, Channels)}

	for ch := range buf.Data {
		data := make([]float64, n)
		for i := range data {
			env := math.Pow(1-float64(i)/float64(n), f)
			data[i] = (rng.Float64()*2 - 1) * env
		}

		buf.Data[ch] = data
	}

	return buf, nil
}
