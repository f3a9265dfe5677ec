// Package analysis provides a spectrum tap for visualization.
//
// The tap is a sink node in the processing graph. The render goroutine
// stores the most recent samples in a ring of atomic words; Poll windows,
// transforms and smooths them on the caller's goroutine.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-livefx/dsp/core"
	"github.com/cwbudde/algo-livefx/dsp/graph"
	"github.com/cwbudde/algo-livefx/dsp/window"
)

// ErrInvalidConfig is returned for an unusable analyser configuration.
var ErrInvalidConfig = errors.New("analysis: invalid config")

// Config holds the analyser settings.
type Config struct {
	FFTSize   int
	Smoothing float64
	MinDB     float64
	MaxDB     float64
}

// DefaultConfig returns a 2048-point analyser with 0.8 smoothing mapping
// [-100, -30] dB onto the byte range.
func DefaultConfig() Config {
	return Config{FFTSize: 2048, Smoothing: 0.8, MinDB: -100, MaxDB: -30}
}

// Option mutates a Config.
type Option func(*Config)

// WithFFTSize sets the transform size, a power of two in [32, 32768].
func WithFFTSize(n int) Option {
	return func(cfg *Config) { cfg.FFTSize = n }
}

// WithSmoothing sets the temporal smoothing constant in [0, 1].
func WithSmoothing(s float64) Option {
	return func(cfg *Config) { cfg.Smoothing = s }
}

// WithDecibelRange sets the dB range mapped onto [0, 255].
func WithDecibelRange(minDB, maxDB float64) Option {
	return func(cfg *Config) {
		cfg.MinDB = minDB
		cfg.MaxDB = maxDB
	}
}

func (cfg Config) validate() error {
	n := cfg.FFTSize
	if n < 32 || n > 32768 || n&(n-1) != 0 {
		return fmt.Errorf("%w: fft size %d", ErrInvalidConfig, n)
	}

	if !(cfg.Smoothing >= 0 && cfg.Smoothing <= 1) {
		return fmt.Errorf("%w: smoothing %v", ErrInvalidConfig, cfg.Smoothing)
	}

	if !(cfg.MinDB < cfg.MaxDB) {
		return fmt.Errorf("%w: dB range [%v, %v]", ErrInvalidConfig, cfg.MinDB, cfg.MaxDB)
	}

	return nil
}

// Analyser keeps the latest FFTSize mono samples of its input.
type Analyser struct {
	cfg  Config
	node *graph.Sink

	ring    []atomic.Uint64
	written atomic.Uint64

	mu       sync.Mutex
	plan     *algofft.Plan[complex128]
	win      []float64
	frame    []complex128
	re, im   []float64
	mag      []float64
	smoothed []float64
}

// New creates an analyser and its sink node on ctx. The node is not owned
// by any graph; the caller wires it.
func New(ctx *graph.Context, opts ...Option) (*Analyser, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("analysis: fft plan: %w", err)
	}

	bins := cfg.FFTSize / 2
	a := &Analyser{
		cfg:      cfg,
		ring:     make([]atomic.Uint64, cfg.FFTSize),
		plan:     plan,
		win:      window.Generate(window.TypeBlackman, cfg.FFTSize, window.WithPeriodic()),
		frame:    make([]complex128, cfg.FFTSize),
		re:       make([]float64, bins),
		im:       make([]float64, bins),
		mag:      make([]float64, bins),
		smoothed: make([]float64, bins),
	}

	a.node, err = ctx.NewSink(a.push)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	return a, nil
}

// Node returns the sink to connect the analysed signal into.
func (a *Analyser) Node() *graph.Sink { return a.node }

// Config returns the active configuration.
func (a *Analyser) Config() Config { return a.cfg }

// FrequencyBinCount returns the number of bins Poll reports.
func (a *Analyser) FrequencyBinCount() int { return a.cfg.FFTSize / 2 }

// push runs on the render goroutine.
func (a *Analyser) push(_ int64, in graph.Bus) {
	n := uint64(len(a.ring))
	w := a.written.Load()

	for i := range in[0] {
		v := 0.5 * (in[0][i] + in[1][i])
		a.ring[(w+uint64(i))%n].Store(math.Float64bits(v))
	}

	a.written.Store(w + uint64(len(in[0])))
}

// FloatFrequencyData returns the smoothed spectrum in dB, one value per bin.
func (a *Analyser) FloatFrequencyData() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.analyse()

	out := make([]float64, len(a.smoothed))
	for k, m := range a.smoothed {
		out[k] = core.LinearToDB(m)
	}

	return out
}

// Poll returns the smoothed spectrum mapped from [MinDB, MaxDB] onto
// [0, 255], one byte per bin.
func (a *Analyser) Poll() []uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.analyse()

	scale := 255 / (a.cfg.MaxDB - a.cfg.MinDB)
	out := make([]uint8, len(a.smoothed))

	for k, m := range a.smoothed {
		db := core.LinearToDB(m)
		if math.IsInf(db, -1) {
			continue
		}

		out[k] = uint8(core.Clamp(math.Floor(scale*(db-a.cfg.MinDB)), 0, 255))
	}

	return out
}

// analyse updates the smoothed magnitudes from the latest frame. The caller
// holds mu.
func (a *Analyser) analyse() {
	n := len(a.ring)
	end := a.written.Load()

	for i := range a.frame {
		idx := int64(end) - int64(n) + int64(i)

		v := 0.0
		if idx >= 0 {
			v = math.Float64frombits(a.ring[uint64(idx)%uint64(n)].Load())
		}

		a.frame[i] = complex(v*a.win[i], 0)
	}

	if err := a.plan.Forward(a.frame, a.frame); err != nil {
		return
	}

	for k := range a.re {
		a.re[k] = real(a.frame[k])
		a.im[k] = imag(a.frame[k])
	}

	vecmath.Magnitude(a.mag, a.re, a.im)

	tau := a.cfg.Smoothing
	norm := 1 / float64(n)

	for k, m := range a.mag {
		s := tau*a.smoothed[k] + (1-tau)*m*norm
		a.smoothed[k] = core.FiniteOr(s, 0)
	}
}

// Reset clears the smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	clear(a.smoothed)
}
