package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-livefx/engine/analysis"
	"github.com/cwbudde/algo-livefx/engine/capture"
	"github.com/cwbudde/algo-livefx/fx"
)

// Config holds the engine settings.
type Config struct {
	SampleRate      float64
	QuantumSize     int
	FramesPerBuffer int
	InputChannels   int
	OutputChannels  int
	// RampTime is the duration of parameter ramps.
	RampTime time.Duration
	// MicGain is the initial microphone gain in [0, 2].
	MicGain float64
}

// DefaultConfig returns a 48 kHz mono-in stereo-out configuration with 20 ms
// parameter ramps.
func DefaultConfig() Config {
	return Config{
		SampleRate:      48000,
		QuantumSize:     128,
		FramesPerBuffer: 256,
		InputChannels:   1,
		OutputChannels:  2,
		RampTime:        20 * time.Millisecond,
		MicGain:         1,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSampleRate sets the processing and device sample rate.
func WithSampleRate(sr float64) Option {
	return func(e *Engine) { e.cfg.SampleRate = sr }
}

// WithQuantumSize sets the render quantum, a power of two.
func WithQuantumSize(n int) Option {
	return func(e *Engine) { e.cfg.QuantumSize = n }
}

// WithFramesPerBuffer sets the device buffer size.
func WithFramesPerBuffer(n int) Option {
	return func(e *Engine) { e.cfg.FramesPerBuffer = n }
}

// WithInputChannels sets the number of device input channels; they are
// downmixed to mono.
func WithInputChannels(n int) Option {
	return func(e *Engine) { e.cfg.InputChannels = n }
}

// WithRampTime sets the duration of parameter ramps.
func WithRampTime(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.cfg.RampTime = d
		}
	}
}

// WithMicGain sets the initial microphone gain.
func WithMicGain(g float64) Option {
	return func(e *Engine) { e.cfg.MicGain = clampMicGain(g, e.cfg.MicGain) }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithCaptureOptions passes options to the capture recorder.
func WithCaptureOptions(opts ...capture.Option) Option {
	return func(e *Engine) { e.captureOpts = append(e.captureOpts, opts...) }
}

// WithAnalysisOptions passes options to the spectrum analyser.
func WithAnalysisOptions(opts ...analysis.Option) Option {
	return func(e *Engine) { e.analysisOpts = append(e.analysisOpts, opts...) }
}

// WithFactoryOptions passes options to the effect factory.
func WithFactoryOptions(opts ...fx.FactoryOption) Option {
	return func(e *Engine) { e.factoryOpts = append(e.factoryOpts, opts...) }
}
