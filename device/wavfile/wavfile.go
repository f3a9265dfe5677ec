// Package wavfile is an offline engine device that renders a WAV file
// through the engine instead of a sound card.
//
// Opening and starting the stream only arms the device. Run then feeds the
// file through the process callback, buffer by buffer, on the caller's
// goroutine, followed by an optional silent tail, and collects the output.
package wavfile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-livefx/dsp/resample"
	"github.com/cwbudde/algo-livefx/engine"
	"github.com/cwbudde/algo-livefx/engine/capture"
)

var (
	// ErrNotStarted is returned by Run before the engine started the stream.
	ErrNotStarted = errors.New("wavfile: stream not started")
	// ErrSampleRate is returned when the engine rate differs from the file.
	ErrSampleRate = errors.New("wavfile: sample rate mismatch")
	// ErrInvalidFile is returned for unreadable WAV data.
	ErrInvalidFile = errors.New("wavfile: invalid file")
)

// Option configures a Device.
type Option func(*Device)

// WithTail renders d of silence after the input so effect tails are kept.
func WithTail(d time.Duration) Option {
	return func(dev *Device) {
		if d > 0 {
			dev.tail = d
		}
	}
}

// WithSampleRate resamples the input to rate when it differs from the
// file's rate.
func WithSampleRate(rate int) Option {
	return func(dev *Device) {
		if rate > 0 {
			dev.target = rate
		}
	}
}

// Device feeds interleaved samples to the engine.
type Device struct {
	samples    []float32
	channels   int
	sampleRate int
	tail       time.Duration
	target     int

	mu      sync.Mutex
	cfg     engine.StreamConfig
	process engine.ProcessFunc
	started bool
	output  []float32
}

// New returns a device playing interleaved samples.
func New(samples []float32, channels, sampleRate int, opts ...Option) (*Device, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidFile, channels, sampleRate)
	}

	d := &Device{samples: samples, channels: channels, sampleRate: sampleRate}
	for _, opt := range opts {
		opt(d)
	}

	if d.target > 0 && d.target != sampleRate {
		r, err := resample.New(sampleRate, d.target)
		if err != nil {
			return nil, err
		}

		d.samples = r.Convert(samples, channels)
		d.sampleRate = d.target
	}

	return d, nil
}

// Load reads a PCM WAV file.
func Load(path string, opts ...Option) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrDeviceNotFound, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}

	if depth <= 0 || depth > 32 || buf.Format == nil {
		return nil, fmt.Errorf("%w: %s: unsupported format", ErrInvalidFile, path)
	}

	scale := float32(int64(1) << (depth - 1))
	samples := make([]float32, len(buf.Data))

	for i, v := range buf.Data {
		if depth == 8 {
			// 8-bit WAV is unsigned.
			v -= 128
		}

		samples[i] = float32(v) / scale
	}

	return New(samples, buf.Format.NumChannels, buf.Format.SampleRate, opts...)
}

// SampleRate returns the input rate, after any resampling.
func (d *Device) SampleRate() int { return d.sampleRate }

// Channels returns the file's channel count.
func (d *Device) Channels() int { return d.channels }

// Frames returns the input length in frames.
func (d *Device) Frames() int { return len(d.samples) / d.channels }

// Open arms the device. The engine's sample rate must match the file.
func (d *Device) Open(cfg engine.StreamConfig, process engine.ProcessFunc) (engine.Stream, error) {
	if math.Abs(cfg.SampleRate-float64(d.sampleRate)) > 1e-9 {
		return nil, fmt.Errorf("%w: engine %v Hz, file %d Hz", ErrSampleRate, cfg.SampleRate, d.sampleRate)
	}

	if cfg.FramesPerBuffer <= 0 || cfg.InputChannels <= 0 || cfg.OutputChannels <= 0 {
		return nil, fmt.Errorf("%w: stream config %+v", ErrInvalidFile, cfg)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg = cfg
	d.process = process
	d.started = false
	d.output = nil

	return &stream{d: d}, nil
}

// Run renders the whole input plus tail and returns when done or when ctx
// is canceled.
func (d *Device) Run(ctx context.Context) error {
	d.mu.Lock()
	cfg, process, started := d.cfg, d.process, d.started
	d.mu.Unlock()

	if !started || process == nil {
		return ErrNotStarted
	}

	frames := d.Frames() + int(d.tail.Seconds()*float64(d.sampleRate))
	in := make([]float32, cfg.FramesPerBuffer*cfg.InputChannels)
	out := make([]float32, cfg.FramesPerBuffer*cfg.OutputChannels)
	rendered := make([]float32, 0, frames*cfg.OutputChannels)

	for pos := 0; pos < frames; pos += cfg.FramesPerBuffer {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !d.running() {
			break
		}

		d.fill(in, pos, cfg.InputChannels)
		process(in, out)

		n := min(cfg.FramesPerBuffer, frames-pos)
		rendered = append(rendered, out[:n*cfg.OutputChannels]...)
	}

	d.mu.Lock()
	d.output = rendered
	d.mu.Unlock()

	return nil
}

// fill copies frames starting at pos into in, mapping file channels onto
// the stream's input channels. Frames past the end are silent.
func (d *Device) fill(in []float32, pos, channels int) {
	frames := len(in) / channels
	for i := range frames {
		src := pos + i
		for c := range channels {
			v := float32(0)
			if src < d.Frames() {
				v = d.samples[src*d.channels+min(c, d.channels-1)]
			}

			in[i*channels+c] = v
		}
	}
}

func (d *Device) running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.started
}

// Output returns the interleaved rendered output of the last Run.
func (d *Device) Output() []float32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.output
}

// WriteOutput stores the rendered output as a 16-bit WAV file.
func (d *Device) WriteOutput(path string) error {
	d.mu.Lock()
	data, channels := d.output, d.cfg.OutputChannels
	d.mu.Unlock()

	if channels <= 0 {
		return ErrNotStarted
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, d.sampleRate, 16, channels, 1)

	ints := make([]int, len(data))
	for i, v := range data {
		ints[i] = capture.PCM16(v)
	}

	err = enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: d.sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	})

	return errors.Join(err, enc.Close(), f.Close())
}

type stream struct {
	d *Device
}

func (s *stream) Start() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	s.d.started = true

	return nil
}

func (s *stream) Stop() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	s.d.started = false

	return nil
}

func (s *stream) Close() error { return s.Stop() }
