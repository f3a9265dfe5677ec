// Package portaudio opens duplex PortAudio streams for the engine.
package portaudio

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/cwbudde/algo-livefx/engine"
)

// Option configures a Device.
type Option func(*Device)

// WithInput selects the input device whose name contains name
// (case-insensitive). The default input device is used otherwise.
func WithInput(name string) Option {
	return func(d *Device) { d.input = name }
}

// WithOutput selects the output device by name like WithInput.
func WithOutput(name string) Option {
	return func(d *Device) { d.output = name }
}

// WithHighLatency uses the devices' high latency suggestions, which trade
// delay for robustness against dropouts.
func WithHighLatency() Option {
	return func(d *Device) { d.highLatency = true }
}

// Device is an engine.Device backed by PortAudio.
type Device struct {
	input       string
	output      string
	highLatency bool
}

// New returns a device using the given options.
func New(opts ...Option) *Device {
	d := &Device{}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Open initializes PortAudio and opens a duplex float32 stream.
func (d *Device) Open(cfg engine.StreamConfig, process engine.ProcessFunc) (engine.Stream, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", classify(err))
	}

	s, err := d.open(cfg, process)
	if err != nil {
		_ = pa.Terminate()
		return nil, err
	}

	return s, nil
}

func (d *Device) open(cfg engine.StreamConfig, process engine.ProcessFunc) (*stream, error) {
	in, err := findDevice(d.input, pa.DefaultInputDevice, func(info *pa.DeviceInfo) bool {
		return info.MaxInputChannels >= cfg.InputChannels
	})
	if err != nil {
		return nil, fmt.Errorf("portaudio: input: %w", err)
	}

	out, err := findDevice(d.output, pa.DefaultOutputDevice, func(info *pa.DeviceInfo) bool {
		return info.MaxOutputChannels >= cfg.OutputChannels
	})
	if err != nil {
		return nil, fmt.Errorf("portaudio: output: %w", err)
	}

	params := pa.LowLatencyParameters(in, out)
	if d.highLatency {
		params = pa.HighLatencyParameters(in, out)
	}

	params.Input.Channels = cfg.InputChannels
	params.Output.Channels = cfg.OutputChannels
	params.SampleRate = cfg.SampleRate
	params.FramesPerBuffer = cfg.FramesPerBuffer

	st, err := pa.OpenStream(params, func(in, out []float32) {
		process(in, out)
	})
	if err != nil {
		return nil, fmt.Errorf("portaudio: open stream: %w", classify(err))
	}

	return &stream{st: st}, nil
}

// stream terminates PortAudio when closed.
type stream struct {
	st   *pa.Stream
	once sync.Once
}

func (s *stream) Start() error {
	if err := s.st.Start(); err != nil {
		return fmt.Errorf("portaudio: start: %w", classify(err))
	}

	return nil
}

func (s *stream) Stop() error {
	return s.st.Stop()
}

func (s *stream) Close() error {
	var err error

	s.once.Do(func() {
		err = errors.Join(s.st.Close(), pa.Terminate())
	})

	return err
}

// findDevice returns the default device when name is empty, or the first
// device whose name contains name and that satisfies fits.
func findDevice(name string, def func() (*pa.DeviceInfo, error), fits func(*pa.DeviceInfo) bool) (*pa.DeviceInfo, error) {
	if name == "" {
		info, err := def()
		if err != nil || info == nil {
			return nil, fmt.Errorf("%w: no default device", engine.ErrDeviceNotFound)
		}

		return info, nil
	}

	devices, err := pa.Devices()
	if err != nil {
		return nil, classify(err)
	}

	want := strings.ToLower(name)
	for _, info := range devices {
		if strings.Contains(strings.ToLower(info.Name), want) && fits(info) {
			return info, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", engine.ErrDeviceNotFound, name)
}

// classify tags PortAudio errors the engine distinguishes.
func classify(err error) error {
	switch {
	case errors.Is(err, pa.InvalidDevice):
		return fmt.Errorf("%w: %w", engine.ErrDeviceNotFound, err)
	case errors.Is(err, pa.DeviceUnavailable):
		return fmt.Errorf("%w: %w", engine.ErrPermissionDenied, err)
	default:
		return err
	}
}

// Info describes one audio device.
type Info struct {
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// List returns the devices PortAudio can see.
func List() ([]Info, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	defer pa.Terminate()

	devices, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: devices: %w", err)
	}

	out := make([]Info, 0, len(devices))
	for _, d := range devices {
		info := Info{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		}
		if d.HostApi != nil {
			info.HostAPI = d.HostApi.Name
		}

		out = append(out, info)
	}

	return out, nil
}
