// Command livefx runs a vocal effects preset on the microphone, or
// offline on a WAV file.
//
// Usage:
//
//	livefx [flags]
//
// Live mode plays the processed microphone through the default output until
// interrupted. With -in the file is rendered through the chain and written to
// -out instead.
//
// Examples:
//
//	livefx -list
//	livefx -preset karaoke-hall -capture take1.wav
//	livefx -preset robot -set pitch.shift=-7 -duration 30s
//	livefx -in dry.wav -out wet.wav -preset dreamy -tail 5s
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-livefx/device/portaudio"
	"github.com/cwbudde/algo-livefx/device/wavfile"
	"github.com/cwbudde/algo-livefx/engine"
	"github.com/cwbudde/algo-livefx/fx"
	"github.com/cwbudde/algo-livefx/preset"
)

// override sets one effect parameter of the selected preset.
type override struct {
	kind  fx.Kind
	name  string
	value float64
}

func parseOverride(s string) (override, error) {
	key, val, ok := strings.Cut(s, "=")
	if !ok {
		return override{}, fmt.Errorf("want kind.param=value, got %q", s)
	}

	kindName, param, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok {
		return override{}, fmt.Errorf("want kind.param=value, got %q", s)
	}

	kind, err := fx.ParseKind(kindName)
	if err != nil {
		return override{}, err
	}

	if _, ok := fx.Lookup(kind, param); !ok {
		return override{}, fmt.Errorf("%s has no parameter %q", kind, param)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return override{}, fmt.Errorf("%s.%s: %w", kind, param, err)
	}

	return override{kind: kind, name: param, value: v}, nil
}

// apply writes the overrides into p. An override for a kind the preset
// lacks appends the kind with default parameters.
func apply(p *preset.Preset, overrides []override) error {
	for _, o := range overrides {
		if _, ok := p.Effects.Set(o.kind, o.name, o.value); ok {
			continue
		}

		d, err := fx.Defaults(o.kind)
		if err != nil {
			return err
		}

		d.Enabled = true
		p.Effects = append(p.Effects, d)
		p.Effects.Set(o.kind, o.name, o.value)
	}

	return nil
}

type options struct {
	preset     string
	presets    string
	in         string
	out        string
	capture    string
	tail       time.Duration
	duration   time.Duration
	micGain    float64
	sampleRate float64
	resample   bool
	buffer     int
	input      string
	output     string
	overrides  []override
}

func main() {
	var opts options

	flag.StringVar(&opts.preset, "preset", "clean", "preset ID")
	flag.StringVar(&opts.presets, "presets", "", "YAML file with additional presets")
	flag.StringVar(&opts.in, "in", "", "render this WAV file offline instead of the microphone")
	flag.StringVar(&opts.out, "out", "out.wav", "output WAV file for offline rendering")
	flag.StringVar(&opts.capture, "capture", "", "record the processed live signal to this WAV file")
	flag.DurationVar(&opts.tail, "tail", 2*time.Second, "silence rendered after the input in offline mode")
	flag.DurationVar(&opts.duration, "duration", 0, "stop live mode after this long (0 runs until interrupted)")
	flag.Float64Var(&opts.micGain, "mic-gain", math.NaN(), "microphone gain in [0, 2] (default from preset)")
	flag.Float64Var(&opts.sampleRate, "sample-rate", 48000, "sample rate in Hz; offline files are resampled to it when given")
	flag.IntVar(&opts.buffer, "buffer", 256, "device buffer size in frames")
	flag.StringVar(&opts.input, "input-device", "", "input device name (default device if empty)")
	flag.StringVar(&opts.output, "output-device", "", "output device name (default device if empty)")
	flag.Func("set", "override a parameter as kind.param=value (repeatable)", func(s string) error {
		o, err := parseOverride(s)
		if err != nil {
			return err
		}

		opts.overrides = append(opts.overrides, o)

		return nil
	})

	list := flag.Bool("list", false, "list presets and exit")
	devices := flag.Bool("devices", false, "list audio devices and exit")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: livefx [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a vocal effects preset live on the microphone or offline on a WAV file.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  livefx -list\n")
		fmt.Fprintf(os.Stderr, "  livefx -preset karaoke-hall -capture take1.wav\n")
		fmt.Fprintf(os.Stderr, "  livefx -preset robot -set pitch.shift=-7 -duration 30s\n")
		fmt.Fprintf(os.Stderr, "  livefx -in dry.wav -out wet.wav -preset dreamy\n")
	}
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "sample-rate" {
			opts.resample = true
		}
	})

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	var catalog []preset.Preset

	if opts.presets != "" {
		var err error

		catalog, err = preset.LoadFile(opts.presets)
		if err != nil {
			log.WithError(err).Fatal("loading presets")
		}
	}

	switch {
	case *list:
		printPresets(catalog)
		return
	case *devices:
		if err := printDevices(); err != nil {
			log.WithError(err).Fatal("listing devices")
		}

		return
	}

	p, err := preset.Lookup(opts.preset, catalog)
	if err != nil {
		log.WithError(err).Fatal("selecting preset")
	}

	if err := apply(&p, opts.overrides); err != nil {
		log.WithError(err).Fatal("applying overrides")
	}

	if !math.IsNaN(opts.micGain) {
		p.MicGain = opts.micGain
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.in != "" {
		err = renderFile(ctx, log, p, opts)
	} else {
		err = runLive(ctx, log, p, opts)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("livefx failed")
	}
}

func newEngine(dev engine.Device, log logrus.FieldLogger, p preset.Preset, sampleRate float64, opts options) *engine.Engine {
	e := engine.New(dev,
		engine.WithSampleRate(sampleRate),
		engine.WithFramesPerBuffer(opts.buffer),
		engine.WithMicGain(p.MicGain),
		engine.WithLogger(log.WithField("preset", p.ID)),
	)

	// The chain is stored and wired on Initialize.
	_ = e.UpdateChain(p.Effects)

	return e
}

func renderFile(ctx context.Context, log logrus.FieldLogger, p preset.Preset, opts options) error {
	devOpts := []wavfile.Option{wavfile.WithTail(opts.tail)}
	if opts.resample {
		devOpts = append(devOpts, wavfile.WithSampleRate(int(opts.sampleRate)))
	}

	dev, err := wavfile.Load(opts.in, devOpts...)
	if err != nil {
		return err
	}

	e := newEngine(dev, log, p, float64(dev.SampleRate()), opts)
	defer e.Cleanup()

	if err := e.Initialize(ctx); err != nil {
		return err
	}

	start := time.Now()
	if err := dev.Run(ctx); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"frames":  dev.Frames(),
		"elapsed": time.Since(start),
		"out":     opts.out,
	}).Info("rendered")

	return dev.WriteOutput(opts.out)
}

func runLive(ctx context.Context, log logrus.FieldLogger, p preset.Preset, opts options) error {
	var devOpts []portaudio.Option
	if opts.input != "" {
		devOpts = append(devOpts, portaudio.WithInput(opts.input))
	}

	if opts.output != "" {
		devOpts = append(devOpts, portaudio.WithOutput(opts.output))
	}

	e := newEngine(portaudio.New(devOpts...), log, p, opts.sampleRate, opts)
	defer e.Cleanup()

	if err := e.Initialize(ctx); err != nil {
		return err
	}

	if opts.capture != "" {
		if err := e.StartCapture(); err != nil {
			return err
		}
	}

	if opts.duration > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	log.WithField("effects", e.Stats().Effects).Info("running, press Ctrl+C to stop")
	<-ctx.Done()

	if opts.capture == "" {
		return nil
	}

	take, err := e.StopCapture()
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.capture, take.Bytes, 0o644); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"file":     opts.capture,
		"duration": take.Duration(),
	}).Info("capture written")

	return nil
}

func printPresets(catalog []preset.Preset) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMIC GAIN\tEFFECTS")

	seen := map[string]bool{}

	for _, p := range append(catalog, preset.Builtin()...) {
		key := strings.ToLower(p.ID)
		if seen[key] {
			continue
		}

		seen[key] = true

		kinds := make([]string, 0, len(p.Effects))
		for _, d := range p.Effects {
			if d.Enabled {
				kinds = append(kinds, string(d.Kind))
			}
		}

		effects := strings.Join(kinds, " > ")
		if effects == "" {
			effects = "-"
		}

		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", p.ID, p.Name, p.MicGain, effects)
	}

	tw.Flush()
}

func printDevices() error {
	infos, err := portaudio.List()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tHOST API\tIN\tOUT\tRATE")

	for _, d := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.0f\n", d.Name, d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	}

	return tw.Flush()
}
