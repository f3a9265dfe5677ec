package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-livefx/dsp/core"
	"github.com/cwbudde/algo-livefx/dsp/graph"
	"github.com/cwbudde/algo-livefx/engine/analysis"
	"github.com/cwbudde/algo-livefx/engine/capture"
	"github.com/cwbudde/algo-livefx/fx"
)

const publishTimeout = time.Second

// Engine is the live effects engine. Its methods are safe for concurrent
// use.
type Engine struct {
	cfg          Config
	log          logrus.FieldLogger
	dev          Device
	captureOpts  []capture.Option
	analysisOpts []analysis.Option
	factoryOpts  []fx.FactoryOption

	// gctx is also read without mu so Cleanup can silence the render path
	// while a rebuild holds the lock.
	gctx atomic.Pointer[graph.Context]

	mu       sync.Mutex
	state    State
	chain    fx.Chain
	micGain  float64
	stream   Stream
	base     *graph.Graph
	b        *builder
	analyser *analysis.Analyser
	recorder *capture.Recorder
}

// New returns an uninitialized engine that will open dev.
func New(dev Device, opts ...Option) *Engine {
	e := &Engine{
		cfg: DefaultConfig(),
		log: logrus.StandardLogger(),
		dev: dev,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.micGain = e.cfg.MicGain

	return e
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Chain returns a copy of the stored effect chain.
func (e *Engine) Chain() fx.Chain {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.chain.Clone()
}

// Stats describes the published graph. It is zero before Initialize.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.b == nil {
		return Stats{}
	}

	return e.b.stats()
}

// Initialize opens the device, wires the stored chain and starts the
// stream. On failure everything is cleaned up and the error wraps one of
// ErrPermissionDenied, ErrDeviceNotFound or ErrInitializationFailed. It is
// a no-op on a running engine.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Running() {
		return nil
	}

	if err := e.initialize(ctx); err != nil {
		err = classify(err)
		e.log.WithError(err).Error("engine initialization failed")
		e.cleanup()

		return err
	}

	e.state = Ready
	e.log.WithFields(logrus.Fields{
		"sampleRate": e.cfg.SampleRate,
		"quantum":    e.cfg.QuantumSize,
		"buffer":     e.cfg.FramesPerBuffer,
		"effects":    e.chain.Active(),
	}).Info("engine ready")

	return nil
}

func (e *Engine) initialize(ctx context.Context) error {
	if e.dev == nil {
		return fmt.Errorf("%w: no device", ErrDeviceNotFound)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	gctx, err := graph.NewContext(
		core.WithSampleRate(e.cfg.SampleRate),
		core.WithQuantumSize(e.cfg.QuantumSize),
		core.WithChannels(e.cfg.OutputChannels),
	)
	if err != nil {
		return err
	}

	e.gctx.Store(gctx)

	micGain, err := gctx.NewGain()
	if err != nil {
		return err
	}

	micGain.Gain().Set(e.micGain)

	e.analyser, err = analysis.New(gctx, e.analysisOpts...)
	if err != nil {
		return err
	}

	e.recorder, err = capture.New(gctx, append([]capture.Option{capture.WithLogger(e.log)}, e.captureOpts...)...)
	if err != nil {
		return err
	}

	e.base = graph.New(gctx)
	e.base.Add(micGain, e.analyser.Node(), e.recorder.Node())

	e.b = &builder{
		log:     e.log,
		ctx:     gctx,
		factory: fx.NewFactory(gctx, e.factoryOpts...),
		micGain: micGain,
		sinks:   []graph.Node{gctx.Destination(), e.analyser.Node(), e.recorder.Node()},
	}

	if err := e.b.rebuild(ctx, e.chain); err != nil {
		return err
	}

	inCh := e.cfg.InputChannels

	e.stream, err = e.dev.Open(StreamConfig{
		SampleRate:      e.cfg.SampleRate,
		FramesPerBuffer: e.cfg.FramesPerBuffer,
		InputChannels:   inCh,
		OutputChannels:  e.cfg.OutputChannels,
	}, func(in, out []float32) {
		gctx.Render(in, inCh, out)
	})
	if err != nil {
		return err
	}

	return e.stream.Start()
}

// UpdateChain stores chain and rebuilds the graph when the engine is
// running. A failed rebuild keeps the previous graph; effects that fail to
// build are skipped.
func (e *Engine) UpdateChain(chain fx.Chain) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.chain = chain.Clone()

	if e.b == nil {
		return nil
	}

	ctx, cancel := e.publishContext()
	defer cancel()

	if err := e.b.rebuild(ctx, e.chain); err != nil {
		e.log.WithError(err).Warn("chain rebuild failed")
		return err
	}

	return nil
}

// StartCapture begins recording the processed signal.
func (e *Engine) StartCapture() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Running() {
		return ErrNotInitialized
	}

	if err := e.recorder.Start(); err != nil {
		return err
	}

	e.state = Capturing
	e.log.Info("capture started")

	return nil
}

// StopCapture ends the recording and returns it.
func (e *Engine) StopCapture() (capture.EncodedAudio, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Capturing {
		return capture.EncodedAudio{}, ErrNoActiveCapture
	}

	e.state = Ready

	out, err := e.recorder.Stop()
	if err != nil {
		return capture.EncodedAudio{}, err
	}

	e.log.WithFields(logrus.Fields{
		"bytes":    out.Size,
		"duration": out.Duration(),
	}).Info("capture stopped")

	return out, nil
}

// PollSpectrum returns the latest spectrum as bytes, one per frequency
// bin, or an empty slice when the engine is not running.
func (e *Engine) PollSpectrum() []uint8 {
	e.mu.Lock()
	a := e.analyser
	running := e.state.Running()
	e.mu.Unlock()

	if !running || a == nil {
		return []uint8{}
	}

	return a.Poll()
}

// Cleanup stops the device, tears down every node and closes the
// processing context. It is idempotent and may be called while other
// operations are in flight.
func (e *Engine) Cleanup() {
	// Silence the render path and fail node creation in a concurrent
	// rebuild before waiting for the lock.
	if gctx := e.gctx.Load(); gctx != nil {
		gctx.Close()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wasRunning := e.state.Running()
	e.cleanup()

	if wasRunning {
		e.log.Info("engine cleaned up")
	}
}

// cleanup releases everything. The caller holds mu.
func (e *Engine) cleanup() {
	if gctx := e.gctx.Load(); gctx != nil {
		gctx.Close()
	}

	if e.recorder != nil {
		e.recorder.Close()
	}

	if e.stream != nil {
		if err := errors.Join(e.stream.Stop(), e.stream.Close()); err != nil {
			e.log.WithError(err).Warn("closing device stream")
		}
	}

	if e.b != nil {
		e.b.teardown()
	}

	if e.base != nil {
		e.base.Teardown()
	}

	e.gctx.Store(nil)
	e.stream = nil
	e.base = nil
	e.b = nil
	e.analyser = nil
	e.recorder = nil
	e.state = Uninitialized
}

func (e *Engine) publishContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), publishTimeout)
}
