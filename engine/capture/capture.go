// Package capture records the processed signal into an encoded WAV object.
//
// A Recorder owns a sink node in the processing graph. While a capture is
// active the render goroutine copies every quantum into a lock-free ring;
// an encoder goroutine drains the ring once per timeslice and appends the
// encoded bytes as one chunk. Stop concatenates the chunks into a single
// immutable EncodedAudio.
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-livefx/dsp/core"
	"github.com/cwbudde/algo-livefx/dsp/graph"
	"github.com/cwbudde/algo-livefx/internal/ringbuf"
)

var (
	// ErrNotInitialized is returned by Start when no capture input is wired.
	ErrNotInitialized = errors.New("capture: not initialized")
	// ErrNoActiveCapture is returned by Stop without a running capture.
	ErrNoActiveCapture = errors.New("capture: no active capture")

)

// MIMEType tags every EncodedAudio.
const MIMEType = "audio/wav"

const (
	channels  = 2
	bitDepth  = 16
	formatPCM = 1
)

// EncodedAudio is a finished recording.
type EncodedAudio struct {
	Bytes      []byte
	Size       int
	MIMEType   string
	Frames     int
	SampleRate int
	Chunks     int
}

// Duration returns the recorded length.
func (e EncodedAudio) Duration() time.Duration {
	if e.SampleRate <= 0 {
		return 0
	}

	return time.Duration(float64(e.Frames) / float64(e.SampleRate) * float64(time.Second))
}

// Config holds the recorder settings.
type Config struct {
	// Timeslice is the interval at which buffered audio is encoded.
	Timeslice time.Duration
	// Buffer is the amount of audio the ring holds between slices.
	Buffer time.Duration
}

// DefaultConfig returns 250 ms slices over a two second ring.
func DefaultConfig() Config {
	return Config{Timeslice: 250 * time.Millisecond, Buffer: 2 * time.Second}
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithTimeslice sets the encoding interval.
func WithTimeslice(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.cfg.Timeslice = d
		}
	}
}

// WithBuffer sets the ring capacity as a duration.
func WithBuffer(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.cfg.Buffer = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Recorder) {
		if log != nil {
			r.log = log
		}
	}
}

// Recorder captures the signal reaching its node.
type Recorder struct {
	cfg        Config
	log        logrus.FieldLogger
	ctx        *graph.Context
	node       *graph.Sink
	ring       *ringbuf.Ring
	sampleRate int

	active   atomic.Bool
	overruns atomic.Uint64
	block    []float32 // render goroutine only

	mu   sync.Mutex
	sess *session
}

type session struct {
	out     *writerseeker.WriterSeeker
	enc     *wav.Encoder
	chunks  []int
	frames  int
	err     error
	scratch []float32
	ints    []int

	stop chan struct{}
	done chan struct{}
}

// New creates a recorder and its sink node on ctx. The node is not owned by
// any graph; the caller wires it.
func New(ctx *graph.Context, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		cfg:        DefaultConfig(),
		log:        logrus.StandardLogger(),
		ctx:        ctx,
		sampleRate: int(ctx.SampleRate()),
		block:      make([]float32, ctx.QuantumSize()*channels),
	}

	for _, opt := range opts {
		opt(r)
	}

	size := nextPowerOf2(int(r.cfg.Buffer.Seconds()*ctx.SampleRate()) * channels)
	size = max(size, nextPowerOf2(4*len(r.block)))

	ring, err := ringbuf.New(size)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	r.ring = ring

	r.node, err = ctx.NewSink(r.push)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	return r, nil
}

// Node returns the capture input.
func (r *Recorder) Node() *graph.Sink { return r.node }

// Active reports whether a capture is running.
func (r *Recorder) Active() bool { return r.active.Load() }

// Overruns returns the number of quanta dropped because the ring was full.
func (r *Recorder) Overruns() uint64 { return r.overruns.Load() }

// push runs on the render goroutine and never blocks.
func (r *Recorder) push(_ int64, in graph.Bus) {
	if !r.active.Load() {
		return
	}

	n := core.Interleave(r.block, in[:], channels) * channels
	if r.ring.Cap()-r.ring.Len() < n {
		r.overruns.Add(1)
		return
	}

	r.ring.Write(r.block[:n])
}

// Start begins a new capture, discarding any running one.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.node == nil || r.ctx.Closed() {
		return ErrNotInitialized
	}

	if r.sess != nil {
		r.finish(r.sess)
		r.log.Warn("capture restarted, previous recording discarded")
	}

	r.ring.Discard()
	r.overruns.Store(0)

	s := &session{
		out:     &writerseeker.WriterSeeker{},
		scratch: make([]float32, 4096*channels),
		ints:    make([]int, 4096*channels),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.enc = wav.NewEncoder(s.out, r.sampleRate, bitDepth, channels, formatPCM)

	r.sess = s
	r.active.Store(true)

	go r.run(s)

	r.log.WithFields(logrus.Fields{
		"sampleRate": r.sampleRate,
		"timeslice":  r.cfg.Timeslice,
	}).Debug("capture started")

	return nil
}

// Stop ends the capture and returns the recording. The session is cleared.
func (r *Recorder) Stop() (EncodedAudio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sess
	if s == nil {
		return EncodedAudio{}, ErrNoActiveCapture
	}

	r.finish(s)

	if s.err == nil && s.frames == 0 {
		s.err = s.enc.Write(r.intBuffer(nil))
	}

	if s.err == nil {
		s.err = s.enc.Close()
	}

	if s.err != nil {
		return EncodedAudio{}, fmt.Errorf("capture: encode: %w", s.err)
	}

	if n := r.overruns.Load(); n > 0 {
		r.log.WithField("overruns", n).Warn("capture dropped audio")
	}

	data, err := io.ReadAll(s.out.Reader())
	if err != nil {
		return EncodedAudio{}, fmt.Errorf("capture: encode: %w", err)
	}

	out := EncodedAudio{
		Bytes:      data,
		Size:       len(data),
		MIMEType:   MIMEType,
		Frames:     s.frames,
		SampleRate: r.sampleRate,
		Chunks:     len(s.chunks),
	}

	r.log.WithFields(logrus.Fields{
		"bytes":    out.Size,
		"chunks":   out.Chunks,
		"duration": out.Duration(),
	}).Debug("capture stopped")

	return out, nil
}

// Close abandons a running capture.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sess != nil {
		r.finish(r.sess)
	}
}

// finish stops the encoder goroutine of s and detaches it. The caller holds
// mu.
func (r *Recorder) finish(s *session) {
	r.active.Store(false)
	close(s.stop)
	<-s.done

	r.sess = nil
}

func (r *Recorder) run(s *session) {
	defer close(s.done)

	ticker := time.NewTicker(r.cfg.Timeslice)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.drain(s)
		case <-s.stop:
			r.drain(s)
			return
		}
	}
}

// drain encodes everything buffered as one chunk.
func (r *Recorder) drain(s *session) {
	if s.err != nil {
		r.ring.Discard()
		return
	}

	before := written(s.out)

	for {
		n := r.ring.Read(s.scratch)
		if n == 0 {
			break
		}

		for i, v := range s.scratch[:n] {
			s.ints[i] = PCM16(v)
		}

		if err := s.enc.Write(r.intBuffer(s.ints[:n])); err != nil {
			s.err = err
			return
		}

		s.frames += n / channels
	}

	if grown := written(s.out) - before; grown > 0 {
		s.chunks = append(s.chunks, grown)
	}
}

// written returns the encoder's write position, which is the end of the
// stream between header patches.
func written(ws *writerseeker.WriterSeeker) int {
	pos, _ := ws.Seek(0, io.SeekCurrent)
	return int(pos)
}

func (r *Recorder) intBuffer(data []int) *audio.IntBuffer {
	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: r.sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
