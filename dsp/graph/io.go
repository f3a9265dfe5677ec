package graph

// Source carries the device input, up-mixed to both channels.
type Source struct {
	nodeBase
}

func (s *Source) process(_ *quantum, _, out Bus) {
	copy(out[0], s.ctx.input)
	copy(out[1], s.ctx.input)
}

// Destination is the device output. Its summed input is what Render writes.
type Destination struct {
	nodeBase
}

// SinkFunc receives a rendered stereo block on the render goroutine. It
// must not block or retain the slices.
type SinkFunc func(frame int64, in Bus)

// Sink hands its summed input to a callback every quantum. Analysis taps and
// recorders are sinks.
type Sink struct {
	nodeBase

	fn SinkFunc
}

// NewSink creates a sink calling fn.
func (c *Context) NewSink(fn SinkFunc) (*Sink, error) {
	s := &Sink{fn: fn}
	if err := s.init(s, c, "sink", 1, 0); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Sink) process(q *quantum, in, _ Bus) {
	if s.fn != nil {
		s.fn(q.frame, in)
	}
}
