// Package ringbuf provides a lock-free single-producer single-consumer ring
// of float32 samples for handing audio from the render goroutine to a
// consumer goroutine.
package ringbuf

import (
	"errors"
	"sync/atomic"
)

// ErrInvalidSize is returned for a capacity that is not a positive power of
// two.
var ErrInvalidSize = errors.New("ringbuf: size must be a positive power of two")

// Ring is a bounded SPSC queue. Write must only be called from one
// goroutine and Read and Discard from one other goroutine.
type Ring struct {
	buf  []float32
	mask uint64

	// Monotonic counters; the difference is the fill level.
	head atomic.Uint64 // written by the producer
	tail atomic.Uint64 // written by the consumer
}

// New returns a ring holding size samples.
func New(size int) (*Ring, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, ErrInvalidSize
	}

	return &Ring{buf: make([]float32, size), mask: uint64(size - 1)}, nil
}

// Cap returns the capacity in samples.
func (r *Ring) Cap() int { return len(r.buf) }

// Len returns the number of buffered samples.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Write copies as much of p as fits and returns the number of samples
// written. It never blocks.
func (r *Ring) Write(p []float32) int {
	head := r.head.Load()
	free := uint64(len(r.buf)) - (head - r.tail.Load())

	n := min(uint64(len(p)), free)
	for i := range n {
		r.buf[(head+i)&r.mask] = p[i]
	}

	r.head.Store(head + n)

	return int(n)
}

// Read moves up to len(p) samples into p and returns how many were read.
func (r *Ring) Read(p []float32) int {
	tail := r.tail.Load()
	avail := r.head.Load() - tail

	n := min(uint64(len(p)), avail)
	for i := range n {
		p[i] = r.buf[(tail+i)&r.mask]
	}

	r.tail.Store(tail + n)

	return int(n)
}

// Discard drops everything buffered so far.
func (r *Ring) Discard() {
	r.tail.Store(r.head.Load())
}
