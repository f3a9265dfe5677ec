// Package graph is a block-based audio node graph for live processing.
//
// A [Context] owns the sample clock and the render entry point that a device
// callback drives. Nodes (gain, delay, filters, convolver, wave shaper,
// compressor, oscillator, pitch shifter, sinks) are created from a Context
// and wired into a [Graph]. Compiling a Graph yields an immutable [Program];
// publishing a Program swaps it in atomically between two render quanta, so
// the render path never observes a half-wired topology and never locks.
//
// Every bus is stereo. Fan-in sums inputs. Node parameters are [Param]
// values with Web Audio style automation (set, linear ramp, exponential
// approach, cancel) and may be modulated at audio rate by other nodes.
//
// Cycles are legal only through a [Delay]; such a delay renders in two
// phases and its delay is never shorter than one render quantum.
package graph
