// Package conv provides convolution for block-based real-time processing.
//
// [Partitioned] implements uniformly partitioned overlap-save convolution
// with a frequency-domain delay line. The impulse response is split into
// partitions of the processing block size, so every call produces output for
// the block it was given with no added latency. This is the engine behind the
// convolution reverb node, where impulse responses are several seconds long.
//
// [Direct] is the O(N*M) time-domain reference.
package conv
