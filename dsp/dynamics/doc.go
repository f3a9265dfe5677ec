// Package dynamics provides the soft-knee compressor behind the compressor
// node. Gain is computed in the log2 domain with a quadratic knee; the
// detector is a peak follower with separate attack and release.
package dynamics
