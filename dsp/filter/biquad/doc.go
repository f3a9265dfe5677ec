// Package biquad provides second-order IIR filter sections and the RBJ
// lowpass and highpass designs used by the filter nodes.
//
// A [Section] implements Direct Form II Transposed processing for a single
// second-order section defined by [Coefficients].
package biquad
