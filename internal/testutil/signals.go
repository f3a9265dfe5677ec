package testutil

import (
	"math"
	"math/rand"
)

// Sine generates a deterministic float32 sine block, the format device
// callbacks deliver.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float32 {
	out := make([]float32, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = float32(amplitude * math.Sin(step*float64(i)))
	}

	return out
}

// Noise generates white noise with a fixed seed.
func Noise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))

	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// Impulse generates a unit impulse at pos.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}

	return out
}

// DirectConvolve is the O(N*M) reference convolution truncated to len(x).
func DirectConvolve(x, h []float64) []float64 {
	out := make([]float64, len(x))

	for n := range out {
		acc := 0.0
		for k := 0; k < len(h) && k <= n; k++ {
			acc += h[k] * x[n-k]
		}

		out[n] = acc
	}

	return out
}

// Channel extracts one channel from an interleaved buffer.
func Channel(interleaved []float32, channels, ch int) []float32 {
	if channels <= 0 {
		return nil
	}

	out := make([]float32, 0, len(interleaved)/channels)
	for i := ch; i < len(interleaved); i += channels {
		out = append(out, interleaved[i])
	}

	return out
}
