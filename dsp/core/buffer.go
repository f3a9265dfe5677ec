package core

// DownmixInterleaved averages the channels of an interleaved float32 frame
// buffer into dst. It returns the number of frames written.
func DownmixInterleaved(dst []float64, src []float32, channels int) int {
	if channels <= 0 {
		return 0
	}

	frames := min(len(dst), len(src)/channels)
	if channels == 1 {
		for i := range frames {
			dst[i] = float64(src[i])
		}

		return frames
	}

	scale := 1.0 / float64(channels)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += float64(src[i*channels+c])
		}

		dst[i] = sum * scale
	}

	return frames
}

// Interleave writes planar channels into an interleaved float32 buffer with
// dstChannels channels. Missing source channels repeat the last one; extra
// source channels are dropped. Samples are hard-clipped to [-1, 1].
func Interleave(dst []float32, planar [][]float64, dstChannels int) int {
	if dstChannels <= 0 || len(planar) == 0 {
		return 0
	}

	frames := len(dst) / dstChannels
	if n := len(planar[0]); n < frames {
		frames = n
	}

	for c := range dstChannels {
		src := planar[min(c, len(planar)-1)]
		for i := range frames {
			dst[i*dstChannels+c] = float32(Clamp(src[i], -1, 1))
		}
	}

	return frames
}
