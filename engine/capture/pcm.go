package capture

import "github.com/cwbudde/algo-livefx/dsp/core"

// PCM16 converts a sample to a signed 16-bit value. Negative samples scale
// by 0x8000 and positive ones by 0x7FFF so both ends of [-1, 1] map onto the
// full range.
func PCM16(s float32) int {
	v := core.Clamp(core.FiniteOr(float64(s), 0), -1, 1)
	if v < 0 {
		return int(v * 0x8000)
	}

	return int(v * 0x7FFF)
}
