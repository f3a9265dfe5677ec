package biquad_test

import (
	"fmt"

	"github.com/cwbudde/algo-livefx/dsp/filter/biquad"
)

func ExampleLowpass() {
	c := biquad.Lowpass(1000, biquad.QFromDB(0), 48000)
	fmt.Printf("%.1f dB\n", c.MagnitudeDB(1000, 48000))
	// Output:
	// 0.0 dB
}
