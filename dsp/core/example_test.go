package core_test

import (
	"fmt"

	"github.com/cwbudde/algo-livefx/dsp/core"
)

func ExampleApplyProcessorOptions() {
	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(44100),
		core.WithQuantumSize(256),
	)

	fmt.Printf("sampleRate=%.0f quantum=%d channels=%d\n", cfg.SampleRate, cfg.QuantumSize, cfg.Channels)

	// Output:
	// sampleRate=44100 quantum=256 channels=2
}

func ExampleInterleave() {
	dst := make([]float32, 6)
	core.Interleave(dst, [][]float64{{0.5, -2, 0.25}}, 2)
	fmt.Println(dst)

	// Output:
	// [0.5 0.5 -1 -1 0.25 0.25]
}
