package window

import "fmt"

func ExampleGenerate() {
	w := Generate(TypeHamming, 5)
	fmt.Printf("%.2f\n", w)
	// Output:
	// [0.08 0.54 1.00 0.54 0.08]
}

func ExampleWithPeriodic() {
	// Periodic windows suit FFT frames: the last sample is left out.
	w := Generate(TypeHann, 4, WithPeriodic())
	fmt.Printf("%.2f\n", w)
	// Output:
	// [0.00 0.50 1.00 0.50]
}
