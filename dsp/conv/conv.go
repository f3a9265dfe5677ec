package conv

import "errors"

// Errors returned by the convolution routines.
var (
	ErrEmptyKernel     = errors.New("conv: empty kernel")
	ErrInvalidBlock    = errors.New("conv: block size must be a power of two")
	ErrBlockMismatched = errors.New("conv: input and output must match the block size")
)

// Direct computes the full linear convolution of a and b.
func Direct(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}

	return out, nil
}

func isPowerOf2(n int) bool {
	return n > 0 && n&(n-1) == 0
}
