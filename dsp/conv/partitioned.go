package conv

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Partitioned convolves a stream with a long kernel, one block at a time.
//
// The kernel is split into P partitions of blockSize samples. Each partition
// is zero padded to 2*blockSize and transformed once. Per block, the last two
// input blocks are transformed, pushed into a frequency-domain delay line and
// multiplied with the partition spectra; the second half of the inverse
// transform is the output block.
//
// A Partitioned is not safe for concurrent use.
type Partitioned struct {
	blockSize int
	fftSize   int
	kernelLen int

	plan *algofft.Plan[complex128]

	// kernel spectra, bins 0..blockSize only (real input).
	partitions [][]complex128
	// frequency-domain delay line of input spectra; fdl[head] is the newest.
	fdl  [][]complex128
	head int

	input []float64 // last 2*blockSize input samples
	work  []complex128
	acc   []complex128
}

// NewPartitioned prepares a convolver for kernel with the given block size.
func NewPartitioned(kernel []float64, blockSize int) (*Partitioned, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}

	if !isPowerOf2(blockSize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlock, blockSize)
	}

	fftSize := 2 * blockSize

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	count := (len(kernel) + blockSize - 1) / blockSize
	p := &Partitioned{
		blockSize:  blockSize,
		fftSize:    fftSize,
		kernelLen:  len(kernel),
		plan:       plan,
		partitions: make([][]complex128, count),
		fdl:        make([][]complex128, count),
		input:      make([]float64, fftSize),
		work:       make([]complex128, fftSize),
		acc:        make([]complex128, fftSize),
	}

	bins := blockSize + 1
	for i := range count {
		clear(p.work)

		start := i * blockSize
		end := min(start+blockSize, len(kernel))

		for j, v := range kernel[start:end] {
			p.work[j] = complex(v, 0)
		}

		if err := plan.Forward(p.work, p.work); err != nil {
			return nil, fmt.Errorf("conv: kernel transform: %w", err)
		}

		p.partitions[i] = append([]complex128(nil), p.work[:bins]...)
		p.fdl[i] = make([]complex128, bins)
	}

	return p, nil
}

// BlockSize returns the number of samples consumed and produced per call.
func (p *Partitioned) BlockSize() int { return p.blockSize }

// KernelLen returns the kernel length in samples.
func (p *Partitioned) KernelLen() int { return p.kernelLen }

// Partitions returns the number of kernel partitions.
func (p *Partitioned) Partitions() int { return len(p.partitions) }

// ProcessBlock convolves exactly one block. dst and src may alias.
func (p *Partitioned) ProcessBlock(dst, src []float64) error {
	b := p.blockSize
	if len(src) != b || len(dst) != b {
		return fmt.Errorf("%w: got %d/%d, want %d", ErrBlockMismatched, len(src), len(dst), b)
	}

	copy(p.input, p.input[b:])
	copy(p.input[b:], src)

	for i, v := range p.input {
		p.work[i] = complex(v, 0)
	}

	if err := p.plan.Forward(p.work, p.work); err != nil {
		return fmt.Errorf("conv: input transform: %w", err)
	}

	p.head--
	if p.head < 0 {
		p.head = len(p.fdl) - 1
	}

	copy(p.fdl[p.head], p.work[:b+1])

	acc := p.acc[:b+1]
	clear(acc)

	n := len(p.fdl)
	for k, h := range p.partitions {
		x := p.fdl[(p.head+k)%n]
		for bin := range acc {
			acc[bin] += x[bin] * h[bin]
		}
	}

	// Restore the Hermitian half before the inverse transform.
	copy(p.work, acc)
	for bin := 1; bin < b; bin++ {
		v := acc[bin]
		p.work[p.fftSize-bin] = complex(real(v), -imag(v))
	}

	if err := p.plan.Inverse(p.work, p.work); err != nil {
		return fmt.Errorf("conv: inverse transform: %w", err)
	}

	for i := range dst {
		dst[i] = real(p.work[b+i])
	}

	return nil
}

// Reset clears the input history.
func (p *Partitioned) Reset() {
	clear(p.input)

	for _, x := range p.fdl {
		clear(x)
	}

	p.head = 0
}
