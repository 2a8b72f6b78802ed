package spectral

import (
	"fmt"
	"strings"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Backend names a FourierTransform implementation
type Backend string

const (
	BackendAlgoFFT Backend = "algofft"
	BackendGonum   Backend = "gonum"
	BackendGoDSP   Backend = "godsp"
)

// Backends lists the available FFT backends
func Backends() []Backend {
	return []Backend{BackendAlgoFFT, BackendGonum, BackendGoDSP}
}

// ParseBackend parses a backend name. Empty means algofft.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendAlgoFFT, nil
	case BackendAlgoFFT, BackendGonum, BackendGoDSP:
		return b, nil
	default:
		return "", fmt.Errorf("unknown fft backend %q (algofft, gonum, godsp)", s)
	}
}

// FourierTransform computes the forward DFT of a real sequence of Size()
// samples. Forward writes the non-redundant bins 0..Size()/2 into dst.
// Implementations keep scratch state and are not safe for concurrent use.
type FourierTransform interface {
	Forward(dst []complex128, src []float64) error
	Size() int
}

// NewFourierTransform creates a transform of the given size on backend
func NewFourierTransform(backend Backend, size int) (FourierTransform, error) {
	switch backend {
	case BackendAlgoFFT, "":
		return newAlgoFFT(size)
	case BackendGonum:
		return &gonumTransform{size: size, fft: fourier.NewFFT(size)}, nil
	case BackendGoDSP:
		return &godspTransform{size: size}, nil
	default:
		return nil, fmt.Errorf("unknown fft backend %q", backend)
	}
}

func checkLengths(dst []complex128, src []float64, size int) error {
	if len(src) != size {
		return fmt.Errorf("input length %d does not match transform size %d", len(src), size)
	}
	if len(dst) < size/2+1 {
		return fmt.Errorf("output length %d shorter than %d bins", len(dst), size/2+1)
	}
	return nil
}

type algoFFTTransform struct {
	size int
	plan *algofft.Plan[complex128]
	in   []complex128
	out  []complex128
}

func newAlgoFFT(size int) (*algoFFTTransform, error) {
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create fft plan: %w", err)
	}
	return &algoFFTTransform{
		size: size,
		plan: plan,
		in:   make([]complex128, size),
		out:  make([]complex128, size),
	}, nil
}

func (t *algoFFTTransform) Size() int { return t.size }

func (t *algoFFTTransform) Forward(dst []complex128, src []float64) error {
	if err := checkLengths(dst, src, t.size); err != nil {
		return err
	}
	for i, v := range src {
		t.in[i] = complex(v, 0)
	}
	if err := t.plan.Forward(t.out, t.in); err != nil {
		return fmt.Errorf("fft forward: %w", err)
	}
	copy(dst, t.out[:t.size/2+1])
	return nil
}

type gonumTransform struct {
	size int
	fft  *fourier.FFT
}

func (t *gonumTransform) Size() int { return t.size }

func (t *gonumTransform) Forward(dst []complex128, src []float64) error {
	if err := checkLengths(dst, src, t.size); err != nil {
		return err
	}
	t.fft.Coefficients(dst[:t.size/2+1], src)
	return nil
}

// godspTransform wraps go-dsp, which allocates per call
type godspTransform struct {
	size int
}

func (t *godspTransform) Size() int { return t.size }

func (t *godspTransform) Forward(dst []complex128, src []float64) error {
	if err := checkLengths(dst, src, t.size); err != nil {
		return err
	}
	out := fft.FFTReal(src)
	copy(dst, out[:t.size/2+1])
	return nil
}
