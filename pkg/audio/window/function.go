package window

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-sonar/algorithms/windowing"
)

// Function names a window function
type Function string

const (
	Hann           Function = "hann"
	Hamming        Function = "hamming"
	Blackman       Function = "blackman"
	BlackmanHarris Function = "blackman-harris"
	Rectangular    Function = "rectangular"
)

// Functions lists the supported window functions
func Functions() []Function {
	return []Function{Hann, Hamming, Blackman, BlackmanHarris, Rectangular}
}

// ParseFunction parses a window function name. Empty means Hann.
func ParseFunction(s string) (Function, error) {
	switch f := Function(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "hanning":
		return Hann, nil
	case "rect", "none", "boxcar":
		return Rectangular, nil
	case "blackmanharris":
		return BlackmanHarris, nil
	case Hann, Hamming, Blackman, BlackmanHarris, Rectangular:
		return f, nil
	default:
		return "", fmt.Errorf("unknown window function %q", s)
	}
}

// Coefficients generates the periodic form of fn with size points. The
// periodic form divides by size rather than size-1, which is what FFT
// framing wants. Unknown functions fall back to rectangular.
func Coefficients(fn Function, size int) []float64 {
	const symmetric = false

	var gen interface{ GetCoefficients() []float64 }
	switch fn {
	case Hann:
		gen = windowing.NewHann(size, symmetric)
	case Hamming:
		gen = windowing.NewHamming(size, symmetric)
	case Blackman:
		gen = windowing.NewBlackman(size, symmetric)
	case BlackmanHarris:
		gen = windowing.NewBlackmanHarris(size, symmetric)
	default:
		gen = windowing.NewRectangular(size)
	}
	return gen.GetCoefficients()
}

// CoherentGain is the mean coefficient value; a full-scale sine windowed by
// coeffs peaks at CoherentGain*size/2 in the FFT.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}
	return sum / float64(len(coeffs))
}
