package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectral"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectrogram"
)

// Policy selects how values are mapped to color levels
type Policy string

const (
	// PolicyGlobal uses one min/max over the whole spectrogram. Needs every
	// frame before the first pixel is drawn.
	PolicyGlobal Policy = "global"
	// PolicyFrame rescales each frame to its own min/max
	PolicyFrame Policy = "frame"
)

// ParsePolicy parses a normalization policy. Empty means global.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyGlobal, nil
	case "per-frame":
		return PolicyFrame, nil
	case PolicyGlobal, PolicyFrame:
		return p, nil
	default:
		return "", fmt.Errorf("unknown normalization policy %q (global, frame)", s)
	}
}

// Normalizer maps values linearly from [Lo, Hi] onto [0, 1]
type Normalizer struct {
	Lo float64
	Hi float64
}

// Level returns the clamped level of v. A degenerate range maps to 0.
func (n Normalizer) Level(v float64) float64 {
	span := n.Hi - n.Lo
	if span <= 0 || math.IsNaN(span) {
		return 0
	}
	return math.Max(0, math.Min(1, (v-n.Lo)/span))
}

// GlobalNormalizer spans every value of every spectrogram
func GlobalNormalizer(specs []*spectrogram.Spectrogram) Normalizer {
	n := Normalizer{Lo: math.Inf(1), Hi: math.Inf(-1)}
	for _, s := range specs {
		if lo, hi, ok := s.Range(); ok {
			n.Lo = math.Min(n.Lo, lo)
			n.Hi = math.Max(n.Hi, hi)
		}
	}
	if math.IsInf(n.Lo, 1) {
		return Normalizer{}
	}
	return n
}

// FrameNormalizer spans the values of a single frame
func FrameNormalizer(frame *spectral.SpectralFrame) Normalizer {
	if frame == nil || len(frame.Values) == 0 {
		return Normalizer{}
	}
	n := Normalizer{Lo: frame.Values[0], Hi: frame.Values[0]}
	for _, v := range frame.Values[1:] {
		n.Lo = math.Min(n.Lo, v)
		n.Hi = math.Max(n.Hi, v)
	}
	return n
}

// FreqScale selects the frequency axis mapping
type FreqScale string

const (
	FreqScaleLog    FreqScale = "log"
	FreqScaleLinear FreqScale = "linear"
)

// ParseFreqScale parses a frequency axis name. Empty means log.
func ParseFreqScale(s string) (FreqScale, error) {
	switch f := FreqScale(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FreqScaleLog, nil
	case FreqScaleLog, FreqScaleLinear:
		return f, nil
	default:
		return "", fmt.Errorf("unknown frequency scale %q (log, linear)", s)
	}
}

// FreqAxis maps pixel rows to frequencies, row 0 at the top (highest
// frequency)
type FreqAxis struct {
	Scale  FreqScale
	Min    float64
	Max    float64
	Height int
}

// NewFreqAxis clamps [minFreq, maxFreq] to (0, nyquist]
func NewFreqAxis(scale FreqScale, minFreq, maxFreq, nyquist float64, height int) FreqAxis {
	if nyquist > 0 {
		maxFreq = math.Min(maxFreq, nyquist)
	}
	if minFreq <= 0 {
		if scale == FreqScaleLinear {
			minFreq = 0
		} else {
			minFreq = 1
		}
	}
	if minFreq >= maxFreq {
		minFreq = maxFreq / 2
	}
	return FreqAxis{Scale: scale, Min: minFreq, Max: maxFreq, Height: height}
}

// Frequency returns the frequency shown at row y
func (a FreqAxis) Frequency(y int) float64 {
	if a.Height <= 1 {
		return a.Min
	}
	t := float64(a.Height-1-y) / float64(a.Height-1)
	if a.Scale == FreqScaleLinear {
		return a.Min + (a.Max-a.Min)*t
	}
	return a.Min * math.Pow(a.Max/a.Min, t)
}

// Row returns the row showing freq, which may fall outside [0, Height)
func (a FreqAxis) Row(freq float64) int {
	if a.Height <= 1 {
		return 0
	}
	var t float64
	if a.Scale == FreqScaleLinear {
		t = (freq - a.Min) / (a.Max - a.Min)
	} else {
		t = math.Log2(freq/a.Min) / math.Log2(a.Max/a.Min)
	}
	return int(math.Round(float64(a.Height-1) * (1 - t)))
}

// Bins returns the spectral bin for every row
func (a FreqAxis) Bins(sampleRate, windowSize int) []int {
	bins := make([]int, a.Height)
	for y := range bins {
		bins[y] = spectral.NearestBin(a.Frequency(y), sampleRate, windowSize)
	}
	return bins
}
