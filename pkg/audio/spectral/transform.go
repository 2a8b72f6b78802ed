// Package spectral turns analysis windows into magnitude spectra.
package spectral

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/cwbudde/algo-vecmath"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/window"
)

// Scale selects how bin values are expressed
type Scale string

const (
	ScaleMagnitude Scale = "magnitude"
	ScalePower     Scale = "power"
	ScaleDB        Scale = "db"
)

// DefaultFloorDB is the lowest reported level on the dB scale
const DefaultFloorDB = -120.0

// ParseScale parses a scale name. Empty means dB.
func ParseScale(s string) (Scale, error) {
	switch sc := Scale(strings.ToLower(strings.TrimSpace(s))); sc {
	case "":
		return ScaleDB, nil
	case "mag", "linear":
		return ScaleMagnitude, nil
	case ScaleMagnitude, ScalePower, ScaleDB:
		return sc, nil
	default:
		return "", fmt.Errorf("unknown scale %q (magnitude, power, db)", s)
	}
}

// Config holds transform parameters. FloorDB is taken as given, so the zero
// value clamps the dB scale at 0 dB; callers normally start from
// DefaultFloorDB.
type Config struct {
	WindowSize int     `json:"window_size"`
	SampleRate int     `json:"sample_rate"`
	Scale      Scale   `json:"scale"`
	FloorDB    float64 `json:"floor_db"`
	Backend    Backend `json:"backend"`
}

// SpectralFrame is the spectrum of one window. Values holds WindowSize/2+1
// bins; bin k sits at k*SampleRate/WindowSize Hz.
type SpectralFrame struct {
	Index  int       `json:"index"`
	Offset int       `json:"offset"`
	Time   float64   `json:"time"`
	Values []float64 `json:"values"`
}

// Bins returns the number of frequency bins
func (f *SpectralFrame) Bins() int { return len(f.Values) }

type workspace struct {
	fft  FourierTransform
	spec []complex128
	re   []float64
	im   []float64
}

// Transform computes spectral frames. It is safe for concurrent use; each
// call borrows a backend workspace from an internal pool.
type Transform struct {
	cfg      Config
	bins     int
	floorMag float64
	pool     sync.Pool
	logger   logging.Logger
}

// IsPowerOfTwo reports whether n is a power of two >= 2
func IsPowerOfTwo(n int) bool {
	return n >= 2 && n&(n-1) == 0
}

// NewTransform validates cfg and prepares the first backend workspace
func NewTransform(cfg Config) (*Transform, error) {
	if !IsPowerOfTwo(cfg.WindowSize) {
		return nil, common.NewAnalysisError(common.StageTransform, "", common.ErrCodeInvalidWindowSize,
			fmt.Sprintf("window size must be a power of two >= 2: %d", cfg.WindowSize), nil)
	}
	if cfg.Scale == "" {
		cfg.Scale = ScaleDB
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendAlgoFFT
	}

	t := &Transform{
		cfg:      cfg,
		bins:     cfg.WindowSize/2 + 1,
		floorMag: math.Pow(10, cfg.FloorDB/20),
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_transform",
			"window_size": cfg.WindowSize,
			"backend":     string(cfg.Backend),
		}),
	}

	ws, err := t.newWorkspace()
	if err != nil {
		return nil, common.NewAnalysisError(common.StageTransform, "", common.ErrCodeInternal,
			"failed to initialize fft backend", err)
	}
	t.pool.Put(ws)

	t.logger.Debug("Spectral transform ready", logging.Fields{
		"bins":  t.bins,
		"scale": string(cfg.Scale),
	})
	return t, nil
}

func (t *Transform) newWorkspace() (*workspace, error) {
	ft, err := NewFourierTransform(t.cfg.Backend, t.cfg.WindowSize)
	if err != nil {
		return nil, err
	}
	return &workspace{
		fft:  ft,
		spec: make([]complex128, t.bins),
		re:   make([]float64, t.bins),
		im:   make([]float64, t.bins),
	}, nil
}

func (t *Transform) getWorkspace() (*workspace, error) {
	if ws, ok := t.pool.Get().(*workspace); ok {
		return ws, nil
	}
	return t.newWorkspace()
}

// Config returns the effective configuration
func (t *Transform) Config() Config { return t.cfg }

// Bins returns WindowSize/2+1
func (t *Transform) Bins() int { return t.bins }

// Compute returns the spectrum of w. w must hold exactly WindowSize samples.
func (t *Transform) Compute(w window.Window) (*SpectralFrame, error) {
	if len(w.Samples) != t.cfg.WindowSize {
		return nil, common.NewAnalysisError(common.StageTransform, "", common.ErrCodeInvalidWindowSize,
			fmt.Sprintf("window has %d samples, expected %d", len(w.Samples), t.cfg.WindowSize), nil)
	}

	ws, err := t.getWorkspace()
	if err != nil {
		return nil, common.NewAnalysisError(common.StageTransform, "", common.ErrCodeInternal,
			"failed to initialize fft backend", err)
	}
	defer t.pool.Put(ws)

	if err := ws.fft.Forward(ws.spec, w.Samples); err != nil {
		return nil, common.NewAnalysisError(common.StageTransform, "", common.ErrCodeInternal,
			"fft failed", err)
	}

	for i, c := range ws.spec {
		ws.re[i] = real(c)
		ws.im[i] = imag(c)
	}

	values := make([]float64, t.bins)
	switch t.cfg.Scale {
	case ScalePower:
		vecmath.Power(values, ws.re, ws.im)
	case ScaleMagnitude:
		vecmath.Magnitude(values, ws.re, ws.im)
	default:
		vecmath.Magnitude(values, ws.re, ws.im)
		for i, m := range values {
			values[i] = 20 * math.Log10(math.Max(m, t.floorMag))
		}
	}

	frame := &SpectralFrame{
		Index:  w.Index,
		Offset: w.Offset,
		Values: values,
	}
	if t.cfg.SampleRate > 0 {
		frame.Time = float64(w.Offset) / float64(t.cfg.SampleRate)
	}
	return frame, nil
}

// Floor returns the value silence maps to on the configured scale
func (t *Transform) Floor() float64 {
	if t.cfg.Scale == ScaleDB {
		return t.cfg.FloorDB
	}
	return 0
}

// BinFrequency returns the nominal frequency of bin k
func BinFrequency(k, sampleRate, windowSize int) float64 {
	return float64(k) * float64(sampleRate) / float64(windowSize)
}

// NearestBin returns the bin closest to freq, clamped to [0, windowSize/2]
func NearestBin(freq float64, sampleRate, windowSize int) int {
	k := int(math.Round(freq * float64(windowSize) / float64(sampleRate)))
	return min(max(k, 0), windowSize/2)
}

// PeakBin returns the index of the largest value, or -1 for an empty frame
func PeakBin(values []float64) int {
	peak := -1
	best := math.Inf(-1)
	for i, v := range values {
		if v > best {
			best = v
			peak = i
		}
	}
	return peak
}
