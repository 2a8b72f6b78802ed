package pipeline

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/decode"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectral"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/window"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/render"
)

// Mode selects the rendered artifact
type Mode string

const (
	ModeImage    Mode = "image"
	ModeAnimated Mode = "animated"
)

// ParseMode parses an output mode. Empty means image.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", "spectrogram", "still":
		return ModeImage, nil
	case "animation", "bars":
		return ModeAnimated, nil
	case ModeImage, ModeAnimated:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (image, animated)", s)
	}
}

// Config holds everything a Driver needs, threaded explicitly through every
// stage
type Config struct {
	WindowSize int              `json:"window_size"`
	Overlap    float64          `json:"overlap"`
	Window     window.Function  `json:"window"`
	Scale      spectral.Scale   `json:"scale"`
	FloorDB    float64          `json:"floor_db"`
	Backend    spectral.Backend `json:"backend"`

	Mixdown decode.Mixdown `json:"mixdown"`
	Decode  decode.Options `json:"decode"`

	Mode   Mode           `json:"mode"`
	Render render.Options `json:"render"`

	// HopFromFPS derives the hop from Render.FPS in animated mode so one
	// frame is produced per video frame
	HopFromFPS bool `json:"hop_from_fps"`

	// Workers > 1 enables the transform worker pool
	Workers   int `json:"workers"`
	QueueSize int `json:"queue_size"`
}

// DefaultConfig analyzes 4096 point Hann windows with 75% overlap on a dB
// scale and renders a still image
func DefaultConfig() Config {
	return Config{
		WindowSize: 4096,
		Overlap:    0.75,
		Window:     window.Hann,
		Scale:      spectral.ScaleDB,
		FloorDB:    spectral.DefaultFloorDB,
		Backend:    spectral.BackendAlgoFFT,
		Mixdown:    decode.MixdownAverage,
		Decode:     decode.DefaultOptions(),
		Mode:       ModeImage,
		Render:     render.DefaultOptions(),
		Workers:    1,
		QueueSize:  64,
	}
}

// Validate checks parameter consistency before any file is touched
func (c Config) Validate() error {
	if !spectral.IsPowerOfTwo(c.WindowSize) {
		return fmt.Errorf("window size must be a power of two >= 2: %d", c.WindowSize)
	}
	if c.Overlap < 0 || c.Overlap >= 1 || math.IsNaN(c.Overlap) {
		return fmt.Errorf("overlap must be in [0, 1): %g", c.Overlap)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", c.Workers)
	}
	if c.Workers > 1 && c.QueueSize < 1 {
		return fmt.Errorf("queue size must be positive with %d workers", c.Workers)
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	return c.Render.Validate()
}

// HopSize returns the hop for a stream at sampleRate
func (c Config) HopSize(sampleRate int) int {
	if c.Mode == ModeAnimated && c.HopFromFPS && c.Render.FPS > 0 && sampleRate > 0 {
		return max(int(math.Round(float64(sampleRate)/c.Render.FPS)), 1)
	}
	return window.HopSize(c.WindowSize, c.Overlap)
}

// streaming reports whether frames can go straight to the renderer
func (c Config) streaming(series int) bool {
	return c.Mode == ModeAnimated && c.Render.Policy == render.PolicyFrame && series == 1
}

// DefaultOutput derives the output path from the input path: "<base>.png"
// for images, "<base>_frames" for animations
func DefaultOutput(input string, mode Mode) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if mode == ModeAnimated {
		return base + "_frames"
	}
	return base + ".png"
}
