// Package render turns spectrograms into PNG images, PNG frame sequences
// and animated GIFs.
package render

import (
	"fmt"
	"image/color"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectrogram"
)

// Defaults
const (
	DefaultHeight        = 512
	DefaultAnimatedWidth = 640
	DefaultMinFreq       = 20.0
	DefaultMaxFreq       = 20000.0
	DefaultFPS           = 25.0
	DefaultBars          = 64
	LabelWidth           = 50
)

var (
	background = color.RGBA{A: 0xFF}
	labelPaper = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	labelInk   = color.RGBA{A: 0xFF}
)

// Options configures both renderers
type Options struct {
	// Width in pixels of the plot area. 0 gives one column per frame for
	// images and DefaultAnimatedWidth for animations.
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	MinFreq   float64   `json:"min_freq"`
	MaxFreq   float64   `json:"max_freq"`
	FreqScale FreqScale `json:"freq_scale"`
	Colormap  string    `json:"colormap"`
	Labels    bool      `json:"labels"`
	Policy    Policy    `json:"policy"`
	FPS       float64   `json:"fps"`
	Bars      int       `json:"bars"`
}

// DefaultOptions returns a labelled jet spectrogram on a 20 Hz to 20 kHz log axis
func DefaultOptions() Options {
	return Options{
		Height:    DefaultHeight,
		MinFreq:   DefaultMinFreq,
		MaxFreq:   DefaultMaxFreq,
		FreqScale: FreqScaleLog,
		Colormap:  "jet",
		Labels:    true,
		Policy:    PolicyGlobal,
		FPS:       DefaultFPS,
		Bars:      DefaultBars,
	}
}

func (o Options) withDefaults() Options {
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.MinFreq <= 0 && o.FreqScale != FreqScaleLinear {
		o.MinFreq = DefaultMinFreq
	}
	if o.MaxFreq <= 0 {
		o.MaxFreq = DefaultMaxFreq
	}
	if o.FreqScale == "" {
		o.FreqScale = FreqScaleLog
	}
	if o.Policy == "" {
		o.Policy = PolicyGlobal
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.Bars <= 0 {
		o.Bars = DefaultBars
	}
	return o
}

// Validate checks option consistency
func (o Options) Validate() error {
	if o.Width < 0 || o.Height < 0 {
		return fmt.Errorf("image size must not be negative: %dx%d", o.Width, o.Height)
	}
	if o.MinFreq < 0 || (o.MaxFreq > 0 && o.MinFreq >= o.MaxFreq) {
		return fmt.Errorf("invalid frequency range %g..%g", o.MinFreq, o.MaxFreq)
	}
	if _, err := ParseFreqScale(string(o.FreqScale)); err != nil {
		return err
	}
	if _, err := ParsePolicy(string(o.Policy)); err != nil {
		return err
	}
	if _, err := NewColormap(o.Colormap); err != nil {
		return err
	}
	return nil
}

// Renderer writes spectrograms to path. specs holds one spectrogram per
// analyzed channel.
type Renderer interface {
	Render(path string, specs []*spectrogram.Spectrogram) error
}

func renderError(path, message string, cause error) error {
	return common.NewAnalysisError(common.StageRender, path, common.ErrCodeRender, message, cause)
}
