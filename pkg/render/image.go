package render

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectral"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectrogram"
)

// ImageRenderer draws the classic spectrogram: time on x, frequency on y,
// one panel per channel stacked top to bottom
type ImageRenderer struct {
	opts     Options
	colormap *Colormap
	logger   logging.Logger
}

// NewImageRenderer creates a still image renderer
func NewImageRenderer(opts Options) (*ImageRenderer, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, renderError("", "invalid render options", err)
	}
	cm, err := NewColormap(opts.Colormap)
	if err != nil {
		return nil, renderError("", "invalid render options", err)
	}

	return &ImageRenderer{
		opts:     opts,
		colormap: cm,
		logger: logging.WithFields(logging.Fields{
			"component": "image_renderer",
			"colormap":  cm.Name(),
		}),
	}, nil
}

type imageEncoder func(w io.Writer, img image.Image) error

func encoderFor(path string) (imageEncoder, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode, true
	case ".jpg", ".jpeg":
		return func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
		}, true
	default:
		return nil, false
	}
}

// Render draws specs and writes the encoded image to path
func (r *ImageRenderer) Render(path string, specs []*spectrogram.Spectrogram) error {
	encode, ok := encoderFor(path)
	if !ok {
		return renderError(path, fmt.Sprintf("unsupported image format %q", filepath.Ext(path)), nil)
	}

	img := r.Draw(specs)

	f, err := os.Create(path)
	if err != nil {
		return renderError(path, "failed to create output file", err)
	}
	if err := encode(f, img); err != nil {
		f.Close()
		return renderError(path, "failed to encode image", err)
	}
	if err := f.Close(); err != nil {
		return renderError(path, "failed to write output file", err)
	}

	r.logger.Debug("Spectrogram image written", logging.Fields{
		"path":   path,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	})
	return nil
}

// Draw renders specs into an in-memory image. An empty or missing
// spectrogram yields a background-only panel.
func (r *ImageRenderer) Draw(specs []*spectrogram.Spectrogram) *image.RGBA {
	frames := 0
	for _, s := range specs {
		frames = max(frames, s.Len())
	}

	plotWidth := r.opts.Width
	if plotWidth <= 0 {
		plotWidth = max(frames, 1)
	}
	panels := max(len(specs), 1)
	border := 0
	if r.opts.Labels {
		border = LabelWidth
	}

	img := image.NewRGBA(image.Rect(0, 0, border+plotWidth, panels*r.opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.colormap.At(0)), image.Point{}, draw.Src)

	norm := GlobalNormalizer(specs)
	for i := range panels {
		panel := image.Rect(border, i*r.opts.Height, border+plotWidth, (i+1)*r.opts.Height)

		var spec *spectrogram.Spectrogram
		if i < len(specs) {
			spec = specs[i]
		}

		nyquist := 0.0
		if spec != nil {
			nyquist = spec.Nyquist()
		}
		axis := NewFreqAxis(r.opts.FreqScale, r.opts.MinFreq, r.opts.MaxFreq, nyquist, r.opts.Height)

		if spec.Len() > 0 {
			r.drawPanel(img, panel, spec, axis, norm)
		}
		if r.opts.Labels {
			drawLabelBorder(img, panel, axis)
		}
	}
	return img
}

func (r *ImageRenderer) drawPanel(img *image.RGBA, panel image.Rectangle, spec *spectrogram.Spectrogram,
	axis FreqAxis, global Normalizer) {
	width := panel.Dx()
	frames := spec.Len()
	bins := axis.Bins(spec.SampleRate, spec.WindowSize)

	var lastFrame *spectral.SpectralFrame
	norm := global
	for x := range width {
		t := 0
		if width > 1 {
			t = x * (frames - 1) / (width - 1)
		}
		frame := spec.Frames[t]
		if r.opts.Policy == PolicyFrame && frame != lastFrame {
			norm = FrameNormalizer(frame)
			lastFrame = frame
		}

		for y, k := range bins {
			k = min(k, len(frame.Values)-1)
			img.SetRGBA(panel.Min.X+x, panel.Min.Y+y, r.colormap.At(norm.Level(frame.Values[k])))
		}
	}
}
