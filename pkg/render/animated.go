package render

import (
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectral"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectrogram"
)

// FramePattern names the files of a PNG frame sequence
const FramePattern = "frame_%06d.png"

// AnimatedRenderer draws one frequency-bar frame per spectral frame
type AnimatedRenderer struct {
	opts     Options
	colormap *Colormap
	logger   logging.Logger
}

// NewAnimatedRenderer creates an animated renderer
func NewAnimatedRenderer(opts Options) (*AnimatedRenderer, error) {
	opts = opts.withDefaults()
	if opts.Width <= 0 {
		opts.Width = DefaultAnimatedWidth
	}
	if err := opts.Validate(); err != nil {
		return nil, renderError("", "invalid render options", err)
	}
	cm, err := NewColormap(opts.Colormap)
	if err != nil {
		return nil, renderError("", "invalid render options", err)
	}

	return &AnimatedRenderer{
		opts:     opts,
		colormap: cm,
		logger: logging.WithFields(logging.Fields{
			"component": "animated_renderer",
			"colormap":  cm.Name(),
			"bars":      opts.Bars,
		}),
	}, nil
}

// IsGIF reports whether path selects animated GIF output
func IsGIF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gif")
}

// Render draws every frame of specs, scaled globally unless the frame policy
// is selected. Channels are stacked vertically inside each frame.
func (r *AnimatedRenderer) Render(path string, specs []*spectrogram.Spectrogram) error {
	out, err := r.newFrameWriter(path)
	if err != nil {
		return err
	}

	frames := 0
	for _, s := range specs {
		frames = max(frames, s.Len())
	}

	layouts := make([]barLayout, len(specs))
	for i, s := range specs {
		layouts[i] = r.layout(s.Header)
	}
	norm := GlobalNormalizer(specs)

	for t := range frames {
		img := r.newCanvas(max(len(specs), 1))
		for i, s := range specs {
			if t < s.Len() {
				frameNorm := norm
				if r.opts.Policy == PolicyFrame {
					frameNorm = FrameNormalizer(s.Frames[t])
				}
				r.drawBars(img, i, layouts[i], s.Frames[t], frameNorm)
			}
		}
		if err := out.write(img); err != nil {
			return err
		}
	}
	return out.close(r.newCanvas(max(len(specs), 1)))
}

// Stream returns a sink that renders each frame as soon as it arrives, scaled
// to its own range. A PNG sequence retains nothing but the current frame; GIF
// output keeps the encoded palette frames until Close.
func (r *AnimatedRenderer) Stream(path string) (spectrogram.Sink, error) {
	out, err := r.newFrameWriter(path)
	if err != nil {
		return nil, err
	}
	return &frameStream{r: r, out: out}, nil
}

type frameStream struct {
	r      *AnimatedRenderer
	out    frameWriter
	layout barLayout
}

func (s *frameStream) Begin(h spectrogram.Header) error {
	s.layout = s.r.layout(h)
	return nil
}

func (s *frameStream) Accept(frame *spectral.SpectralFrame) error {
	img := s.r.newCanvas(1)
	s.r.drawBars(img, 0, s.layout, frame, FrameNormalizer(frame))
	return s.out.write(img)
}

func (s *frameStream) Close() error {
	return s.out.close(s.r.newCanvas(1))
}

// barLayout holds the bin range [lo, hi] of every bar
type barLayout struct {
	lo []int
	hi []int
}

// layout splits the axis range into log-spaced bands (linear when the axis
// is linear)
func (r *AnimatedRenderer) layout(h spectrogram.Header) barLayout {
	axis := NewFreqAxis(r.opts.FreqScale, r.opts.MinFreq, r.opts.MaxFreq, h.Nyquist(), r.opts.Bars+1)
	l := barLayout{lo: make([]int, r.opts.Bars), hi: make([]int, r.opts.Bars)}
	if h.SampleRate <= 0 || h.WindowSize <= 0 {
		return l
	}

	// row Bars is the lowest edge, row 0 the highest
	for b := range r.opts.Bars {
		fLo := axis.Frequency(r.opts.Bars - b)
		fHi := axis.Frequency(r.opts.Bars - b - 1)
		lo := spectral.NearestBin(fLo, h.SampleRate, h.WindowSize)
		hi := spectral.NearestBin(fHi, h.SampleRate, h.WindowSize)
		l.lo[b] = lo
		l.hi[b] = max(lo, hi)
	}
	return l
}

func (r *AnimatedRenderer) newCanvas(panels int) *image.Paletted {
	rect := image.Rect(0, 0, r.opts.Width, panels*r.opts.Height)
	return image.NewPaletted(rect, r.colormap.Palette(background))
}

func (r *AnimatedRenderer) drawBars(img *image.Paletted, panel int, l barLayout, frame *spectral.SpectralFrame, norm Normalizer) {
	if frame == nil || len(frame.Values) == 0 {
		return
	}
	bars := len(l.lo)
	slot := float64(r.opts.Width) / float64(bars)
	top := panel * r.opts.Height

	for b := range bars {
		peak := math.Inf(-1)
		for k := l.lo[b]; k <= l.hi[b] && k < len(frame.Values); k++ {
			peak = math.Max(peak, frame.Values[k])
		}
		if math.IsInf(peak, -1) {
			continue
		}

		level := norm.Level(peak)
		barHeight := int(math.Round(level * float64(r.opts.Height)))
		if barHeight == 0 {
			continue
		}

		x0 := int(math.Round(float64(b) * slot))
		x1 := int(math.Round(float64(b+1)*slot)) - 1
		if x1 <= x0 {
			x1 = x0 + 1
		}
		idx := r.colormap.PaletteIndex(level)
		for y := top + r.opts.Height - barHeight; y < top+r.opts.Height; y++ {
			for x := x0; x < x1; x++ {
				img.SetColorIndex(x, y, idx)
			}
		}
	}
}

// frameWriter persists rendered frames
type frameWriter interface {
	write(img *image.Paletted) error
	// close finalizes the output; blank is used when no frame was written
	close(blank *image.Paletted) error
}

func (r *AnimatedRenderer) newFrameWriter(path string) (frameWriter, error) {
	if IsGIF(path) {
		delay := max(int(math.Round(100/r.opts.FPS)), 1)
		return &gifWriter{path: path, anim: &gif.GIF{}, delay: delay}, nil
	}
	if ext := filepath.Ext(path); ext != "" {
		return nil, renderError(path, fmt.Sprintf("unsupported animation format %q (use a directory or .gif)", ext), nil)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, renderError(path, "failed to create frame directory", err)
	}
	return &pngSequence{dir: path}, nil
}

type pngSequence struct {
	dir string
	n   int
}

func (p *pngSequence) write(img *image.Paletted) error {
	path := filepath.Join(p.dir, fmt.Sprintf(FramePattern, p.n))
	f, err := os.Create(path)
	if err != nil {
		return renderError(path, "failed to create frame file", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return renderError(path, "failed to encode frame", err)
	}
	if err := f.Close(); err != nil {
		return renderError(path, "failed to write frame file", err)
	}
	p.n++
	return nil
}

func (p *pngSequence) close(*image.Paletted) error { return nil }

type gifWriter struct {
	path  string
	anim  *gif.GIF
	delay int
}

func (g *gifWriter) write(img *image.Paletted) error {
	g.anim.Image = append(g.anim.Image, img)
	g.anim.Delay = append(g.anim.Delay, g.delay)
	return nil
}

func (g *gifWriter) close(blank *image.Paletted) error {
	if len(g.anim.Image) == 0 {
		g.write(blank)
	}

	f, err := os.Create(g.path)
	if err != nil {
		return renderError(g.path, "failed to create output file", err)
	}
	if err := gif.EncodeAll(f, g.anim); err != nil {
		f.Close()
		return renderError(g.path, "failed to encode gif", err)
	}
	if err := f.Close(); err != nil {
		return renderError(g.path, "failed to write output file", err)
	}
	return nil
}
