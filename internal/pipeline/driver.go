// Package pipeline runs decode, window, transform, accumulate and render for
// one file or a batch of files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/decode"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectral"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectrogram"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/window"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/render"
)

// Job is one input file and where to write its artifact
type Job struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Progress reports frames processed for the file being analyzed
type Progress struct {
	Path      string `json:"path"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// ProgressFunc receives monotonically increasing progress; the last call of a
// successful run has Processed == Total
type ProgressFunc func(Progress)

// StageFunc is invoked when a stage starts for path
type StageFunc func(stage common.Stage, path string)

// Result describes one successful run
type Result struct {
	Input      string                        `json:"input"`
	Output     string                        `json:"output"`
	Format     common.Format                 `json:"format"`
	SampleRate int                           `json:"sample_rate"`
	Channels   int                           `json:"channels"`
	Duration   time.Duration                 `json:"duration"`
	WindowSize int                           `json:"window_size"`
	HopSize    int                           `json:"hop_size"`
	Bins       int                           `json:"bins"`
	Frames     int                           `json:"frames"`
	Series     int                           `json:"series"`
	Streamed   bool                          `json:"streamed"`
	Timings    map[common.Stage]time.Duration `json:"timings"`
	Elapsed    time.Duration                 `json:"elapsed"`
}

// Driver wires the analysis stages together
type Driver struct {
	cfg      Config
	source   *decode.Source
	renderer render.Renderer
	animated *render.AnimatedRenderer
	progress ProgressFunc
	onStage  StageFunc
	logger   logging.Logger
}

// Option configures a Driver
type Option func(*Driver)

// WithProgress installs a progress callback
func WithProgress(fn ProgressFunc) Option {
	return func(d *Driver) { d.progress = fn }
}

// WithStageHook installs a stage start callback
func WithStageHook(fn StageFunc) Option {
	return func(d *Driver) { d.onStage = fn }
}

// WithRenderer replaces the renderer built from the configuration. Streaming
// is disabled when the replacement is not an animated renderer.
func WithRenderer(r render.Renderer) Option {
	return func(d *Driver) {
		d.renderer = r
		d.animated, _ = r.(*render.AnimatedRenderer)
	}
}

// WithSource replaces the default audio source
func WithSource(s *decode.Source) Option {
	return func(d *Driver) { d.source = s }
}

// WithLogger replaces the default logger
func WithLogger(l logging.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// NewDriver validates cfg and builds the stages
func NewDriver(cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	d := &Driver{
		cfg: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "pipeline_driver",
		}),
	}

	switch cfg.Mode {
	case ModeAnimated:
		r, err := render.NewAnimatedRenderer(cfg.Render)
		if err != nil {
			return nil, err
		}
		d.renderer, d.animated = r, r
	default:
		r, err := render.NewImageRenderer(cfg.Render)
		if err != nil {
			return nil, err
		}
		d.renderer = r
	}

	for _, opt := range opts {
		opt(d)
	}
	if d.source == nil {
		d.source = decode.NewSource(nil)
	}
	return d, nil
}

// Config returns the driver configuration
func (d *Driver) Config() Config { return d.cfg }

func (d *Driver) stage(stage common.Stage, path string) {
	if d.onStage != nil {
		d.onStage(stage, path)
	}
}

// Process runs every stage for one file, aborting at the first failure. The
// returned error is an *common.AnalysisError carrying the stage and path.
func (d *Driver) Process(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	if job.Output == "" {
		job.Output = DefaultOutput(job.Input, d.cfg.Mode)
	}

	logger := d.logger.WithFields(logging.Fields{
		"function": "Process",
		"input":    job.Input,
		"output":   job.Output,
	})

	result := &Result{
		Input:      job.Input,
		Output:     job.Output,
		WindowSize: d.cfg.WindowSize,
		Bins:       d.cfg.WindowSize/2 + 1,
		Timings:    make(map[common.Stage]time.Duration),
	}

	d.stage(common.StageDecode, job.Input)
	t0 := time.Now()
	stream, err := d.source.Open(ctx, job.Input, d.cfg.Decode)
	if err != nil {
		return nil, stageError(common.StageDecode, job.Input, err)
	}
	result.Timings[common.StageDecode] = time.Since(t0)
	result.Format = stream.Format
	result.SampleRate = stream.SampleRate
	result.Channels = stream.Channels
	result.Duration = stream.Duration()

	series, err := decode.Downmix(stream, d.cfg.Mixdown)
	if err != nil {
		return nil, stageError(common.StageDecode, job.Input, err)
	}
	result.Series = len(series)
	result.HopSize = d.cfg.HopSize(stream.SampleRate)

	logger.Debug("Audio decoded", logging.Fields{
		"format":      string(stream.Format),
		"sample_rate": stream.SampleRate,
		"channels":    stream.Channels,
		"series":      len(series),
		"hop_size":    result.HopSize,
	})

	d.stage(common.StageWindow, job.Input)
	windowers := make([]*window.Windower, len(series))
	total := 0
	for i, s := range series {
		w, err := window.NewWithHop(s, d.cfg.WindowSize, result.HopSize, d.cfg.Window)
		if err != nil {
			return nil, stageError(common.StageWindow, job.Input, err)
		}
		windowers[i] = w
		total += w.Count()
	}

	d.stage(common.StageTransform, job.Input)
	transform, err := spectral.NewTransform(spectral.Config{
		WindowSize: d.cfg.WindowSize,
		SampleRate: stream.SampleRate,
		Scale:      d.cfg.Scale,
		FloorDB:    d.cfg.FloorDB,
		Backend:    d.cfg.Backend,
	})
	if err != nil {
		return nil, stageError(common.StageTransform, job.Input, err)
	}

	tracker := &progressTracker{fn: d.progress, path: job.Input, total: total}

	t0 = time.Now()
	if d.animated != nil && d.cfg.streaming(len(series)) {
		result.Streamed = true
		d.stage(common.StageRender, job.Input)
		sink, err := d.animated.Stream(job.Output)
		if err != nil {
			return nil, stageError(common.StageRender, job.Input, err)
		}
		// transform and render interleave; the renderer's share is timed
		// inside the sink
		timed := &timedSink{Sink: sink}
		fwd := spectrogram.NewForwarder(timed)
		if err := d.analyze(ctx, windowers[0], transform, d.header(stream, transform, windowers[0], ""), fwd, tracker); err != nil {
			return nil, stageError(common.StageAccumulate, job.Input, err)
		}
		if err := fwd.Close(); err != nil {
			return nil, stageError(common.StageRender, job.Input, err)
		}
		result.Frames = fwd.Accepted()
		result.Timings[common.StageRender] = timed.spent
		result.Timings[common.StageTransform] = max(time.Since(t0)-timed.spent, 0)
	} else {
		specs := make([]*spectrogram.Spectrogram, len(series))
		for i, w := range windowers {
			label := ""
			if len(series) > 1 {
				label = "ch" + strconv.Itoa(i+1)
			}
			acc := spectrogram.NewAccumulator()
			if err := d.analyze(ctx, w, transform, d.header(stream, transform, w, label), acc, tracker); err != nil {
				return nil, stageError(common.StageAccumulate, job.Input, err)
			}
			if err := acc.Close(); err != nil {
				return nil, stageError(common.StageAccumulate, job.Input, err)
			}
			specs[i] = acc.Spectrogram()
			result.Frames = max(result.Frames, specs[i].Len())
		}
		result.Timings[common.StageTransform] = time.Since(t0)

		d.stage(common.StageRender, job.Input)
		t0 = time.Now()
		if err := d.renderer.Render(job.Output, specs); err != nil {
			return nil, stageError(common.StageRender, job.Input, err)
		}
		result.Timings[common.StageRender] = time.Since(t0)
	}
	tracker.finish()

	result.Elapsed = time.Since(start)
	logger.Debug("File processed", logging.Fields{
		"frames":    result.Frames,
		"streamed":  result.Streamed,
		"elapsed_s": result.Elapsed.Seconds(),
	})
	return result, nil
}

func (d *Driver) header(stream *common.AudioStream, t *spectral.Transform, w *window.Windower, channel string) spectrogram.Header {
	return spectrogram.Header{
		SampleRate:     stream.SampleRate,
		WindowSize:     w.Size(),
		HopSize:        w.Hop(),
		Scale:          t.Config().Scale,
		Floor:          t.Floor(),
		Channel:        channel,
		ExpectedFrames: w.Count(),
	}
}

// analyze feeds every window of w through t into sink in index order
func (d *Driver) analyze(ctx context.Context, w *window.Windower, t *spectral.Transform, h spectrogram.Header,
	sink spectrogram.Sink, tracker *progressTracker) error {
	if err := sink.Begin(h); err != nil {
		return err
	}
	if d.cfg.Workers > 1 && w.Count() > 1 {
		return runParallel(ctx, w, t, sink, tracker, d.cfg.Workers, d.cfg.QueueSize)
	}
	return runSequential(ctx, w, t, sink, tracker)
}

func runSequential(ctx context.Context, w *window.Windower, t *spectral.Transform, sink spectrogram.Sink,
	tracker *progressTracker) error {
	it := w.Iterator()
	for win, ok := it.Next(); ok; win, ok = it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := t.Compute(win)
		if err != nil {
			return err
		}
		if err := sink.Accept(frame); err != nil {
			return err
		}
		tracker.advance()
	}
	return nil
}

// timedSink accumulates the time spent inside a downstream sink
type timedSink struct {
	spectrogram.Sink
	spent time.Duration
}

func (t *timedSink) Begin(h spectrogram.Header) error {
	defer t.track(time.Now())
	return t.Sink.Begin(h)
}

func (t *timedSink) Accept(frame *spectral.SpectralFrame) error {
	defer t.track(time.Now())
	return t.Sink.Accept(frame)
}

func (t *timedSink) Close() error {
	defer t.track(time.Now())
	return t.Sink.Close()
}

func (t *timedSink) track(start time.Time) { t.spent += time.Since(start) }

// stageError tags err with stage and path. Errors that are not analysis
// errors are wrapped so errors.Is still reaches them.
func stageError(stage common.Stage, path string, err error) error {
	var ae *common.AnalysisError
	if errors.As(err, &ae) {
		return common.WithStage(common.WithPath(ae, path), stage)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return common.NewAnalysisError(stage, path, common.ErrCodeInternal, "cancelled", err)
	}
	return common.NewAnalysisError(stage, path, common.ErrCodeInternal, "stage failed", err)
}

type progressTracker struct {
	fn        ProgressFunc
	path      string
	total     int
	processed int
}

func (p *progressTracker) advance() {
	p.processed++
	if p.fn != nil {
		p.fn(Progress{Path: p.path, Processed: p.processed, Total: p.total})
	}
}

// finish reports completion for runs that produced no frame
func (p *progressTracker) finish() {
	if p.fn != nil && p.total == 0 {
		p.fn(Progress{Path: p.path, Processed: 0, Total: 0})
	}
}
