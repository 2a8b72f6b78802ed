package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/RyanBlaney/spectrum-analyzer/configs"
	"github.com/RyanBlaney/spectrum-analyzer/internal/pipeline"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// Context holds the application context and configuration
type Context struct {
	// Config is the decoded configuration (required)
	Config *configs.Config

	// Stdout receives reports and the success message, Stderr per file
	// batch errors. Both default to the process streams.
	Stdout io.Writer
	Stderr io.Writer

	// Runtime context
	Logger logging.Logger
}

// AnalyzerApp handles the analyzer application lifecycle
type AnalyzerApp struct {
	ctx    *Context
	config pipeline.Config
	report configs.Report
	driver *pipeline.Driver
	logger logging.Logger
}

// NewAnalyzerApp validates the configuration and builds the pipeline driver
func NewAnalyzerApp(ctx *Context, opts ...pipeline.Option) (*AnalyzerApp, error) {
	if ctx.Config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := ctx.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if ctx.Stdout == nil {
		ctx.Stdout = os.Stdout
	}
	if ctx.Stderr == nil {
		ctx.Stderr = os.Stderr
	}

	logger := setupLogging(ctx)
	ctx.Logger = logger

	config, err := ctx.Config.Pipeline()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	report, err := configs.ParseReport(ctx.Config.Report)
	if err != nil {
		return nil, err
	}

	progress := &progressLogger{logger: logger}
	opts = append([]pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithProgress(progress.update),
		pipeline.WithStageHook(func(stage common.Stage, path string) {
			logger.Debug("Stage started", logging.Fields{
				"stage": string(stage),
				"input": path,
			})
		}),
	}, opts...)

	driver, err := pipeline.NewDriver(config, opts...)
	if err != nil {
		return nil, err
	}

	logger.Debug("Analyzer application initialized", logging.Fields{
		"window_size": config.WindowSize,
		"overlap":     config.Overlap,
		"window":      string(config.Window),
		"scale":       string(config.Scale),
		"backend":     string(config.Backend),
		"mode":        string(config.Mode),
		"workers":     config.Workers,
		"report":      string(report),
	})

	return &AnalyzerApp{
		ctx:    ctx,
		config: config,
		report: report,
		driver: driver,
		logger: logger,
	}, nil
}

// Pipeline returns the resolved pipeline configuration
func (app *AnalyzerApp) Pipeline() pipeline.Config { return app.config }

// RunFile analyzes one file and prints the report or a confirmation
func (app *AnalyzerApp) RunFile(ctx context.Context, job pipeline.Job) error {
	result, err := app.driver.Process(ctx, job)
	if err != nil {
		return err
	}

	if app.report == configs.ReportNone {
		if !app.ctx.Config.Quiet {
			fmt.Fprintf(app.ctx.Stdout, "Spectrogram written: %s\n", result.Output)
		}
		return nil
	}
	return app.writeReport(fileReport(result))
}

// RunBatch analyzes every job, printing each failure to Stderr. It fails
// when any job failed.
func (app *AnalyzerApp) RunBatch(ctx context.Context, jobs []pipeline.Job) error {
	if len(jobs) == 0 {
		return fmt.Errorf("no input files")
	}

	batch := app.driver.ProcessBatch(ctx, jobs)
	for _, item := range batch.Items {
		if item.Err != nil {
			fmt.Fprintf(app.ctx.Stderr, "error: %v\n", item.Err)
		} else if app.report == configs.ReportNone && !app.ctx.Config.Quiet {
			fmt.Fprintf(app.ctx.Stdout, "Spectrogram written: %s\n", item.Result.Output)
		}
	}

	if app.report != configs.ReportNone {
		if err := app.writeReport(batchReport(batch)); err != nil {
			return err
		}
	}

	if failed := batch.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(batch.Items))
	}
	return nil
}

// setupLogging configures logging based on context
func setupLogging(ctx *Context) logging.Logger {
	level := ctx.Config.LogLevel
	switch {
	case ctx.Config.Verbose:
		level = "debug"
	case ctx.Config.Quiet:
		level = "error"
	}

	switch strings.ToLower(level) {
	case "debug":
		logging.SetLevel(logging.DebugLevel)
	case "warn", "warning":
		logging.SetLevel(logging.WarnLevel)
	case "error":
		logging.SetLevel(logging.ErrorLevel)
	default:
		logging.SetLevel(logging.InfoLevel)
	}

	if ctx.Logger != nil {
		return ctx.Logger
	}
	return logging.WithFields(logging.Fields{
		"component": "spectrum_analyzer",
	})
}

// progressLogger emits a debug entry every tenth of a file
type progressLogger struct {
	logger logging.Logger
	path   string
	decile int
}

func (p *progressLogger) update(pr pipeline.Progress) {
	if pr.Path != p.path {
		p.path, p.decile = pr.Path, -1
	}

	decile := 10
	if pr.Total > 0 {
		decile = pr.Processed * 10 / pr.Total
	}
	if decile == p.decile {
		return
	}
	p.decile = decile

	p.logger.Debug("Analysis progress", logging.Fields{
		"input":     pr.Path,
		"processed": pr.Processed,
		"total":     pr.Total,
		"percent":   decile * 10,
	})
}
