package app

import (
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/latency-benchmark-common/output"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RyanBlaney/spectrum-analyzer/configs"
	"github.com/RyanBlaney/spectrum-analyzer/internal/pipeline"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

var stageOrder = []common.Stage{
	common.StageDecode,
	common.StageWindow,
	common.StageTransform,
	common.StageAccumulate,
	common.StageRender,
}

// fileReport builds the report entry for one analyzed file
func fileReport(result *pipeline.Result) map[string]any {
	return map[string]any{
		"input":            result.Input,
		"output":           result.Output,
		"format":           string(result.Format),
		"sample_rate":      result.SampleRate,
		"channels":         result.Channels,
		"duration_seconds": seconds(result.Duration),
		"window_size":      result.WindowSize,
		"hop_size":         result.HopSize,
		"bins":             result.Bins,
		"frames":           result.Frames,
		"series":           result.Series,
		"streamed":         result.Streamed,
		"stage_timings_ms": stageTimings(result.Timings),
		"elapsed_ms":       result.Elapsed.Milliseconds(),
	}
}

// batchReport summarizes a batch, failed files carry their error
func batchReport(batch *pipeline.BatchResult) map[string]any {
	files := make([]map[string]any, 0, len(batch.Items))
	for _, item := range batch.Items {
		if item.Err != nil {
			files = append(files, map[string]any{
				"input": item.Job.Input,
				"error": item.Err.Error(),
			})
			continue
		}
		files = append(files, fileReport(item.Result))
	}

	return map[string]any{
		"timestamp":  time.Now().UTC(),
		"files":      files,
		"succeeded":  batch.Succeeded(),
		"failed":     batch.Failed(),
		"elapsed_ms": batch.Elapsed.Milliseconds(),
	}
}

// stageTimings keys timings by title-cased stage name, skipping stages that
// did not run
func stageTimings(timings map[common.Stage]time.Duration) map[string]float64 {
	caser := cases.Title(language.English)
	out := make(map[string]float64, len(timings))
	for _, stage := range stageOrder {
		d, ok := timings[stage]
		if !ok {
			continue
		}
		out[caser.String(string(stage))] = float64(d.Microseconds()) / 1000
	}
	return out
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

func formatterFor(report configs.Report) output.Formatter {
	switch report {
	case configs.ReportYAML:
		return &output.YAMLFormatter{}
	case configs.ReportTable:
		return &output.TableFormatter{}
	default:
		return &output.JSONFormatter{}
	}
}

// writeReport formats data and writes it to Stdout
func (app *AnalyzerApp) writeReport(data map[string]any) error {
	formatted, err := formatterFor(app.report).Format(data, true)
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	if _, err := app.ctx.Stdout.Write(formatted); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	app.logger.Debug("Report written", logging.Fields{
		"format":     string(app.report),
		"size_bytes": len(formatted),
	})
	return nil
}
