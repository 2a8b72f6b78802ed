package configs

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/render"
)

// Report selects how the run summary is printed
type Report string

const (
	ReportNone  Report = "none"
	ReportJSON  Report = "json"
	ReportYAML  Report = "yaml"
	ReportTable Report = "table"
)

// ParseReport parses a report format. Empty means none.
func ParseReport(s string) (Report, error) {
	switch r := Report(strings.ToLower(strings.TrimSpace(s))); r {
	case "", ReportNone:
		return ReportNone, nil
	case "yml":
		return ReportYAML, nil
	case ReportJSON, ReportYAML, ReportTable:
		return r, nil
	default:
		return "", fmt.Errorf("unknown report format %q (none, json, yaml, table)", s)
	}
}

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	// Application defaults
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("report", string(ReportNone))

	// Analysis defaults: 4096 point windows, hop 1024
	v.SetDefault("analysis.window_size", 4096)
	v.SetDefault("analysis.overlap", 0.75)
	v.SetDefault("analysis.window", "hann")
	v.SetDefault("analysis.scale", "db")
	v.SetDefault("analysis.db_floor", -120.0)
	v.SetDefault("analysis.fft", "algofft")

	// Decode defaults
	v.SetDefault("decode.mixdown", "average")
	v.SetDefault("decode.start", 0.0)
	v.SetDefault("decode.duration", -1.0)

	// Render defaults
	v.SetDefault("render.mode", "image")
	v.SetDefault("render.width", 0)
	v.SetDefault("render.height", render.DefaultHeight)
	v.SetDefault("render.min_freq", "20")
	v.SetDefault("render.max_freq", "20000")
	v.SetDefault("render.freq_scale", "log")
	v.SetDefault("render.colormap", "jet")
	v.SetDefault("render.no_labels", false)
	v.SetDefault("render.normalize", "global")
	v.SetDefault("render.fps", render.DefaultFPS)
	v.SetDefault("render.bars", render.DefaultBars)
	v.SetDefault("render.hop_from_fps", false)

	// Worker defaults
	v.SetDefault("workers.count", 1)
	v.SetDefault("workers.queue_size", 64)

	// Batch defaults
	v.SetDefault("batch.manifest", "")
	v.SetDefault("batch.output_dir", "")
}

// GetDefaultConfig returns the configuration used when no file, flag or
// environment override is present
func GetDefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	config, err := LoadConfig(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration does not decode: %v", err))
	}
	return config
}
