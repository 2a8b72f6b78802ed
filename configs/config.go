package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/spectrum-analyzer/internal/pipeline"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/decode"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/note"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectral"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/window"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/render"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "SPECTRUM_ANALYZER"

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose  bool   `mapstructure:"verbose"`
	Quiet    bool   `mapstructure:"quiet"`
	LogLevel string `mapstructure:"log_level"`
	Report   string `mapstructure:"report"`

	Analysis AnalysisConfig `mapstructure:"analysis"`
	Decode   DecodeConfig   `mapstructure:"decode"`
	Render   RenderConfig   `mapstructure:"render"`
	Workers  WorkerConfig   `mapstructure:"workers"`
	Batch    BatchConfig    `mapstructure:"batch"`
}

// AnalysisConfig contains windowing and transform settings
type AnalysisConfig struct {
	WindowSize int     `mapstructure:"window_size"`
	Overlap    float64 `mapstructure:"overlap"`
	Window     string  `mapstructure:"window"`
	Scale      string  `mapstructure:"scale"`
	FloorDB    float64 `mapstructure:"db_floor"`
	FFT        string  `mapstructure:"fft"`
}

// DecodeConfig contains input selection settings. Duration < 0 reads to the end.
type DecodeConfig struct {
	Mixdown  string  `mapstructure:"mixdown"`
	Start    float64 `mapstructure:"start"`
	Duration float64 `mapstructure:"duration"`
}

// RenderConfig contains output settings. MinFreq and MaxFreq accept Hz
// ("440", "1.5kHz") or note names ("A4").
type RenderConfig struct {
	Mode       string  `mapstructure:"mode"`
	Width      int     `mapstructure:"width"`
	Height     int     `mapstructure:"height"`
	MinFreq    string  `mapstructure:"min_freq"`
	MaxFreq    string  `mapstructure:"max_freq"`
	FreqScale  string  `mapstructure:"freq_scale"`
	Colormap   string  `mapstructure:"colormap"`
	NoLabels   bool    `mapstructure:"no_labels"`
	Normalize  string  `mapstructure:"normalize"`
	FPS        float64 `mapstructure:"fps"`
	Bars       int     `mapstructure:"bars"`
	HopFromFPS bool    `mapstructure:"hop_from_fps"`
}

// WorkerConfig contains transform worker pool settings
type WorkerConfig struct {
	Count     int `mapstructure:"count"`
	QueueSize int `mapstructure:"queue_size"`
}

// BatchConfig contains batch command settings
type BatchConfig struct {
	Manifest  string `mapstructure:"manifest"`
	OutputDir string `mapstructure:"output_dir"`
}

// Init points v at the config file, or at the default search paths when file
// is empty, wires environment overrides and registers defaults. A missing
// file is only an error when it was named explicitly.
func Init(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "spectrum-analyzer"))
		}
		v.AddConfigPath("/etc/spectrum-analyzer")
		v.AddConfigPath("./configs")
		v.SetConfigName("spectrum-analyzer")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// LoadConfig decodes the configuration held by v
func LoadConfig(v *viper.Viper) (*Config, error) {
	config := &Config{}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// Validate checks the settings that do not need the pipeline to interpret
func (c *Config) Validate() error {
	if c.Verbose && c.Quiet {
		return fmt.Errorf("verbose and quiet are mutually exclusive")
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	if _, err := ParseReport(c.Report); err != nil {
		return err
	}

	if c.Decode.Start < 0 {
		return fmt.Errorf("start time cannot be negative")
	}

	if c.Workers.Count < 0 {
		return fmt.Errorf("worker count cannot be negative")
	}

	_, err := c.Pipeline()
	return err
}

// Pipeline converts the configuration into a pipeline configuration
func (c *Config) Pipeline() (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()

	var err error
	cfg.WindowSize = c.Analysis.WindowSize
	cfg.Overlap = c.Analysis.Overlap
	cfg.FloorDB = c.Analysis.FloorDB
	if cfg.Window, err = window.ParseFunction(c.Analysis.Window); err != nil {
		return cfg, err
	}
	if cfg.Scale, err = spectral.ParseScale(c.Analysis.Scale); err != nil {
		return cfg, err
	}
	if cfg.Backend, err = spectral.ParseBackend(c.Analysis.FFT); err != nil {
		return cfg, err
	}

	if cfg.Mixdown, err = decode.ParseMixdown(c.Decode.Mixdown); err != nil {
		return cfg, err
	}
	cfg.Decode = decode.Options{StartTime: c.Decode.Start, Duration: c.Decode.Duration}

	if cfg.Mode, err = pipeline.ParseMode(c.Render.Mode); err != nil {
		return cfg, err
	}
	opts := render.DefaultOptions()
	opts.Width = c.Render.Width
	if c.Render.Height > 0 {
		opts.Height = c.Render.Height
	}
	if opts.MinFreq, err = parseFrequency(c.Render.MinFreq, render.DefaultMinFreq); err != nil {
		return cfg, fmt.Errorf("invalid min frequency: %w", err)
	}
	if opts.MaxFreq, err = parseFrequency(c.Render.MaxFreq, render.DefaultMaxFreq); err != nil {
		return cfg, fmt.Errorf("invalid max frequency: %w", err)
	}
	if opts.FreqScale, err = render.ParseFreqScale(c.Render.FreqScale); err != nil {
		return cfg, err
	}
	if c.Render.Colormap != "" {
		cm, err := render.NewColormap(c.Render.Colormap)
		if err != nil {
			return cfg, err
		}
		opts.Colormap = cm.Name()
	}
	if opts.Policy, err = render.ParsePolicy(c.Render.Normalize); err != nil {
		return cfg, err
	}
	opts.Labels = !c.Render.NoLabels
	if c.Render.FPS > 0 {
		opts.FPS = c.Render.FPS
	}
	if c.Render.Bars > 0 {
		opts.Bars = c.Render.Bars
	}
	cfg.Render = opts
	cfg.HopFromFPS = c.Render.HopFromFPS

	cfg.Workers = c.Workers.Count
	cfg.QueueSize = c.Workers.QueueSize

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseFrequency(s string, fallback float64) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return note.ParseFrequency(s)
}
