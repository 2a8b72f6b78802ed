package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/spectrum-analyzer/configs"
	"github.com/RyanBlaney/spectrum-analyzer/internal/app"
	"github.com/RyanBlaney/spectrum-analyzer/internal/pipeline"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/render"
)

// Version is reported by --version and the version command
const Version = "3.0.0"

// flagKeys maps persistent flags to their configuration keys
var flagKeys = map[string]string{
	"verbose":      "verbose",
	"quiet":        "quiet",
	"log-level":    "log_level",
	"report":       "report",
	"window-size":  "analysis.window_size",
	"overlap":      "analysis.overlap",
	"window":       "analysis.window",
	"scale":        "analysis.scale",
	"db-floor":     "analysis.db_floor",
	"fft":          "analysis.fft",
	"mixdown":      "decode.mixdown",
	"start":        "decode.start",
	"duration":     "decode.duration",
	"mode":         "render.mode",
	"width":        "render.width",
	"height":       "render.height",
	"min-freq":     "render.min_freq",
	"max-freq":     "render.max_freq",
	"freq-scale":   "render.freq_scale",
	"colormap":     "render.colormap",
	"no-labels":    "render.no_labels",
	"normalize":    "render.normalize",
	"fps":          "render.fps",
	"bars":         "render.bars",
	"hop-from-fps": "render.hop_from_fps",
	"workers":      "workers.count",
	"queue-size":   "workers.queue_size",
}

// state is shared by the command tree of one invocation
type state struct {
	v          *viper.Viper
	configFile string
	config     *configs.Config
}

// NewRootCmd builds the command tree with its own configuration registry
func NewRootCmd() *cobra.Command {
	st := &state{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "spectrum_analyzer <input> [output]",
		Short: "Render spectrograms of audio files",
		Long: `Decode an audio file, slice it into overlapping windows, transform each
window into a frequency spectrum and render the result as a spectrogram
image or an animated bar display.

Supported inputs: WAV, FLAC, MP3 and Ogg Vorbis.
Outputs: PNG or JPEG images, PNG frame sequences and animated GIFs.

Without an output path the spectrogram is written next to the input as
<input>.png, or <input>_frames/ in animated mode.`,
		Example: `  spectrum_analyzer input.wav output.png
  spectrum_analyzer song.flac --window-size 2048 --colormap magma --min-freq C2
  spectrum_analyzer song.mp3 bars.gif --mode animated --fps 30 --normalize frame`,
		Version:       Version,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.initializeConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			job := pipeline.Job{Input: args[0]}
			if len(args) == 2 {
				job.Output = args[1]
			}

			analyzer, err := st.newApp(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
			defer stop()
			return analyzer.RunFile(ctx, job)
		},
	}
	rootCmd.SetVersionTemplate("spectrum_analyzer {{.Version}}\n")

	registerFlags(rootCmd.PersistentFlags(), &st.configFile)
	for name, key := range flagKeys {
		// every key in flagKeys is registered above
		_ = st.v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(newBatchCmd(st), newNoteCmd(), newVersionCmd())
	return rootCmd
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func registerFlags(flags *pflag.FlagSet, configFile *string) {
	defaults := pipeline.DefaultConfig()

	flags.StringVar(configFile, "config", "",
		"config file (default is $HOME/.config/spectrum-analyzer/spectrum-analyzer.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.BoolP("quiet", "q", false, "only print errors")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("report", "none", "run report format (none, json, yaml, table)")

	// Analysis
	flags.Int("window-size", defaults.WindowSize, "samples per window, a power of two")
	flags.Float64("overlap", defaults.Overlap, "fraction of each window shared with the next, in [0, 1)")
	flags.String("window", string(defaults.Window), "window function (hann, hamming, blackman, blackman-harris, rectangular)")
	flags.String("scale", string(defaults.Scale), "spectrum scale (db, magnitude, power)")
	flags.Float64("db-floor", defaults.FloorDB, "lowest level in dB")
	flags.String("fft", string(defaults.Backend), "FFT backend (algofft, gonum, godsp)")

	// Input
	flags.String("mixdown", string(defaults.Mixdown), "channel handling (average, first, per-channel)")
	flags.Float64("start", 0, "start time in seconds")
	flags.Float64("duration", -1, "seconds to analyze, negative reads to the end")

	// Rendering
	flags.String("mode", string(defaults.Mode), "output mode (image, animated)")
	flags.Int("width", 0, "plot width in pixels, 0 for one column per frame")
	flags.Int("height", render.DefaultHeight, "plot height in pixels")
	flags.String("min-freq", "20", "lowest frequency, in Hz or as a note name")
	flags.String("max-freq", "20000", "highest frequency, in Hz or as a note name")
	flags.String("freq-scale", string(render.FreqScaleLog), "frequency axis (log, linear)")
	flags.String("colormap", defaults.Render.Colormap, "colormap (jet, magma, gray)")
	flags.Bool("no-labels", false, "omit the note label border")
	flags.String("normalize", string(render.PolicyGlobal), "level normalization (global, frame)")
	flags.Float64("fps", render.DefaultFPS, "animation frame rate")
	flags.Int("bars", render.DefaultBars, "bars per animation frame")
	flags.Bool("hop-from-fps", false, "derive the hop from --fps in animated mode")

	// Workers
	flags.Int("workers", defaults.Workers, "transform workers, 1 runs sequentially")
	flags.Int("queue-size", defaults.QueueSize, "windows buffered ahead of the workers")
}

// initializeConfig reads the config file and environment after flags are
// parsed
func (st *state) initializeConfig() error {
	if err := configs.Init(st.v, st.configFile); err != nil {
		return err
	}

	config, err := configs.LoadConfig(st.v)
	if err != nil {
		return err
	}
	st.config = config
	return nil
}

func (st *state) newApp(cmd *cobra.Command) (*app.AnalyzerApp, error) {
	return app.NewAnalyzerApp(&app.Context{
		Config: st.config,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
