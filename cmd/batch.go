package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/spectrum-analyzer/internal/app"
	"github.com/RyanBlaney/spectrum-analyzer/internal/pipeline"
)

func newBatchCmd(st *state) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch [files...]",
		Short: "Render spectrograms for many files",
		Long: `Analyze every listed file with the same settings. Files can also come from
a YAML manifest:

  output_dir: renders
  jobs:
    - input: intro.flac
    - input: theme.wav
      output: theme_full.png

A failing file is reported and the batch moves on. The command exits
non-zero when any file failed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestPath := st.config.Batch.Manifest
			outputDir := st.config.Batch.OutputDir
			if len(args) == 0 && manifestPath == "" {
				return fmt.Errorf("batch needs input files or --manifest")
			}

			analyzer, err := st.newApp(cmd)
			if err != nil {
				return err
			}
			mode := analyzer.Pipeline().Mode

			var jobs []pipeline.Job
			if manifestPath != "" {
				manifest, err := app.LoadManifest(manifestPath)
				if err != nil {
					return err
				}
				jobs = append(jobs, manifest.Resolve(outputDir, mode)...)
				if outputDir == "" {
					outputDir = manifest.OutputDir
				}
			}
			jobs = append(jobs, app.BuildJobs(args, outputDir, mode)...)

			if outputDir != "" {
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
			defer stop()
			return analyzer.RunBatch(ctx, jobs)
		},
	}

	batchCmd.Flags().String("manifest", "", "YAML file listing jobs")
	batchCmd.Flags().String("output-dir", "", "directory for outputs (default is next to each input)")
	_ = st.v.BindPFlag("batch.manifest", batchCmd.Flags().Lookup("manifest"))
	_ = st.v.BindPFlag("batch.output_dir", batchCmd.Flags().Lookup("output-dir"))

	return batchCmd
}
