package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/note"
)

func newNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note <name|frequency>...",
		Short: "Convert between note names and frequencies",
		Example: `  spectrum_analyzer note A4 C#4 Db4
  spectrum_analyzer note 440 1.5kHz`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				if freq, err := note.ToFrequency(arg); err == nil {
					fmt.Fprintf(out, "%s = %.2f Hz\n", arg, freq)
					continue
				}

				freq, err := note.ParseFrequency(arg)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%.2f Hz = %s (%+.1f cents)\n", freq, note.Name(freq), note.Cents(freq))
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spectrum_analyzer %s\n", Version)
		},
	}
}
