package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Rewind/internal/config"
	"github.com/SmitUplenchwar2687/Rewind/internal/generate"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample recordings and config",
		Long: `Generates sample data for testing and experimentation.

Use "generate recording" to create a synthetic rrweb recording.
Use "generate config" to create an example config file.`,
	}

	cmd.AddCommand(newGenerateRecordingCmd(), newGenerateConfigCmd())
	return cmd
}

func newGenerateRecordingCmd() *cobra.Command {
	opts := generate.DefaultOptions()
	var (
		output string
		gzip   bool
	)

	cmd := &cobra.Command{
		Use:   "recording",
		Short: "Generate a synthetic concatenated recording",
		Long: `Writes several {"events": [...]} documents back-to-back, the way a
recorder flushing in chunks does. The first document starts with a meta
event and a full snapshot; the rest are mouse, scroll and input events.

Patterns:
  steady    Evenly spaced events
  burst     Clusters of events with quiet periods
  ramp      Gradually denser events`,
		Example: `  rewind generate recording --output session.json.gz
  rewind generate recording --output dump.json --docs 10 --events 200 --pattern ramp --tricky`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("gzip") {
				gzip = strings.HasSuffix(output, ".gz")
			}
			switch opts.Pattern {
			case generate.PatternSteady, generate.PatternBurst, generate.PatternRamp:
			default:
				return fmt.Errorf("unknown pattern %q, must be one of: steady, burst, ramp", opts.Pattern)
			}

			if err := generate.WriteFile(output, opts, gzip); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %d documents (%d events) to %s\n", opts.Docs, opts.Docs*opts.Events, output)
			fmt.Fprintf(out, "  Duration: %s\n", opts.Duration)
			fmt.Fprintf(out, "  Pattern:  %s\n", opts.Pattern)
			fmt.Fprintf(out, "  Gzip:     %t\n", gzip)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "session.json.gz", "output file path")
	cmd.Flags().BoolVar(&gzip, "gzip", false, "gzip the output (default: when --output ends in .gz)")
	cmd.Flags().IntVar(&opts.Docs, "docs", opts.Docs, "number of concatenated documents")
	cmd.Flags().IntVar(&opts.Events, "events", opts.Events, "events per document")
	cmd.Flags().DurationVar(&opts.Duration, "duration", opts.Duration, "time span of the recording")
	cmd.Flags().StringVar(&opts.Pattern, "pattern", opts.Pattern, "event timing pattern (steady, burst, ramp)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 = time based)")
	cmd.Flags().BoolVar(&opts.Tricky, "tricky", false, `put "}{" inside string values`)

	return cmd
}

func newGenerateConfigCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Generate an example config file",
		Example: `  rewind generate config --output rewind.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteExample(output); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote example config to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "rewind.yaml", "output file path")
	return cmd
}
