package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
)

func newConvertCmd(g *globalOptions) *cobra.Command {
	var (
		output string
		gzip   bool
		indent bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "convert FILE|URL",
		Short: "Rewrite a recording as a single events document",
		Long: `Extracts a recording and writes its events back out as one
{"events": [...]} document, optionally gzipped. Output ending in .gz is
compressed unless --gzip=false is given.`,
		Example: `  rewind convert dump.json --output session.json.gz
  rewind convert https://example.com/42.json.gz --output 42.json --indent`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fmt.Errorf("--output is required")
			}
			if !cmd.Flags().Changed("gzip") {
				gzip = strings.HasSuffix(output, ".gz")
			}

			cfg, _, err := g.load(cmd)
			if err != nil {
				return err
			}
			stream, err := readStream(cmd.Context(), cfg, args[0], strict)
			if err != nil {
				return err
			}

			if err := recording.WriteFile(output, stream, recording.WriteOptions{Gzip: gzip, Indent: indent}); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events to %s\n", len(stream), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "output file path (required)")
	cmd.Flags().BoolVar(&gzip, "gzip", false, "gzip the output (default: when --output ends in .gz)")
	cmd.Flags().BoolVar(&indent, "indent", false, "pretty-print the JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "split with the streaming decoder instead of the }{ heuristic")

	return cmd
}
