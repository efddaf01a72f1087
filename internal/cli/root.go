package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Rewind/internal/config"
	"github.com/SmitUplenchwar2687/Rewind/internal/logging"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCmd creates the root rewind command.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "rewind",
		Short: "Load and replay rrweb session recordings",
		Long: `Rewind loads session recordings (plain or gzipped JSON, possibly several
documents written back-to-back), extracts their events and serves them to
an rrweb player in the browser.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (YAML or JSON, default ./rewind.yaml if present)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format (json, text)")

	root.AddCommand(
		newServeCmd(g),
		newInspectCmd(g),
		newConvertCmd(g),
		newPushCmd(g),
		newGenerateCmd(),
	)

	return root
}

// load reads the config and builds a logger writing to the command's
// stderr. Log flags win over the file and environment.
func (g *globalOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Logging.Format = g.logFormat
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return nil, nil, fmt.Errorf("invalid --log-format %q, must be json or text", cfg.Logging.Format)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format, cmd.ErrOrStderr())
	return cfg, logger, nil
}
