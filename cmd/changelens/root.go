package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"changelens/internal/slogutil"
	"changelens/internal/version"
)

var (
	repoFlag   string
	verbosity  int
	quietFlag  bool
	formatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "changelens",
	Short: "changelens - structured views of uncommitted git changes",
	Long: `changelens turns the staged and unstaged diffs of a git repository into
identified change records, attributes lines with blame, and clusters related
changes by embedding similarity. Every operation is available as a command
and as an MCP tool (changelens mcp).`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("changelens version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&repoFlag, "repo", "", "Path inside the repository (default: current directory)")
	flags.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
	flags.StringVar(&formatFlag, "format", string(FormatHuman), "Output format (json, human)")
}

// cliLevel returns the level requested by flags, or nil to defer to config
func cliLevel() *slog.Level {
	if verbosity == 0 && !quietFlag {
		return nil
	}
	level := slogutil.LevelFromVerbosity(verbosity, quietFlag)
	return &level
}
