package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"changelens/internal/config"
	"changelens/internal/errors"
	"changelens/internal/paths"
)

var (
	configType  string
	configForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage changelens configuration",
	Long: `View and create the configuration stored in .changelens/config.{json,toml,yaml}.
Environment variables prefixed with CHANGELENS_ override file values, e.g.
CHANGELENS_EMBEDDING_PROVIDER=ollama or CHANGELENS_GROUPING_THRESHOLD=0.9.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long: `Write the default configuration to .changelens/config.<type>.

Examples:
  changelens config init
  changelens config init --type toml`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  "Print the configuration after defaults, the config file and environment overrides are applied.",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().StringVar(&configType, "type", "json", "File type (json, toml, yaml)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing configuration file")
	configShowCmd.Flags().StringVar(&configType, "type", "json", "Encoding (json, toml, yaml)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	repoRoot, err := resolveRepoRoot(cmd.Context())
	if err != nil {
		return err
	}

	path, err := initConfig(repoRoot, configType, configForce)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

// initConfig writes the defaults as <repo>/.changelens/config.<type>. Any
// existing config file blocks the write unless force is set, since the
// loader would otherwise see two candidates.
func initConfig(repoRoot, fileType string, force bool) (string, error) {
	if fileType == "yml" {
		fileType = "yaml"
	}
	data, err := config.DefaultConfig().Encode(fileType)
	if err != nil {
		return "", errors.NewInvalidParameterError("type", err.Error())
	}

	dir := paths.StateDir(repoRoot)
	if !force {
		for _, ext := range []string{"json", "toml", "yaml", "yml"} {
			existing := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(existing); err == nil {
				return "", errors.New(errors.ConfigInvalid, "configuration already exists: "+existing, nil).
					WithFixes(errors.FixAction{
						Type:        errors.RunCommand,
						Command:     "changelens config init --force",
						Description: "Overwrite the existing configuration",
					})
			}
		}
	}

	if _, err := paths.EnsureStateDir(repoRoot); err != nil {
		return "", errors.New(errors.InternalError, "failed to create state directory", err)
	}
	path := filepath.Join(dir, "config."+fileType)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.New(errors.InternalError, "failed to write configuration", err)
	}
	return path, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := showConfig(cmd.Context(), configType)
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}

func showConfig(ctx context.Context, encoding string) ([]byte, error) {
	repoRoot, err := resolveRepoRoot(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to load configuration", err)
	}
	data, err := cfg.Encode(encoding)
	if err != nil {
		return nil, errors.NewInvalidParameterError("type", err.Error())
	}
	return data, nil
}
