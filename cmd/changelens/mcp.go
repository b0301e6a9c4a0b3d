package main

import (
	"github.com/spf13/cobra"

	"changelens/internal/mcp"
	"changelens/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server. It speaks newline-delimited
JSON-RPC 2.0 on stdin/stdout and exposes:
  - getStatus: repository state and embedding configuration
  - getChanges: current changes with ids
  - exportPatch: selected changes as a unified diff
  - getBlame: line attribution and ownership
  - groupChanges: clusters of related changes
  - planCommits: one proposed commit per group
  - draftPullRequest: pull request title and body

Logs go to .changelens/logs/mcp.log; warnings are also copied to stderr.
This command is normally started by an MCP client, not by hand.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{mcp: true, embeddings: embeddingOptional})
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcp.NewMCPServer(version.Version, a.svc, a.logger)
	if err := server.Start(); err != nil {
		a.logger.Error("MCP server error",
			"error", err.Error(),
		)
		return err
	}
	return nil
}
