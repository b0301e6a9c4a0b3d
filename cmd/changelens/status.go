package main

import (
	"io"

	"github.com/spf13/cobra"

	"changelens/internal/changes"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show repository state and embedding configuration",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{embeddings: embeddingOptional})
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	result, err := a.svc.Status(ctx)
	if err != nil {
		return fail(err)
	}
	return emit(result, changes.Provenance(result.State), func(w io.Writer) error {
		return formatStatusHuman(w, result)
	})
}
