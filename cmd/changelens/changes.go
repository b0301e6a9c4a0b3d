package main

import (
	"io"

	"github.com/spf13/cobra"

	"changelens/internal/changes"
)

var (
	changesIDs   []string
	changesPatch bool
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List uncommitted changes",
	Long: `List uncommitted changes, one per file, ordered by path. A file changed in
both the index and the working tree carries its staged hunks followed by its
unstaged hunks. Ids (change-1, change-2, ...) are positional and only valid
until the working tree changes.

Examples:
  changelens changes
  changelens changes --ids change-1,change-3
  changelens changes --patch --ids change-2 > change.patch`,
	Args: cobra.NoArgs,
	RunE: runChanges,
}

func init() {
	changesCmd.Flags().StringSliceVar(&changesIDs, "ids", nil, "Only these change ids (comma-separated)")
	changesCmd.Flags().BoolVar(&changesPatch, "patch", false, "Print the selected changes as a unified diff")
	rootCmd.AddCommand(changesCmd)
}

func runChanges(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if changesPatch {
		result, err := a.svc.Patch(ctx, changesIDs)
		if err != nil {
			return fail(err)
		}
		return emit(result, changes.Provenance(result.State), func(w io.Writer) error {
			_, err := io.WriteString(w, result.Patch)
			return err
		})
	}

	result, err := a.svc.Changes(ctx, changesIDs)
	if err != nil {
		return fail(err)
	}
	return emit(result, changes.Provenance(result.State), func(w io.Writer) error {
		return formatChangesHuman(w, result)
	})
}
