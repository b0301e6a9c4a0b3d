package main

import (
	"io"

	"github.com/spf13/cobra"

	"changelens/internal/changes"
)

var (
	groupIDs       []string
	groupThreshold float64
	planThreshold  float64
	prBase         string
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Cluster changes into groups of related edits",
	Long: `Embed every change and cluster them greedily by cosine similarity. A change
joins the most similar existing group when the similarity reaches the
threshold, otherwise it starts a new group.

Examples:
  changelens group
  changelens group --threshold 0.9
  changelens group --ids change-1,change-4 --format json`,
	Args: cobra.NoArgs,
	RunE: runGroup,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Propose one commit per group of related changes",
	Long:  "Group the current changes and propose a commit message for each group. Nothing is staged or committed.",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Draft a pull request title and body",
	Long: `Draft a pull request from the commits since --base and the current changes.

Examples:
  changelens pr --base main`,
	Args: cobra.NoArgs,
	RunE: runPR,
}

func init() {
	groupCmd.Flags().StringSliceVar(&groupIDs, "ids", nil, "Only these change ids (comma-separated)")
	groupCmd.Flags().Float64Var(&groupThreshold, "threshold", 0, "Similarity threshold in (0, 1] (default: grouping.threshold from config)")
	planCmd.Flags().Float64Var(&planThreshold, "threshold", 0, "Similarity threshold in (0, 1] (default: grouping.threshold from config)")
	prCmd.Flags().StringVar(&prBase, "base", "", "Base branch or revision")

	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(prCmd)
}

func runGroup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{embeddings: embeddingRequired})
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	result, err := a.svc.Group(ctx, groupIDs, groupThreshold)
	if err != nil {
		return fail(err)
	}
	return emit(result, changes.Provenance(result.State, embeddingSources(result.Model)...), func(w io.Writer) error {
		return formatGroupsHuman(w, result)
	})
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{embeddings: embeddingRequired})
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	result, err := a.svc.PlanCommits(ctx, planThreshold)
	if err != nil {
		return fail(err)
	}
	return emit(result, changes.Provenance(result.State, embeddingSources(a.svc.Model())...), func(w io.Writer) error {
		return formatPlanHuman(w, result)
	})
}

func runPR(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	result, err := a.svc.DraftPullRequest(ctx, prBase)
	if err != nil {
		return fail(err)
	}
	return emit(result, changes.Provenance(result.State), func(w io.Writer) error {
		return formatDraftHuman(w, result)
	})
}

func embeddingSources(model string) []string {
	if model == "" {
		return []string{"git"}
	}
	return []string{"git", "embedding:" + model}
}
