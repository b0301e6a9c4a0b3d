// Package planning turns groups and commit history into proposed commits and
// pull request drafts. The output is deterministic and template based.
package planning

import (
	"fmt"
	"path"
	"strings"

	"changelens/internal/diff"
	"changelens/internal/grouping"
)

// CommitPlan is one proposed commit covering a single group.
type CommitPlan struct {
	GroupID   string   `json:"groupId"`
	Message   string   `json:"message"`
	ChangeIDs []string `json:"changeIds"`
	FilePaths []string `json:"filePaths"`
	Added     int      `json:"added"`
	Deleted   int      `json:"deleted"`
}

// PullRequestDraft is a proposed title and body for a branch.
type PullRequestDraft struct {
	Base    string   `json:"base"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Commits []string `json:"commits"`
	Files   []string `json:"files"`
	Added   int      `json:"added"`
	Deleted int      `json:"deleted"`
}

// PlanCommits proposes one commit per group, in group order.
func PlanCommits(groups []grouping.Group) []CommitPlan {
	plans := make([]CommitPlan, 0, len(groups))
	for _, g := range groups {
		plans = append(plans, CommitPlan{
			GroupID:   g.ID,
			Message:   CommitMessage(g.FilePaths),
			ChangeIDs: g.ChangeIDs,
			FilePaths: g.FilePaths,
			Added:     g.Added,
			Deleted:   g.Deleted,
		})
	}
	return plans
}

// CommitMessage names the single file, or the deepest directory shared by
// every path, or falls back to a file count.
func CommitMessage(paths []string) string {
	switch len(paths) {
	case 0:
		return "Update files"
	case 1:
		return "Update " + paths[0]
	}
	if dir := CommonDir(paths); dir != "" {
		return "Update " + dir
	}
	return fmt.Sprintf("Update %d files", len(paths))
}

// CommonDir returns the longest slash-separated directory containing all
// paths, or "" when they only share the repository root.
func CommonDir(paths []string) string {
	if len(paths) == 0 {
		return ""
	}

	common := strings.Split(path.Dir(paths[0]), "/")
	for _, p := range paths[1:] {
		parts := strings.Split(path.Dir(p), "/")
		n := 0
		for n < len(common) && n < len(parts) && common[n] == parts[n] {
			n++
		}
		common = common[:n]
	}

	dir := strings.Join(common, "/")
	if dir == "." {
		return ""
	}
	return dir
}

// DraftPullRequest builds a draft from commit subjects (newest first, as git
// log prints them) and the current changes. The title is the newest subject,
// or a file-count summary when the branch has no commits of its own.
func DraftPullRequest(base string, subjects []string, changes []diff.Change) PullRequestDraft {
	draft := PullRequestDraft{
		Base:    base,
		Commits: make([]string, 0, len(subjects)),
		Files:   make([]string, 0, len(changes)),
	}
	for _, s := range subjects {
		if s = strings.TrimSpace(s); s != "" {
			draft.Commits = append(draft.Commits, s)
		}
	}

	var files strings.Builder
	for _, c := range changes {
		st := diff.StatsFor(c)
		draft.Files = append(draft.Files, c.FilePath)
		draft.Added += st.Insertions()
		draft.Deleted += st.Deletions()
		fmt.Fprintf(&files, "- %s (+%d/-%d)\n", c.FilePath, st.Insertions(), st.Deletions())
	}

	switch {
	case len(draft.Commits) > 0:
		draft.Title = draft.Commits[0]
	case len(changes) > 0:
		draft.Title = CommitMessage(draft.Files)
	default:
		draft.Title = "No changes"
	}

	var body strings.Builder
	if base != "" {
		fmt.Fprintf(&body, "Changes against `%s`.\n\n", base)
	}
	if len(draft.Commits) > 0 {
		body.WriteString("## Commits\n\n")
		for _, s := range draft.Commits {
			fmt.Fprintf(&body, "- %s\n", s)
		}
		body.WriteString("\n")
	}
	if len(changes) > 0 {
		fmt.Fprintf(&body, "## Files changed (+%d/-%d)\n\n", draft.Added, draft.Deleted)
		body.WriteString(files.String())
	}
	draft.Body = strings.TrimRight(body.String(), "\n")

	return draft
}
