package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"changelens/internal/changes"
	"changelens/internal/diff"
)

func formatChangesHuman(w io.Writer, result *changes.ChangesResult) error {
	var b strings.Builder

	if result.Total == 0 {
		b.WriteString("No uncommitted changes.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "%d of %d changes\n\n", len(result.Changes), result.Total)
	for _, c := range result.Changes {
		st := diff.StatsFor(c)
		fmt.Fprintf(&b, "%-10s %s  (+%d/-%d, %s)\n",
			c.ID, c.FilePath, st.Insertions(), st.Deletions(), plural(len(c.Hunks), "hunk"))
		for _, h := range c.Hunks {
			fmt.Fprintf(&b, "           %s\n", h.Header)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatBlameHuman(w io.Writer, result *changes.BlameResult) error {
	var b strings.Builder

	width := 0
	for _, l := range result.Lines {
		if n := len(l.Commit.AuthorName); n > width {
			width = n
		}
	}

	for _, l := range result.Lines {
		date := l.Commit.AuthorTime
		if len(date) >= 10 {
			date = date[:10]
		}
		fmt.Fprintf(&b, "%s %-*s %s %5d| %s\n",
			l.Commit.ShortSHA, width, l.Commit.AuthorName, date, l.LineNumber, l.Content)
	}

	if o := result.Ownership; o != nil {
		fmt.Fprintf(&b, "\nOwnership (%d lines):\n", o.TotalLines)
		for _, c := range o.Contributors {
			fmt.Fprintf(&b, "  %5.1f%%  %-*s %s\n", c.Share*100, width, c.Author, plural(c.LineCount, "line"))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatGroupsHuman(w io.Writer, result *changes.GroupResult) error {
	var b strings.Builder

	if len(result.Groups) == 0 {
		b.WriteString("No changes to group.\n")
	} else {
		fmt.Fprintf(&b, "%s at threshold %.2f", plural(len(result.Groups), "group"), result.Threshold)
		if result.Model != "" {
			fmt.Fprintf(&b, " (%s)", result.Model)
		}
		b.WriteString("\n")
	}

	for _, g := range result.Groups {
		fmt.Fprintf(&b, "\n%s  +%d/-%d\n", g.ID, g.Added, g.Deleted)
		for i, id := range g.ChangeIDs {
			fmt.Fprintf(&b, "  %-10s %s\n", id, g.FilePaths[i])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatPlanHuman(w io.Writer, result *changes.PlanResult) error {
	var b strings.Builder

	if len(result.Commits) == 0 {
		b.WriteString("Nothing to commit.\n")
	}
	for i, c := range result.Commits {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s  (+%d/-%d)\n", i+1, c.Message, c.Added, c.Deleted)
		for _, p := range c.FilePaths {
			fmt.Fprintf(&b, "   %s\n", p)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatDraftHuman(w io.Writer, result *changes.PullRequestResult) error {
	_, err := fmt.Fprintf(w, "%s\n\n%s\n", result.Draft.Title, result.Draft.Body)
	return err
}

func formatStatusHuman(w io.Writer, result *changes.StatusResult) error {
	var b strings.Builder

	head := result.HeadCommit
	if head == "" {
		head = "(no commits)"
	} else if len(head) > 12 {
		head = head[:12]
	}
	stateID := result.RepoStateID
	if len(stateID) > 12 {
		stateID = stateID[:12]
	}

	fmt.Fprintf(&b, "changelens v%s\n", result.Version)
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Repository: %s\n", result.RepoRoot)
	fmt.Fprintf(&b, "HEAD:       %s\n", head)
	fmt.Fprintf(&b, "State:      %s (dirty: %v)\n", stateID, result.Dirty)
	fmt.Fprintf(&b, "Changes:    %d (%d staged files, %d untracked)\n", result.ChangeCount, result.StagedFiles, result.Untracked)

	model := result.Model
	if model == "" {
		model = "unavailable"
	}
	fmt.Fprintf(&b, "Embedding:  %s / %s (cache: %v)\n", result.Provider, model, result.CacheEnabled)

	if len(result.Entries) > 0 {
		b.WriteString("\n")
		for _, e := range result.Entries {
			fmt.Fprintf(&b, "  %s%s %s", e.Index, e.WorkTree, e.Path)
			if e.OrigPath != "" {
				fmt.Fprintf(&b, " (from %s)", e.OrigPath)
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func formatBytes(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
