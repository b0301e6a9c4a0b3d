package gitcli

import (
	"context"
	"fmt"
	"strings"

	"changelens/internal/errors"
)

// Commit is one entry of git log
type Commit struct {
	SHA      string `json:"sha"`
	ShortSHA string `json:"shortSha"`
	Author   string `json:"author"`
	Email    string `json:"email"`
	Date     string `json:"date"` // ISO 8601, as printed by %aI
	Subject  string `json:"subject"`
}

// StatusEntry is one path from git status --porcelain=v1
type StatusEntry struct {
	Index    string `json:"index"`    // staged state, e.g. "M", "A", " "
	WorkTree string `json:"workTree"` // unstaged state
	Path     string `json:"path"`
	OrigPath string `json:"origPath,omitempty"` // source of a rename or copy
}

// Staged reports whether the entry has index changes
func (e StatusEntry) Staged() bool {
	return e.Index != " " && e.Index != "?" && e.Index != "!"
}

// Untracked reports whether the path is not tracked
func (e StatusEntry) Untracked() bool {
	return e.Index == "?"
}

// BlameOptions narrows a blame request. Zero values mean "whole file at the
// working tree".
type BlameOptions struct {
	Ref       string
	StartLine int
	EndLine   int
}

// diffArgs pin the a/ and b/ path prefixes, overriding diff.noprefix and
// diff.mnemonicPrefix from any config level.
var diffArgs = []string{"--no-color", "--no-ext-diff", "--src-prefix=a/", "--dst-prefix=b/"}

// StagedDiff returns the diff of the index against HEAD
func (c *Client) StagedDiff(ctx context.Context) (string, error) {
	return c.run(ctx, append([]string{"diff", "--cached"}, diffArgs...)...)
}

// UnstagedDiff returns the diff of the working tree against the index
func (c *Client) UnstagedDiff(ctx context.Context) (string, error) {
	return c.run(ctx, append([]string{"diff"}, diffArgs...)...)
}

// Blame returns line-porcelain blame output for path
func (c *Client) Blame(ctx context.Context, path string, opts BlameOptions) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.NewInvalidParameterError("path", "must not be empty")
	}
	if opts.StartLine < 0 || opts.EndLine < 0 {
		return "", errors.NewInvalidParameterError("startLine", "line numbers are 1-based")
	}
	if opts.StartLine > 0 && opts.EndLine > 0 && opts.EndLine < opts.StartLine {
		return "", errors.NewInvalidParameterError("endLine",
			fmt.Sprintf("%d is before startLine %d", opts.EndLine, opts.StartLine))
	}
	if strings.HasPrefix(opts.Ref, "-") {
		return "", errors.NewInvalidParameterError("ref", "must not start with '-'")
	}

	args := []string{"blame", "--line-porcelain"}
	switch {
	case opts.StartLine > 0 && opts.EndLine > 0:
		args = append(args, fmt.Sprintf("-L%d,%d", opts.StartLine, opts.EndLine))
	case opts.StartLine > 0:
		args = append(args, fmt.Sprintf("-L%d,", opts.StartLine))
	case opts.EndLine > 0:
		args = append(args, fmt.Sprintf("-L1,%d", opts.EndLine))
	}
	if opts.Ref != "" {
		args = append(args, opts.Ref)
	}
	args = append(args, "--", path)

	return c.run(ctx, args...)
}

// HeadCommit returns the full SHA of HEAD, or "" when HEAD has no commits yet
func (c *Client) HeadCommit(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "--verify", "--quiet", "HEAD^{commit}")
	if err != nil {
		// --quiet exits 1 with no stderr for an unborn branch.
		if errors.Is(err, errors.GitFailed) && isSilentFailure(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Log returns up to limit commits reachable from HEAD, newest first. A
// non-empty base restricts the range to base..HEAD.
func (c *Client) Log(ctx context.Context, base string, limit int) ([]Commit, error) {
	if strings.HasPrefix(base, "-") {
		return nil, errors.NewInvalidParameterError("base", "must not start with '-'")
	}

	head, err := c.HeadCommit(ctx)
	if err != nil {
		return nil, err
	}
	if head == "" {
		return []Commit{}, nil
	}

	args := []string{"log", "--no-color", "--format=%H%x1f%an%x1f%ae%x1f%aI%x1f%s%x1e"}
	if limit > 0 {
		args = append(args, fmt.Sprintf("-n%d", limit))
	}
	if base != "" {
		args = append(args, base+"..HEAD")
	}
	args = append(args, "--")

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

// parseLog reads unit-separated fields and record-separated commits.
// Malformed records are skipped.
func parseLog(out string) []Commit {
	records := strings.Split(out, "\x1e")
	commits := make([]Commit, 0, len(records))
	for _, rec := range records {
		rec = strings.TrimLeft(rec, "\n")
		if rec == "" {
			continue
		}
		parts := strings.SplitN(rec, "\x1f", 5)
		if len(parts) != 5 || len(parts[0]) < 7 {
			continue
		}
		commits = append(commits, Commit{
			SHA:      parts[0],
			ShortSHA: parts[0][:7],
			Author:   parts[1],
			Email:    parts[2],
			Date:     parts[3],
			Subject:  parts[4],
		})
	}
	return commits
}

// Status returns the porcelain status entries of the working tree
func (c *Client) Status(ctx context.Context) ([]StatusEntry, error) {
	out, err := c.run(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return parseStatus(out), nil
}

// parseStatus reads NUL-separated porcelain v1 output. Renames and copies
// carry the original path in the following field.
func parseStatus(out string) []StatusEntry {
	fields := strings.Split(out, "\x00")
	entries := make([]StatusEntry, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if len(f) < 4 || f[2] != ' ' {
			continue
		}
		e := StatusEntry{
			Index:    f[0:1],
			WorkTree: f[1:2],
			Path:     f[3:],
		}
		if (e.Index == "R" || e.Index == "C") && i+1 < len(fields) {
			i++
			e.OrigPath = fields[i]
		}
		entries = append(entries, e)
	}
	return entries
}

// UntrackedFiles lists untracked, non-ignored paths, one per line
func (c *Client) UntrackedFiles(ctx context.Context) (string, error) {
	return c.run(ctx, "ls-files", "--others", "--exclude-standard")
}

// TopLevel returns the absolute root of the repository containing the client's directory
func (c *Client) TopLevel(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func isSilentFailure(err error) bool {
	e, ok := errors.As(err)
	if !ok {
		return false
	}
	details, _ := e.Details.(map[string]interface{})
	stderr, _ := details["stderr"].(string)
	return stderr == ""
}
