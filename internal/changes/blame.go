package changes

import (
	"context"

	"changelens/internal/blame"
	"changelens/internal/errors"
	"changelens/internal/gitcli"
	"changelens/internal/paths"
)

// BlameOptions selects the file, revision and line range to attribute
type BlameOptions struct {
	Path      string
	Ref       string
	StartLine int
	EndLine   int
	Summarize bool
}

// BlameResult is the response for a blame request
type BlameResult struct {
	Path      string           `json:"path"`
	Ref       string           `json:"ref,omitempty"`
	Lines     []blame.Line     `json:"lines"`
	Ownership *blame.Ownership `json:"ownership,omitempty"`
}

// Blame attributes every requested line of a file. Absolute paths are made
// relative to the repository root.
func (s *Service) Blame(ctx context.Context, opts BlameOptions) (*BlameResult, error) {
	if opts.Path == "" {
		return nil, errors.NewInvalidParameterError("path", "must not be empty")
	}
	rel, err := paths.RepoRelative(opts.Path, s.repoRoot)
	if err != nil || !paths.IsWithinRepo(rel) || rel == "." {
		return nil, errors.NewInvalidParameterError("path", "must name a file inside the repository")
	}

	raw, err := s.git.Blame(ctx, rel, gitcli.BlameOptions{
		Ref:       opts.Ref,
		StartLine: opts.StartLine,
		EndLine:   opts.EndLine,
	})
	if err != nil {
		return nil, err
	}

	lines := blame.Parse(raw)
	result := &BlameResult{
		Path:  rel,
		Ref:   opts.Ref,
		Lines: lines,
	}
	if opts.Summarize {
		result.Ownership = blame.Summarize(lines, s.blameConfig(), s.now())
	}

	s.logger.Debug("Blamed file",
		"path", rel,
		"lines", len(lines),
		"summarize", opts.Summarize,
	)
	return result, nil
}

func (s *Service) blameConfig() blame.Config {
	b := s.cfg.Blame
	return blame.Config{
		TimeDecayHalfLife: b.TimeDecayHalfLifeDays,
		ExcludeBots:       b.ExcludeBots,
		BotPatterns:       b.BotPatterns,
		MinContribution:   b.MinContribution,
	}
}
