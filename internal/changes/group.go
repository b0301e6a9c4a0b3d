package changes

import (
	"context"
	"time"

	"changelens/internal/diff"
	"changelens/internal/errors"
	"changelens/internal/grouping"
	"changelens/internal/planning"
	"changelens/internal/repostate"
)

// prLogLimit caps the commits read for a pull request draft.
const prLogLimit = 50

// GroupResult is the response for a grouping request
type GroupResult struct {
	Groups    []grouping.Group     `json:"groups"`
	Threshold float64              `json:"threshold"`
	Model     string               `json:"model,omitempty"`
	State     *repostate.RepoState `json:"-"`
}

// PlanResult is the response for a commit plan
type PlanResult struct {
	Commits   []planning.CommitPlan `json:"commits"`
	Threshold float64               `json:"threshold"`
	State     *repostate.RepoState  `json:"-"`
}

// PullRequestResult is the response for a pull request draft
type PullRequestResult struct {
	Draft planning.PullRequestDraft `json:"draft"`
	State *repostate.RepoState      `json:"-"`
}

// Group clusters the selected changes (all when ids is empty). A zero
// threshold means the configured default.
func (s *Service) Group(ctx context.Context, ids []string, threshold float64) (*GroupResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	selected, err := s.selectChanges(snap, ids)
	if err != nil {
		return nil, err
	}

	threshold = s.threshold(threshold)
	groups, err := s.group(ctx, selected, threshold)
	if err != nil {
		return nil, err
	}

	result := &GroupResult{
		Groups:    groups,
		Threshold: threshold,
		Model:     s.Model(),
		State:     snap.State,
	}
	return result, nil
}

// PlanCommits groups every current change and proposes one commit per group
func (s *Service) PlanCommits(ctx context.Context, threshold float64) (*PlanResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	threshold = s.threshold(threshold)
	groups, err := s.group(ctx, snap.Changes, threshold)
	if err != nil {
		return nil, err
	}

	return &PlanResult{
		Commits:   planning.PlanCommits(groups),
		Threshold: threshold,
		State:     snap.State,
	}, nil
}

// DraftPullRequest drafts a title and body from the commits since base and
// the current uncommitted changes.
func (s *Service) DraftPullRequest(ctx context.Context, base string) (*PullRequestResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	commits, err := s.git.Log(ctx, base, prLogLimit)
	if err != nil {
		return nil, err
	}
	subjects := make([]string, len(commits))
	for i, c := range commits {
		subjects[i] = c.Subject
	}

	return &PullRequestResult{
		Draft: planning.DraftPullRequest(base, subjects, snap.Changes),
		State: snap.State,
	}, nil
}

func (s *Service) group(ctx context.Context, selected []diff.Change, threshold float64) ([]grouping.Group, error) {
	if s.provider == nil && len(selected) > 1 {
		return nil, errors.NewEmbeddingError("no embedding provider configured", nil)
	}

	start := time.Now()
	groups, err := grouping.Build(ctx, s.provider, selected, threshold)
	if err != nil {
		s.logger.Warn("Grouping failed",
			"ids", diff.IDs(selected),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Grouped changes",
		"changes", len(selected),
		"groups", len(groups),
		"threshold", threshold,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return groups, nil
}

func (s *Service) threshold(requested float64) float64 {
	if requested != 0 {
		return requested
	}
	return s.cfg.Grouping.Threshold
}
