// Package changes coordinates git, the parsers, embedding and clustering
// behind every operation the CLI and MCP server expose.
package changes

import (
	"context"
	"log/slog"
	"time"

	"changelens/internal/config"
	"changelens/internal/diff"
	"changelens/internal/embedding"
	"changelens/internal/envelope"
	"changelens/internal/gitcli"
	"changelens/internal/repostate"
)

// Git is the version-control surface the service uses. *gitcli.Client
// implements it.
type Git interface {
	HeadCommit(ctx context.Context) (string, error)
	StagedDiff(ctx context.Context) (string, error)
	UnstagedDiff(ctx context.Context) (string, error)
	UntrackedFiles(ctx context.Context) (string, error)
	Blame(ctx context.Context, path string, opts gitcli.BlameOptions) (string, error)
	Log(ctx context.Context, base string, limit int) ([]gitcli.Commit, error)
	Status(ctx context.Context) ([]gitcli.StatusEntry, error)
}

var _ Git = (*gitcli.Client)(nil)

// Service is the central coordinator. It holds no per-call state; every
// operation re-reads the repository.
type Service struct {
	repoRoot string
	git      Git
	provider embedding.Provider
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a service. The embedding provider is only used by the
// grouping operations and may be nil for callers that never group.
func NewService(repoRoot string, git Git, provider embedding.Provider, cfg *config.Config, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Service{
		repoRoot: repoRoot,
		git:      git,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RepoRoot returns the repository the service reads
func (s *Service) RepoRoot() string {
	return s.repoRoot
}

// Model names the embedding model used for grouping, or "" without a provider
func (s *Service) Model() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Model()
}

// Snapshot is the assembled change set together with the state it was read from.
type Snapshot struct {
	Changes []diff.Change
	State   *repostate.RepoState
}

// Snapshot reads HEAD, both diffs and the untracked list once, and
// assembles the current change set.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	in, err := repostate.Read(ctx, s.git)
	if err != nil {
		return nil, err
	}

	changes := diff.Assemble(diff.Parse(in.StagedDiff), diff.Parse(in.WorkingDiff))

	s.logger.Debug("Assembled change set",
		"changes", len(changes),
		"stagedBytes", len(in.StagedDiff),
		"unstagedBytes", len(in.WorkingDiff),
	)

	return &Snapshot{
		Changes: changes,
		State:   in.State(),
	}, nil
}

// Provenance describes a repository state for a response envelope.
func Provenance(state *repostate.RepoState, sources ...string) *envelope.Provenance {
	if len(sources) == 0 {
		sources = []string{"git"}
	}
	p := &envelope.Provenance{Sources: sources}
	if state != nil {
		p.RepoStateID = state.RepoStateID
		p.HeadCommit = state.HeadCommit
		p.Dirty = state.Dirty
	}
	return p
}
