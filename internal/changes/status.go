package changes

import (
	"context"

	"changelens/internal/gitcli"
	"changelens/internal/repostate"
	"changelens/internal/version"
)

// StatusResult summarizes the repository and the tool's own configuration
type StatusResult struct {
	Version      string               `json:"version"`
	RepoRoot     string               `json:"repoRoot"`
	HeadCommit   string               `json:"headCommit,omitempty"`
	RepoStateID  string               `json:"repoStateId"`
	Dirty        bool                 `json:"dirty"`
	ChangeCount  int                  `json:"changeCount"`
	StagedFiles  int                  `json:"stagedFiles"`
	Untracked    int                  `json:"untracked"`
	Entries      []gitcli.StatusEntry `json:"entries"`
	Provider     string               `json:"provider"`
	Model        string               `json:"model,omitempty"`
	CacheEnabled bool                 `json:"cacheEnabled"`
	State        *repostate.RepoState `json:"-"`
}

// Status reports repository state, working tree entries and the active
// embedding configuration.
func (s *Service) Status(ctx context.Context) (*StatusResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.git.Status(ctx)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		Version:      version.Version,
		RepoRoot:     s.repoRoot,
		HeadCommit:   snap.State.HeadCommit,
		RepoStateID:  snap.State.RepoStateID,
		Dirty:        snap.State.Dirty,
		ChangeCount:  len(snap.Changes),
		Entries:      entries,
		Provider:     s.cfg.Embedding.Provider,
		Model:        s.Model(),
		CacheEnabled: s.cfg.Embedding.Cache.Enabled,
		State:        snap.State,
	}
	for _, e := range entries {
		switch {
		case e.Untracked():
			result.Untracked++
		case e.Staged():
			result.StagedFiles++
		}
	}
	return result, nil
}
