package changes

import (
	"context"

	"changelens/internal/diff"
	"changelens/internal/errors"
	"changelens/internal/repostate"
)

// ChangesResult is the response for a change listing
type ChangesResult struct {
	Changes []diff.Change        `json:"changes"`
	Total   int                  `json:"total"`
	State   *repostate.RepoState `json:"-"`
}

// PatchResult is the response for a patch export
type PatchResult struct {
	Patch   string               `json:"patch"`
	Files   []string             `json:"files"`
	Added   int                  `json:"added"`
	Deleted int                  `json:"deleted"`
	State   *repostate.RepoState `json:"-"`
}

// Changes returns the current change set, or only the requested ids. Any
// unknown id fails the whole call with UNKNOWN_CHANGE_IDS listing every miss.
func (s *Service) Changes(ctx context.Context, ids []string) (*ChangesResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	selected, err := s.selectChanges(snap, ids)
	if err != nil {
		return nil, err
	}

	return &ChangesResult{
		Changes: selected,
		Total:   len(snap.Changes),
		State:   snap.State,
	}, nil
}

// Patch renders the selected changes as unified diff text
func (s *Service) Patch(ctx context.Context, ids []string) (*PatchResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	selected, err := s.selectChanges(snap, ids)
	if err != nil {
		return nil, err
	}

	patch, err := diff.FormatPatch(selected)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to render patch", err)
	}

	result := &PatchResult{
		Patch: string(patch),
		Files: make([]string, 0, len(selected)),
		State: snap.State,
	}
	for _, c := range selected {
		st := diff.StatsFor(c)
		result.Files = append(result.Files, c.FilePath)
		result.Added += st.Insertions()
		result.Deleted += st.Deletions()
	}
	return result, nil
}

func (s *Service) selectChanges(snap *Snapshot, ids []string) ([]diff.Change, error) {
	if len(ids) == 0 {
		return snap.Changes, nil
	}
	resolved := diff.Resolve(snap.Changes, ids)
	if len(resolved.Unknown) > 0 {
		s.logger.Warn("Unknown change ids requested",
			"unknown", resolved.Unknown,
			"available", len(snap.Changes),
		)
		return nil, errors.NewUnknownChangeIDsError(resolved.Unknown)
	}
	return resolved.Changes, nil
}
