// Package repostate fingerprints the working tree so callers can tell when
// positional change identifiers have gone stale.
package repostate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"changelens/internal/errors"
	"changelens/internal/gitcli"
)

const (
	// EmptyHash represents an empty diff/list hash
	EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// RepoState represents the current state of the repository
type RepoState struct {
	RepoStateID         string `json:"repoStateId"`
	HeadCommit          string `json:"headCommit"`
	StagedDiffHash      string `json:"stagedDiffHash"`
	WorkingTreeDiffHash string `json:"workingTreeDiffHash"`
	UntrackedListHash   string `json:"untrackedListHash"`
	Dirty               bool   `json:"dirty"`
	ComputedAt          string `json:"computedAt"`
}

// Git is the subset of gitcli.Client the fingerprint needs
type Git interface {
	HeadCommit(ctx context.Context) (string, error)
	StagedDiff(ctx context.Context) (string, error)
	UnstagedDiff(ctx context.Context) (string, error)
	UntrackedFiles(ctx context.Context) (string, error)
}

var _ Git = (*gitcli.Client)(nil)

// Inputs are the raw git outputs a fingerprint is computed from.
type Inputs struct {
	HeadCommit  string
	StagedDiff  string
	WorkingDiff string
	Untracked   string
}

// Read collects HEAD, the staged diff, the unstaged diff and the untracked
// file list.
func Read(ctx context.Context, git Git) (*Inputs, error) {
	headCommit, err := git.HeadCommit(ctx)
	if err != nil {
		return nil, wrap("Failed to get HEAD commit", err)
	}

	stagedDiff, err := git.StagedDiff(ctx)
	if err != nil {
		return nil, wrap("Failed to get staged diff", err)
	}

	workingDiff, err := git.UnstagedDiff(ctx)
	if err != nil {
		return nil, wrap("Failed to get working tree diff", err)
	}

	untracked, err := git.UntrackedFiles(ctx)
	if err != nil {
		return nil, wrap("Failed to get untracked files", err)
	}

	return &Inputs{
		HeadCommit:  headCommit,
		StagedDiff:  stagedDiff,
		WorkingDiff: workingDiff,
		Untracked:   untracked,
	}, nil
}

// State fingerprints the inputs.
func (in *Inputs) State() *RepoState {
	return Build(in.HeadCommit, in.StagedDiff, in.WorkingDiff, in.Untracked)
}

// Build assembles a RepoState from raw git outputs
func Build(headCommit, stagedDiff, workingDiff, untracked string) *RepoState {
	stagedDiffHash := hashString(stagedDiff)
	workingTreeDiffHash := hashString(workingDiff)
	untrackedListHash := hashString(untracked)

	dirty := stagedDiffHash != EmptyHash ||
		workingTreeDiffHash != EmptyHash ||
		untrackedListHash != EmptyHash

	return &RepoState{
		RepoStateID:         computeRepoStateID(headCommit, stagedDiffHash, workingTreeDiffHash, untrackedListHash),
		HeadCommit:          headCommit,
		StagedDiffHash:      stagedDiffHash,
		WorkingTreeDiffHash: workingTreeDiffHash,
		UntrackedListHash:   untrackedListHash,
		Dirty:               dirty,
		ComputedAt:          time.Now().UTC().Format(time.RFC3339),
	}
}

// wrap keeps typed git errors intact and labels anything else.
func wrap(message string, err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.New(errors.GitFailed, message, err)
}

// hashString computes SHA256 hash of a string
func hashString(s string) string {
	if s == "" {
		return EmptyHash
	}
	h := sha256.New()
	h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// computeRepoStateID computes the composite repoStateId from all components
func computeRepoStateID(headCommit, stagedHash, workingHash, untrackedHash string) string {
	composite := fmt.Sprintf("%s:%s:%s:%s", headCommit, stagedHash, workingHash, untrackedHash)
	return hashString(composite)
}
