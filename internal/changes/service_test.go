package changes

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"changelens/internal/config"
	"changelens/internal/embedding"
	"changelens/internal/errors"
	"changelens/internal/gitcli"
	"changelens/internal/slogutil"
)

const stagedDiff = `diff --git a/b.txt b/b.txt
index 1111111..2222222 100644
--- a/b.txt
+++ b/b.txt
@@ -1 +1 @@
-old b
+new b
`

const unstagedDiff = `diff --git a/a.txt b/a.txt
index 3333333..4444444 100644
--- a/a.txt
+++ b/a.txt
@@ -1,2 +1,3 @@ func a
 keep
+added a
 tail
diff --git a/b.txt b/b.txt
index 2222222..5555555 100644
--- a/b.txt
+++ b/b.txt
@@ -5 +5,2 @@
+second b
 ctx
`

const blameText = "1111111111111111111111111111111111111111 1 1 2\n" +
	"author Ada\n" +
	"author-mail <ada@example.com>\n" +
	"author-time 1700000000\n" +
	"summary first\n" +
	"\tline one\n" +
	"1111111111111111111111111111111111111111 2 2\n" +
	"author Ada\n" +
	"author-mail <ada@example.com>\n" +
	"author-time 1700000000\n" +
	"summary first\n" +
	"\tline two\n"

type fakeGit struct {
	head, staged, unstaged, untracked string
	blame                             string
	commits                           []gitcli.Commit
	status                            []gitcli.StatusEntry
	err                               error

	blamePath string
	blameOpts gitcli.BlameOptions
	logBase   string
}

func (f *fakeGit) HeadCommit(context.Context) (string, error)     { return f.head, f.err }
func (f *fakeGit) StagedDiff(context.Context) (string, error)     { return f.staged, nil }
func (f *fakeGit) UnstagedDiff(context.Context) (string, error)   { return f.unstaged, nil }
func (f *fakeGit) UntrackedFiles(context.Context) (string, error) { return f.untracked, nil }
func (f *fakeGit) Status(context.Context) ([]gitcli.StatusEntry, error) {
	return f.status, nil
}

func (f *fakeGit) Blame(_ context.Context, path string, opts gitcli.BlameOptions) (string, error) {
	f.blamePath, f.blameOpts = path, opts
	return f.blame, f.err
}

func (f *fakeGit) Log(_ context.Context, base string, _ int) ([]gitcli.Commit, error) {
	f.logBase = base
	return f.commits, nil
}

type countingProvider struct {
	inner embedding.Provider
	calls int
	err   error
}

func (p *countingProvider) Model() string { return "counting" }

func (p *countingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.inner.Embed(ctx, texts)
}

func newTestService(g *fakeGit, p embedding.Provider) *Service {
	s := NewService("/repo", g, p, config.DefaultConfig(), slogutil.NewDiscardLogger())
	s.now = func() time.Time { return time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC) }
	return s
}

func defaultGit() *fakeGit {
	return &fakeGit{head: strings.Repeat("c", 40), staged: stagedDiff, unstaged: unstagedDiff}
}

func TestService_Changes(t *testing.T) {
	s := newTestService(defaultGit(), nil)

	res, err := s.Changes(context.Background(), nil)
	if err != nil {
		t.Fatalf("Changes failed: %v", err)
	}
	if res.Total != 2 || len(res.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %+v", res)
	}

	a, b := res.Changes[0], res.Changes[1]
	if a.ID != "change-1" || a.FilePath != "a.txt" || b.ID != "change-2" || b.FilePath != "b.txt" {
		t.Errorf("unexpected order: %s=%s %s=%s", a.ID, a.FilePath, b.ID, b.FilePath)
	}
	if len(b.Hunks) != 2 || b.Hunks[0].Header != "@@ -1 +1 @@" || b.Hunks[1].Header != "@@ -5 +5,2 @@" {
		t.Errorf("staged hunks must precede unstaged hunks: %+v", b.Hunks)
	}
	if res.State == nil || !res.State.Dirty || res.State.HeadCommit != strings.Repeat("c", 40) {
		t.Errorf("state = %+v", res.State)
	}
}

func TestService_ChangesByID(t *testing.T) {
	s := newTestService(defaultGit(), nil)

	res, err := s.Changes(context.Background(), []string{"change-2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changes) != 1 || res.Changes[0].FilePath != "b.txt" || res.Total != 2 {
		t.Errorf("result = %+v", res)
	}

	_, err = s.Changes(context.Background(), []string{"change-9", "change-1", "change-7", "change-9"})
	if !errors.Is(err, errors.UnknownChangeIDs) {
		t.Fatalf("err = %v, want UNKNOWN_CHANGE_IDS", err)
	}
	typed, _ := errors.As(err)
	details := typed.Details.(map[string]interface{})
	if got := details["unknownIds"]; !reflect.DeepEqual(got, []string{"change-9", "change-7"}) {
		t.Errorf("unknownIds = %v", got)
	}
}

func TestService_EmptyRepository(t *testing.T) {
	s := newTestService(&fakeGit{}, nil)
	res, err := s.Changes(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Changes == nil || len(res.Changes) != 0 || res.State.Dirty {
		t.Errorf("clean repo result = %+v", res)
	}
}

func TestService_GitErrorPropagates(t *testing.T) {
	g := &fakeGit{err: errors.New(errors.NotARepository, "not a git repository", nil)}
	s := newTestService(g, nil)
	if _, err := s.Changes(context.Background(), nil); !errors.Is(err, errors.NotARepository) {
		t.Errorf("err = %v", err)
	}
}

func TestService_Patch(t *testing.T) {
	s := newTestService(defaultGit(), nil)
	res, err := s.Patch(context.Background(), []string{"change-1"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Files, []string{"a.txt"}) || res.Added != 1 || res.Deleted != 0 {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Patch, "+added a") || strings.Contains(res.Patch, "b.txt") {
		t.Errorf("patch:\n%s", res.Patch)
	}
}

func TestService_Blame(t *testing.T) {
	g := defaultGit()
	g.blame = blameText
	s := newTestService(g, nil)

	res, err := s.Blame(context.Background(), BlameOptions{
		Path:      "/repo/src/../a.txt",
		Ref:       "HEAD",
		StartLine: 1,
		EndLine:   2,
		Summarize: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.blamePath != "a.txt" || g.blameOpts.Ref != "HEAD" || g.blameOpts.EndLine != 2 {
		t.Errorf("git called with %q %+v", g.blamePath, g.blameOpts)
	}
	if len(res.Lines) != 2 || res.Lines[1].Content != "line two" || res.Lines[0].Commit.AuthorTime != "2023-11-14T22:13:20.000Z" {
		t.Errorf("lines = %+v", res.Lines)
	}
	if res.Ownership == nil || len(res.Ownership.Contributors) != 1 || res.Ownership.Contributors[0].Share != 1 {
		t.Errorf("ownership = %+v", res.Ownership)
	}
}

func TestService_BlameRejectsOutsidePaths(t *testing.T) {
	s := newTestService(defaultGit(), nil)
	for _, p := range []string{"", "../etc/passwd", "/elsewhere/x", "."} {
		if _, err := s.Blame(context.Background(), BlameOptions{Path: p}); !errors.Is(err, errors.InvalidParameter) {
			t.Errorf("path %q: err = %v", p, err)
		}
	}
}

func TestService_Group(t *testing.T) {
	p := &countingProvider{inner: embedding.NewLocal(64)}
	s := newTestService(defaultGit(), p)

	res, err := s.Group(context.Background(), nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Threshold != 0.80 || res.Model != "counting" || p.calls != 1 {
		t.Errorf("result = %+v, calls = %d", res, p.calls)
	}

	total := 0
	for _, g := range res.Groups {
		total += len(g.ChangeIDs)
	}
	if total != 2 || res.Groups[0].ChangeIDs[0] != "change-1" {
		t.Errorf("groups = %+v", res.Groups)
	}
}

func TestService_GroupSingleChangeSkipsProvider(t *testing.T) {
	p := &countingProvider{err: fmt.Errorf("unreachable")}
	s := newTestService(defaultGit(), p)

	res, err := s.Group(context.Background(), []string{"change-2"}, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if p.calls != 0 || len(res.Groups) != 1 {
		t.Errorf("calls = %d, groups = %+v", p.calls, res.Groups)
	}
}

func TestService_GroupProviderFailure(t *testing.T) {
	p := &countingProvider{err: fmt.Errorf("connection refused")}
	s := newTestService(defaultGit(), p)

	res, err := s.Group(context.Background(), nil, 0)
	if res != nil || !errors.Is(err, errors.EmbeddingFailed) {
		t.Errorf("Group() = %+v, %v", res, err)
	}

	if _, err := newTestService(defaultGit(), nil).Group(context.Background(), nil, 0); !errors.Is(err, errors.EmbeddingFailed) {
		t.Errorf("missing provider: err = %v", err)
	}
}

func TestService_PlanCommits(t *testing.T) {
	s := newTestService(defaultGit(), embedding.NewLocal(64))

	res, err := s.PlanCommits(context.Background(), 0.99)
	if err != nil {
		t.Fatal(err)
	}
	if res.Threshold != 0.99 || len(res.Commits) == 0 {
		t.Fatalf("result = %+v", res)
	}
	for _, c := range res.Commits {
		if !strings.HasPrefix(c.Message, "Update ") {
			t.Errorf("message = %q", c.Message)
		}
	}
}

func TestService_DraftPullRequest(t *testing.T) {
	g := defaultGit()
	g.commits = []gitcli.Commit{{Subject: "Add feature"}, {Subject: "Prepare"}}
	s := newTestService(g, nil)

	res, err := s.DraftPullRequest(context.Background(), "main")
	if err != nil {
		t.Fatal(err)
	}
	if g.logBase != "main" {
		t.Errorf("log base = %q", g.logBase)
	}
	if res.Draft.Title != "Add feature" || !reflect.DeepEqual(res.Draft.Files, []string{"a.txt", "b.txt"}) {
		t.Errorf("draft = %+v", res.Draft)
	}
}

func TestService_Status(t *testing.T) {
	g := defaultGit()
	g.untracked = "new.txt\n"
	g.status = []gitcli.StatusEntry{
		{Index: "M", WorkTree: "M", Path: "b.txt"},
		{Index: " ", WorkTree: "M", Path: "a.txt"},
		{Index: "?", WorkTree: "?", Path: "new.txt"},
	}
	s := newTestService(g, embedding.NewLocal(32))

	res, err := s.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.ChangeCount != 2 || res.StagedFiles != 1 || res.Untracked != 1 || !res.Dirty {
		t.Errorf("status = %+v", res)
	}
	if res.Provider != config.ProviderLocal || res.Model != "local-xxhash-32" || res.RepoRoot != "/repo" {
		t.Errorf("status = %+v", res)
	}
}

func TestProvenance(t *testing.T) {
	p := Provenance(nil)
	if !reflect.DeepEqual(p.Sources, []string{"git"}) || p.RepoStateID != "" {
		t.Errorf("Provenance(nil) = %+v", p)
	}
}
