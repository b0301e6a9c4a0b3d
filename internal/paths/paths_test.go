package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStateLayout(t *testing.T) {
	root := filepath.Join("tmp", "repo")

	if got := StateDir(root); got != filepath.Join(root, ".changelens") {
		t.Errorf("StateDir = %s", got)
	}
	if got := CachePath(root); got != filepath.Join(root, ".changelens", "cache.db") {
		t.Errorf("CachePath = %s", got)
	}
	if got := MCPLogPath(root); got != filepath.Join(root, ".changelens", "logs", "mcp.log") {
		t.Errorf("MCPLogPath = %s", got)
	}
}

func TestEnsureStateDir(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureStateDir(root)
	if err != nil {
		t.Fatalf("EnsureStateDir failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("state dir not created: %v", err)
	}

	// Second call is a no-op.
	if _, err := EnsureStateDir(root); err != nil {
		t.Errorf("second EnsureStateDir failed: %v", err)
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(sub, "main.go")
	if err := os.WriteFile(file, []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if got != "src/pkg/main.go" {
		t.Errorf("got %q, want src/pkg/main.go", got)
	}

	// Files that do not exist yet are still resolved.
	got, err = CanonicalizePath(filepath.Join(root, "new.go"), root)
	if err != nil || got != "new.go" {
		t.Errorf("nonexistent file: got %q, %v", got, err)
	}
}

func TestRepoRelative(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a/b.go", "a/b.go"},
		{"./a/../b.go", "b.go"},
		{"../outside.go", "../outside.go"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := RepoRelative(tt.in, "/repo")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("RepoRelative(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsWithinRepo(t *testing.T) {
	tests := map[string]bool{
		"a.go":        true,
		"dir/a.go":    true,
		"..":          false,
		"../a.go":     false,
		"..hidden.go": true,
	}
	for path, want := range tests {
		if got := IsWithinRepo(path); got != want {
			t.Errorf("IsWithinRepo(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	in := filepath.Join("a", "b", "c.go")
	if got := NormalizePath(in); strings.Contains(got, "\\") || got != "a/b/c.go" {
		t.Errorf("NormalizePath(%q) = %q", in, got)
	}
}
