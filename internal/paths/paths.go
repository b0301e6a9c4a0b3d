package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// StateDirName is the per-repository directory holding config, cache and logs
	StateDirName = ".changelens"

	// CacheFileName is the sqlite database inside the state directory
	CacheFileName = "cache.db"

	// MCPLogFileName is the MCP server log file inside the logs directory
	MCPLogFileName = "mcp.log"
)

// StateDir returns <repoRoot>/.changelens
func StateDir(repoRoot string) string {
	return filepath.Join(repoRoot, StateDirName)
}

// CachePath returns the path of the embedding cache database
func CachePath(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), CacheFileName)
}

// LogDir returns the directory for log files
func LogDir(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), "logs")
}

// MCPLogPath returns the log file used by the MCP server
func MCPLogPath(repoRoot string) string {
	return filepath.Join(LogDir(repoRoot), MCPLogFileName)
}

// EnsureStateDir creates the state directory if it does not exist
func EnsureStateDir(repoRoot string) (string, error) {
	dir := StateDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// CanonicalizePath converts an absolute path to a repo-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to repo root
// - Returns repo-relative path with forward slashes
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = repoRoot
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// RepoRelative turns a user-supplied path into the form git expects.
// Absolute paths are made relative to repoRoot; relative paths are only
// normalized. A path escaping the repository keeps its leading "..".
func RepoRelative(path string, repoRoot string) (string, error) {
	if filepath.IsAbs(path) {
		return CanonicalizePath(path, repoRoot)
	}
	return NormalizePath(filepath.Clean(path)), nil
}

// IsWithinRepo checks if a repo-relative path stays inside the repository
func IsWithinRepo(canonical string) bool {
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts OS separators to forward slashes
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}
