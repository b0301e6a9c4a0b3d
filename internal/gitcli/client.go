// Package gitcli runs git subprocesses for a single repository. Every call is
// bounded by a timeout and an output cap, and failures are classified into
// typed errors from stderr.
package gitcli

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"changelens/internal/config"
	"changelens/internal/errors"
)

const (
	// DefaultTimeout bounds a single git invocation
	DefaultTimeout = 30 * time.Second

	// DefaultMaxOutput bounds the stdout of a single git invocation (64MB)
	DefaultMaxOutput int64 = 64 << 20

	// maxStderr keeps enough stderr for classification and details.
	maxStderr = 64 << 10
)

var errOutputTooLarge = stderrors.New("output limit exceeded")

// Client runs git in one repository
type Client struct {
	repoRoot  string
	timeout   time.Duration
	maxOutput int64
	logger    *slog.Logger
}

// Options tunes a Client. Zero values fall back to the defaults.
type Options struct {
	Timeout        time.Duration
	MaxOutputBytes int64
}

// New creates a client for repoRoot
func New(repoRoot string, opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutput
	}
	return &Client{
		repoRoot:  repoRoot,
		timeout:   opts.Timeout,
		maxOutput: opts.MaxOutputBytes,
		logger:    logger,
	}
}

// NewFromConfig creates a client using the git section of the configuration
func NewFromConfig(repoRoot string, cfg config.GitConfig, logger *slog.Logger) *Client {
	return New(repoRoot, Options{
		Timeout:        time.Duration(cfg.TimeoutMs) * time.Millisecond,
		MaxOutputBytes: cfg.MaxOutputBytes,
	}, logger)
}

// RepoRoot returns the repository the client runs in
func (c *Client) RepoRoot() string {
	return c.repoRoot
}

// run executes git and returns stdout verbatim.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Paths are printed raw, whatever core.quotePath says.
	cmd := exec.CommandContext(ctx, "git", append([]string{"-c", "core.quotePath=false"}, args...)...)
	cmd.Dir = c.repoRoot
	// Stable English messages for classification; never take locks for reads.
	cmd.Env = append(os.Environ(), "LC_ALL=C", "GIT_OPTIONAL_LOCKS=0", "GIT_PAGER=cat")

	stdout := &capWriter{max: c.maxOutput, cancel: cancel}
	stderr := &capWriter{max: maxStderr, truncate: true}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	c.logger.Debug("Executing git command",
		"args", args,
		"timeout", c.timeout.String(),
	)

	err := cmd.Run()
	duration := time.Since(start)

	if stdout.exceeded {
		return "", errors.New(
			errors.OutputTooLarge,
			fmt.Sprintf("git output exceeded %d bytes", c.maxOutput),
			errOutputTooLarge,
		).WithDetails(map[string]interface{}{
			"args":     args,
			"maxBytes": c.maxOutput,
		})
	}

	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.New(
				errors.Timeout,
				fmt.Sprintf("git %s timed out after %s", args[0], c.timeout),
				ctx.Err(),
			).WithDetails(map[string]interface{}{
				"args": args,
			})
		}
		if stderrors.Is(err, exec.ErrNotFound) {
			return "", errors.New(errors.GitFailed, "git executable not found", err)
		}

		c.logger.Debug("Git command failed",
			"args", args,
			"duration_ms", duration.Milliseconds(),
			"stderr", strings.TrimSpace(stderr.String()),
		)
		return "", classify(args, stderr.String(), err)
	}

	c.logger.Debug("Git command completed",
		"args", args[0],
		"bytes", stdout.buf.Len(),
		"duration_ms", duration.Milliseconds(),
	)
	return stdout.String(), nil
}

// classify maps git stderr to a typed error.
func classify(args []string, stderr string, cause error) *errors.Error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)

	var code errors.ErrorCode
	switch {
	case strings.Contains(lower, "not a git repository"):
		code = errors.NotARepository
	case strings.Contains(lower, "no such path"),
		strings.Contains(lower, "did not match any file"),
		strings.Contains(lower, "does not exist in"),
		strings.Contains(lower, "no such file or directory"):
		code = errors.PathNotFound
	case strings.Contains(lower, "unknown revision"),
		strings.Contains(lower, "bad revision"),
		strings.Contains(lower, "invalid object name"),
		strings.Contains(lower, "needed a single revision"),
		strings.Contains(lower, "ambiguous argument"):
		code = errors.RefNotFound
	default:
		code = errors.GitFailed
	}

	message := firstLine(msg)
	if message == "" {
		message = fmt.Sprintf("git %s failed", args[0])
	}

	return errors.New(code, message, cause).WithDetails(map[string]interface{}{
		"args":   args,
		"stderr": msg,
	})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "fatal: ")
	s = strings.TrimPrefix(s, "error: ")
	return strings.TrimSpace(s)
}

// capWriter buffers up to max bytes. Past the limit it either drops the
// rest (truncate) or fails the write and cancels the command.
type capWriter struct {
	buf      bytes.Buffer
	max      int64
	truncate bool
	exceeded bool
	cancel   context.CancelFunc
}

func (w *capWriter) Write(p []byte) (int, error) {
	remaining := w.max - int64(w.buf.Len())
	if int64(len(p)) <= remaining {
		return w.buf.Write(p)
	}
	if w.truncate {
		if remaining > 0 {
			w.buf.Write(p[:remaining])
		}
		return len(p), nil
	}
	w.exceeded = true
	if w.cancel != nil {
		w.cancel()
	}
	return 0, errOutputTooLarge
}

func (w *capWriter) String() string {
	return w.buf.String()
}
