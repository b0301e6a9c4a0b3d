package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"changelens/internal/changes"
	"changelens/internal/config"
	"changelens/internal/embedding"
	"changelens/internal/errors"
	"changelens/internal/gitcli"
	"changelens/internal/slogutil"
	"changelens/internal/storage"
)

// embeddingMode says how much a command depends on the embedding provider
type embeddingMode int

const (
	embeddingNone     embeddingMode = iota // never groups
	embeddingOptional                      // reports on it; runs without one
	embeddingRequired                      // fails when it cannot be built
)

// app holds everything a command needs for one invocation
type app struct {
	repoRoot string
	cfg      *config.Config
	logger   *slog.Logger
	svc      *changes.Service
	db       *storage.DB
	logs     *slogutil.LoggerFactory
}

type appOptions struct {
	mcp        bool
	embeddings embeddingMode
}

// newApp resolves the repository, loads its config and wires the service
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	repoRoot, err := resolveRepoRoot(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to load configuration", err)
	}

	logs := slogutil.NewLoggerFactory(repoRoot, cfg, cliLevel())
	var logger *slog.Logger
	if opts.mcp {
		logger = logs.MCPLogger(os.Stderr)
	} else {
		logger = logs.CLILogger(os.Stderr)
	}

	a := &app{
		repoRoot: repoRoot,
		cfg:      cfg,
		logger:   logger,
		logs:     logs,
	}

	var provider embedding.Provider
	if opts.embeddings != embeddingNone {
		provider, err = a.provider()
		if err != nil {
			if opts.embeddings == embeddingRequired {
				a.Close()
				return nil, err
			}
			logger.Warn("Embedding provider unavailable, grouping disabled",
				"provider", cfg.Embedding.Provider,
				"error", err,
			)
		}
	}

	git := gitcli.NewFromConfig(repoRoot, cfg.Git, logger)
	a.svc = changes.NewService(repoRoot, git, provider, cfg, logger)
	return a, nil
}

// provider builds the configured embedding provider, opening the cache
// database when caching is enabled. A cache that cannot be opened only
// costs speed, so it is logged and skipped.
func (a *app) provider() (embedding.Provider, error) {
	if a.cfg.Embedding.Cache.Enabled {
		db, err := storage.Open(a.repoRoot, a.logger)
		if err != nil {
			a.logger.Warn("Embedding cache unavailable",
				"error", err,
			)
		} else {
			a.db = db
		}
	}

	p, err := embedding.New(a.cfg.Embedding, a.db, a.logger)
	if err != nil {
		return nil, errors.NewEmbeddingError("failed to create embedding provider", err)
	}
	return p, nil
}

// Close releases the cache database and log files
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close cache database", "error", err)
		}
	}
	_ = a.logs.Close()
}

// resolveRepoRoot finds the top level of the repository containing --repo
// or the working directory.
func resolveRepoRoot(ctx context.Context) (string, error) {
	dir := repoFlag
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.New(errors.InternalError, "failed to get working directory", err)
		}
		dir = wd
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.NewInvalidParameterError("repo", err.Error())
	}
	if _, err := os.Stat(abs); err != nil {
		return "", errors.New(errors.PathNotFound, "repository path does not exist", err).
			WithDetails(map[string]interface{}{"path": abs})
	}

	g := gitcli.New(abs, gitcli.Options{}, slogutil.NewDiscardLogger())
	return g.TopLevel(ctx)
}
