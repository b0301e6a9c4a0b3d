package slogutil

import (
	"io"
	"log/slog"

	"changelens/internal/config"
	"changelens/internal/paths"
)

// LoggerFactory creates loggers for the CLI and the MCP server.
// Precedence for the level: CLI flags > config > info.
type LoggerFactory struct {
	repoRoot string
	config   *config.Config
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory. cliLevel is nil when no
// verbosity flag was given.
func NewLoggerFactory(repoRoot string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		repoRoot: repoRoot,
		config:   cfg,
		cliLevel: cliLevel,
	}
}

// CLILogger logs to w (normally stderr) at the effective level.
func (f *LoggerFactory) CLILogger(w io.Writer) *slog.Logger {
	return NewLogger(w, f.EffectiveLevel())
}

// MCPLogger writes to <repoRoot>/.changelens/logs/mcp.log, with rotation
// when logging.maxSize is set. Warnings and errors are also copied to
// stderr. If the log file cannot be opened everything goes to stderr.
// Stdout is never used: it carries the protocol.
func (f *LoggerFactory) MCPLogger(stderr io.Writer) *slog.Logger {
	level := f.EffectiveLevel()
	stderrHandler := NewLineHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})

	if f.repoRoot == "" {
		return NewLogger(stderr, level)
	}

	fileLogger, logFile, err := NewRotatingLogger(
		paths.MCPLogPath(f.repoRoot),
		level,
		f.config.Logging.MaxSize,
		f.config.Logging.MaxBackups,
	)
	if err != nil {
		logger := NewLogger(stderr, level)
		logger.Warn("Falling back to stderr logging", "error", err)
		return logger
	}

	f.closers = append(f.closers, logFile)
	return slog.New(teeHandler{fileLogger.Handler(), stderrHandler})
}

// EffectiveLevel returns the level after applying precedence.
func (f *LoggerFactory) EffectiveLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
