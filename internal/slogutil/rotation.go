package slogutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LogFile is an append-only log that rolls over by size. Backups are named
// <path>.1 (newest) through <path>.<maxBackups>.
type LogFile struct {
	mu         sync.Mutex
	path       string
	maxSize    int64
	maxBackups int
	f          *os.File
	written    int64
}

// OpenLogFile opens path for appending, creating its directory. A maxSize of
// 0 or less never rolls over. With maxBackups 0 a roll-over truncates.
func OpenLogFile(path string, maxSize int64, maxBackups int) (*LogFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	l := &LogFile{path: path, maxSize: maxSize, maxBackups: maxBackups}
	if err := l.reopen(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewRotatingLogger logs to a LogFile at path. The returned LogFile must be
// closed by the caller.
func NewRotatingLogger(path string, level slog.Level, maxSize int64, maxBackups int) (*slog.Logger, *LogFile, error) {
	l, err := OpenLogFile(path, maxSize, maxBackups)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(l, level), l, nil
}

func (l *LogFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return 0, os.ErrClosed
	}
	if l.maxSize > 0 && l.written > 0 && l.written+int64(len(p)) > l.maxSize {
		// A failed roll-over keeps appending to the current path.
		if err := l.roll(); err != nil && l.f == nil {
			if err := l.reopen(); err != nil {
				return 0, fmt.Errorf("reopen %s: %w", l.path, err)
			}
		}
	}
	n, err := l.f.Write(p)
	l.written += int64(n)
	return n, err
}

func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

func (l *LogFile) reopen() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f, l.written = f, info.Size()
	return nil
}

func (l *LogFile) roll() error {
	if err := l.f.Close(); err != nil {
		return err
	}
	l.f = nil

	if l.maxBackups == 0 {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return l.reopen()
	}

	backup := func(n int) string { return fmt.Sprintf("%s.%d", l.path, n) }
	_ = os.Remove(backup(l.maxBackups))
	for n := l.maxBackups - 1; n >= 1; n-- {
		if err := os.Rename(backup(n), backup(n+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Rename(l.path, backup(1)); err != nil {
		return err
	}
	return l.reopen()
}
