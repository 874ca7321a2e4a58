package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Logging selects the slog handler.
type Logging struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"` // "text" or "json"
	FilePath string `yaml:"file_path" json:"file_path"`
}

func (l Logging) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", l.Level)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w.
func NewLogger(l Logging, w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(l.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", l.Format)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging installs the configured logger as the slog default. With a
// FilePath the returned closer owns the log file; otherwise it is a no-op.
func SetupLogging(l Logging) (io.Closer, error) {
	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if l.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(l.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(l.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}
	logger, err := NewLogger(l, w)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}
