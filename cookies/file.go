package cookies

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultPath returns where harvested cookies are kept when no path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".go-twitter", "cookies.json")
}

// ReadFile loads a bundle written by the harvester (or WriteFile).
func ReadFile(path string) (Bundle, error) {
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("read cookies %s: %w", path, err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("parse cookies %s: %w", path, err)
	}
	if missing := b.Missing(); len(missing) > 0 {
		slog.Warn("cookie bundle incomplete", slog.String("path", path), slog.Any("missing", missing))
	}
	if diff := b.Inconsistent(); len(diff) > 0 {
		slog.Warn("cookie header disagrees with essentials", slog.String("path", path), slog.Any("cookies", diff))
	}
	return b, nil
}

// WriteFile persists b as indented JSON readable only by the owner.
func WriteFile(path string, b Bundle) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write cookies %s: %w", path, err)
	}
	slog.Debug("cookies saved", slog.String("path", path))
	return nil
}
