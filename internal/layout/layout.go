// Package layout creates the on-disk output tree for a run:
// <output-base>/<run-name>/<command-name>/<task-name>.
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spachava753/casscheck/internal/models"
)

const dirPerm = 0o755

// EnsureDir makes sure dir exists as a directory, creating any missing
// parents. dir is a directory path, never a file path. Calling it again for
// an existing directory is a no-op.
func EnsureDir(dir string) error {
	if dir == "" {
		return &models.IOError{Op: "ensure dir", Path: dir, Err: errors.New("empty path")}
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return &models.IOError{Op: "ensure dir", Path: dir, Err: errors.New("exists and is not a directory")}
	case !errors.Is(err, fs.ErrNotExist):
		return &models.IOError{Op: "ensure dir", Path: dir, Err: err}
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return &models.IOError{Op: "ensure dir", Path: dir, Err: err}
	}
	slog.Debug("created directory", "path", dir)
	return nil
}

// EnsureParentDir makes sure the directory that will hold filePath exists.
// filePath itself is not created.
func EnsureParentDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// ValidateName checks that name can be used as a single directory leaf.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("name must not be empty")
	case name == "." || name == "..":
		return fmt.Errorf("name %q is reserved", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q must not contain path separators", name)
	}
	return nil
}

// TaskDir returns the absolute task directory for a unit named name under
// checkDir. It does not create the directory.
func TaskDir(checkDir, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	dir, err := filepath.Abs(filepath.Join(checkDir, name))
	if err != nil {
		return "", fmt.Errorf("resolving task directory: %w", err)
	}
	return dir, nil
}

// Prepare creates the output base and the run directory and returns a copy
// of cfg whose CheckDir is absolute. When cfg.CheckDir is empty the run
// directory is OutputBase/CheckName.
func Prepare(cfg models.RunConfig) (models.RunConfig, error) {
	if cfg.CheckDir == "" {
		if err := EnsureDir(cfg.OutputBase); err != nil {
			return cfg, fmt.Errorf("creating output base: %w", err)
		}
		if err := ValidateName(cfg.CheckName); err != nil {
			return cfg, fmt.Errorf("invalid check name: %w", err)
		}
		cfg.CheckDir = filepath.Join(cfg.OutputBase, cfg.CheckName)
	}

	dir, err := filepath.Abs(cfg.CheckDir)
	if err != nil {
		return cfg, fmt.Errorf("resolving check directory: %w", err)
	}
	cfg.CheckDir = dir

	if err := EnsureDir(cfg.CheckDir); err != nil {
		return cfg, fmt.Errorf("creating check directory: %w", err)
	}
	return cfg, nil
}
