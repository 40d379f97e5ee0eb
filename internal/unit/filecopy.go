package unit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spachava753/casscheck/internal/models"
)

// FileCopyConfig configures a FileCopy unit.
type FileCopyConfig struct {
	Name        string
	Description string
	SourceDir   string
	Prefixes    []string
	MaxFileSize int64 // bytes; 0 means no limit
	SkipReport  bool
}

// FileCopy copies files whose names start with one of the configured
// prefixes from a source directory into the task directory.
type FileCopy struct {
	cfg FileCopyConfig
}

// NewFileCopy creates a file copy unit.
func NewFileCopy(cfg FileCopyConfig) *FileCopy {
	return &FileCopy{cfg: cfg}
}

// Name returns the unit name.
func (c *FileCopy) Name() string { return c.cfg.Name }

// Description returns a one-line summary of what the unit collects.
func (c *FileCopy) Description() string { return c.cfg.Description }

// Reportable reports whether the receipt is picked up by the report.
func (c *FileCopy) Reportable() bool { return !c.cfg.SkipReport }

// Produce copies every matching regular file, or symlink to one, preserving
// mode and modification time. An empty source directory is not an error; a missing
// or unreadable one is.
func (c *FileCopy) Produce(ctx context.Context, taskDir string) error {
	entries, err := os.ReadDir(c.cfg.SourceDir)
	if err != nil {
		return &models.IOError{Op: "read source dir", Path: c.cfg.SourceDir, Err: err}
	}

	copied := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || !c.matches(entry.Name()) {
			continue
		}

		src := filepath.Join(c.cfg.SourceDir, entry.Name())
		// Stat, not Lstat: a symlinked log is copied as its target.
		info, err := os.Stat(src)
		if err != nil {
			return &models.IOError{Op: "stat", Path: src, Err: err}
		}
		if !info.Mode().IsRegular() {
			slog.Debug("skipping non-regular file", "unit", c.cfg.Name, "file", entry.Name())
			continue
		}
		if c.cfg.MaxFileSize > 0 && info.Size() > c.cfg.MaxFileSize {
			slog.Warn("skipping file over size limit",
				"unit", c.cfg.Name,
				"file", entry.Name(),
				"size", info.Size(),
				"limit", c.cfg.MaxFileSize)
			continue
		}

		dst := filepath.Join(taskDir, entry.Name())
		slog.Debug("copying file", "unit", c.cfg.Name, "src", src, "dest", dst)
		if err := copyFile(src, dst, info); err != nil {
			return err
		}
		copied++
	}

	slog.Debug("file copy finished", "unit", c.cfg.Name, "source", c.cfg.SourceDir, "copied", copied)
	return nil
}

func (c *FileCopy) matches(name string) bool {
	for _, prefix := range c.cfg.Prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return &models.IOError{Op: "open", Path: src, Err: err}
	}
	defer in.Close()

	perm := info.Mode().Perm()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return &models.IOError{Op: "create", Path: dst, Err: err}
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &models.IOError{Op: "copy", Path: dst, Err: fmt.Errorf("from %s: %w", src, err)}
	}
	if err := out.Close(); err != nil {
		return &models.IOError{Op: "close", Path: dst, Err: err}
	}

	if err := os.Chmod(dst, perm); err != nil {
		return &models.IOError{Op: "chmod", Path: dst, Err: err}
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return &models.IOError{Op: "chtimes", Path: dst, Err: err}
	}
	return nil
}
