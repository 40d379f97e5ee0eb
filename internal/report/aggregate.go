// Package report gathers reportable receipts from a run's output tree and
// renders them into a browsable index.
package report

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spachava753/casscheck/internal/models"
	"github.com/spachava753/casscheck/internal/receipt"
)

// Collect walks root for receipts and returns one entry per receipt with
// report_on set. Each entry lists the regular files directly inside the
// receipt's task directory, excluding the receipt itself. Corrupt or
// dangling receipts are logged and skipped.
//
// Entries are ordered by task directory and files by name, so the same tree
// always yields the same result.
func Collect(root string) ([]models.ReportEntry, error) {
	receipts, err := receipt.Discover(root)
	if err != nil {
		return nil, err
	}

	var entries []models.ReportEntry
	for _, r := range receipts {
		if !r.ReportOn {
			slog.Debug("receipt not marked for report", "task", r.Name, "task_dir", r.TaskDir)
			continue
		}
		files, err := listOutputs(r.TaskDir)
		if err != nil {
			slog.Warn("skipping receipt, cannot list task dir", "task", r.Name, "task_dir", r.TaskDir, "error", err)
			continue
		}
		slog.Debug("task has files", "task", r.Name, "files", files)
		entries = append(entries, models.ReportEntry{Receipt: r, Files: files})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Receipt.TaskDir < entries[j].Receipt.TaskDir
	})
	return entries, nil
}

// listOutputs returns the non-receipt regular files directly inside dir.
func listOutputs(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &models.IOError{Op: "list task dir", Path: dir, Err: receipt.ErrDanglingReceipt}
		}
		return nil, &models.IOError{Op: "list task dir", Path: dir, Err: err}
	}

	files := []string{}
	for _, de := range dirEntries {
		if !de.Type().IsRegular() || receipt.IsReceiptFile(de.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, de.Name()))
	}
	// os.ReadDir already sorts by name.
	return files, nil
}
