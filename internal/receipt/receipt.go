// Package receipt reads and writes the per-task receipt.yaml files that
// record the outcome of each collection unit.
package receipt

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/spachava753/casscheck/internal/fsutil"
	"github.com/spachava753/casscheck/internal/models"
)

// ErrDanglingReceipt is wrapped by TryLoad when the task directory named by
// a receipt does not exist.
var ErrDanglingReceipt = errors.New("receipt task directory does not exist")

var knownFields = map[string]bool{
	"name":      true,
	"task_dir":  true,
	"error":     true,
	"report_on": true,
}

// New returns a receipt with no error that is not reported on.
func New(name, taskDir string) models.Receipt {
	return models.Receipt{
		Name:    name,
		TaskDir: taskDir,
	}
}

// Path returns the receipt file path for a task directory.
func Path(taskDir string) string {
	return filepath.Join(taskDir, models.ReceiptFileName)
}

// IsReceiptFile reports whether path names a receipt file.
func IsReceiptFile(path string) bool {
	return filepath.Base(path) == models.ReceiptFileName
}

// Write serializes r into its task directory, replacing any earlier receipt,
// and returns the written path. The task directory must already exist.
func Write(r models.Receipt) (string, error) {
	info, err := os.Stat(r.TaskDir)
	if err != nil || !info.IsDir() {
		return "", &models.PreconditionError{Path: r.TaskDir, Reason: "task directory does not exist"}
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding receipt %s: %w", r.Name, err)
	}

	path := Path(r.TaskDir)
	if err := fsutil.WriteFile(path, data, 0o644); err != nil {
		return "", &models.IOError{Op: "write receipt", Path: path, Err: err}
	}
	slog.Debug("wrote task receipt", "task", r.Name, "path", path)
	return path, nil
}

// TryLoad loads the receipt at path. It returns nil, nil without touching the
// filesystem when path is not a receipt file. Unknown fields are logged and
// ignored. Unparseable content yields a *models.CorruptReceiptError and a
// receipt whose task directory is missing yields an error wrapping
// ErrDanglingReceipt.
func TryLoad(path string) (*models.Receipt, error) {
	if !IsReceiptFile(path) {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.IOError{Op: "read receipt", Path: path, Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &models.CorruptReceiptError{Path: path, Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, &models.CorruptReceiptError{Path: path, Err: errors.New("expected a mapping")}
	}
	body := doc.Content[0]

	for i := 0; i+1 < len(body.Content); i += 2 {
		if key := body.Content[i].Value; !knownFields[key] {
			slog.Warn("ignoring unknown receipt field", "path", path, "field", key)
		}
	}

	var raw struct {
		Name     *string `yaml:"name"`
		TaskDir  *string `yaml:"task_dir"`
		Error    *string `yaml:"error"`
		ReportOn *bool   `yaml:"report_on"`
	}
	if err := body.Decode(&raw); err != nil {
		return nil, &models.CorruptReceiptError{Path: path, Err: err}
	}
	if raw.Name == nil || *raw.Name == "" {
		return nil, &models.CorruptReceiptError{Path: path, Err: errors.New("missing name")}
	}
	if raw.TaskDir == nil || *raw.TaskDir == "" {
		return nil, &models.CorruptReceiptError{Path: path, Err: errors.New("missing task_dir")}
	}

	r := New(*raw.Name, *raw.TaskDir)
	if raw.Error != nil {
		r.Error = *raw.Error
	}
	if raw.ReportOn != nil {
		r.ReportOn = *raw.ReportOn
	}

	info, err := os.Stat(r.TaskDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = ErrDanglingReceipt
		}
		return nil, &models.IOError{Op: "load receipt", Path: r.TaskDir, Err: err}
	}
	if !info.IsDir() {
		return nil, &models.IOError{Op: "load receipt", Path: r.TaskDir, Err: ErrDanglingReceipt}
	}
	return &r, nil
}

// Discover walks root and returns every receipt that loads cleanly, in
// lexical path order. Receipts that fail to load and directories that cannot
// be read are logged and skipped.
func Discover(root string) ([]models.Receipt, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, &models.IOError{Op: "walk", Path: root, Err: err}
	}

	var receipts []models.Receipt
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		r, err := TryLoad(path)
		if err != nil {
			slog.Warn("skipping receipt", "path", path, "error", err)
			return nil
		}
		if r != nil {
			receipts = append(receipts, *r)
		}
		return nil
	})
	if err != nil {
		return nil, &models.IOError{Op: "walk", Path: root, Err: err}
	}
	return receipts, nil
}
