package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/casscheck/internal/fsutil"
	"github.com/spachava753/casscheck/internal/models"
)

// ManifestFileName is written at the root of every run directory.
const ManifestFileName = "run.yaml"

// WriteManifest records the run identity in cfg.CheckDir. An existing
// manifest is kept so later commands against the same run see the same ID.
func WriteManifest(cfg models.RunConfig) (*models.RunManifest, error) {
	existing, err := ReadManifest(cfg.CheckDir)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("replacing unreadable run manifest", "dir", cfg.CheckDir, "error", err)
	}

	host, _ := os.Hostname()
	m := &models.RunManifest{
		ID:        uuid.NewString(),
		Name:      filepath.Base(cfg.CheckDir),
		Host:      host,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding run manifest: %w", err)
	}
	path := filepath.Join(cfg.CheckDir, ManifestFileName)
	if err := fsutil.WriteFile(path, data, 0o644); err != nil {
		return nil, &models.IOError{Op: "write manifest", Path: path, Err: err}
	}
	slog.Debug("wrote run manifest", "path", path, "id", m.ID)
	return m, nil
}

// ReadManifest loads the manifest from a run directory.
func ReadManifest(dir string) (*models.RunManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, err
	}
	var m models.RunManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing run manifest: %w", err)
	}
	return &m, nil
}
