package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/spachava753/casscheck/internal/fsutil"
	"github.com/spachava753/casscheck/internal/layout"
	"github.com/spachava753/casscheck/internal/models"
)

// IndexFileName is the generated report entry point inside the destination
// directory.
const IndexFileName = "index.html"

//go:embed templates/*.html.tmpl
var templatesFS embed.FS

//go:embed all:assets
var assetsFS embed.FS

// Renderer turns aggregated entries into a report under destDir and returns
// the path of the generated index.
type Renderer interface {
	Render(entries []models.ReportEntry, destDir string) (string, error)
}

// HTMLRenderer writes a single HTML index plus the static assets it links
// to. Output files are linked relative to the index, not copied.
type HTMLRenderer struct {
	tmpl *template.Template

	// Manifest, when set, is shown in the report header.
	Manifest *models.RunManifest

	now func() time.Time
}

// NewHTMLRenderer parses the embedded report template.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl, now: time.Now}, nil
}

type pageData struct {
	Manifest  *models.RunManifest
	Generated string
	Failed    int
	Tasks     []taskView
}

type taskView struct {
	Name    string
	TaskDir string
	Error   string
	Files   []fileView
}

type fileView struct {
	Name string
	Href string
}

// Render writes destDir/index.html and copies the assets beside it.
func (h *HTMLRenderer) Render(entries []models.ReportEntry, destDir string) (string, error) {
	destDir, err := filepath.Abs(destDir)
	if err != nil {
		return "", fmt.Errorf("resolving report dir: %w", err)
	}
	if err := layout.EnsureDir(destDir); err != nil {
		return "", err
	}

	data := pageData{
		Manifest:  h.Manifest,
		Generated: h.now().UTC().Format(time.RFC3339),
		Tasks:     make([]taskView, 0, len(entries)),
	}
	for _, e := range entries {
		if e.Receipt.Failed() {
			data.Failed++
		}
		tv := taskView{Name: e.Receipt.Name, TaskDir: e.Receipt.TaskDir, Error: e.Receipt.Error}
		for _, f := range e.Files {
			tv.Files = append(tv.Files, fileView{Name: filepath.Base(f), Href: relativeHref(destDir, f)})
		}
		data.Tasks = append(data.Tasks, tv)
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "report.html.tmpl", data); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}

	indexPath := filepath.Join(destDir, IndexFileName)
	slog.Info("writing report index", "path", indexPath)
	if err := fsutil.WriteFile(indexPath, buf.Bytes(), 0o644); err != nil {
		return "", &models.IOError{Op: "write report", Path: indexPath, Err: err}
	}

	if err := copyAssets(destDir); err != nil {
		return "", err
	}
	return indexPath, nil
}

// relativeHref links target from dir using forward slashes. Targets on
// another volume fall back to a file URL.
func relativeHref(dir, target string) string {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return "file://" + filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

func copyAssets(destDir string) error {
	return fs.WalkDir(assetsFS, "assets", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := assetsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading asset %s: %w", name, err)
		}
		dest := filepath.Join(destDir, filepath.FromSlash(name))
		slog.Info("copying report asset", "asset", path.Base(name), "dest", dest)
		if err := layout.EnsureParentDir(dest); err != nil {
			return err
		}
		if err := fsutil.WriteFile(dest, data, 0o644); err != nil {
			return &models.IOError{Op: "write asset", Path: dest, Err: err}
		}
		return nil
	})
}
