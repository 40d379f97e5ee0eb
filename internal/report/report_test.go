package report_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spachava753/casscheck/internal/models"
	"github.com/spachava753/casscheck/internal/receipt"
	"github.com/spachava753/casscheck/internal/report"
)

// makeTask creates dir/name with the given files and a receipt.
func makeTask(t *testing.T, dir, name string, reportOn bool, errMsg string, files ...string) models.Receipt {
	t.Helper()
	taskDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(taskDir, 0755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(taskDir, f), []byte(f), 0644))
	}
	r := receipt.New(name, taskDir)
	r.ReportOn = reportOn
	r.Error = errMsg
	_, err := receipt.Write(r)
	require.NoError(t, err)
	return r
}

func TestCollect_OnlyReportable(t *testing.T) {
	root := t.TempDir()
	collectDir := filepath.Join(root, "collect")
	logs := makeTask(t, collectDir, "collect-logs", true, "", "system.log", "gc-1.log")
	hist := makeTask(t, collectDir, "collect-proxy-histograms", true, "boom", "collect-proxy-histograms")
	makeTask(t, collectDir, "quiet", false, "", "ignored.txt")

	entries, err := report.Collect(root)
	require.NoError(t, err)

	want := []models.ReportEntry{
		{Receipt: logs, Files: []string{
			filepath.Join(logs.TaskDir, "gc-1.log"),
			filepath.Join(logs.TaskDir, "system.log"),
		}},
		{Receipt: hist, Files: []string{
			filepath.Join(hist.TaskDir, "collect-proxy-histograms"),
		}},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_Tolerance(t *testing.T) {
	root := t.TempDir()

	onlyReceipt := makeTask(t, root, "only-receipt", true, "")

	// Receipt whose task_dir points somewhere that no longer exists.
	gone := makeTask(t, root, "gone", true, "")
	dangling := filepath.Join(root, "dangling")
	require.NoError(t, os.MkdirAll(dangling, 0755))
	data, err := os.ReadFile(receipt.Path(gone.TaskDir))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(receipt.Path(dangling), data, 0644))
	require.NoError(t, os.RemoveAll(gone.TaskDir))

	corrupt := filepath.Join(root, "corrupt")
	require.NoError(t, os.MkdirAll(corrupt, 0755))
	require.NoError(t, os.WriteFile(receipt.Path(corrupt), []byte("- not\n- a mapping\n"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))

	entries, err := report.Collect(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, onlyReceipt, entries[0].Receipt)
	assert.NotNil(t, entries[0].Files)
	assert.Empty(t, entries[0].Files)
}

func TestCollect_MissingRoot(t *testing.T) {
	_, err := report.Collect(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCollect_SkipsSubdirectories(t *testing.T) {
	root := t.TempDir()
	r := makeTask(t, root, "nested", true, "", "top.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(r.TaskDir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(r.TaskDir, "sub", "deep.txt"), nil, 0644))

	entries, err := report.Collect(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{filepath.Join(r.TaskDir, "top.txt")}, entries[0].Files)
}

func TestHTMLRenderer_Render(t *testing.T) {
	root := t.TempDir()
	ok := makeTask(t, filepath.Join(root, "collect"), "collect-logs", true, "", "system.log")
	failed := makeTask(t, filepath.Join(root, "collect"), "collect-proxy-histograms", true, `exit <1>`)

	entries, err := report.Collect(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	renderer, err := report.NewHTMLRenderer()
	require.NoError(t, err)
	renderer.Manifest = &models.RunManifest{
		ID:        "0b8e7c55-7f3c-4a55-b1c6-2f0e1a9f6c11",
		Name:      "2026-10-16T09:30",
		Host:      "node-1",
		CreatedAt: time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
	}

	destDir := filepath.Join(root, "report")
	index, err := renderer.Render(entries, destDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, report.IndexFileName), index)

	html, err := os.ReadFile(index)
	require.NoError(t, err)
	page := string(html)

	assert.Contains(t, page, ok.Name)
	assert.Contains(t, page, failed.Name)
	assert.Contains(t, page, "2 tasks, 1 failed")
	assert.Contains(t, page, "node-1")
	assert.Contains(t, page, `href="../collect/collect-logs/system.log"`)
	assert.Contains(t, page, "exit &lt;1&gt;", "error text must be escaped")
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))

	_, err = os.Stat(filepath.Join(destDir, "assets", "report.css"))
	assert.NoError(t, err)

	// Rendering again over an existing report replaces it.
	_, err = renderer.Render(entries[:1], destDir)
	require.NoError(t, err)
	html, err = os.ReadFile(index)
	require.NoError(t, err)
	assert.NotContains(t, string(html), failed.Name)
}

func TestHTMLRenderer_Empty(t *testing.T) {
	renderer, err := report.NewHTMLRenderer()
	require.NoError(t, err)

	index, err := renderer.Render(nil, t.TempDir())
	require.NoError(t, err)
	html, err := os.ReadFile(index)
	require.NoError(t, err)
	assert.Contains(t, string(html), "No reportable tasks found.")
}

func TestHTMLRenderer_DestIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	renderer, err := report.NewHTMLRenderer()
	require.NoError(t, err)
	_, err = renderer.Render(nil, file)

	var ioErr *models.IOError
	assert.ErrorAs(t, err, &ioErr)
}
