package executor_test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spachava753/casscheck/internal/executor"
	"github.com/spachava753/casscheck/internal/models"
	"github.com/spachava753/casscheck/internal/receipt"
	"github.com/spachava753/casscheck/internal/unit"
)

var testCheckDir = flag.String("test.checkdir", "", "directory to preserve test run outputs (default: temp dir)")

// getCheckDir returns the check directory for tests.
// If -test.checkdir flag is set, uses a subdirectory of it, otherwise creates a temp dir.
func getCheckDir(t *testing.T) string {
	if *testCheckDir != "" {
		absPath, err := filepath.Abs(filepath.Join(*testCheckDir, t.Name()))
		if err != nil {
			t.Fatalf("getting absolute path for check dir: %v", err)
		}
		if err := os.MkdirAll(absPath, 0755); err != nil {
			t.Fatalf("creating check dir: %v", err)
		}
		return absPath
	}
	return t.TempDir()
}

// fakeUnit writes a single file and optionally fails, panics or removes its
// own task directory.
type fakeUnit struct {
	name      string
	fail      bool
	panics    bool
	noReport  bool
	removeDir bool
	ran       *[]string
}

func (f *fakeUnit) Name() string        { return f.name }
func (f *fakeUnit) Description() string { return "fake " + f.name }
func (f *fakeUnit) Reportable() bool    { return !f.noReport }

func (f *fakeUnit) Produce(ctx context.Context, taskDir string) error {
	if f.ran != nil {
		*f.ran = append(*f.ran, f.name)
	}
	if f.panics {
		panic("boom")
	}
	if f.removeDir {
		return os.RemoveAll(taskDir)
	}
	if f.fail {
		return &models.UnitError{Unit: f.name, Err: errors.New("deliberate failure")}
	}
	return os.WriteFile(filepath.Join(taskDir, f.name+".out"), []byte(f.name), 0644)
}

func fakeEntries(n, failing int, ran *[]string) []unit.Entry {
	entries := make([]unit.Entry, n)
	for i := range n {
		u := &fakeUnit{name: fmt.Sprintf("unit-%d", i), fail: i == failing, ran: ran}
		entries[i] = unit.Entry{Name: u.name, New: unit.Static(u)}
	}
	return entries
}

func receiptsUnder(t *testing.T, dir string) map[string]models.Receipt {
	t.Helper()
	found, err := receipt.Discover(dir)
	require.NoError(t, err)
	out := make(map[string]models.Receipt, len(found))
	for _, r := range found {
		out[r.Name] = r
	}
	return out
}

func TestRun_ContinuesAfterFailure(t *testing.T) {
	const n, failing = 5, 2
	cfg := models.RunConfig{CheckDir: getCheckDir(t)}
	var ran []string

	runner := executor.NewCommandRunner("collect", cfg)
	assert.Equal(t, executor.StateCreated, runner.State())

	outcomes, err := runner.Run(context.Background(), fakeEntries(n, failing, &ran))
	require.NoError(t, err)
	assert.Equal(t, executor.StateCompleted, runner.State())
	require.Len(t, outcomes, n)
	assert.Len(t, ran, n)

	commandDir := filepath.Join(cfg.CheckDir, "collect")
	assert.Equal(t, commandDir, runner.Config().CheckDir)
	assert.Equal(t, cfg.CheckDir, filepath.Dir(runner.Config().CheckDir), "input config must not be rebased in place")

	receipts := receiptsUnder(t, commandDir)
	require.Len(t, receipts, n)
	for i := range n {
		name := fmt.Sprintf("unit-%d", i)
		r := receipts[name]
		assert.Equal(t, filepath.Join(commandDir, name), r.TaskDir)
		assert.True(t, r.ReportOn)
		if i == failing {
			assert.Contains(t, r.Error, "deliberate failure")
		} else {
			assert.Empty(t, r.Error, name)
		}
		assert.Equal(t, r, outcomes[i].Receipt)
	}
}

func TestRun_FailFast(t *testing.T) {
	const n, failing = 5, 2
	cfg := models.RunConfig{CheckDir: getCheckDir(t), FailFast: true}
	var ran []string

	outcomes, err := executor.NewCommandRunner("collect", cfg).Run(context.Background(), fakeEntries(n, failing, &ran))

	var unitErr *models.UnitError
	require.True(t, errors.As(err, &unitErr), "got %v", err)
	assert.Equal(t, []string{"unit-0", "unit-1", "unit-2"}, ran)
	require.Len(t, outcomes, failing+1)

	receipts := receiptsUnder(t, filepath.Join(cfg.CheckDir, "collect"))
	require.Len(t, receipts, failing+1)
	assert.NotEmpty(t, receipts["unit-2"].Error)
	assert.Empty(t, receipts["unit-0"].Error)
	assert.Empty(t, receipts["unit-1"].Error)
	for i := failing + 1; i < n; i++ {
		_, err := os.Stat(filepath.Join(cfg.CheckDir, "collect", fmt.Sprintf("unit-%d", i)))
		assert.True(t, errors.Is(err, os.ErrNotExist), "unit-%d must not be instantiated", i)
	}
}

func TestRun_PanicIsContained(t *testing.T) {
	cfg := models.RunConfig{CheckDir: getCheckDir(t)}
	entries := []unit.Entry{
		{Name: "panics", New: unit.Static(&fakeUnit{name: "panics", panics: true})},
		{Name: "ok", New: unit.Static(&fakeUnit{name: "ok"})},
	}

	outcomes, err := executor.NewCommandRunner("collect", cfg).Run(context.Background(), entries)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Contains(t, outcomes[0].Receipt.Error, "panic: boom")
	assert.Empty(t, outcomes[1].Receipt.Error)

	_, err = os.Stat(filepath.Join(cfg.CheckDir, "collect", "ok", "ok.out"))
	assert.NoError(t, err)
}

func TestRun_ConstructorFailure(t *testing.T) {
	cfg := models.RunConfig{CheckDir: getCheckDir(t)}
	entries := []unit.Entry{
		{Name: "broken", New: func(models.RunConfig) (unit.Unit, error) { return nil, errors.New("bad config") }},
		{Name: "ok", New: unit.Static(&fakeUnit{name: "ok"})},
	}

	outcomes, err := executor.NewCommandRunner("collect", cfg).Run(context.Background(), entries)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Nil(t, outcomes[0].Unit)
	assert.Contains(t, outcomes[0].Receipt.Error, "bad config")

	receipts := receiptsUnder(t, cfg.CheckDir)
	assert.Contains(t, receipts["broken"].Error, "bad config")
}

func TestRun_ConstructorSeesRebasedConfig(t *testing.T) {
	cfg := models.RunConfig{CheckDir: getCheckDir(t)}
	var seen models.RunConfig
	entries := []unit.Entry{{
		Name: "probe",
		New: func(c models.RunConfig) (unit.Unit, error) {
			seen = c
			return &fakeUnit{name: "probe"}, nil
		},
	}}

	_, err := executor.NewCommandRunner("collect", cfg).Run(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.CheckDir, "collect"), seen.CheckDir)
}

func TestRun_ReportableFlag(t *testing.T) {
	cfg := models.RunConfig{CheckDir: getCheckDir(t)}
	entries := []unit.Entry{
		{Name: "quiet", New: unit.Static(&fakeUnit{name: "quiet", noReport: true})},
	}

	outcomes, err := executor.NewCommandRunner("collect", cfg).Run(context.Background(), entries)
	require.NoError(t, err)
	assert.False(t, outcomes[0].Receipt.ReportOn)
}

func TestRun_RejectsInvalidEntries(t *testing.T) {
	ok := unit.Static(&fakeUnit{name: "a"})
	tests := []struct {
		name    string
		entries []unit.Entry
	}{
		{name: "duplicate", entries: []unit.Entry{{Name: "a", New: ok}, {Name: "a", New: ok}}},
		{name: "empty name", entries: []unit.Entry{{Name: "", New: ok}}},
		{name: "path name", entries: []unit.Entry{{Name: "a/b", New: ok}}},
		{name: "nil constructor", entries: []unit.Entry{{Name: "a"}}},
		{name: "receipt file name", entries: []unit.Entry{{Name: models.ReceiptFileName, New: ok}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.RunConfig{CheckDir: t.TempDir()}
			outcomes, err := executor.NewCommandRunner("collect", cfg).Run(context.Background(), tt.entries)
			assert.Error(t, err)
			assert.Empty(t, outcomes)

			_, statErr := os.Stat(filepath.Join(cfg.CheckDir, "collect"))
			assert.True(t, errors.Is(statErr, os.ErrNotExist), "nothing is laid out for an invalid batch")
		})
	}
}

func TestRun_TaskDirBlockedIsReported(t *testing.T) {
	cfg := models.RunConfig{CheckDir: getCheckDir(t)}
	commandDir := filepath.Join(cfg.CheckDir, "collect")
	require.NoError(t, os.MkdirAll(commandDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(commandDir, "unit-1"), []byte("x"), 0644))

	runner := executor.NewCommandRunner("collect", cfg)
	outcomes, err := runner.Run(context.Background(), fakeEntries(3, -1, nil))
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	blocked := outcomes[1].Receipt
	assert.Equal(t, "unit-1", blocked.Name)
	assert.Contains(t, blocked.Error, "not a directory")
	assert.Empty(t, outcomes[2].Receipt.Error)

	lines := strings.Split(executor.Describe("collect", outcomes), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, fmt.Sprintf("\t%-30s %s", "unit-1", "Error"), lines[2])

	_, err = executor.NewCommandRunner("collect", models.RunConfig{CheckDir: cfg.CheckDir, FailFast: true}).
		Run(context.Background(), fakeEntries(3, -1, nil))
	var ioErr *models.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestRun_ReceiptWriteFailureIsReported(t *testing.T) {
	cfg := models.RunConfig{CheckDir: getCheckDir(t)}
	entries := []unit.Entry{
		{Name: "vanishes", New: unit.Static(&fakeUnit{name: "vanishes", removeDir: true})},
		{Name: "ok", New: unit.Static(&fakeUnit{name: "ok"})},
	}

	outcomes, err := executor.NewCommandRunner("collect", cfg).Run(context.Background(), entries)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Contains(t, outcomes[0].Receipt.Error, "precondition failed")
	assert.NotNil(t, outcomes[0].Unit)
	assert.Empty(t, outcomes[1].Receipt.Error)

	receipts := receiptsUnder(t, cfg.CheckDir)
	assert.NotContains(t, receipts, "vanishes")
	assert.Contains(t, receipts, "ok")
}

func TestRun_SingleUse(t *testing.T) {
	runner := executor.NewCommandRunner("collect", models.RunConfig{CheckDir: t.TempDir()})
	_, err := runner.Run(context.Background(), nil)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), nil)
	assert.ErrorIs(t, err, executor.ErrRunnerUsed)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran []string
	outcomes, err := executor.NewCommandRunner("collect", models.RunConfig{CheckDir: t.TempDir()}).
		Run(ctx, fakeEntries(3, -1, &ran))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
	assert.Empty(t, ran)
}

func TestRun_UnwritableOutputRoot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := executor.NewCommandRunner("collect", models.RunConfig{CheckDir: file}).
		Run(context.Background(), fakeEntries(1, -1, nil))

	var ioErr *models.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestDescribe(t *testing.T) {
	outcomes := []executor.Outcome{
		{Receipt: models.Receipt{Name: "collect-logs", TaskDir: "/out/collect/collect-logs"}},
		{Receipt: models.Receipt{Name: "collect-proxy-histograms", TaskDir: "/out/collect/collect-proxy-histograms", Error: "boom"}},
	}

	got := executor.Describe("collect", outcomes)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Tasks run by command collect:", lines[0])
	assert.Equal(t, fmt.Sprintf("\t%-30s %s", "collect-logs", "/out/collect/collect-logs"), lines[1])
	assert.Equal(t, fmt.Sprintf("\t%-30s %s", "collect-proxy-histograms", "Error"), lines[2])
}
