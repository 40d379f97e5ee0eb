// Package commands implements the top-level operations: collect, report,
// check and noop. Each returns the message printed to standard output.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spachava753/casscheck/internal/executor"
	"github.com/spachava753/casscheck/internal/layout"
	"github.com/spachava753/casscheck/internal/models"
	"github.com/spachava753/casscheck/internal/registry"
	"github.com/spachava753/casscheck/internal/report"
	"github.com/spachava753/casscheck/internal/unit"
)

// Command names, also used as output subdirectories.
const (
	NameCollect = "collect"
	NameReport  = "report"
	NameCheck   = "check"
	NameNoop    = "noop"
)

// Source yields the ordered unit entries of a group.
type Source interface {
	Entries(group string) []unit.Entry
}

// PrepareRun lays out the run directory and records its manifest. The
// returned config has an absolute CheckDir.
func PrepareRun(cfg models.RunConfig) (models.RunConfig, *models.RunManifest, error) {
	cfg, err := layout.Prepare(cfg)
	if err != nil {
		return cfg, nil, err
	}
	m, err := layout.WriteManifest(cfg)
	if err != nil {
		return cfg, nil, err
	}
	slog.Info("using check dir", "check_dir", cfg.CheckDir, "run_id", m.ID)
	return cfg, m, nil
}

// Noop does nothing.
func Noop() string {
	return "no op"
}

// Collect runs the collection group under CheckDir/collect.
func Collect(ctx context.Context, cfg models.RunConfig, src Source) (string, error) {
	runner := executor.NewCommandRunner(NameCollect, cfg)
	outcomes, err := runner.Run(ctx, src.Entries(registry.GroupCollection))
	return executor.Describe(NameCollect, outcomes), err
}

// Report aggregates every reportable receipt under CheckDir and renders it
// into CheckDir/report.
func Report(cfg models.RunConfig, r report.Renderer) (string, error) {
	entries, err := report.Collect(cfg.CheckDir)
	if err != nil {
		return "", fmt.Errorf("collecting receipts: %w", err)
	}
	slog.Debug("reporting on receipts", "count", len(entries))

	reportCfg, err := cfg.Rebase(NameReport)
	if err != nil {
		return "", fmt.Errorf("resolving report dir: %w", err)
	}
	slog.Info("building report", "report_dir", reportCfg.CheckDir)

	index, err := r.Render(entries, reportCfg.CheckDir)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote report to %s", index), nil
}

// NewRenderer returns the HTML renderer with the run manifest of
// cfg.CheckDir attached, when one exists.
func NewRenderer(cfg models.RunConfig) (*report.HTMLRenderer, error) {
	r, err := report.NewHTMLRenderer()
	if err != nil {
		return nil, err
	}
	m, err := layout.ReadManifest(cfg.CheckDir)
	switch {
	case err == nil:
		r.Manifest = m
	case !errors.Is(err, fs.ErrNotExist):
		slog.Warn("could not read run manifest", "dir", cfg.CheckDir, "error", err)
	}
	return r, nil
}

// Check runs collect and then report. A collect error stops the check
// before reporting.
func Check(ctx context.Context, cfg models.RunConfig, src Source, r report.Renderer) (string, error) {
	slog.Info("running commands", "commands", []string{NameCollect, NameReport})

	var out []string
	msg, err := Collect(ctx, cfg, src)
	out = append(out, msg)
	if err != nil {
		return strings.Join(out, "\n"), err
	}

	msg, err = Report(cfg, r)
	if msg != "" {
		out = append(out, msg)
	}
	return strings.Join(out, "\n"), err
}

// ListUnits describes the entries of every group in reg.
func ListUnits(reg *registry.Registry) string {
	var b strings.Builder
	for i, group := range reg.Groups() {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Units in group %s:", group)
		for _, e := range reg.Entries(group) {
			fmt.Fprintf(&b, "\n\t%-30s %s", e.Name, e.Description)
		}
	}
	return b.String()
}
