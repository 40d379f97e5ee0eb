// Package executor runs collection units one at a time, each in its own
// task directory, and writes a receipt for every unit it runs.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spachava753/casscheck/internal/layout"
	"github.com/spachava753/casscheck/internal/models"
	"github.com/spachava753/casscheck/internal/receipt"
	"github.com/spachava753/casscheck/internal/unit"
)

// State is the lifecycle position of a CommandRunner.
type State string

const (
	StateCreated   State = "created"
	StateLaidOut   State = "laid-out"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// ErrRunnerUsed is returned when Run is called more than once.
var ErrRunnerUsed = errors.New("command runner has already run")

// Outcome pairs a unit with the receipt written for it. When the task
// directory or the receipt could not be written, Receipt carries the error
// but is not on disk. Unit is nil when the unit was never constructed.
type Outcome struct {
	Unit    unit.Unit
	Receipt models.Receipt
}

// CommandRunner runs the units of one command. Its output root is the run's
// check directory rebased under the command name.
type CommandRunner struct {
	command string
	cfg     models.RunConfig
	state   State
}

// NewCommandRunner creates a runner for command. cfg is not modified.
func NewCommandRunner(command string, cfg models.RunConfig) *CommandRunner {
	return &CommandRunner{
		command: command,
		cfg:     cfg,
		state:   StateCreated,
	}
}

// State returns the runner's lifecycle state.
func (r *CommandRunner) State() State {
	return r.state
}

// Config returns the configuration handed to units. After Run has laid out
// the output tree its CheckDir is the command's output root.
func (r *CommandRunner) Config() models.RunConfig {
	return r.cfg
}

// Run executes entries sequentially in the given order. A failing unit is
// logged and recorded in its receipt and the batch continues, unless the
// config is fail-fast, in which case its receipt is written and the error is
// returned without running the remaining units. The outcomes of every unit
// that ran are returned in both cases.
func (r *CommandRunner) Run(ctx context.Context, entries []unit.Entry) ([]Outcome, error) {
	if r.state != StateCreated {
		return nil, ErrRunnerUsed
	}
	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	cfg, err := r.cfg.Rebase(r.command)
	if err != nil {
		return nil, fmt.Errorf("resolving output root for command %s: %w", r.command, err)
	}
	if err := layout.EnsureDir(cfg.CheckDir); err != nil {
		return nil, fmt.Errorf("creating output root for command %s: %w", r.command, err)
	}
	r.cfg = cfg
	r.state = StateLaidOut
	slog.Debug("set check dir for command", "command", r.command, "check_dir", cfg.CheckDir)

	r.state = StateRunning
	defer func() { r.state = StateCompleted }()

	slog.Info("running tasks", "command", r.command, "tasks", entryNames(entries))

	outcomes := make([]Outcome, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		outcome, err := r.runTask(ctx, entry)
		if outcome != nil {
			outcomes = append(outcomes, *outcome)
		}
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// runTask runs one entry. The returned error is non-nil only when the batch
// must stop; otherwise an outcome is always returned, even when no receipt
// could be written for it.
func (r *CommandRunner) runTask(ctx context.Context, entry unit.Entry) (*Outcome, error) {
	slog.Debug("running task", "task", entry.Name)

	t, err := newTask(r.cfg, entry)
	if err != nil {
		if r.cfg.FailFast {
			return nil, fmt.Errorf("task %s: %w", entry.Name, err)
		}
		slog.Error("could not prepare task", "task", entry.Name, "error", err)
		dir, _ := layout.TaskDir(r.cfg.CheckDir, entry.Name)
		return unrecorded(receipt.New(entry.Name, dir), nil, err), nil
	}

	produceErr := t.produce(ctx)
	if produceErr != nil {
		t.recordError(produceErr)
		if !r.cfg.FailFast {
			slog.Warn("error from task", "task", t.name, "error", produceErr)
		}
	}

	if _, err := receipt.Write(t.receipt); err != nil {
		if !r.cfg.FailFast {
			slog.Error("could not write task receipt", "task", t.name, "error", err)
			return unrecorded(t.receipt, t.unit, errors.Join(produceErr, err)), nil
		}
		return nil, fmt.Errorf("task %s: writing receipt: %w", t.name, errors.Join(produceErr, err))
	}

	outcome := &Outcome{Unit: t.unit, Receipt: t.receipt}
	if produceErr != nil && r.cfg.FailFast {
		return outcome, fmt.Errorf("task %s: %w", t.name, produceErr)
	}

	slog.Info("task generated output", "task", t.name, "task_dir", t.dir, "failed", t.receipt.Failed())
	return outcome, nil
}

// unrecorded builds the outcome of a task whose receipt is not on disk.
func unrecorded(r models.Receipt, u unit.Unit, err error) *Outcome {
	r.Error = err.Error()
	return &Outcome{Unit: u, Receipt: r}
}

// Describe renders one line per outcome showing either Error or the task
// directory.
func Describe(command string, outcomes []Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tasks run by command %s:", command)
	for _, o := range outcomes {
		result := o.Receipt.TaskDir
		if o.Receipt.Failed() {
			result = "Error"
		}
		fmt.Fprintf(&b, "\n\t%-30s %s", o.Receipt.Name, result)
	}
	return b.String()
}

func validateEntries(entries []unit.Entry) error {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if err := unit.ValidateName(e.Name); err != nil {
			return fmt.Errorf("unit[%d]: %w", i, err)
		}
		if e.New == nil {
			return fmt.Errorf("unit %s: no constructor", e.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("unit %s: duplicate name", e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

func entryNames(entries []unit.Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
