package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spachava753/casscheck/internal/layout"
	"github.com/spachava753/casscheck/internal/models"
	"github.com/spachava753/casscheck/internal/receipt"
	"github.com/spachava753/casscheck/internal/unit"
)

// task is one unit bound to its task directory and receipt.
type task struct {
	name    string
	unit    unit.Unit
	dir     string
	receipt models.Receipt

	// constructErr is set when the unit constructor failed; the task is
	// then recorded as failed without running.
	constructErr error
}

// newTask creates the task directory, a fresh receipt and the unit itself.
// The error is non-nil only when the directory cannot be created.
func newTask(cfg models.RunConfig, entry unit.Entry) (*task, error) {
	dir, err := layout.TaskDir(cfg.CheckDir, entry.Name)
	if err != nil {
		return nil, err
	}
	if err := layout.EnsureDir(dir); err != nil {
		return nil, err
	}
	slog.Debug("using output dir for task", "task", entry.Name, "dir", dir)

	t := &task{
		name:    entry.Name,
		dir:     dir,
		receipt: receipt.New(entry.Name, dir),
	}

	u, err := entry.New(cfg)
	switch {
	case err != nil:
		t.constructErr = &models.UnitError{Unit: entry.Name, Err: fmt.Errorf("creating unit: %w", err)}
		t.receipt.ReportOn = true
	case u == nil:
		t.constructErr = &models.UnitError{Unit: entry.Name, Err: errors.New("constructor returned no unit")}
		t.receipt.ReportOn = true
	default:
		t.unit = u
		t.receipt.ReportOn = u.Reportable()
	}
	return t, nil
}

// produce runs the unit, converting a panic into a UnitError.
func (t *task) produce(ctx context.Context) (err error) {
	if t.constructErr != nil {
		return t.constructErr
	}
	defer func() {
		if p := recover(); p != nil {
			err = &models.UnitError{Unit: t.name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return t.unit.Produce(ctx, t.dir)
}

// recordError stores err on the receipt. The receipt error is never empty
// for a failed task.
func (t *task) recordError(err error) {
	msg := err.Error()
	if msg == "" {
		msg = fmt.Sprintf("unknown error (%T)", err)
	}
	t.receipt.Error = msg
}
