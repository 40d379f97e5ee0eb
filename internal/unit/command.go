package unit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spachava753/casscheck/internal/models"
)

// waitDelay bounds how long Produce waits for output pipes to close after
// the command was killed.
const waitDelay = 2 * time.Second

// CommandConfig configures a Command unit.
type CommandConfig struct {
	Name        string
	Description string
	Argv        []string

	// Timeout bounds the command's run time. Zero means no limit, so a
	// command that never exits blocks the whole batch.
	Timeout time.Duration

	SkipReport bool
}

// Command runs an external program and saves its standard output to a file
// named after the unit.
//
// Any output on standard error fails the unit, even when the exit code is
// zero. Tools that log informational text to stderr should be wrapped so
// that it is redirected.
type Command struct {
	cfg CommandConfig
}

// NewCommand creates a command unit.
func NewCommand(cfg CommandConfig) *Command {
	return &Command{cfg: cfg}
}

// NewShellCommand creates a command unit that runs script with sh -c.
func NewShellCommand(cfg CommandConfig, script string) *Command {
	cfg.Argv = []string{"sh", "-c", script}
	return &Command{cfg: cfg}
}

// Name returns the unit name, which is also the output file name.
func (c *Command) Name() string { return c.cfg.Name }

// Description returns the configured one-line summary.
func (c *Command) Description() string { return c.cfg.Description }

// Reportable is true unless the unit was configured to skip the report.
func (c *Command) Reportable() bool { return !c.cfg.SkipReport }

// OutputPath returns where Produce writes standard output.
func (c *Command) OutputPath(taskDir string) string {
	return filepath.Join(taskDir, c.cfg.Name)
}

// Produce runs the command and writes its standard output verbatim. On
// timeout or cancellation the command's whole process group is killed.
func (c *Command) Produce(ctx context.Context, taskDir string) error {
	if len(c.cfg.Argv) == 0 {
		return &models.CommandError{ExitCode: -1, Err: errors.New("no command configured")}
	}
	line := strings.Join(c.cfg.Argv, " ")

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	slog.Debug("executing command", "unit", c.cfg.Name, "command", line, "timeout", c.cfg.Timeout)

	cmd := exec.CommandContext(ctx, c.cfg.Argv[0], c.cfg.Argv[1:]...)
	configureProcess(cmd)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &models.CommandError{
				Command:  line,
				Stderr:   stderr.String(),
				ExitCode: -1,
				Err:      fmt.Errorf("timed out after %s", c.cfg.Timeout),
			}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &models.CommandError{
				Command:  line,
				Stderr:   stderr.String(),
				ExitCode: exitErr.ExitCode(),
			}
		}
		return &models.CommandError{Command: line, Stderr: stderr.String(), ExitCode: -1, Err: err}
	}

	if stderr.Len() > 0 {
		return &models.CommandError{Command: line, Stderr: stderr.String()}
	}

	path := c.OutputPath(taskDir)
	if err := os.WriteFile(path, stdout.Bytes(), 0o644); err != nil {
		return &models.IOError{Op: "write output", Path: path, Err: err}
	}
	slog.Debug("command output written", "unit", c.cfg.Name, "path", path, "bytes", stdout.Len())
	return nil
}
