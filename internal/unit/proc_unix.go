//go:build !windows

package unit

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// configureProcess runs cmd in its own process group and makes context
// cancellation kill the whole group, so children started by a shell do not
// outlive the deadline.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
