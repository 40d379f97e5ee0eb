//go:build windows

package unit

import "os/exec"

// configureProcess keeps the default cancellation, which kills only the
// direct child; WaitDelay still bounds how long Wait waits on its pipes.
func configureProcess(cmd *exec.Cmd) {}
