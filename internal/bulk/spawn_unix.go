//go:build !windows

package bulk

import (
	"os/exec"
	"syscall"
)

// detach puts the worker in a new session, away from the terminal's
// signals. Its parent stays the spawning process.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
