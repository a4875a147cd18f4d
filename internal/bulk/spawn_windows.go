//go:build windows

package bulk

import (
	"os/exec"
	"syscall"
)

// detach starts the worker in a new process group so console Ctrl+C does
// not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
