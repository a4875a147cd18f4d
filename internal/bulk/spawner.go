package bulk

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ProcessSpawner re-executes a binary as `<exe> worker --job <path>` in its
// own session so it survives the caller's terminal.
type ProcessSpawner struct {
	executable string
}

// NewProcessSpawner spawns workers from the running executable.
func NewProcessSpawner() (*ProcessSpawner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	return &ProcessSpawner{executable: exe}, nil
}

// Spawn starts the worker. The child is reaped in the background so it
// never lingers as a zombie that still looks alive.
func (s *ProcessSpawner) Spawn(_ context.Context, jobPath string) (int, error) {
	// Not CommandContext: the worker must outlive the request.
	cmd := exec.Command(s.executable, "worker", "--job", jobPath)
	cmd.Env = os.Environ()
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting worker: %w", err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return cmd.Process.Pid, nil
}
