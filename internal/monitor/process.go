package monitor

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

// ProcessInspector reads the OS process table through gopsutil.
type ProcessInspector struct{}

var _ core.ProcessInspector = ProcessInspector{}

// NewProcessInspector creates an inspector for the local machine.
func NewProcessInspector() ProcessInspector {
	return ProcessInspector{}
}

// Inspect reports whether pid exists, whether it is still running (zombies
// are not) and its parent pid.
func (ProcessInspector) Inspect(ctx context.Context, pid int) (core.ProcessInfo, error) {
	info := core.ProcessInfo{PID: pid}
	if pid <= 0 {
		return info, nil
	}

	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil {
		return info, fmt.Errorf("looking up pid %d: %w", pid, err)
	}
	if !exists {
		return info, nil
	}

	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return info, nil
		}
		return info, fmt.Errorf("opening pid %d: %w", pid, err)
	}
	info.Exists = true

	running, err := p.IsRunningWithContext(ctx)
	if err != nil {
		return info, fmt.Errorf("checking pid %d: %w", pid, err)
	}
	info.Running = running
	if status, err := p.StatusWithContext(ctx); err == nil && slices.Contains(status, process.Zombie) {
		info.Running = false
	}

	ppid, err := p.PpidWithContext(ctx)
	if err != nil {
		return info, fmt.Errorf("reading parent of pid %d: %w", pid, err)
	}
	info.PPID = int(ppid)
	return info, nil
}
