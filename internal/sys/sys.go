package sys

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot represents the current system state
type Snapshot struct {
	OS          string
	Arch        string
	Hostname    string
	Platform    string
	CPUUsage    float64
	MemoryUsage float64
	WorkingDir  string
}

// Monitor provides system awareness
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// GetSnapshot returns a current snapshot of system resources. Host details
// are best effort; only CPU and memory failures are reported.
func (m *Monitor) GetSnapshot() (Snapshot, error) {
	snap := Snapshot{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
	snap.WorkingDir, _ = os.Getwd()

	if info, err := host.Info(); err == nil {
		snap.Hostname = info.Hostname
		snap.Platform = info.Platform
		if info.PlatformVersion != "" {
			snap.Platform += " " + info.PlatformVersion
		}
	}

	c, err := cpu.Percent(0, false)
	if err != nil {
		return snap, fmt.Errorf("getting cpu percent: %w", err)
	}
	if len(c) > 0 {
		snap.CPUUsage = c[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return snap, fmt.Errorf("getting virtual memory: %w", err)
	}
	snap.MemoryUsage = vm.UsedPercent

	return snap, nil
}
