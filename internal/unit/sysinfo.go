package unit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/casscheck/internal/models"
)

// SystemInfoFileName is the file SystemInfo writes into its task directory.
const SystemInfoFileName = "system-info.yaml"

// SystemInfo snapshots host, CPU, memory, disk and load figures.
type SystemInfo struct {
	name      string
	diskPaths []string
}

// NewSystemInfo creates a system info unit reporting disk usage for each of
// diskPaths ("/" when none are given).
func NewSystemInfo(name string, diskPaths ...string) *SystemInfo {
	if len(diskPaths) == 0 {
		diskPaths = []string{"/"}
	}
	return &SystemInfo{name: name, diskPaths: diskPaths}
}

// Name returns the unit name.
func (s *SystemInfo) Name() string { return s.name }

// Description returns a one-line summary of what the unit collects.
func (s *SystemInfo) Description() string { return "Collect host CPU, memory, disk and load figures" }

// Reportable reports whether the receipt is picked up by the report.
func (s *SystemInfo) Reportable() bool { return true }

type systemSnapshot struct {
	CollectedAt time.Time      `yaml:"collected_at"`
	Host        hostSnapshot   `yaml:"host"`
	CPU         cpuSnapshot    `yaml:"cpu"`
	Memory      memorySnapshot `yaml:"memory"`
	Disks       []diskSnapshot `yaml:"disks,omitempty"`
	Load        loadSnapshot   `yaml:"load"`
	Warnings    []string       `yaml:"warnings,omitempty"`
}

type hostSnapshot struct {
	Hostname        string `yaml:"hostname"`
	OS              string `yaml:"os"`
	Platform        string `yaml:"platform"`
	PlatformVersion string `yaml:"platform_version"`
	KernelVersion   string `yaml:"kernel_version"`
	UptimeSec       uint64 `yaml:"uptime_sec"`
}

type cpuSnapshot struct {
	Model   string `yaml:"model"`
	Cores   int    `yaml:"cores"`
	Threads int    `yaml:"threads"`
}

type memorySnapshot struct {
	TotalMB     float64 `yaml:"total_mb"`
	UsedMB      float64 `yaml:"used_mb"`
	UsedPercent float64 `yaml:"used_percent"`
}

type diskSnapshot struct {
	Path        string  `yaml:"path"`
	TotalGB     float64 `yaml:"total_gb"`
	UsedGB      float64 `yaml:"used_gb"`
	UsedPercent float64 `yaml:"used_percent"`
}

type loadSnapshot struct {
	Load1  float64 `yaml:"load1"`
	Load5  float64 `yaml:"load5"`
	Load15 float64 `yaml:"load15"`
}

// Produce writes system-info.yaml. Individual probes are best-effort and
// their failures are recorded as warnings; the unit fails only when every
// probe fails.
func (s *SystemInfo) Produce(ctx context.Context, taskDir string) error {
	snap := systemSnapshot{CollectedAt: time.Now().UTC()}
	probes, failed := 0, 0
	warn := func(what string, err error) {
		failed++
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("%s: %s", what, err))
		slog.Debug("system probe failed", "unit", s.name, "probe", what, "error", err)
	}

	probes++
	if info, err := host.InfoWithContext(ctx); err != nil {
		warn("host", err)
	} else {
		snap.Host = hostSnapshot{
			Hostname:        info.Hostname,
			OS:              info.OS,
			Platform:        info.Platform,
			PlatformVersion: info.PlatformVersion,
			KernelVersion:   info.KernelVersion,
			UptimeSec:       info.Uptime,
		}
	}

	probes++
	if infos, err := cpu.InfoWithContext(ctx); err != nil {
		warn("cpu", err)
	} else if len(infos) > 0 {
		snap.CPU.Model = strings.TrimSpace(infos[0].ModelName)
	}
	if cores, err := cpu.CountsWithContext(ctx, false); err == nil {
		snap.CPU.Cores = cores
	}
	if threads, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPU.Threads = threads
	}

	probes++
	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		warn("memory", err)
	} else {
		snap.Memory = memorySnapshot{
			TotalMB:     float64(vm.Total) / 1024 / 1024,
			UsedMB:      float64(vm.Used) / 1024 / 1024,
			UsedPercent: vm.UsedPercent,
		}
	}

	for _, path := range s.diskPaths {
		probes++
		usage, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			warn("disk "+path, err)
			continue
		}
		snap.Disks = append(snap.Disks, diskSnapshot{
			Path:        path,
			TotalGB:     float64(usage.Total) / 1024 / 1024 / 1024,
			UsedGB:      float64(usage.Used) / 1024 / 1024 / 1024,
			UsedPercent: usage.UsedPercent,
		})
	}

	probes++
	if avg, err := load.AvgWithContext(ctx); err != nil {
		warn("load", err)
	} else {
		snap.Load = loadSnapshot{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}

	if failed == probes {
		return &models.UnitError{Unit: s.name, Err: errors.New(strings.Join(snap.Warnings, "; "))}
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return &models.UnitError{Unit: s.name, Err: fmt.Errorf("encoding system info: %w", err)}
	}
	path := filepath.Join(taskDir, SystemInfoFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &models.IOError{Op: "write output", Path: path, Err: err}
	}
	return nil
}
