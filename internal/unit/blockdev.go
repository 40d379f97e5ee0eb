package unit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaypipes/ghw"

	"github.com/spachava753/casscheck/internal/models"
)

// BlockDevicesFileName is the file BlockDevices writes into its task directory.
const BlockDevicesFileName = "block-devices.txt"

// BlockDevices records the disks and partitions visible to the host.
type BlockDevices struct {
	name string
}

// NewBlockDevices creates a block device inventory unit.
func NewBlockDevices(name string) *BlockDevices {
	return &BlockDevices{name: name}
}

// Name returns the unit name.
func (b *BlockDevices) Name() string { return b.name }

// Description returns a one-line summary of what the unit collects.
func (b *BlockDevices) Description() string { return "Collect block device and partition inventory" }

// Reportable reports whether the receipt is picked up by the report.
func (b *BlockDevices) Reportable() bool { return true }

// Produce writes block-devices.txt from the ghw block inventory.
func (b *BlockDevices) Produce(ctx context.Context, taskDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := ghw.Block()
	if err != nil {
		return &models.UnitError{Unit: b.name, Err: fmt.Errorf("reading block devices: %w", err)}
	}

	var sb strings.Builder
	sb.WriteString(info.String())
	sb.WriteString("\n")
	for _, d := range info.Disks {
		sb.WriteString("\n")
		sb.WriteString(d.String())
		sb.WriteString("\n")
		for _, p := range d.Partitions {
			sb.WriteString("  ")
			sb.WriteString(p.String())
			sb.WriteString("\n")
		}
	}

	path := filepath.Join(taskDir, BlockDevicesFileName)
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return &models.IOError{Op: "write output", Path: path, Err: err}
	}
	return nil
}
