package disk

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nixdots/nixdots-install/internal/common"
)

// BlockDevice is one row of lsblk output.
type BlockDevice struct {
	Name  string `json:"name"`
	Size  string `json:"size"`
	Type  string `json:"type"`
	Model string `json:"model"`
}

type lsblkOutput struct {
	BlockDevices []BlockDevice `json:"blockdevices"`
}

// List returns the whole disks known to the kernel.
func List(ctx context.Context, r common.Runner) ([]BlockDevice, error) {
	out, err := r.Output(ctx, "lsblk", "--json", "--nodeps", "--output", "NAME,SIZE,TYPE,MODEL")
	if err != nil {
		return nil, err
	}
	return parseLsblk([]byte(out))
}

func parseLsblk(data []byte) ([]BlockDevice, error) {
	var parsed lsblkOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse lsblk output: %w", err)
	}
	disks := make([]BlockDevice, 0, len(parsed.BlockDevices))
	for _, d := range parsed.BlockDevices {
		if d.Type == "disk" {
			disks = append(disks, d)
		}
	}
	return disks, nil
}

// PrintList writes the available disks as a table.
func PrintList(disks []BlockDevice) {
	if len(disks) == 0 {
		common.Warning("No disks found")
		return
	}
	common.Info("Available disks:")
	for _, d := range disks {
		fmt.Fprintf(common.Out, "  %s %8s  %s\n", common.Highlight(fmt.Sprintf("%-12s", d.Name)), d.Size, d.Model)
	}
	fmt.Fprintln(common.Out)
}
