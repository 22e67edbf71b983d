//go:build linux

package sampler

import (
	"os"
	"path/filepath"
	"strings"
)

const sysRoot = "/sys"

// blockDeviceInfo classifies device through sysfs. Partitions are resolved
// to their parent disk, whose queue/rotational and removable flags apply.
func blockDeviceInfo(root, device string) (DiskKind, bool) {
	if resolved, err := filepath.EvalSymlinks(device); err == nil {
		device = resolved
	}
	dir, err := filepath.EvalSymlinks(filepath.Join(root, "class", "block", filepath.Base(device)))
	if err != nil {
		return DiskKindUnknown, false
	}
	if _, err := os.Stat(filepath.Join(dir, "partition")); err == nil {
		dir = filepath.Dir(dir)
	}

	kind := DiskKindUnknown
	switch readFlag(filepath.Join(dir, "queue", "rotational")) {
	case "1":
		kind = DiskKindRotational
	case "0":
		kind = DiskKindSolidState
	}
	return kind, readFlag(filepath.Join(dir, "removable")) == "1"
}

func readFlag(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
