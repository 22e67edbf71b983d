package sampler

import (
	"strconv"
	"unicode/utf8"

	"github.com/Dicklesworthstone/snapmon/internal/model"
)

func orUnknown(s string) string {
	if s == "" {
		return model.Unknown
	}
	return s
}

func toGlobalCPU(c CPUReading, ts model.Timestamp) model.GlobalCPU {
	return model.GlobalCPU{
		Usage:     c.Usage(),
		Brand:     c.Brand(),
		Frequency: c.Frequency(),
		Name:      c.Name(),
		Vendor:    c.VendorID(),
		Timestamp: ts,
	}
}

// Per-core usage is already on a 0-100 scale; it goes through Percentage
// against 100 only for the rounding.
func toCPU(c CPUReading, ts model.Timestamp) model.CPU {
	return model.CPU{
		Name:      c.Name(),
		Usage:     Percentage(c.Usage(), 100),
		Timestamp: ts,
	}
}

func toMemory(m MemoryReading, ts model.Timestamp) model.Memory {
	used, free := usedBytes(m.Total, m.Free)
	return model.Memory{
		Free:           free,
		Total:          m.Total,
		Used:           used,
		UsedPercentage: Percentage(float64(used), float64(m.Total)),
		Timestamp:      ts,
	}
}

func toSwap(m MemoryReading, ts model.Timestamp) model.Swap {
	used, free := usedBytes(m.Total, m.Free)
	return model.Swap{
		Free:           free,
		Total:          m.Total,
		Used:           used,
		UsedPercentage: Percentage(float64(used), float64(m.Total)),
		Timestamp:      ts,
	}
}

// diskName prefers the raw device name, then the mount point.
func diskName(name, mountPoint string) string {
	switch {
	case !utf8.ValidString(name):
		return model.Unknown
	case name != "":
		return name
	case mountPoint != "" && utf8.ValidString(mountPoint):
		return mountPoint
	default:
		return model.Unknown
	}
}

// decodeLabel reports false when raw is not valid UTF-8.
func decodeLabel(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return model.Unknown, false
	}
	return string(raw), true
}

// toDisk reports false when the filesystem label had to be replaced with
// Unknown.
func toDisk(d DiskReading, ts model.Timestamp) (model.Disk, bool) {
	total := d.TotalSpace()
	used, free := usedBytes(total, d.AvailableSpace())
	fs, labelOK := decodeLabel(d.FileSystem())
	return model.Disk{
		Name:           diskName(d.Name(), d.MountPoint()),
		Free:           free,
		Total:          total,
		Used:           used,
		UsedPercentage: Percentage(float64(used), float64(total)),
		MountPoint:     d.MountPoint(),
		FileSystem:     fs,
		DiskType:       d.Kind().Label(),
		IsRemovable:    d.IsRemovable(),
		Timestamp:      ts,
	}, labelOK
}

func toNetwork(n NetworkReading, ts model.Timestamp) model.Network {
	return model.Network{
		Name:        n.Name(),
		Received:    n.Received(),
		Transmitted: n.Transmitted(),
		Timestamp:   ts,
	}
}

// toProcess divides the per-core usage sum by the physical core count so the
// result reads as a share of the whole machine.
func toProcess(p ProcessReading, cores int) model.Process {
	if cores <= 0 {
		cores = 1
	}
	return model.Process{
		Name:        p.Name(),
		PID:         strconv.FormatInt(int64(p.PID()), 10),
		CPUUsage:    Round2(p.CPUUsage() / float64(cores)),
		MemoryUsage: p.Memory(),
		Status:      p.State().Label(),
	}
}
