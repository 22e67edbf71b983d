package model

import "time"

// Unknown is the text substituted for any string the OS does not report.
const Unknown = "Unknown"

// Timestamp is milliseconds since the Unix epoch.
type Timestamp int64

// Now returns the current wall-clock time as a Timestamp.
func Now() Timestamp { return At(time.Now()) }

// At converts t to a Timestamp.
func At(t time.Time) Timestamp { return Timestamp(t.UnixMilli()) }

// Time converts the timestamp back to a time.Time.
func (t Timestamp) Time() time.Time { return time.UnixMilli(int64(t)) }

// SystemInfo describes the host itself.
type SystemInfo struct {
	KernelVersion string    `json:"kernelVersion"`
	OSVersion     string    `json:"osVersion"`
	Hostname      string    `json:"hostname"`
	CoreCount     string    `json:"coreCount"` // physical cores, decimal
	Timestamp     Timestamp `json:"timestamp"`
}

// GlobalCPU is the aggregate CPU descriptor.
type GlobalCPU struct {
	Usage     float64   `json:"usage"` // percent 0-100
	Brand     string    `json:"brand"`
	Frequency uint64    `json:"frequency"` // Hz
	Name      string    `json:"name"`
	Vendor    string    `json:"vendor"`
	Timestamp Timestamp `json:"timestamp"`
}

// CPU is one logical core.
type CPU struct {
	Name      string    `json:"name"`
	Usage     float64   `json:"usage"`
	Timestamp Timestamp `json:"timestamp"`
}

// Memory captures RAM usage in bytes.
type Memory struct {
	Free           uint64    `json:"free"`
	Total          uint64    `json:"total"`
	Used           uint64    `json:"used"`
	UsedPercentage float64   `json:"usedPercentage"`
	Timestamp      Timestamp `json:"timestamp"`
}

// Swap captures swap usage in bytes.
type Swap struct {
	Free           uint64    `json:"free"`
	Total          uint64    `json:"total"`
	Used           uint64    `json:"used"`
	UsedPercentage float64   `json:"usedPercentage"`
	Timestamp      Timestamp `json:"timestamp"`
}

// Disk is a mounted volume.
type Disk struct {
	Name           string    `json:"name"`
	Free           uint64    `json:"free"`
	Total          uint64    `json:"total"`
	Used           uint64    `json:"used"`
	UsedPercentage float64   `json:"usedPercentage"`
	MountPoint     string    `json:"mountPoint"`
	FileSystem     string    `json:"fileSystem"`
	DiskType       string    `json:"diskType"` // HDD, SSD or Unknown
	IsRemovable    bool      `json:"isRemovable"`
	Timestamp      Timestamp `json:"timestamp"`
}

// Network holds cumulative byte counters for one interface.
type Network struct {
	Name        string    `json:"name"`
	Received    uint64    `json:"received"`
	Transmitted uint64    `json:"transmitted"`
	Timestamp   Timestamp `json:"timestamp"`
}

// Process is one entry of the process table.
type Process struct {
	Name        string  `json:"name"`
	PID         string  `json:"pid"`
	CPUUsage    float64 `json:"cpuUsage"` // whole-machine percent
	MemoryUsage uint64  `json:"memoryUsage"`
	Status      string  `json:"status"`
}

// Snapshot bundles every record kind for the JSON exporter and the dashboard.
type Snapshot struct {
	System    SystemInfo `json:"system"`
	GlobalCPU GlobalCPU  `json:"globalCpu"`
	CPUs      []CPU      `json:"cpus"`
	Memory    Memory     `json:"memory"`
	Swap      Swap       `json:"swap"`
	Disks     []Disk     `json:"disks"`
	Networks  []Network  `json:"networks"`
	Processes []Process  `json:"processes"`
}
