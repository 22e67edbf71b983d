package sampler

// Handle is the platform enumeration facility owned by a Sampler. It caches
// whatever it read on the last refresh of each subsystem; readers return that
// cached state and never touch the OS themselves. A Handle is not safe for
// concurrent use; the Sampler serializes every access.
type Handle interface {
	RefreshAll()
	RefreshCPU()
	RefreshMemory() // memory and swap come from one refresh
	RefreshDiskList()
	RefreshDisks()
	RefreshNetworks()
	RefreshProcesses()

	// Empty strings and zero mean "not reported".
	KernelVersion() string
	OSVersion() string
	HostName() string
	PhysicalCoreCount() int

	GlobalCPU() CPUReading
	CPUs() []CPUReading
	Memory() MemoryReading
	Swap() MemoryReading
	Disks() []DiskReading
	Networks() []NetworkReading
	Processes() []ProcessReading

	// Process looks pid up in the table captured by the last RefreshProcesses.
	Process(pid int32) (ProcessReading, bool)
}

// CPUReading is anything exposing a CPU's usage and identity.
type CPUReading interface {
	Name() string
	Usage() float64 // percent 0-100
	Brand() string
	Frequency() uint64 // Hz
	VendorID() string
}

// MemoryReading holds raw byte counters for RAM or swap.
type MemoryReading struct {
	Total uint64
	Free  uint64
}

// DiskReading is a mounted volume as the platform reports it.
type DiskReading interface {
	Name() string
	MountPoint() string
	FileSystem() []byte
	Kind() DiskKind
	IsRemovable() bool
	TotalSpace() uint64
	AvailableSpace() uint64
}

// NetworkReading carries cumulative counters for one interface.
type NetworkReading interface {
	Name() string
	Received() uint64
	Transmitted() uint64
}

// ProcessReading is one entry of the cached process table.
type ProcessReading interface {
	PID() int32
	Name() string
	CPUUsage() float64 // summed across cores, may exceed 100
	Memory() uint64    // resident bytes
	State() ProcessState
	// Kill delivers a forceful termination signal.
	Kill() error
}
