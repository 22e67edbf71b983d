package sampler

import (
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/Dicklesworthstone/snapmon/internal/model"
)

// Subsystem names the part of the handle a query refreshes.
type Subsystem int

const (
	SubsystemAll Subsystem = iota
	SubsystemCPU
	SubsystemMemory
	SubsystemDisks
	SubsystemNetworks
	SubsystemProcesses
)

func (s Subsystem) String() string {
	switch s {
	case SubsystemAll:
		return "all"
	case SubsystemCPU:
		return "cpu"
	case SubsystemMemory:
		return "memory"
	case SubsystemDisks:
		return "disks"
	case SubsystemNetworks:
		return "networks"
	case SubsystemProcesses:
		return "processes"
	default:
		return "unknown"
	}
}

// Sampler turns a Handle into normalized records. Every query takes the one
// mutex for its whole refresh-and-read sequence, so concurrent callers are
// served one at a time and never see fields from two refreshes.
type Sampler struct {
	mu     sync.Mutex
	handle Handle

	logger logr.Logger
	now    func() time.Time
	hook   func(Subsystem)
}

// Option configures a Sampler.
type Option func(*Sampler)

func WithLogger(logger logr.Logger) Option {
	return func(s *Sampler) { s.logger = logger }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

// WithRefreshHook installs fn to run after each refresh and before the read,
// with the lock held.
func WithRefreshHook(fn func(Subsystem)) Option {
	return func(s *Sampler) { s.hook = fn }
}

func New(handle Handle, opts ...Option) *Sampler {
	s := &Sampler{
		handle: handle,
		logger: logr.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sampler) stamp() model.Timestamp { return model.At(s.now()) }

func (s *Sampler) refreshed(sub Subsystem) {
	if s.hook != nil {
		s.hook(sub)
	}
}

// SystemInfo refreshes everything and reports host identity.
func (s *Sampler) SystemInfo() model.SystemInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle.RefreshAll()
	s.refreshed(SubsystemAll)

	return model.SystemInfo{
		KernelVersion: orUnknown(s.handle.KernelVersion()),
		OSVersion:     orUnknown(s.handle.OSVersion()),
		Hostname:      orUnknown(s.handle.HostName()),
		CoreCount:     strconv.Itoa(s.handle.PhysicalCoreCount()),
		Timestamp:     s.stamp(),
	}
}

func (s *Sampler) GlobalCPU() model.GlobalCPU {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle.RefreshCPU()
	s.refreshed(SubsystemCPU)

	return toGlobalCPU(s.handle.GlobalCPU(), s.stamp())
}

// CPUs returns one record per logical core in enumeration order.
func (s *Sampler) CPUs() []model.CPU {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle.RefreshCPU()
	s.refreshed(SubsystemCPU)

	readings := s.handle.CPUs()
	cpus := make([]model.CPU, 0, len(readings))
	for _, c := range readings {
		cpus = append(cpus, toCPU(c, s.stamp()))
	}
	return cpus
}

func (s *Sampler) Memory() model.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle.RefreshMemory()
	s.refreshed(SubsystemMemory)

	return toMemory(s.handle.Memory(), s.stamp())
}

func (s *Sampler) Swap() model.Swap {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle.RefreshMemory()
	s.refreshed(SubsystemMemory)

	return toSwap(s.handle.Swap(), s.stamp())
}

// Disks re-enumerates mounted volumes before reading their counters so
// newly mounted or removed volumes show up.
func (s *Sampler) Disks() []model.Disk {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle.RefreshDiskList()
	s.handle.RefreshDisks()
	s.refreshed(SubsystemDisks)

	readings := s.handle.Disks()
	disks := make([]model.Disk, 0, len(readings))
	for _, d := range readings {
		rec, labelOK := toDisk(d, s.stamp())
		if !labelOK {
			s.logger.Info("filesystem label is not valid UTF-8, reporting Unknown",
				"mountPoint", d.MountPoint(), "raw", d.FileSystem())
		}
		disks = append(disks, rec)
	}
	return disks
}

func (s *Sampler) Networks() []model.Network {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle.RefreshNetworks()
	s.refreshed(SubsystemNetworks)

	readings := s.handle.Networks()
	networks := make([]model.Network, 0, len(readings))
	for _, n := range readings {
		networks = append(networks, toNetwork(n, s.stamp()))
	}
	return networks
}

// Processes refreshes the process table. It is also the only call that
// updates the table Terminate looks pids up in.
func (s *Sampler) Processes() []model.Process {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle.RefreshProcesses()
	s.refreshed(SubsystemProcesses)

	cores := s.handle.PhysicalCoreCount()
	readings := s.handle.Processes()
	procs := make([]model.Process, 0, len(readings))
	for _, p := range readings {
		procs = append(procs, toProcess(p, cores))
	}
	return procs
}

// Terminate force-kills pid if it is present in the last refreshed process
// table. Bad input, an unknown pid and a refused signal all report false.
func (s *Sampler) Terminate(pid string) bool {
	n, err := strconv.ParseInt(pid, 10, 32)
	if err != nil {
		s.logger.V(1).Info("terminate: invalid pid", "pid", pid, "error", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.handle.Process(int32(n))
	if !ok {
		s.logger.V(1).Info("terminate: pid not in process table", "pid", n)
		return false
	}
	if err := p.Kill(); err != nil {
		s.logger.V(1).Info("terminate: signal not delivered", "pid", n, "error", err)
		return false
	}
	s.logger.Info("terminated process", "pid", n, "name", p.Name())
	return true
}

// Snapshot runs every query once, each under its own lock acquisition.
func (s *Sampler) Snapshot() model.Snapshot {
	return model.Snapshot{
		System:    s.SystemInfo(),
		GlobalCPU: s.GlobalCPU(),
		CPUs:      s.CPUs(),
		Memory:    s.Memory(),
		Swap:      s.Swap(),
		Disks:     s.Disks(),
		Networks:  s.Networks(),
		Processes: s.Processes(),
	}
}
