package sampler

import (
	"errors"
	"fmt"
)

type fakeCPU struct {
	name   string
	usage  float64
	brand  string
	hz     uint64
	vendor string
}

func (c fakeCPU) Name() string      { return c.name }
func (c fakeCPU) Usage() float64    { return c.usage }
func (c fakeCPU) Brand() string     { return c.brand }
func (c fakeCPU) Frequency() uint64 { return c.hz }
func (c fakeCPU) VendorID() string  { return c.vendor }

type fakeDisk struct {
	name      string
	mount     string
	fs        []byte
	kind      DiskKind
	removable bool
	total     uint64
	free      uint64
}

func (d fakeDisk) Name() string           { return d.name }
func (d fakeDisk) MountPoint() string     { return d.mount }
func (d fakeDisk) FileSystem() []byte     { return d.fs }
func (d fakeDisk) Kind() DiskKind         { return d.kind }
func (d fakeDisk) IsRemovable() bool      { return d.removable }
func (d fakeDisk) TotalSpace() uint64     { return d.total }
func (d fakeDisk) AvailableSpace() uint64 { return d.free }

type fakeNet struct {
	name   string
	rx, tx uint64
}

func (n fakeNet) Name() string        { return n.name }
func (n fakeNet) Received() uint64    { return n.rx }
func (n fakeNet) Transmitted() uint64 { return n.tx }

type fakeProc struct {
	pid     int32
	name    string
	cpu     float64
	rss     uint64
	state   ProcessState
	killErr error
	killed  int
}

func (p *fakeProc) PID() int32          { return p.pid }
func (p *fakeProc) Name() string        { return p.name }
func (p *fakeProc) CPUUsage() float64   { return p.cpu }
func (p *fakeProc) Memory() uint64      { return p.rss }
func (p *fakeProc) State() ProcessState { return p.state }
func (p *fakeProc) Kill() error {
	if p.killErr != nil {
		return p.killErr
	}
	p.killed++
	return nil
}

var errPermission = errors.New("operation not permitted")

// fakeHandle records every call. When genNames is set, disk and process
// names carry the refresh generation they were read in.
type fakeHandle struct {
	calls []string

	kernel, osVer, host string
	cores               int

	global   fakeCPU
	cpus     []fakeCPU
	memory   MemoryReading
	swap     MemoryReading
	disks    []fakeDisk
	nets     []fakeNet
	live     []*fakeProc
	table    map[int32]*fakeProc
	order    []int32
	lookups  int
	gen      int
	genNames bool
}

func (h *fakeHandle) refresh(name string) {
	h.calls = append(h.calls, name)
	h.gen++
}

func (h *fakeHandle) RefreshAll()      { h.refresh("all") }
func (h *fakeHandle) RefreshCPU()      { h.refresh("cpu") }
func (h *fakeHandle) RefreshMemory()   { h.refresh("memory") }
func (h *fakeHandle) RefreshDiskList() { h.refresh("disklist") }
func (h *fakeHandle) RefreshDisks()    { h.refresh("disks") }
func (h *fakeHandle) RefreshNetworks() { h.refresh("networks") }
func (h *fakeHandle) RefreshProcesses() {
	h.refresh("processes")
	h.table = make(map[int32]*fakeProc, len(h.live))
	h.order = h.order[:0]
	for _, p := range h.live {
		h.table[p.pid] = p
		h.order = append(h.order, p.pid)
	}
}

func (h *fakeHandle) KernelVersion() string  { return h.kernel }
func (h *fakeHandle) OSVersion() string      { return h.osVer }
func (h *fakeHandle) HostName() string       { return h.host }
func (h *fakeHandle) PhysicalCoreCount() int { return h.cores }

func (h *fakeHandle) GlobalCPU() CPUReading { return h.global }

func (h *fakeHandle) CPUs() []CPUReading {
	out := make([]CPUReading, len(h.cpus))
	for i, c := range h.cpus {
		out[i] = c
	}
	return out
}

func (h *fakeHandle) Memory() MemoryReading { return h.memory }
func (h *fakeHandle) Swap() MemoryReading   { return h.swap }

func (h *fakeHandle) Disks() []DiskReading {
	if h.genNames {
		return []DiskReading{fakeDisk{name: fmt.Sprintf("gen-%d", h.gen), total: 10, free: 4}}
	}
	out := make([]DiskReading, len(h.disks))
	for i, d := range h.disks {
		out[i] = d
	}
	return out
}

func (h *fakeHandle) Networks() []NetworkReading {
	out := make([]NetworkReading, len(h.nets))
	for i, n := range h.nets {
		out[i] = n
	}
	return out
}

func (h *fakeHandle) Processes() []ProcessReading {
	if h.genNames {
		return []ProcessReading{&fakeProc{pid: 1, name: fmt.Sprintf("gen-%d", h.gen)}}
	}
	out := make([]ProcessReading, 0, len(h.order))
	for _, pid := range h.order {
		out = append(out, h.table[pid])
	}
	return out
}

func (h *fakeHandle) Process(pid int32) (ProcessReading, bool) {
	h.lookups++
	p, ok := h.table[pid]
	if !ok {
		return nil, false
	}
	return p, true
}
