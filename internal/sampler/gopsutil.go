package sampler

import (
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// MinimumCPUInterval is the shortest span a CPU usage delta is measured over.
// RefreshCPU calls closer together than this keep the previous readings.
const MinimumCPUInterval = 200 * time.Millisecond

// SystemHandle is the gopsutil-backed Handle. It keeps the previous CPU
// times for usage deltas and the process objects between refreshes so
// per-process CPU percentages are measured since the last refresh.
type SystemHandle struct {
	logger logr.Logger

	kernel   string
	osVer    string
	hostname string
	cores    int

	info      []cpu.InfoStat
	cpuAt     time.Time
	prevTotal *cpu.TimesStat
	prevCore  []cpu.TimesStat
	global    cpuReading
	perCore   []cpuReading

	memory MemoryReading
	swap   MemoryReading

	disks []*diskReading

	nets []net.IOCountersStat

	procs map[int32]*processReading
	order []int32
}

var _ Handle = (*SystemHandle)(nil)

// NewSystemHandle performs one full refresh so the first deltas have a base.
func NewSystemHandle(logger logr.Logger) *SystemHandle {
	h := &SystemHandle{
		logger: logger.WithName("handle"),
		procs:  make(map[int32]*processReading),
	}
	h.RefreshAll()
	return h
}

func (h *SystemHandle) RefreshAll() {
	h.refreshHost()
	h.RefreshCPU()
	h.RefreshMemory()
	h.RefreshDiskList()
	h.RefreshDisks()
	h.RefreshNetworks()
	h.RefreshProcesses()
}

func (h *SystemHandle) refreshHost() {
	if info, err := host.Info(); err == nil {
		h.kernel = info.KernelVersion
		h.hostname = info.Hostname
		h.osVer = osVersion(info)
	} else {
		h.logger.V(1).Info("host info unavailable", "error", err)
	}
	if n, err := cpu.Counts(false); err == nil {
		h.cores = n
	} else {
		h.logger.V(1).Info("physical core count unavailable", "error", err)
	}
}

// osVersion renders e.g. "Linux ubuntu 22.04".
func osVersion(info *host.InfoStat) string {
	var parts []string
	for _, p := range []string{info.OS, info.Platform, info.PlatformVersion} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		parts[0] = strings.ToUpper(parts[0][:1]) + parts[0][1:]
	}
	return strings.Join(parts, " ")
}

func (h *SystemHandle) KernelVersion() string { return h.kernel }
func (h *SystemHandle) OSVersion() string     { return h.osVer }
func (h *SystemHandle) HostName() string      { return h.hostname }
func (h *SystemHandle) PhysicalCoreCount() int {
	return h.cores
}

// RefreshCPU re-reads CPU descriptors and computes usage since the previous
// refresh from the busy/total time deltas.
func (h *SystemHandle) RefreshCPU() {
	now := time.Now()
	if !h.cpuAt.IsZero() && now.Sub(h.cpuAt) < MinimumCPUInterval {
		return
	}
	h.cpuAt = now

	if info, err := cpu.Info(); err == nil && len(info) > 0 {
		h.info = info
	} else if err != nil {
		h.logger.V(1).Info("cpu info unavailable", "error", err)
	}

	if times, err := cpu.Times(false); err == nil && len(times) > 0 {
		cur := times[0]
		usage := 0.0
		if h.prevTotal != nil {
			usage = busyPercent(*h.prevTotal, cur)
		}
		h.prevTotal = &cur
		h.global = h.reading(cur.CPU, 0, usage)
	} else if err != nil {
		h.logger.V(1).Info("cpu times unavailable", "error", err)
	}

	coreTimes, err := cpu.Times(true)
	if err != nil {
		h.logger.V(1).Info("per-core cpu times unavailable", "error", err)
		return
	}
	perCore := make([]cpuReading, len(coreTimes))
	for i, c := range coreTimes {
		usage := 0.0
		if i < len(h.prevCore) {
			usage = busyPercent(h.prevCore[i], c)
		}
		perCore[i] = h.reading(c.CPU, i, usage)
	}
	h.prevCore = coreTimes
	h.perCore = perCore
}

func busyPercent(prev, cur cpu.TimesStat) float64 {
	dt := cur.Total() - prev.Total()
	if dt <= 0 {
		return 0
	}
	di := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	return 100 * (1 - di/dt)
}

func (h *SystemHandle) reading(name string, idx int, usage float64) cpuReading {
	r := cpuReading{name: name, usage: usage}
	if len(h.info) == 0 {
		return r
	}
	info := h.info[0]
	if idx < len(h.info) {
		info = h.info[idx]
	}
	r.brand = strings.TrimSpace(info.ModelName)
	r.vendor = info.VendorID
	r.hz = uint64(info.Mhz * 1e6)
	return r
}

func (h *SystemHandle) GlobalCPU() CPUReading { return h.global }

func (h *SystemHandle) CPUs() []CPUReading {
	out := make([]CPUReading, len(h.perCore))
	for i := range h.perCore {
		out[i] = h.perCore[i]
	}
	return out
}

// RefreshMemory reads RAM and swap together. Free RAM is what the kernel
// reports as available, so used excludes reclaimable cache.
func (h *SystemHandle) RefreshMemory() {
	if vm, err := mem.VirtualMemory(); err == nil {
		h.memory = MemoryReading{Total: vm.Total, Free: vm.Available}
	} else {
		h.logger.V(1).Info("virtual memory unavailable", "error", err)
	}
	if sw, err := mem.SwapMemory(); err == nil {
		h.swap = MemoryReading{Total: sw.Total, Free: sw.Free}
	} else {
		h.logger.V(1).Info("swap memory unavailable", "error", err)
	}
}

func (h *SystemHandle) Memory() MemoryReading { return h.memory }
func (h *SystemHandle) Swap() MemoryReading   { return h.swap }

// RefreshDiskList re-enumerates physical partitions.
func (h *SystemHandle) RefreshDiskList() {
	parts, err := disk.Partitions(false)
	if err != nil {
		h.logger.V(1).Info("disk partitions unavailable", "error", err)
		return
	}
	h.disks = make([]*diskReading, 0, len(parts))
	for _, p := range parts {
		kind, removable := blockDeviceInfo(sysRoot, p.Device)
		h.disks = append(h.disks, &diskReading{
			name:      p.Device,
			mount:     p.Mountpoint,
			fs:        []byte(p.Fstype),
			kind:      kind,
			removable: removable,
		})
	}
}

// RefreshDisks updates space counters of the known partitions.
func (h *SystemHandle) RefreshDisks() {
	for _, d := range h.disks {
		usage, err := disk.Usage(d.mount)
		if err != nil {
			h.logger.V(1).Info("disk usage unavailable", "mountPoint", d.mount, "error", err)
			continue
		}
		d.total, d.free = usage.Total, usage.Free
	}
}

func (h *SystemHandle) Disks() []DiskReading {
	out := make([]DiskReading, len(h.disks))
	for i, d := range h.disks {
		out[i] = d
	}
	return out
}

func (h *SystemHandle) RefreshNetworks() {
	nets, err := net.IOCounters(true)
	if err != nil {
		h.logger.V(1).Info("network counters unavailable", "error", err)
		return
	}
	h.nets = nets
}

func (h *SystemHandle) Networks() []NetworkReading {
	out := make([]NetworkReading, len(h.nets))
	for i, n := range h.nets {
		out[i] = netReading{stat: n}
	}
	return out
}

// RefreshProcesses rebuilds the process table. Name, memory and status come
// from the freshly enumerated process every time. The previous refresh's
// process object is kept only as the Percent(0) baseline, and only while the
// pid still belongs to the same process (same create time).
func (h *SystemHandle) RefreshProcesses() {
	procs, err := process.Processes()
	if err != nil {
		h.logger.V(1).Info("process list unavailable", "error", err)
		return
	}
	next := make(map[int32]*processReading, len(procs))
	order := make([]int32, 0, len(procs))
	for _, p := range procs {
		created, _ := p.CreateTime()
		r := &processReading{proc: p, created: created}
		if prev, ok := h.procs[p.Pid]; ok && created != 0 && prev.created == created {
			r.proc = prev.proc
		}
		r.name, _ = p.Name()
		r.cpu, _ = r.proc.Percent(0)
		if mi, err := p.MemoryInfo(); err == nil && mi != nil {
			r.rss = mi.RSS
		}
		if st, err := p.Status(); err == nil && len(st) > 0 {
			r.state = stateOf(st[0])
		}
		next[p.Pid] = r
		order = append(order, p.Pid)
	}
	h.procs, h.order = next, order
}

func stateOf(status string) ProcessState {
	switch status {
	case process.Running:
		return StateRunning
	case process.Sleep:
		return StateSleeping
	case process.Stop:
		return StateStopped
	case process.Idle:
		return StateIdle
	case process.Zombie:
		return StateZombie
	default:
		return StateUnknown
	}
}

func (h *SystemHandle) Processes() []ProcessReading {
	out := make([]ProcessReading, 0, len(h.order))
	for _, pid := range h.order {
		out = append(out, h.procs[pid])
	}
	return out
}

func (h *SystemHandle) Process(pid int32) (ProcessReading, bool) {
	p, ok := h.procs[pid]
	if !ok {
		return nil, false
	}
	return p, true
}

type cpuReading struct {
	name   string
	usage  float64
	brand  string
	hz     uint64
	vendor string
}

func (c cpuReading) Name() string      { return c.name }
func (c cpuReading) Usage() float64    { return c.usage }
func (c cpuReading) Brand() string     { return c.brand }
func (c cpuReading) Frequency() uint64 { return c.hz }
func (c cpuReading) VendorID() string  { return c.vendor }

type diskReading struct {
	name      string
	mount     string
	fs        []byte
	kind      DiskKind
	removable bool
	total     uint64
	free      uint64
}

func (d *diskReading) Name() string           { return d.name }
func (d *diskReading) MountPoint() string     { return d.mount }
func (d *diskReading) FileSystem() []byte     { return d.fs }
func (d *diskReading) Kind() DiskKind         { return d.kind }
func (d *diskReading) IsRemovable() bool      { return d.removable }
func (d *diskReading) TotalSpace() uint64     { return d.total }
func (d *diskReading) AvailableSpace() uint64 { return d.free }

type netReading struct{ stat net.IOCountersStat }

func (n netReading) Name() string        { return n.stat.Name }
func (n netReading) Received() uint64    { return n.stat.BytesRecv }
func (n netReading) Transmitted() uint64 { return n.stat.BytesSent }

type processReading struct {
	proc    *process.Process // CPU-time baseline holder
	created int64
	name    string
	cpu     float64
	rss     uint64
	state   ProcessState
}

func (p *processReading) PID() int32          { return p.proc.Pid }
func (p *processReading) Name() string        { return p.name }
func (p *processReading) CPUUsage() float64   { return p.cpu }
func (p *processReading) Memory() uint64      { return p.rss }
func (p *processReading) State() ProcessState { return p.state }
func (p *processReading) Kill() error         { return p.proc.Kill() }
