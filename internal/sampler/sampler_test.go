package sampler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/snapmon/internal/model"
)

var fixedNow = time.UnixMilli(1_700_000_000_123)

func newTestSampler(t *testing.T, h Handle, opts ...Option) *Sampler {
	t.Helper()
	opts = append([]Option{WithLogger(testr.New(t)), WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(h, opts...)
}

func TestSystemInfo(t *testing.T) {
	t.Run("reported values", func(t *testing.T) {
		h := &fakeHandle{kernel: "6.8.0", osVer: "Linux ubuntu 24.04", host: "box", cores: 8}
		info := newTestSampler(t, h).SystemInfo()

		assert.Equal(t, model.SystemInfo{
			KernelVersion: "6.8.0",
			OSVersion:     "Linux ubuntu 24.04",
			Hostname:      "box",
			CoreCount:     "8",
			Timestamp:     model.At(fixedNow),
		}, info)
		assert.Equal(t, []string{"all"}, h.calls)
	})

	t.Run("missing values degrade", func(t *testing.T) {
		info := newTestSampler(t, &fakeHandle{}).SystemInfo()

		assert.Equal(t, model.Unknown, info.KernelVersion)
		assert.Equal(t, model.Unknown, info.OSVersion)
		assert.Equal(t, model.Unknown, info.Hostname)
		assert.Equal(t, "0", info.CoreCount)
	})
}

func TestGlobalCPU(t *testing.T) {
	h := &fakeHandle{global: fakeCPU{name: "cpu-total", usage: 37.5, brand: "Ryzen", hz: 3_600_000_000, vendor: "AuthenticAMD"}}
	got := newTestSampler(t, h).GlobalCPU()

	assert.Equal(t, model.GlobalCPU{
		Usage:     37.5,
		Brand:     "Ryzen",
		Frequency: 3_600_000_000,
		Name:      "cpu-total",
		Vendor:    "AuthenticAMD",
		Timestamp: model.At(fixedNow),
	}, got)
	assert.Equal(t, []string{"cpu"}, h.calls)
}

func TestCPUs(t *testing.T) {
	h := &fakeHandle{cpus: []fakeCPU{
		{name: "cpu0", usage: 12.3456},
		{name: "cpu1", usage: 0},
		{name: "cpu2", usage: 100},
	}}
	cpus := newTestSampler(t, h).CPUs()

	require.Len(t, cpus, 3)
	assert.Equal(t, "cpu0", cpus[0].Name)
	assert.Equal(t, 12.35, cpus[0].Usage)
	assert.Equal(t, "cpu1", cpus[1].Name)
	assert.Equal(t, 0.0, cpus[1].Usage)
	assert.Equal(t, 100.0, cpus[2].Usage)
	assert.Equal(t, []string{"cpu"}, h.calls, "cpus must refresh on their own")
}

func TestMemoryAndSwap(t *testing.T) {
	tests := []struct {
		name        string
		reading     MemoryReading
		wantUsed    uint64
		wantFree    uint64
		wantPercent float64
	}{
		{name: "normal", reading: MemoryReading{Total: 8000, Free: 2000}, wantUsed: 6000, wantFree: 2000, wantPercent: 75},
		{name: "thirds", reading: MemoryReading{Total: 3, Free: 2}, wantUsed: 1, wantFree: 2, wantPercent: 33.33},
		{name: "zero total", reading: MemoryReading{}, wantUsed: 0, wantFree: 0, wantPercent: 0},
		{name: "free above total", reading: MemoryReading{Total: 100, Free: 150}, wantUsed: 0, wantFree: 100, wantPercent: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHandle{memory: tt.reading, swap: tt.reading}
			s := newTestSampler(t, h)

			m := s.Memory()
			assert.Equal(t, tt.wantUsed, m.Used)
			assert.Equal(t, tt.wantFree, m.Free)
			assert.Equal(t, m.Total-m.Free, m.Used)
			assert.Equal(t, tt.wantPercent, m.UsedPercentage)

			sw := s.Swap()
			assert.Equal(t, tt.wantUsed, sw.Used)
			assert.Equal(t, sw.Total-sw.Free, sw.Used)
			assert.Equal(t, tt.wantPercent, sw.UsedPercentage)

			assert.Equal(t, []string{"memory", "memory"}, h.calls)
		})
	}
}

func TestDisks(t *testing.T) {
	h := &fakeHandle{disks: []fakeDisk{
		{name: "/dev/nvme0n1p2", mount: "/", fs: []byte("ext4"), kind: DiskKindSolidState, total: 1000, free: 250},
		{name: "", mount: "/mnt/usb", fs: []byte("vfat"), kind: DiskKindRotational, removable: true, total: 10, free: 10},
		{name: "", mount: "", fs: []byte{0xff, 0xfe}, kind: DiskKind(99), total: 0, free: 0},
	}}
	disks := newTestSampler(t, h).Disks()

	require.Len(t, disks, 3)
	assert.Equal(t, []string{"disklist", "disks"}, h.calls)

	root := disks[0]
	assert.Equal(t, "/dev/nvme0n1p2", root.Name)
	assert.Equal(t, uint64(750), root.Used)
	assert.Equal(t, 75.0, root.UsedPercentage)
	assert.Equal(t, "ext4", root.FileSystem)
	assert.Equal(t, "SSD", root.DiskType)
	assert.False(t, root.IsRemovable)

	usb := disks[1]
	assert.Equal(t, "/mnt/usb", usb.Name)
	assert.Equal(t, uint64(0), usb.Used)
	assert.Equal(t, "HDD", usb.DiskType)
	assert.True(t, usb.IsRemovable)

	odd := disks[2]
	assert.Equal(t, model.Unknown, odd.Name)
	assert.Equal(t, model.Unknown, odd.FileSystem)
	assert.Equal(t, model.Unknown, odd.DiskType)
	assert.Equal(t, 0.0, odd.UsedPercentage)

	for _, d := range disks {
		assert.Equal(t, d.Total-d.Free, d.Used)
	}
}

func TestDisksWarnOnlyForUndecodableLabels(t *testing.T) {
	var warnings []string
	logger := funcr.New(func(prefix, args string) {
		warnings = append(warnings, args)
	}, funcr.Options{})
	h := &fakeHandle{disks: []fakeDisk{
		{name: "/dev/sda1", mount: "/", fs: []byte("ext4"), total: 10, free: 5},
		{name: "/dev/sdb1", mount: "/data", fs: []byte{0xff}, total: 10, free: 5},
	}}
	disks := newTestSampler(t, h, WithLogger(logger)).Disks()

	require.Len(t, disks, 2)
	assert.Equal(t, model.Unknown, disks[1].FileSystem)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `"mountPoint"="/data"`)

	_, ok := toDisk(fakeDisk{fs: []byte("xfs")}, 0)
	assert.True(t, ok)
	rec, ok := toDisk(fakeDisk{fs: []byte{0xc3, 0x28}}, 0)
	assert.False(t, ok)
	assert.Equal(t, model.Unknown, rec.FileSystem)
}

func TestNetworks(t *testing.T) {
	h := &fakeHandle{nets: []fakeNet{{name: "eth0", rx: 1024, tx: 2048}, {name: "lo", rx: 5, tx: 5}}}
	nets := newTestSampler(t, h).Networks()

	assert.Equal(t, []model.Network{
		{Name: "eth0", Received: 1024, Transmitted: 2048, Timestamp: model.At(fixedNow)},
		{Name: "lo", Received: 5, Transmitted: 5, Timestamp: model.At(fixedNow)},
	}, nets)
	assert.Equal(t, []string{"networks"}, h.calls)
}

func TestProcesses(t *testing.T) {
	tests := []struct {
		name    string
		cores   int
		raw     float64
		wantCPU float64
	}{
		{name: "four cores", cores: 4, raw: 50, wantCPU: 12.5},
		{name: "three cores", cores: 3, raw: 100, wantCPU: 33.33},
		{name: "unknown core count", cores: 0, raw: 33.3333, wantCPU: 33.33},
		{name: "single core", cores: 1, raw: 150, wantCPU: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHandle{cores: tt.cores, live: []*fakeProc{
				{pid: 4242, name: "postgres", cpu: tt.raw, rss: 64 << 20, state: StateSleeping},
			}}
			procs := newTestSampler(t, h).Processes()

			require.Len(t, procs, 1)
			assert.Equal(t, model.Process{
				Name:        "postgres",
				PID:         "4242",
				CPUUsage:    tt.wantCPU,
				MemoryUsage: 64 << 20,
				Status:      "Sleeping",
			}, procs[0])
		})
	}
}

func TestProcessesKeepEnumerationOrder(t *testing.T) {
	h := &fakeHandle{cores: 2, live: []*fakeProc{
		{pid: 30, name: "c", state: StateRunning},
		{pid: 10, name: "a", state: StateZombie},
		{pid: 20, name: "b", state: ProcessState(77)},
	}}
	procs := newTestSampler(t, h).Processes()

	require.Len(t, procs, 3)
	assert.Equal(t, "30", procs[0].PID)
	assert.Equal(t, "Running", procs[0].Status)
	assert.Equal(t, "10", procs[1].PID)
	assert.Equal(t, "Zombie", procs[1].Status)
	assert.Equal(t, "Unknown", procs[2].Status)
}

func TestTerminate(t *testing.T) {
	t.Run("invalid pid has no side effects", func(t *testing.T) {
		h := &fakeHandle{}
		s := newTestSampler(t, h)

		for _, pid := range []string{"not-a-number", "", "12abc", "99999999999"} {
			assert.False(t, s.Terminate(pid), pid)
		}
		assert.Zero(t, h.lookups)
		assert.Empty(t, h.calls)
	})

	t.Run("pid absent from last refreshed table", func(t *testing.T) {
		old := &fakeProc{pid: 100, name: "old"}
		h := &fakeHandle{live: []*fakeProc{old}}
		s := newTestSampler(t, h)
		s.Processes()

		late := &fakeProc{pid: 200, name: "late"}
		h.live = append(h.live, late)
		calls := len(h.calls)

		assert.False(t, s.Terminate("200"))
		assert.Zero(t, late.killed)
		assert.Len(t, h.calls, calls, "terminate must not refresh the table")
	})

	t.Run("signal refused", func(t *testing.T) {
		p := &fakeProc{pid: 1, name: "init", killErr: errPermission}
		h := &fakeHandle{live: []*fakeProc{p}}
		s := newTestSampler(t, h)
		s.Processes()

		assert.False(t, s.Terminate("1"))
	})

	t.Run("killed", func(t *testing.T) {
		p := &fakeProc{pid: 4242, name: "runaway"}
		h := &fakeHandle{live: []*fakeProc{p}}
		s := newTestSampler(t, h)
		s.Processes()

		assert.True(t, s.Terminate("4242"))
		assert.Equal(t, 1, p.killed)
	})
}

func TestConcurrentQueriesDoNotInterleave(t *testing.T) {
	h := &fakeHandle{genNames: true}
	var s *Sampler
	var diskGen, procGen atomic.Int64
	var violations atomic.Int32

	s = newTestSampler(t, h, WithRefreshHook(func(sub Subsystem) {
		if s.mu.TryLock() {
			s.mu.Unlock()
			violations.Add(1)
		}
		switch sub {
		case SubsystemDisks:
			diskGen.Store(int64(h.gen))
		case SubsystemProcesses:
			procGen.Store(int64(h.gen))
		}
		time.Sleep(2 * time.Millisecond)
	}))

	const rounds = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			disks := s.Disks()
			if assert.Len(t, disks, 1) {
				assert.Equal(t, fmt.Sprintf("gen-%d", diskGen.Load()), disks[0].Name)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			procs := s.Processes()
			if assert.Len(t, procs, 1) {
				assert.Equal(t, fmt.Sprintf("gen-%d", procGen.Load()), procs[0].Name)
			}
		}
	}()
	wg.Wait()

	assert.Zero(t, violations.Load(), "refresh hook ran without the lock held")
	assert.Len(t, h.calls, rounds*3)
}

func TestTimestampsAdvance(t *testing.T) {
	h := &fakeHandle{memory: MemoryReading{Total: 1, Free: 1}}
	s := New(h)

	first := s.Memory().Timestamp
	time.Sleep(2 * time.Millisecond)
	second := s.Memory().Timestamp

	assert.GreaterOrEqual(t, int64(second), int64(first))
}

func TestSnapshot(t *testing.T) {
	h := &fakeHandle{
		host:   "box",
		cores:  2,
		cpus:   []fakeCPU{{name: "cpu0"}, {name: "cpu1"}},
		memory: MemoryReading{Total: 10, Free: 5},
		disks:  []fakeDisk{{name: "sda", total: 4, free: 1}},
		nets:   []fakeNet{{name: "eth0"}},
		live:   []*fakeProc{{pid: 1, name: "init"}},
	}
	snap := newTestSampler(t, h).Snapshot()

	assert.Equal(t, "box", snap.System.Hostname)
	assert.Len(t, snap.CPUs, 2)
	assert.Equal(t, 50.0, snap.Memory.UsedPercentage)
	assert.Len(t, snap.Disks, 1)
	assert.Len(t, snap.Networks, 1)
	assert.Len(t, snap.Processes, 1)
}
