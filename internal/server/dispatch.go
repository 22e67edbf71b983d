package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Dicklesworthstone/snapmon/internal/model"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBusy           = errors.New("engine busy, try again later")
)

// Engine is the set of snapshot queries exposed to clients.
type Engine interface {
	SystemInfo() model.SystemInfo
	GlobalCPU() model.GlobalCPU
	CPUs() []model.CPU
	Memory() model.Memory
	Swap() model.Swap
	Disks() []model.Disk
	Networks() []model.Network
	Processes() []model.Process
	Terminate(pid string) bool
}

// Request names one engine operation. PID is read only by kill_process.
type Request struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
	PID     string `json:"pid,omitempty"`
}

// Response answers a Request; exactly one of Result and Error is meaningful.
type Response struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
	Result  any    `json:"result"`
	Error   string `json:"error,omitempty"`
}

type command func(e Engine, req Request) any

var commands = map[string]command{
	"get_sysinfo":    func(e Engine, _ Request) any { return e.SystemInfo() },
	"get_global_cpu": func(e Engine, _ Request) any { return e.GlobalCPU() },
	"get_cpus":       func(e Engine, _ Request) any { return e.CPUs() },
	"get_memory":     func(e Engine, _ Request) any { return e.Memory() },
	"get_swap":       func(e Engine, _ Request) any { return e.Swap() },
	"get_disks":      func(e Engine, _ Request) any { return e.Disks() },
	"get_networks":   func(e Engine, _ Request) any { return e.Networks() },
	"get_processes":  func(e Engine, _ Request) any { return e.Processes() },
	"kill_process":   func(e Engine, req Request) any { return e.Terminate(req.PID) },
}

// Commands lists the request names in sorted order.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatcher runs requests against an Engine, giving up on the wait after
// timeout. The abandoned call still completes in the background. kill_process
// always runs to completion and reports its real result.
type Dispatcher struct {
	engine  Engine
	timeout time.Duration
}

func NewDispatcher(engine Engine, timeout time.Duration) *Dispatcher {
	return &Dispatcher{engine: engine, timeout: timeout}
}

// unbounded commands change host state, so they are never abandoned: a
// reported ErrBusy must mean the operation did not happen.
var unbounded = map[string]bool{"kill_process": true}

func (d *Dispatcher) Call(ctx context.Context, req Request) (any, error) {
	fn, ok := commands[req.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}
	if unbounded[req.Command] {
		return fn(d.engine, req), nil
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	done := make(chan any, 1)
	go func() { done <- fn(d.engine, req) }()
	select {
	case v := <-done:
		return v, nil
	case <-ctx.Done():
		return nil, ErrBusy
	}
}
