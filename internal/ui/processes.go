package ui

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Dicklesworthstone/snapmon/internal/model"
)

// filterProcesses keeps processes whose name or pid contains query
// (case-insensitive) and, when re is set, whose name matches re.
func filterProcesses(procs []model.Process, query string, re *regexp.Regexp) []model.Process {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Process, 0, len(procs))
	for _, p := range procs {
		if re != nil && !re.MatchString(p.Name) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(p.PID, query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// sortProcesses orders procs in place by column. Numeric columns sort
// descending by default, text columns ascending; reverse flips either.
func sortProcesses(procs []model.Process, column string, reverse bool) {
	var less func(a, b model.Process) bool
	switch column {
	case "mem":
		less = func(a, b model.Process) bool { return a.MemoryUsage > b.MemoryUsage }
	case "name":
		less = func(a, b model.Process) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "pid":
		less = func(a, b model.Process) bool { return pidOf(a) < pidOf(b) }
	default:
		less = func(a, b model.Process) bool { return a.CPUUsage > b.CPUUsage }
	}
	sort.SliceStable(procs, func(i, j int) bool {
		if reverse {
			return less(procs[j], procs[i])
		}
		return less(procs[i], procs[j])
	})
}

func pidOf(p model.Process) int64 {
	n, _ := strconv.ParseInt(p.PID, 10, 64)
	return n
}

// rate is a per-second throughput derived from two cumulative readings.
type rate struct {
	rx, tx float64
}

func networkRates(prev, cur []model.Network) map[string]rate {
	before := make(map[string]model.Network, len(prev))
	for _, n := range prev {
		before[n.Name] = n
	}
	out := make(map[string]rate, len(cur))
	for _, n := range cur {
		p, ok := before[n.Name]
		if !ok {
			continue
		}
		dt := float64(n.Timestamp-p.Timestamp) / 1000
		if dt <= 0 || n.Received < p.Received || n.Transmitted < p.Transmitted {
			continue
		}
		out[n.Name] = rate{
			rx: float64(n.Received-p.Received) / dt,
			tx: float64(n.Transmitted-p.Transmitted) / dt,
		}
	}
	return out
}
