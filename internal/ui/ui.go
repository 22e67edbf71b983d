package ui

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/snapmon/internal/config"
	"github.com/Dicklesworthstone/snapmon/internal/model"
)

// Engine is what the dashboard polls. *sampler.Sampler satisfies it.
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

// Model renders live snapshots polled from the engine.
type Model struct {
	cfg    config.Config
	engine Engine
	styles styles
	filter *regexp.Regexp

	latest   model.Snapshot
	prevNets []model.Network
	rates    map[string]rate
	rows     []model.Process

	sortIdx   int
	reverse   bool
	search    textinput.Model
	searching bool
	procs     table.Model
	gauge     progress.Model
	status    string
	statusOK  bool

	width  int
	height int
}

func New(cfg config.Config, engine Engine) *Model {
	st := newStyles(cfg.Theme)

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "name or pid"
	search.CharLimit = 64

	procs := table.New(
		table.WithColumns(processColumns(120)),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.Foreground(st.label.GetForeground()).Bold(true)
	ts.Selected = ts.Selected.Foreground(lipgloss.Color("15")).Background(st.accent)
	procs.SetStyles(ts)

	m := &Model{
		cfg:     cfg,
		engine:  engine,
		styles:  st,
		sortIdx: max(0, slices.Index(config.SortColumns, cfg.Sort)),
		search:  search,
		procs:   procs,
		gauge:   progress.New(progress.WithSolidFill(string(st.accent)), progress.WithWidth(28)),
		width:   120,
		height:  40,
	}
	if cfg.Filter != "" {
		re, err := regexp.Compile(cfg.Filter)
		if err != nil {
			m.status = "ignoring filter: " + err.Error()
		} else {
			m.filter = re
		}
	}
	return m
}

// Messages
type (
	tickMsg     struct{}
	snapshotMsg model.Snapshot
	killMsg     struct {
		pid, name string
		ok        bool
	}
)

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.Interval, func(time.Time) tea.Msg { return tickMsg{} })
}

// fetchCmd polls every query except SystemInfo, which is only read on the
// first poll since it forces a full refresh.
func (m *Model) fetchCmd(withInfo bool) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		snap := model.Snapshot{
			GlobalCPU: e.GlobalCPU(),
			CPUs:      e.CPUs(),
			Memory:    e.Memory(),
			Swap:      e.Swap(),
			Disks:     e.Disks(),
			Networks:  e.Networks(),
			Processes: e.Processes(),
		}
		if withInfo {
			snap.System = e.SystemInfo()
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) killCmd(p model.Process) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		return killMsg{pid: p.PID, name: p.Name, ok: e.Terminate(p.PID)}
	}
}

func (m *Model) Init() tea.Cmd { return m.fetchCmd(true) }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.procs.SetColumns(processColumns(m.width))
		m.procs.SetHeight(max(5, m.height-18))
		m.gauge.Width = max(10, min(40, m.width/4-12))
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "/":
			m.searching = true
			return m, m.search.Focus()
		case "s":
			m.sortIdx = (m.sortIdx + 1) % len(config.SortColumns)
			m.rebuildRows()
		case "r":
			m.reverse = !m.reverse
			m.rebuildRows()
		case "x", "delete":
			if p, ok := m.selected(); ok {
				m.setStatus(fmt.Sprintf("terminating %s (%s)…", p.Name, p.PID), false)
				return m, m.killCmd(p)
			}
		default:
			var cmd tea.Cmd
			m.procs, cmd = m.procs.Update(msg)
			return m, cmd
		}
	case snapshotMsg:
		snap := model.Snapshot(msg)
		if snap.System.Timestamp == 0 {
			snap.System = m.latest.System
		}
		m.rates = networkRates(m.prevNets, snap.Networks)
		m.prevNets = snap.Networks
		m.latest = snap
		m.rebuildRows()
		return m, m.tickCmd()
	case tickMsg:
		return m, m.fetchCmd(false)
	case killMsg:
		if msg.ok {
			m.setStatus(fmt.Sprintf("killed %s (%s)", msg.name, msg.pid), true)
		} else {
			m.setStatus(fmt.Sprintf("could not kill %s (%s)", msg.name, msg.pid), false)
		}
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.SetValue("")
		fallthrough
	case "enter":
		m.searching = false
		m.search.Blur()
		m.rebuildRows()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.rebuildRows()
	return m, cmd
}

func (m *Model) rebuildRows() {
	m.rows = filterProcesses(m.latest.Processes, m.search.Value(), m.filter)
	sortProcesses(m.rows, config.SortColumns[m.sortIdx], m.reverse)

	rows := make([]table.Row, len(m.rows))
	for i, p := range m.rows {
		rows[i] = table.Row{p.Name, p.PID, fmt.Sprintf("%.2f", p.CPUUsage), FormatBytes(p.MemoryUsage), p.Status}
	}
	m.procs.SetRows(rows)
	if c := m.procs.Cursor(); c >= len(rows) {
		m.procs.SetCursor(max(0, len(rows)-1))
	}
}

func (m *Model) setStatus(text string, ok bool) {
	m.status, m.statusOK = text, ok
}

func (m *Model) statusStyle() lipgloss.Style {
	if m.statusOK {
		return m.styles.ok
	}
	return m.styles.alert
}

func (m *Model) selected() (model.Process, bool) {
	i := m.procs.Cursor()
	if i < 0 || i >= len(m.rows) {
		return model.Process{}, false
	}
	return m.rows[i], true
}

func processColumns(width int) []table.Column {
	name := max(16, width-58)
	return []table.Column{
		{Title: "name", Width: name},
		{Title: "pid", Width: 8},
		{Title: "cpu%", Width: 7},
		{Title: "mem", Width: 11},
		{Title: "status", Width: 10},
	}
}

func (m *Model) View() string {
	s := m.latest
	st := m.styles

	ts := s.GlobalCPU.Timestamp
	if ts == 0 {
		ts = model.Now()
	}
	header := st.title.Render("snapmon") + "  " +
		st.subtle.Render(fmt.Sprintf("%s · %s · kernel %s · %s cores  %s",
			s.System.Hostname, s.System.OSVersion, s.System.KernelVersion, s.System.CoreCount,
			ts.Time().Format("Mon Jan 2 15:04:05 MST 2006")))

	cpuCard := m.card("CPU",
		fmt.Sprintf("%s %5.1f%%\n%s @ %.2f GHz",
			m.gauge.ViewAs(s.GlobalCPU.Usage/100), s.GlobalCPU.Usage,
			truncate(s.GlobalCPU.Brand, 28), float64(s.GlobalCPU.Frequency)/1e9))

	memCard := m.card("Memory",
		fmt.Sprintf("%s %5.1f%%\n%s / %s",
			m.gauge.ViewAs(s.Memory.UsedPercentage/100), s.Memory.UsedPercentage,
			FormatBytes(s.Memory.Used), FormatBytes(s.Memory.Total)))

	swapCard := m.card("Swap",
		fmt.Sprintf("%s %5.1f%%\n%s / %s",
			m.gauge.ViewAs(s.Swap.UsedPercentage/100), s.Swap.UsedPercentage,
			FormatBytes(s.Swap.Used), FormatBytes(s.Swap.Total)))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard, swapCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top,
		m.card("Cores", renderCores(s.CPUs, 16)),
		m.card("Disks", renderDisks(s.Disks, 6)),
		m.card("Network", renderNetworks(s.Networks, m.rates, 6)))

	dir := "↓"
	if m.reverse {
		dir = "↑"
	}
	procTitle := fmt.Sprintf("Processes (%d/%d) sort:%s%s",
		len(m.rows), len(s.Processes), config.SortColumns[m.sortIdx], dir)
	procCard := m.card(procTitle, m.procs.View())

	footer := st.subtle.Render("q quit · / search · s sort · r reverse · x kill · ↑/↓ select")
	if m.searching || m.search.Value() != "" {
		footer = m.search.View() + "  " + footer
	}
	if m.status != "" {
		footer += "\n" + m.statusStyle().Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2, procCard, footer)
}

// Helpers
func (m *Model) card(title, body string) string {
	content := m.styles.label.Render(title) + "\n" + body
	return m.styles.card.Render(content)
}

func renderCores(cpus []model.CPU, limit int) string {
	if len(cpus) == 0 {
		return "n/a"
	}
	lines := make([]string, 0, min(limit, len(cpus)))
	for i := 0; i < min(limit, len(cpus)); i++ {
		c := cpus[i]
		lines = append(lines, fmt.Sprintf("%-6s %s", truncate(c.Name, 6), gaugeBar(c.Usage, 12)))
	}
	if len(cpus) > limit {
		lines = append(lines, fmt.Sprintf("… %d more", len(cpus)-limit))
	}
	return strings.Join(lines, "\n")
}

func renderDisks(disks []model.Disk, limit int) string {
	if len(disks) == 0 {
		return "n/a"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-14s %-4s %-6s %9s %6s\n", "mount", "type", "fs", "free", "used")
	for i := 0; i < min(limit, len(disks)); i++ {
		d := disks[i]
		kind := d.DiskType
		if d.IsRemovable {
			kind += "*"
		}
		fmt.Fprintf(&b, "%-14s %-4s %-6s %9s %5.1f%%\n",
			truncate(d.MountPoint, 14), truncate(kind, 4), truncate(d.FileSystem, 6),
			FormatBytes(d.Free), d.UsedPercentage)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderNetworks(nets []model.Network, rates map[string]rate, limit int) string {
	if len(nets) == 0 {
		return "n/a"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %11s %11s\n", "iface", "rx/s", "tx/s")
	for i := 0; i < min(limit, len(nets)); i++ {
		n := nets[i]
		r := rates[n.Name]
		fmt.Fprintf(&b, "%-10s %11s %11s\n",
			truncate(n.Name, 10), FormatBytes(uint64(r.rx)), FormatBytes(uint64(r.tx)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RunTUI starts the Bubble Tea program.
func RunTUI(cfg config.Config, engine Engine) error {
	prog := tea.NewProgram(New(cfg, engine), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
