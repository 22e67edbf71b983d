package ui

import "github.com/charmbracelet/lipgloss"

// palette holds the colors one theme applies.
type palette struct {
	title  lipgloss.Color
	subtle lipgloss.Color
	label  lipgloss.Color
	border lipgloss.Color
	alert  lipgloss.Color
	accent lipgloss.Color
}

var palettes = map[string]palette{
	"slate":     {title: "45", subtle: "244", label: "81", border: "60", alert: "203", accent: "110"},
	"midnight":  {title: "141", subtle: "240", label: "105", border: "57", alert: "197", accent: "63"},
	"bumblebee": {title: "220", subtle: "246", label: "214", border: "136", alert: "196", accent: "228"},
}

// styles are built once per model from its palette.
type styles struct {
	title  lipgloss.Style
	subtle lipgloss.Style
	label  lipgloss.Style
	card   lipgloss.Style
	alert  lipgloss.Style
	ok     lipgloss.Style
	accent lipgloss.Color
}

func newStyles(theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes["slate"]
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(p.title),
		subtle: lipgloss.NewStyle().Foreground(p.subtle),
		label:  lipgloss.NewStyle().Foreground(p.label).Bold(true),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.border).
			Padding(0, 1).
			MarginRight(1),
		alert:  lipgloss.NewStyle().Foreground(p.alert).Bold(true),
		ok:     lipgloss.NewStyle().Foreground(p.label),
		accent: p.accent,
	}
}
