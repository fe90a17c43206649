// Package cli provides terminal UI components for the monitoring
// tools.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/PerformanceSuite/Performia-sub001/pkg/telemetry"
)

// Theme defines the dashboard color scheme.
type Theme struct {
	Primary lipgloss.Color // accent color
	Warn    lipgloss.Color // degraded-state color
	Dim     lipgloss.Color // labels and help text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#ffb000"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Warn   lipgloss.Style
	Border lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:  lipgloss.NewStyle().Foreground(t.Dim),
		Value:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Warn:   lipgloss.NewStyle().Bold(true).Foreground(t.Warn),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
	}
}

// Dashboard renders telemetry snapshots as a live status panel.
type Dashboard struct {
	Styles Styles
	Title  string
}

// NewDashboard builds a dashboard with the default theme.
func NewDashboard(title string) *Dashboard {
	return &Dashboard{Styles: NewStyles(DefaultTheme), Title: title}
}

type row struct {
	label string
	value string
	warn  bool
}

// Render draws one snapshot as a bordered panel of the given width.
func (d *Dashboard) Render(snap telemetry.Snapshot, width int) string {
	if width < 24 {
		width = 24
	}

	rows := []row{
		{"state", snap.TrackerState, snap.TrackerState == "lost"},
		{"beat", fmt.Sprintf("%.1f", snap.Beat), false},
		{"tempo", fmt.Sprintf("%.1f bpm", snap.Tempo), false},
		{"chord", chordLabel(snap), false},
		{"confidence", confidenceBar(snap.Confidence, 10), snap.Confidence < 0.4},
		{"mode", modeLabel(snap), snap.ForcedFixed},
		{"cycles", fmt.Sprintf("%d", snap.Cycles), false},
		{"resyncs", fmt.Sprintf("%d", snap.Resyncs), snap.Resyncs > 0},
		{"dropouts", fmt.Sprintf("%d", snap.Dropouts), snap.Dropouts > 0},
		{"overflows", fmt.Sprintf("%d", snap.Overflows), snap.Overflows > 0},
		{"timeouts", fmt.Sprintf("%d", snap.AgentTimeouts), snap.AgentTimeouts > 0},
		{"bus", fmt.Sprintf("%d delivered / %d dropped", snap.BusDelivered, snap.BusDropped), snap.BusDropped > 0},
		{"gateway", gatewayLabel(snap), snap.GatewayDegraded},
	}

	bc := d.Styles.Border
	var b strings.Builder

	b.WriteString(bc.Render("╭" + strings.Repeat("─", width-2) + "╮"))
	b.WriteByte('\n')

	title := d.Styles.Title.Render(d.Title)
	pad := max(0, width-3-lipgloss.Width(title))
	b.WriteString(bc.Render("│") + title + strings.Repeat(" ", pad) + " " + bc.Render("│"))
	b.WriteByte('\n')

	for _, r := range rows {
		style := d.Styles.Value
		if r.warn {
			style = d.Styles.Warn
		}
		label := d.Styles.Label.Render(r.label)
		value := style.Render(r.value)
		pad := max(1, width-4-lipgloss.Width(label)-lipgloss.Width(value))
		b.WriteString(bc.Render("│") + " " + label + strings.Repeat(" ", pad) + value + " " + bc.Render("│"))
		b.WriteByte('\n')
	}

	b.WriteString(bc.Render("╰" + strings.Repeat("─", width-2) + "╯"))
	return b.String()
}

// confidenceBar draws the confidence gauge, e.g. "▮▮▮▮▮▯▯▯▯▯ 0.50".
func confidenceBar(v float64, cells int) string {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	filled := int(v*float64(cells) + 0.5)
	return strings.Repeat("▮", filled) + strings.Repeat("▯", cells-filled) +
		fmt.Sprintf(" %.2f", v)
}

func chordLabel(snap telemetry.Snapshot) string {
	if snap.Chord == "" {
		return "-"
	}
	if snap.Section != "" {
		return snap.Chord + " in " + snap.Section
	}
	return snap.Chord
}

func modeLabel(snap telemetry.Snapshot) string {
	if snap.ForcedFixed {
		return snap.Mode + " (forced fixed)"
	}
	return snap.Mode
}

func gatewayLabel(snap telemetry.Snapshot) string {
	if snap.GatewayDegraded {
		return fmt.Sprintf("degraded, %d dropped", snap.GatewayDropped)
	}
	return "healthy"
}
