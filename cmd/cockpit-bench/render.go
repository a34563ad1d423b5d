package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"cockpit-go/drivers/gauge"
	"cockpit-go/internal/capture"
	"cockpit-go/services/simstate"
	"cockpit-go/types"
	"cockpit-go/x/strx"
)

var stateColors = map[simstate.State]lipgloss.Color{
	simstate.Exited:     lipgloss.Color("8"),
	simstate.Paused:     lipgloss.Color("11"),
	simstate.GroundCold: lipgloss.Color("12"),
	simstate.GroundHot:  lipgloss.Color("9"),
	simstate.Airborne:   lipgloss.Color("10"),
}

// stateColor falls back to plain white for names the detector never emits.
func stateColor(name string) lipgloss.Color {
	if s, ok := simstate.Parse(name); ok {
		return stateColors[s]
	}
	return lipgloss.Color("15")
}

var (
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headStyle = lipgloss.NewStyle().Bold(true)
)

func paint(s lipgloss.Style, text string, color bool) string {
	if !color {
		return text
	}
	return s.Render(text)
}

func renderTransition(t transition, color bool) string {
	at := fmt.Sprintf("%9.3fs", t.At.Seconds())
	st := lipgloss.NewStyle().Bold(true).Foreground(stateColor(t.State))
	return paint(dimStyle, at, color) + "  " + paint(st, "● "+t.State, color)
}

func renderStatus(st types.CockpitStatus, color bool) string {
	var sb strings.Builder
	sb.WriteString(paint(headStyle, "final state ", color))
	sb.WriteString(paint(lipgloss.NewStyle().Foreground(stateColor(st.State)), st.State, color))
	fmt.Fprintf(&sb, "  (heartbeat %s ago)\n", time.Duration(st.SinceBeatMs)*time.Millisecond)
	for _, g := range st.Gauges {
		mark := paint(lipgloss.NewStyle().Foreground(lipgloss.Color("10")), "●", color)
		if g.Position != g.Target || g.Homing || g.Testing {
			mark = paint(lipgloss.NewStyle().Foreground(lipgloss.Color("11")), "●", color)
		}
		fmt.Fprintf(&sb, "  %s %-12s pos %5d  target %5d\n", mark, g.Name, g.Position, g.Target)
	}
	return sb.String()
}

// renderCheck lists each gauge and flags drivers this binary cannot build.
// An empty driver is shown as "default".
func renderCheck(cfg types.CockpitConfig, drivers []string, color bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "  device %s, loop %d Hz, drivers %s\n", cfg.Device, cfg.LoopHz, strings.Join(drivers, ","))
	known := map[string]bool{"": true}
	for _, d := range drivers {
		known[d] = true
	}
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	for _, gc := range cfg.Gauges {
		g := gauge.FromTypes(gc)
		fmt.Fprintf(&sb, "  %-12s %-16s %-11s dial %d..%d cap %d", g.Name, gc.Field, strx.Coalesce(gc.Driver, "default"), g.DialZero, g.MaxPos, g.Cap)
		if !known[gc.Driver] {
			sb.WriteString(paint(warn, "  (firmware only)", color))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func renderSessions(list []capture.Session, color bool) string {
	var sb strings.Builder
	sb.WriteString(paint(headStyle, fmt.Sprintf("%-36s  %-20s  %-19s  %s", "ID", "NAME", "STARTED", "RECORDS"), color))
	sb.WriteByte('\n')
	for _, s := range list {
		fmt.Fprintf(&sb, "%-36s  %-20s  %-19s  %d\n", s.ID, s.Name, s.StartedAt.Format(time.DateTime), s.Records)
	}
	return sb.String()
}
