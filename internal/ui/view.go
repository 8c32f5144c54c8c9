package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Dicklesworthstone/aerotop/internal/model"
	"github.com/Dicklesworthstone/aerotop/internal/procview"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	flashStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	gaugeFill     = "█"
	gaugeEmpty    = "░"
	sparkLevels   = []rune(" ▁▂▃▄▅▆▇█")
	cardStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

// lines taken by header, cards, table header, search and footer
const chromeLines = 16

func (m *Model) View() string {
	s := m.latest
	host := s.OS.Hostname
	if host == "" {
		host = "aerotop"
	}
	header := titleStyle.Render(host) + "  " +
		subtleStyle.Render(fmt.Sprintf("%s %s | up %s | %s",
			s.OS.Distro, s.OS.Release,
			formatUptime(s.UptimeSeconds),
			s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006")))
	if !m.hasData {
		return lipgloss.JoinVertical(lipgloss.Left, header, subtleStyle.Render("collecting..."))
	}

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard(s), memCard(s), ioCard(s))

	cards := []string{}
	if s.Temperature != nil {
		cards = append(cards, tempCard(*s.Temperature))
	}
	if len(s.Filesystems) > 0 {
		cards = append(cards, fsCard(s.Filesystems))
	}
	parts := []string{header, line1}
	if len(cards) > 0 {
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	switch {
	case m.killing:
		parts = append(parts, m.killDialog())
	case m.showHelp:
		parts = append(parts, helpCard())
	default:
		parts = append(parts, m.processTable())
	}
	parts = append(parts, m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func cpuCard(s model.Snapshot) string {
	c := s.CPU
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", truncate(c.Model, 40))
	fmt.Fprintf(&b, "%s  load %.2f\n", gaugeBar(c.OverallLoad, 24), s.Load.Avg1)
	fmt.Fprintf(&b, "usr %5.1f%%  sys %5.1f%%  %d/%d cores @ %.2f GHz\n",
		c.UserLoad, c.SystemLoad, c.PhysicalCores, c.LogicalCores, c.SpeedGHz)
	for i, core := range c.PerCore {
		if i > 0 && i%2 == 0 {
			b.WriteString("\n")
		} else if i > 0 {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "%2d %s", core.Index, miniBar(core.Load, 10))
	}
	hist := make([]float64, len(c.History))
	for i, h := range c.History {
		hist[i] = h.OverallLoad
	}
	fmt.Fprintf(&b, "\n%s", sparkline(hist, 40))
	return card("CPU", b.String())
}

func memCard(s model.Snapshot) string {
	mem := s.Memory
	body := fmt.Sprintf("%s\n%s / %s  avail %s\ncached %s  buffers %s\nSwap %s  %s / %s",
		gaugeBar(pct(mem.UsedBytes, mem.TotalBytes), 24),
		humanize.IBytes(mem.UsedBytes), humanize.IBytes(mem.TotalBytes),
		humanize.IBytes(mem.AvailableBytes),
		humanize.IBytes(mem.CachedBytes), humanize.IBytes(mem.BuffersBytes),
		miniBar(pct(mem.SwapUsedBytes, mem.SwapTotalBytes), 10),
		humanize.IBytes(mem.SwapUsedBytes), humanize.IBytes(mem.SwapTotalBytes))
	p := s.Processes
	body += fmt.Sprintf("\n\ntasks %d  run %d  sleep %d  blocked %d",
		p.Total, p.Running, p.Sleeping, p.Blocked)
	return card("Memory", body)
}

func ioCard(s model.Snapshot) string {
	var b strings.Builder
	for i, n := range s.Network {
		if i == 6 {
			fmt.Fprintf(&b, "… %d more\n", len(s.Network)-i)
			break
		}
		fmt.Fprintf(&b, "%-10s rx %9s tx %9s\n", truncate(n.Name, 10), rate(n.RxBytesPerSec), rate(n.TxBytesPerSec))
	}
	if len(s.Network) == 0 {
		b.WriteString(subtleStyle.Render("no interfaces") + "\n")
	}
	if d := s.Disk; d != nil {
		fmt.Fprintf(&b, "disk r %.0f/s  w %.0f/s", d.ReadOpsPerSec, d.WriteOpsPerSec)
	} else {
		b.WriteString(subtleStyle.Render("disk n/a"))
	}
	return card("NET / IO", strings.TrimRight(b.String(), "\n"))
}

func tempCard(t model.Temperature) string {
	body := fmt.Sprintf("main %.0f°C  max %.0f°C", t.Main, t.Max)
	if len(t.PerCore) > 0 {
		cores := make([]string, len(t.PerCore))
		for i, c := range t.PerCore {
			cores[i] = fmt.Sprintf("%.0f", c)
		}
		body += "\ncores " + strings.Join(cores, " ")
	}
	return card("Temp", body)
}

func fsCard(list []model.Filesystem) string {
	rows := make([]string, 0, min(4, len(list)))
	for i := 0; i < min(4, len(list)); i++ {
		fs := list[i]
		rows = append(rows, fmt.Sprintf("%-14s %s %s / %s",
			truncate(fs.Mount, 14), miniBar(fs.UsePct, 10),
			humanize.IBytes(fs.UsedBytes), humanize.IBytes(fs.SizeBytes)))
	}
	return card("Filesystems", strings.Join(rows, "\n"))
}

func (m *Model) pageSize() int {
	return max(1, m.height-chromeLines)
}

func (m *Model) processTable() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.tableHeader()))
	b.WriteString("\n")

	page := m.pageSize()
	sel, _ := procview.SelectedRow(m.rows, m.state)
	start := 0
	if m.state.HasSelection {
		for i := range m.rows {
			if m.rows[i].PID == sel.PID {
				start = max(0, i-page/2)
				break
			}
		}
	}
	end := min(len(m.rows), start+page)
	start = max(0, end-page)
	for i := start; i < end; i++ {
		r := m.rows[i]
		line := formatRow(r, m.width)
		if m.state.HasSelection && r.PID == m.state.SelectedPID {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(subtleStyle.Render("no matching processes"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) tableHeader() string {
	label := func(c procview.Column) string {
		l := c.Label()
		if !m.state.TreeMode && c == m.state.SortColumn {
			if m.state.SortDirection == procview.Ascending {
				l += "▲"
			} else {
				l += "▼"
			}
		}
		return l
	}
	return fmt.Sprintf("%7s %-10s %4s %4s %8s %8s %6s %6s %-2s %9s  %s",
		label(procview.ColPID), label(procview.ColUser), label(procview.ColPriority),
		label(procview.ColNice), label(procview.ColVirt), label(procview.ColRes),
		label(procview.ColCPU), label(procview.ColMem), label(procview.ColState),
		label(procview.ColStarted), label(procview.ColCommand))
}

func formatRow(r procview.Row, width int) string {
	line := fmt.Sprintf("%7d %-10s %4d %4d %8s %8s %6.1f %6.1f %-2s %9s  %s%s",
		r.PID, truncate(r.User, 10), r.Priority, r.Nice,
		humanize.IBytes(r.VirtBytes), humanize.IBytes(r.ResBytes),
		r.CPU, r.Memory, r.State, formatElapsed(r.Started), r.Prefix, r.Command)
	if width > 1 {
		line = truncate(line, width)
	}
	return line
}

func (m *Model) footer() string {
	var parts []string
	if m.searching {
		parts = append(parts, labelStyle.Render("search: ")+m.state.SearchQuery+"█")
	} else if m.state.SearchQuery != "" {
		parts = append(parts, subtleStyle.Render("filter: "+m.state.SearchQuery+" (esc clears)"))
	}
	if m.flash != "" && time.Since(m.flashAt) < flashFor {
		parts = append(parts, flashStyle.Render(m.flash))
	}
	mode := "flat"
	if m.state.TreeMode {
		mode = "tree"
	}
	parts = append(parts, subtleStyle.Render(fmt.Sprintf(
		"%d/%d shown, %s | F1 help  ↑↓ select  F3 search  F4 sort  s flip  F5 tree  F7/F8 nice  F9 signal  K kill  F10 quit",
		len(m.rows), len(m.latest.Processes.List), mode)))
	return strings.Join(parts, "\n")
}

var helpKeys = [][2]string{
	{"F1 ?", "toggle this help"},
	{"↑ ↓ PgUp PgDn", "move the selection"},
	{"F3 /", "search name, command, user or pid"},
	{"esc", "clear the search"},
	{"F4 >", "next sort column"},
	{"s", "reverse the sort direction"},
	{"F5 t", "toggle tree view"},
	{"F7 F8", "nice -1 / +1 for the selected process"},
	{"F9 k", "choose a signal for the selected process"},
	{"K", "send SIGKILL to the selected process"},
	{"F10 q", "quit"},
}

func helpCard() string {
	rows := make([]string, len(helpKeys))
	for i, k := range helpKeys {
		rows[i] = fmt.Sprintf("%-14s %s", k[0], k[1])
	}
	return card("Keys", strings.Join(rows, "\n"))
}

func (m *Model) killDialog() string {
	p := m.killTarget
	var b strings.Builder
	fmt.Fprintf(&b, "pid %d  %s  (%s)\n\n", p.PID, truncate(p.Name, 30), p.User)
	for i, sig := range dialogSignals {
		line := fmt.Sprintf("%d %s", i+1, sig)
		if i == m.killCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(subtleStyle.Render("enter or number sends, esc cancels"))
	return card("Send signal", b.String())
}

func gaugeBar(pct float64, width int) string {
	return fmt.Sprintf("[%s] %5.1f%%", bar(pct, width), clampPct(pct))
}

func miniBar(pct float64, width int) string {
	return fmt.Sprintf("%s %3.0f%%", bar(pct, width), clampPct(pct))
}

func bar(pct float64, width int) string {
	filled := int((clampPct(pct) / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat(gaugeFill, filled) + strings.Repeat(gaugeEmpty, width-filled)
}

func clampPct(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// sparkline renders the newest width values, oldest on the left.
func sparkline(values []float64, width int) string {
	if len(values) > width {
		values = values[len(values)-width:]
	}
	out := make([]rune, len(values))
	top := len(sparkLevels) - 1
	for i, v := range values {
		out[i] = sparkLevels[int(clampPct(v)/100*float64(top)+0.5)]
	}
	return string(out)
}

func card(title, body string) string {
	return cardStyle.Render(labelStyle.Render(title) + "\n" + body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func pct(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) * 100 / float64(total)
}

func rate(bytesPerSec float64) string {
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}
	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

func formatUptime(secs uint64) string {
	d := time.Duration(secs) * time.Second
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %02dh%02dm", days, h, mins)
	}
	return fmt.Sprintf("%02dh%02dm", h, mins)
}

// formatElapsed is the run time since start, "-" when unknown.
func formatElapsed(started time.Time) string {
	if started.IsZero() {
		return "-"
	}
	d := time.Since(started)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd%02dh", int(d.Hours())/24, int(d.Hours())%24)
}
