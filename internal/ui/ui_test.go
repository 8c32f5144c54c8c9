package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/aerotop/internal/config"
	"github.com/Dicklesworthstone/aerotop/internal/model"
	"github.com/Dicklesworthstone/aerotop/internal/procview"
	"github.com/Dicklesworthstone/aerotop/internal/proctl"
)

func testSnapshot() model.Snapshot {
	return model.Snapshot{
		Timestamp: time.Now(),
		OS:        model.OS{Hostname: "box", Distro: "Arch", Release: "rolling"},
		CPU: model.CPU{
			Model:       "Test CPU",
			OverallLoad: 42,
			PerCore:     []model.CoreLoad{{Index: 0, Load: 40}, {Index: 1, Load: 44}},
			History:     []model.CPUHistoryEntry{{OverallLoad: 10}, {OverallLoad: 90}},
		},
		Memory: model.Memory{TotalBytes: 8 << 30, UsedBytes: 2 << 30},
		Processes: model.Processes{
			Total: 3,
			List: []model.Process{
				{PID: 1, Name: "init", Command: "init", User: "root", CPU: 1},
				{PID: 2, ParentPID: 1, Name: "worker", Command: "worker --fast", User: "alice", CPU: 50, Nice: 0},
				{PID: 3, ParentPID: 1, Name: "shell", Command: "bash", User: "alice", CPU: 5, Nice: 19},
			},
		},
	}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	stream := make(chan model.Snapshot, 1)
	stream <- testSnapshot()
	m := New(config.Default(), stream)
	m.Update(tickMsg{})
	if !m.hasData {
		t.Fatalf("tick did not consume the pending snapshot")
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "f4":
		return tea.KeyMsg{Type: tea.KeyF4}
	case "f5":
		return tea.KeyMsg{Type: tea.KeyF5}
	case "f1":
		return tea.KeyMsg{Type: tea.KeyF1}
	case "f8":
		return tea.KeyMsg{Type: tea.KeyF8}
	case "f9":
		return tea.KeyMsg{Type: tea.KeyF9}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func pids(rows []procview.Row) []int32 {
	out := make([]int32, len(rows))
	for i, r := range rows {
		out[i] = r.PID
	}
	return out
}

func TestTickWithoutSnapshotKeepsPolling(t *testing.T) {
	m := New(config.Default(), make(chan model.Snapshot))
	_, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Fatalf("tick should schedule the next tick")
	}
	if m.hasData {
		t.Fatalf("no snapshot was available")
	}
}

func TestRowsFollowSortAndTree(t *testing.T) {
	m := newTestModel(t)
	if got := pids(m.rows); got[0] != 2 || got[1] != 3 || got[2] != 1 {
		t.Fatalf("cpu desc order = %v", got)
	}

	m.Update(key("f5"))
	if !m.state.TreeMode {
		t.Fatalf("F5 should enable tree mode")
	}
	if got := pids(m.rows); got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("tree order = %v", got)
	}
	if m.rows[1].Prefix == "" {
		t.Fatalf("child row should carry a tree prefix")
	}

	m.Update(key("t"))
	m.Update(key("f4"))
	if m.state.SortColumn != procview.ColMem {
		t.Fatalf("F4 from cpu should move to mem, got %s", m.state.SortColumn)
	}
	m.Update(key("s"))
	if m.state.SortDirection != procview.Ascending {
		t.Fatalf("s should flip the direction")
	}
}

func TestNavigationClamps(t *testing.T) {
	m := newTestModel(t)
	for i := 0; i < 5; i++ {
		m.Update(key("down"))
	}
	if m.state.SelectedPID != 1 {
		t.Fatalf("selection should clamp at the last row, got %d", m.state.SelectedPID)
	}
	for i := 0; i < 5; i++ {
		m.Update(key("up"))
	}
	if m.state.SelectedPID != 2 {
		t.Fatalf("selection should clamp at the first row, got %d", m.state.SelectedPID)
	}
}

func TestSearchMode(t *testing.T) {
	m := newTestModel(t)
	m.Update(key("/"))
	if !m.searching {
		t.Fatalf("/ should start searching")
	}
	for _, r := range "bashx" {
		m.Update(key(string(r)))
	}
	if len(m.rows) != 0 {
		t.Fatalf("bashx should match nothing, got %v", pids(m.rows))
	}
	m.Update(key("backspace"))
	if got := pids(m.rows); len(got) != 1 || got[0] != 3 {
		t.Fatalf("bash should match pid 3, got %v", got)
	}
	m.Update(key("enter"))
	if m.searching || m.state.SearchQuery != "bash" {
		t.Fatalf("enter should keep the query and leave search, state %+v", m.state)
	}
	m.Update(key("esc"))
	if m.state.SearchQuery != "" || len(m.rows) != 3 {
		t.Fatalf("esc should clear the filter")
	}
}

func TestKillSelected(t *testing.T) {
	m := newTestModel(t)
	var gotPID int
	var gotSig string
	m.kill = func(pid int, signal string) proctl.Result {
		gotPID, gotSig = pid, signal
		return proctl.Result{Success: true}
	}

	if cmd := m.handleKey(key("K")); cmd != nil {
		t.Fatalf("kill without a selection should not run")
	}
	if m.flash != "no process selected" {
		t.Fatalf("flash = %q", m.flash)
	}

	m.Update(key("down"))
	_, cmd := m.Update(key("K"))
	if cmd == nil {
		t.Fatalf("expected a control command")
	}
	m.Update(cmd())
	if gotPID != 2 || gotSig != "SIGKILL" {
		t.Fatalf("kill(%d, %s)", gotPID, gotSig)
	}
	if !strings.HasSuffix(m.flash, ": ok") {
		t.Fatalf("flash = %q", m.flash)
	}
}

func TestKillDialogSendsChosenSignal(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"by number", []string{"3"}, "SIGSTOP"},
		{"by cursor", []string{"down", "down", "down", "enter"}, "SIGCONT"},
		{"default is SIGTERM", []string{"enter"}, "SIGTERM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			var gotPID int
			var gotSig string
			m.kill = func(pid int, signal string) proctl.Result {
				gotPID, gotSig = pid, signal
				return proctl.Result{Success: true}
			}
			m.Update(key("down"))
			m.Update(key("f9"))
			if !m.killing {
				t.Fatalf("F9 should open the signal dialog")
			}
			view := m.View()
			for _, want := range []string{"pid 2", "worker", "alice", "SIGHUP", "SIGINT"} {
				if !strings.Contains(view, want) {
					t.Fatalf("dialog missing %q", want)
				}
			}
			var cmd tea.Cmd
			for _, k := range tt.keys {
				_, cmd = m.Update(key(k))
			}
			if cmd == nil {
				t.Fatalf("expected a control command")
			}
			m.Update(cmd())
			if m.killing {
				t.Fatalf("dialog should close after sending")
			}
			if gotPID != 2 || gotSig != tt.want {
				t.Fatalf("kill(%d, %s), want %s", gotPID, gotSig, tt.want)
			}
		})
	}
}

func TestKillDialogCancel(t *testing.T) {
	m := newTestModel(t)
	called := false
	m.kill = func(int, string) proctl.Result {
		called = true
		return proctl.Result{Success: true}
	}
	m.Update(key("down"))
	m.Update(key("k"))
	if !m.killing {
		t.Fatalf("k should open the signal dialog")
	}
	// the dialog owns the keyboard, so K is not a direct SIGKILL here
	if _, cmd := m.Update(key("K")); cmd != nil {
		t.Fatalf("unexpected command inside the dialog")
	}
	if _, cmd := m.Update(key("esc")); cmd != nil {
		t.Fatalf("esc should not send anything")
	}
	if m.killing || called {
		t.Fatalf("esc should close the dialog without signalling")
	}
	if m.flash != "kill cancelled" {
		t.Fatalf("flash = %q", m.flash)
	}
}

func TestKillDialogNeedsSelection(t *testing.T) {
	m := newTestModel(t)
	m.Update(key("f9"))
	if m.killing || m.flash != "no process selected" {
		t.Fatalf("dialog opened without a selection, flash %q", m.flash)
	}
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t)
	m.Update(key("f1"))
	if !m.showHelp || !strings.Contains(m.View(), "toggle tree view") {
		t.Fatalf("F1 should show the key help")
	}
	m.Update(key("esc"))
	if m.showHelp {
		t.Fatalf("esc should close the help")
	}
	m.Update(key("?"))
	if !m.showHelp {
		t.Fatalf("? should show the key help")
	}
}

func TestReniceClampsAndReportsFailure(t *testing.T) {
	m := newTestModel(t)
	var gotNice int
	m.renice = func(pid, priority int) proctl.Result {
		gotNice = priority
		return proctl.Result{Error: "Operation not permitted"}
	}
	m.state = procview.Select(m.state, 3)
	_, cmd := m.Update(key("f8"))
	m.Update(cmd())
	if gotNice != 19 {
		t.Fatalf("nice should clamp at 19, got %d", gotNice)
	}
	if !strings.Contains(m.flash, "Operation not permitted") {
		t.Fatalf("flash = %q", m.flash)
	}
}

func TestViewRendersTable(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	for _, want := range []string{"box", "CPU%▼", "worker --fast", "flat", "F3 search", "F4 sort", "F10 quit"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestGaugeAndSparkline(t *testing.T) {
	if got := gaugeBar(150, 4); got != "[████] 100.0%" {
		t.Fatalf("gaugeBar = %q", got)
	}
	if got := gaugeBar(-3, 4); got != "[░░░░]   0.0%" {
		t.Fatalf("gaugeBar = %q", got)
	}
	if got := sparkline([]float64{0, 50, 100}, 2); got != "▄█" {
		t.Fatalf("sparkline = %q", got)
	}
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("truncate = %q", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(time.Time{}); got != "-" {
		t.Fatalf("zero start = %q", got)
	}
	if got := formatElapsed(time.Now().Add(-90 * time.Second)); got != "1:30" {
		t.Fatalf("90s = %q", got)
	}
}
