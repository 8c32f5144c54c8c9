package ui

import (
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/aerotop/internal/collector"
	"github.com/Dicklesworthstone/aerotop/internal/config"
	"github.com/Dicklesworthstone/aerotop/internal/model"
	"github.com/Dicklesworthstone/aerotop/internal/procview"
	"github.com/Dicklesworthstone/aerotop/internal/proctl"
)

const flashFor = 3 * time.Second

// dialogSignals are offered by the kill dialog, in order.
var dialogSignals = []string{"SIGTERM", "SIGKILL", "SIGSTOP", "SIGCONT", "SIGHUP", "SIGINT"}

// Model renders live snapshots and owns the process view state.
type Model struct {
	cfg     config.Config
	stream  <-chan model.Snapshot
	latest  model.Snapshot
	hasData bool

	state     procview.ViewState
	rows      []procview.Row
	searching bool
	showHelp  bool

	// kill dialog; target is fixed when the dialog opens
	killing    bool
	killTarget model.Process
	killCursor int

	flash   string
	flashAt time.Time

	// process control, swapped in tests
	kill   func(pid int, signal string) proctl.Result
	renice func(pid, priority int) proctl.Result

	width  int
	height int
}

func New(cfg config.Config, stream <-chan model.Snapshot) *Model {
	return &Model{
		cfg:    cfg,
		stream: stream,
		latest: model.Zero(),
		state:  cfg.ViewState(),
		kill:   proctl.KillProcess,
		renice: proctl.ReniceProcess,
		width:  120,
		height: 40,
	}
}

// Messages
type (
	tickMsg    struct{}
	controlMsg struct {
		what   string
		result proctl.Result
	}
)

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		if m.searching {
			return m, m.handleSearchKey(msg)
		}
		if m.killing {
			return m, m.handleKillKey(msg)
		}
		return m, m.handleKey(msg)
	case tickMsg:
		select {
		case samp, ok := <-m.stream:
			if ok {
				m.setSnapshot(samp)
			}
		default:
		}
		return m, tickCmd()
	case controlMsg:
		if msg.result.Success {
			m.setFlash(msg.what + ": ok")
		} else {
			m.setFlash(msg.what + ": " + msg.result.Error)
		}
	}
	return m, nil
}

func (m *Model) setSnapshot(s model.Snapshot) {
	m.latest = s
	m.hasData = true
	m.rerender()
}

func (m *Model) rerender() {
	m.rows = procview.Render(m.latest.Processes.List, m.state)
}

func (m *Model) setFlash(s string) {
	m.flash = s
	m.flashAt = time.Now()
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c", "f10":
		return tea.Quit
	case "f1", "?":
		m.showHelp = !m.showHelp
	case "up":
		m.state = procview.Navigate(-1, m.rows, m.state)
	case "down":
		m.state = procview.Navigate(1, m.rows, m.state)
	case "pgup":
		m.state = procview.Navigate(-m.pageSize(), m.rows, m.state)
	case "pgdown":
		m.state = procview.Navigate(m.pageSize(), m.rows, m.state)
	case "/", "f3":
		m.searching = true
	case "esc":
		if m.showHelp {
			m.showHelp = false
			return nil
		}
		m.state = procview.Search(m.state, "")
		m.rerender()
	case "f4", ">":
		m.state = procview.CycleSortColumn(m.state)
		m.rerender()
	case "s":
		m.state = procview.SortBy(m.state, m.state.SortColumn)
		m.rerender()
	case "f5", "t":
		m.state = procview.ToggleTree(m.state)
		m.rerender()
	case "f7":
		return m.reniceCmd(-1)
	case "f8":
		return m.reniceCmd(1)
	case "f9", "k":
		m.openKillDialog()
	case "K":
		return m.killCmd("SIGKILL")
	}
	return nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.state = procview.Search(m.state, "")
	case tea.KeyEnter:
		m.searching = false
	case tea.KeyBackspace:
		if q := []rune(m.state.SearchQuery); len(q) > 0 {
			m.state = procview.Search(m.state, string(q[:len(q)-1]))
		}
	case tea.KeySpace:
		m.state = procview.Search(m.state, m.state.SearchQuery+" ")
	case tea.KeyRunes:
		m.state = procview.Search(m.state, m.state.SearchQuery+string(msg.Runes))
	default:
		return nil
	}
	m.rerender()
	return nil
}

func (m *Model) openKillDialog() {
	p, ok := m.selected()
	if !ok {
		m.setFlash("no process selected")
		return
	}
	m.killing = true
	m.killTarget = p
	m.killCursor = 0
}

// handleKillKey picks a signal by cursor or by its number; esc cancels.
func (m *Model) handleKillKey(msg tea.KeyMsg) tea.Cmd {
	switch k := msg.String(); k {
	case "esc", "q":
		m.killing = false
		m.setFlash("kill cancelled")
	case "up":
		m.killCursor = max(0, m.killCursor-1)
	case "down":
		m.killCursor = min(len(dialogSignals)-1, m.killCursor+1)
	case "enter":
		m.killing = false
		return m.signalCmd(m.killTarget, dialogSignals[m.killCursor])
	default:
		if len(k) == 1 && k[0] >= '1' && int(k[0]-'0') <= len(dialogSignals) {
			m.killing = false
			return m.signalCmd(m.killTarget, dialogSignals[k[0]-'1'])
		}
	}
	return nil
}

// selected returns the selected process if it is in the latest snapshot,
// visible or not.
func (m *Model) selected() (model.Process, bool) {
	if !m.state.HasSelection {
		return model.Process{}, false
	}
	for _, p := range m.latest.Processes.List {
		if p.PID == m.state.SelectedPID {
			return p, true
		}
	}
	return model.Process{}, false
}

func (m *Model) killCmd(signal string) tea.Cmd {
	p, ok := m.selected()
	if !ok {
		m.setFlash("no process selected")
		return nil
	}
	return m.signalCmd(p, signal)
}

func (m *Model) signalCmd(p model.Process, signal string) tea.Cmd {
	kill := m.kill
	return func() tea.Msg {
		res := kill(int(p.PID), signal)
		if !res.Success {
			log.Printf("ui: %s pid %d: %s", signal, p.PID, res.Error)
		}
		return controlMsg{what: fmt.Sprintf("%s %d (%s)", signal, p.PID, p.Name), result: res}
	}
}

func (m *Model) reniceCmd(delta int) tea.Cmd {
	p, ok := m.selected()
	if !ok {
		m.setFlash("no process selected")
		return nil
	}
	nice := proctl.NudgeNice(int(p.Nice), delta)
	renice := m.renice
	return func() tea.Msg {
		res := renice(int(p.PID), nice)
		if !res.Success {
			log.Printf("ui: renice pid %d to %d: %s", p.PID, nice, res.Error)
		}
		return controlMsg{what: fmt.Sprintf("nice %d -> %d", p.PID, nice), result: res}
	}
}

// RunTUI starts the collector and the Bubble Tea program.
func RunTUI(cfg config.Config, coll *collector.Collector) error {
	if err := coll.Start(cfg.Interval); err != nil {
		return err
	}
	defer coll.Stop()
	prog := tea.NewProgram(New(cfg, coll.Snapshots()), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
