// Package procview turns a snapshot's process list into display rows.
//
// Everything here is a pure function of its inputs: ViewState is a value,
// owned by whoever drives the display, and each call returns a new one.
package procview

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Dicklesworthstone/aerotop/internal/model"
	"github.com/Dicklesworthstone/aerotop/internal/proctree"
)

// Direction of a sort.
type Direction int

const (
	Descending Direction = -1
	Ascending  Direction = 1
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// ViewState is the presentation state changed only by user actions.
type ViewState struct {
	SortColumn    Column
	SortDirection Direction
	SearchQuery   string
	SelectedPID   int32
	HasSelection  bool
	TreeMode      bool
}

// DefaultState sorts by CPU descending with nothing selected.
func DefaultState() ViewState {
	return ViewState{SortColumn: ColCPU, SortDirection: Descending}
}

// Row is a process ready for display. Depth and Prefix are only set in tree
// mode.
type Row struct {
	model.Process
	Depth  int
	Prefix string
}

// Render filters and orders list according to state. An empty list gives an
// empty result in either mode.
func Render(list []model.Process, state ViewState) []Row {
	if state.TreeMode {
		return renderTree(list, state.SearchQuery)
	}
	return renderFlat(list, state)
}

func renderFlat(list []model.Process, state ViewState) []Row {
	needle := strings.ToLower(state.SearchQuery)
	rows := make([]Row, 0, len(list))
	for _, p := range list {
		if Matches(p, needle) {
			rows = append(rows, Row{Process: p})
		}
	}

	col := state.SortColumn
	if col == "" {
		col = ColCPU
	}
	dir := state.SortDirection
	if dir == 0 {
		dir = col.DefaultDirection()
	}

	var cmp func(a, b model.Process) int
	if col.IsString() {
		coll := collate.New(language.English)
		cmp = func(a, b model.Process) int {
			return coll.CompareString(col.text(a), col.text(b))
		}
	} else {
		cmp = func(a, b model.Process) int {
			d := col.number(a) - col.number(b)
			switch {
			case d < 0:
				return -1
			case d > 0:
				return 1
			}
			return 0
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return cmp(rows[i].Process, rows[j].Process)*int(dir) < 0
	})
	return rows
}

// renderTree links the full, unfiltered list and filters only after
// flattening, so a surviving row keeps the depth and prefix it had.
func renderTree(list []model.Process, query string) []Row {
	needle := strings.ToLower(query)
	entries := proctree.Build(list).Flatten()
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		if Matches(e.Process, needle) {
			rows = append(rows, Row{Process: e.Process, Depth: e.Depth, Prefix: e.Prefix})
		}
	}
	return rows
}

// Matches reports whether needle (already lower-cased) occurs in the name,
// command, user or decimal pid of p. The empty needle matches everything.
func Matches(p model.Process, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Command), needle) ||
		strings.Contains(strings.ToLower(p.User), needle) ||
		strings.Contains(strconv.FormatInt(int64(p.PID), 10), needle)
}

// Navigate moves the selection by direction rows within the visible rows,
// clamping at both ends. Without a visible selection it starts from the top.
func Navigate(direction int, rows []Row, state ViewState) ViewState {
	if len(rows) == 0 {
		return state
	}
	cur := -1
	if state.HasSelection {
		cur = indexOf(rows, state.SelectedPID)
	}
	next := cur + direction
	if next < 0 {
		next = 0
	}
	if next >= len(rows) {
		next = len(rows) - 1
	}
	state.SelectedPID = rows[next].PID
	state.HasSelection = true
	return state
}

// Select stores pid as the selection whether or not it is visible.
func Select(state ViewState, pid int32) ViewState {
	state.SelectedPID = pid
	state.HasSelection = true
	return state
}

// SelectedRow finds the selected process among rows.
func SelectedRow(rows []Row, state ViewState) (Row, bool) {
	if !state.HasSelection {
		return Row{}, false
	}
	if i := indexOf(rows, state.SelectedPID); i >= 0 {
		return rows[i], true
	}
	return Row{}, false
}

func indexOf(rows []Row, pid int32) int {
	for i := range rows {
		if rows[i].PID == pid {
			return i
		}
	}
	return -1
}

// CycleSortColumn advances to the next column and resets the direction to
// that column's default.
func CycleSortColumn(state ViewState) ViewState {
	idx := -1
	for i, c := range Columns {
		if c == state.SortColumn {
			idx = i
			break
		}
	}
	state.SortColumn = Columns[(idx+1)%len(Columns)]
	state.SortDirection = state.SortColumn.DefaultDirection()
	return state
}

// SortBy flips the direction when col is already active, otherwise switches
// to col with its default direction.
func SortBy(state ViewState, col Column) ViewState {
	if state.SortColumn == col {
		state.SortDirection = -state.SortDirection
		if state.SortDirection == 0 {
			state.SortDirection = col.DefaultDirection()
		}
		return state
	}
	state.SortColumn = col
	state.SortDirection = col.DefaultDirection()
	return state
}

// ToggleTree switches between the flat table and the tree.
func ToggleTree(state ViewState) ViewState {
	state.TreeMode = !state.TreeMode
	return state
}

// Search replaces the query.
func Search(state ViewState, query string) ViewState {
	state.SearchQuery = query
	return state
}
