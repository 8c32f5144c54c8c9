package procview

import (
	"fmt"

	"github.com/Dicklesworthstone/aerotop/internal/model"
)

// Column names a sortable process attribute.
type Column string

const (
	ColCPU      Column = "cpu"
	ColMem      Column = "mem"
	ColPID      Column = "pid"
	ColUser     Column = "user"
	ColPriority Column = "priority"
	ColNice     Column = "nice"
	ColVirt     Column = "virt"
	ColRes      Column = "res"
	ColCommand  Column = "command"
	ColState    Column = "state"
	ColStarted  Column = "started"
)

// Columns is the sort cycling order.
var Columns = []Column{
	ColCPU, ColMem, ColPID, ColUser, ColPriority, ColNice,
	ColVirt, ColRes, ColCommand, ColState, ColStarted,
}

var labels = map[Column]string{
	ColCPU:      "CPU%",
	ColMem:      "MEM%",
	ColPID:      "PID",
	ColUser:     "USER",
	ColPriority: "PRI",
	ColNice:     "NI",
	ColVirt:     "VIRT",
	ColRes:      "RES",
	ColCommand:  "Command",
	ColState:    "S",
	ColStarted:  "TIME+",
}

// Label is the column header text.
func (c Column) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

// IsString reports whether the column compares as text.
func (c Column) IsString() bool {
	switch c {
	case ColCommand, ColUser, ColState:
		return true
	}
	return false
}

// DefaultDirection is ascending for text columns and descending otherwise.
func (c Column) DefaultDirection() Direction {
	if c.IsString() {
		return Ascending
	}
	return Descending
}

// ParseColumn validates a column name from config or flags.
func ParseColumn(s string) (Column, error) {
	for _, c := range Columns {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown sort column %q", s)
}

func (c Column) text(p model.Process) string {
	switch c {
	case ColCommand:
		return p.Command
	case ColUser:
		return p.User
	case ColState:
		return p.State
	}
	return ""
}

// number returns the numeric sort key; anything unset is 0.
func (c Column) number(p model.Process) float64 {
	switch c {
	case ColCPU:
		return p.CPU
	case ColMem:
		return p.Memory
	case ColPID:
		return float64(p.PID)
	case ColPriority:
		return float64(p.Priority)
	case ColNice:
		return float64(p.Nice)
	case ColVirt:
		return float64(p.VirtBytes)
	case ColRes:
		return float64(p.ResBytes)
	case ColStarted:
		if p.Started.IsZero() {
			return 0
		}
		return float64(p.Started.UnixMilli())
	}
	return 0
}
