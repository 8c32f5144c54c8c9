package model

import (
	"encoding/json"
	"time"
)

const (
	// HistoryCapacity bounds the rolling CPU history (60s at 1 Hz).
	HistoryCapacity = 60
	// ProcessLimit bounds the emitted process list.
	ProcessLimit = 500
)

// CPU aggregates static CPU facts with the instantaneous load of one tick.
type CPU struct {
	Model         string            `json:"model"`
	LogicalCores  int               `json:"logicalCores"`
	PhysicalCores int               `json:"physicalCores"`
	SpeedGHz      float64           `json:"speedGHz"`
	OverallLoad   float64           `json:"overallLoadPct"` // percent 0-100
	UserLoad      float64           `json:"userLoadPct"`
	SystemLoad    float64           `json:"systemLoadPct"`
	PerCore       []CoreLoad        `json:"perCoreLoads"`
	History       []CPUHistoryEntry `json:"history"`
}

// CoreLoad is one logical core's share of the last interval.
type CoreLoad struct {
	Index  int     `json:"index"`
	Load   float64 `json:"loadPct"`
	User   float64 `json:"userPct"`
	System float64 `json:"systemPct"`
	Nice   float64 `json:"nicePct"`
	Idle   float64 `json:"idlePct"`
}

// CPUHistoryEntry is one slot of the rolling CPU history.
type CPUHistoryEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	OverallLoad float64   `json:"overallLoadPct"`
	PerCore     []float64 `json:"perCoreLoadPcts"`
}

// CPUFacts are the CPU properties that do not change while the process runs.
type CPUFacts struct {
	Model         string
	LogicalCores  int
	PhysicalCores int
	SpeedGHz      float64
}

// CPULoad is the per-tick half of CPU plus the 1-minute load average.
type CPULoad struct {
	Overall float64
	User    float64
	System  float64
	PerCore []CoreLoad
	Avg1    float64
}

// Memory captures RAM and swap usage in bytes for precision.
type Memory struct {
	TotalBytes     uint64 `json:"totalBytes"`
	UsedBytes      uint64 `json:"usedBytes"`
	FreeBytes      uint64 `json:"freeBytes"`
	ActiveBytes    uint64 `json:"activeBytes"`
	AvailableBytes uint64 `json:"availableBytes"`
	CachedBytes    uint64 `json:"cachedBytes"`
	BuffersBytes   uint64 `json:"buffersBytes"`
	SwapTotalBytes uint64 `json:"swapTotalBytes"`
	SwapUsedBytes  uint64 `json:"swapUsedBytes"`
	SwapFreeBytes  uint64 `json:"swapFreeBytes"`
}

// Process is one observed process at snapshot time.
type Process struct {
	PID       int32     `json:"pid"`
	ParentPID int32     `json:"parentPid"`
	Name      string    `json:"name"`
	Command   string    `json:"command"`
	User      string    `json:"user"`
	CPU       float64   `json:"cpu"` // percent of one core, may exceed 100
	Memory    float64   `json:"mem"`
	VirtBytes uint64    `json:"virtBytes"`
	ResBytes  uint64    `json:"resBytes"`
	State     string    `json:"state"`
	Nice      int32     `json:"nice"`
	Priority  int32     `json:"priority"`
	Started   time.Time `json:"started"`
	TTY       string    `json:"tty"`
}

// Processes holds the summary counts over every observed process and the
// ranked, truncated list.
type Processes struct {
	Total    int       `json:"totalCount"`
	Running  int       `json:"runningCount"`
	Blocked  int       `json:"blockedCount"`
	Sleeping int       `json:"sleepingCount"`
	List     []Process `json:"list"`
}

// ProcessTreeNode is a process with its children, children ordered by CPU
// descending once the tree has been sorted.
type ProcessTreeNode struct {
	Process
	Children []ProcessTreeNode `json:"children"`
}

// Load is the scheduler load summary.
type Load struct {
	Avg1        float64 `json:"avg1"`
	CurrentLoad float64 `json:"currentLoadPct"`
}

// NetIface is one interface's counters and rates since the previous tick.
type NetIface struct {
	Name          string  `json:"iface"`
	RxBytes       uint64  `json:"rxBytes"`
	TxBytes       uint64  `json:"txBytes"`
	RxBytesPerSec float64 `json:"rxBytesPerSec"`
	TxBytesPerSec float64 `json:"txBytesPerSec"`
}

// DiskIO sums operation counters across block devices.
type DiskIO struct {
	ReadOps        uint64  `json:"readOps"`
	WriteOps       uint64  `json:"writeOps"`
	ReadOpsPerSec  float64 `json:"readOpsPerSec"`
	WriteOpsPerSec float64 `json:"writeOpsPerSec"`
}

// Temperature in degrees Celsius.
type Temperature struct {
	Main    float64   `json:"mainC"`
	PerCore []float64 `json:"perCoreC"`
	Max     float64   `json:"maxC"`
}

// Filesystem is one mounted filesystem's usage.
type Filesystem struct {
	Device         string  `json:"fs"`
	Type           string  `json:"type"`
	Mount          string  `json:"mount"`
	SizeBytes      uint64  `json:"sizeBytes"`
	UsedBytes      uint64  `json:"usedBytes"`
	AvailableBytes uint64  `json:"availableBytes"`
	UsePct         float64 `json:"usePct"`
}

// OS identifies the host. Fetched once.
type OS struct {
	Platform string `json:"platform"`
	Distro   string `json:"distro"`
	Release  string `json:"release"`
	Kernel   string `json:"kernel"`
	Hostname string `json:"hostname"`
}

// Snapshot is the full point-in-time state handed from the collector to its
// consumer. It must not be modified after emission.
type Snapshot struct {
	Timestamp     time.Time    `json:"timestamp"`
	CPU           CPU          `json:"cpu"`
	Memory        Memory       `json:"memory"`
	Processes     Processes    `json:"processes"`
	Load          Load         `json:"load"`
	UptimeSeconds uint64       `json:"uptimeSeconds"`
	Network       []NetIface   `json:"network"`
	Disk          *DiskIO      `json:"disk,omitempty"`
	Temperature   *Temperature `json:"temperature,omitempty"`
	Filesystems   []Filesystem `json:"filesystems"`
	OS            OS           `json:"os"`
}

// Zero returns an empty snapshot for initialization.
func Zero() Snapshot { return Snapshot{Timestamp: time.Now()} }

// MarshalJSON writes Timestamp as epoch milliseconds.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	return json.Marshal(struct {
		plain
		Timestamp int64 `json:"timestamp"`
	}{plain(s), s.Timestamp.UnixMilli()})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	aux := struct {
		*plain
		Timestamp int64 `json:"timestamp"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Timestamp = time.UnixMilli(aux.Timestamp)
	return nil
}

// MarshalJSON writes Timestamp as epoch milliseconds, like Snapshot.
func (e CPUHistoryEntry) MarshalJSON() ([]byte, error) {
	type plain CPUHistoryEntry
	return json.Marshal(struct {
		plain
		Timestamp int64 `json:"timestamp"`
	}{plain(e), e.Timestamp.UnixMilli()})
}

func (e *CPUHistoryEntry) UnmarshalJSON(data []byte) error {
	type plain CPUHistoryEntry
	aux := struct {
		*plain
		Timestamp int64 `json:"timestamp"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Timestamp = time.UnixMilli(aux.Timestamp)
	return nil
}
