package collector

import "github.com/Dicklesworthstone/aerotop/internal/model"

// History is a fixed-capacity FIFO ring of CPU readings.
type History struct {
	buf   []model.CPUHistoryEntry
	start int
	n     int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]model.CPUHistoryEntry, capacity)}
}

// Push appends e, evicting the oldest entry when full.
func (h *History) Push(e model.CPUHistoryEntry) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = e
		h.n++
		return
	}
	h.buf[h.start] = e
	h.start = (h.start + 1) % len(h.buf)
}

func (h *History) Len() int { return h.n }

// Entries copies the ring out, oldest first.
func (h *History) Entries() []model.CPUHistoryEntry {
	out := make([]model.CPUHistoryEntry, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}
