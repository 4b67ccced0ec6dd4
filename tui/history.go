// Package tui provides a Bubble Tea terminal monitor for a running region.
package tui

import "strings"

// History keeps submitted lines, newest last. Navigation only visits
// entries that start with the text typed before the first Prev, so "/st"
// then Up walks back through earlier /state and /step lines.
type History struct {
	entries []string
	max     int
	cursor  int    // -1 when not navigating
	prefix  string // filter fixed by the first Prev
}

// NewHistory creates a history holding at most max lines.
func NewHistory(max int) *History {
	return &History{entries: make([]string, 0, max), max: max, cursor: -1}
}

// Push records a line. An earlier copy of the same line is moved to the
// end instead of being kept twice.
func (h *History) Push(line string) {
	for i, e := range h.entries {
		if e == line {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Prev moves to the next older entry matching the prefix. On the first
// call typed becomes the prefix. At the oldest match it stays put.
func (h *History) Prev(typed string) (string, bool) {
	start := h.cursor - 1
	if h.cursor == -1 {
		h.prefix = typed
		start = len(h.entries) - 1
	}
	for i := start; i >= 0; i-- {
		if strings.HasPrefix(h.entries[i], h.prefix) {
			h.cursor = i
			return h.entries[i], true
		}
	}
	if h.cursor >= 0 {
		return h.entries[h.cursor], true
	}
	return "", false
}

// Next moves to the next newer match. Past the newest it stops navigating
// and returns false; Prefix then holds the text to restore.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	for i := h.cursor + 1; i < len(h.entries); i++ {
		if strings.HasPrefix(h.entries[i], h.prefix) {
			h.cursor = i
			return h.entries[i], true
		}
	}
	h.cursor = -1
	return "", false
}

// Prefix returns the filter of the current or last navigation.
func (h *History) Prefix() string {
	return h.prefix
}

// ResetCursor ends navigation.
func (h *History) ResetCursor() {
	h.cursor = -1
	h.prefix = ""
}
