package store

import "github.com/waabox/deploydeck/internal/domain"

// DefaultLogCapacity is the number of log entries kept for display.
const DefaultLogCapacity = 100

// Logs is an immutable bounded buffer of log entries in arrival order.
type Logs struct {
	entries  []domain.LogEntry
	capacity int
}

// NewLogs creates an empty buffer. A non-positive capacity selects DefaultLogCapacity.
func NewLogs(capacity int) Logs {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return Logs{capacity: capacity}
}

// Append adds entry and drops the oldest entries beyond the capacity. The cap
// is enforced on the value returned, never one append late.
func (l Logs) Append(entry domain.LogEntry) Logs {
	capacity := l.capacity
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	start := 0
	if len(l.entries)+1 > capacity {
		start = len(l.entries) + 1 - capacity
	}
	entries := make([]domain.LogEntry, 0, len(l.entries)-start+1)
	entries = append(entries, l.entries[start:]...)
	entries = append(entries, entry)
	return Logs{entries: entries, capacity: capacity}
}

// Clear empties the buffer, keeping its capacity.
func (l Logs) Clear() Logs {
	return Logs{capacity: l.capacity}
}

// Entries returns the retained entries, oldest first.
func (l Logs) Entries() []domain.LogEntry {
	return l.entries
}

// Len returns the number of retained entries.
func (l Logs) Len() int {
	return len(l.entries)
}
