package engine

import (
	"time"

	"nodepulse/internal/domain"
)

const (
	minHistoryCapacity = 2
	maxHistoryCapacity = 1008
)

// HistoryWindow is a bounded, time-ordered window of node snapshots.
// It is the sole owner of snapshot lifetime: entries enter through Append
// after a successful fetch and leave only through capacity eviction.
type HistoryWindow struct {
	entries  []domain.Snapshot
	capacity int
}

func NewHistoryWindow(capacity int) *HistoryWindow {
	if capacity < minHistoryCapacity {
		capacity = minHistoryCapacity
	}
	if capacity > maxHistoryCapacity {
		capacity = maxHistoryCapacity
	}
	return &HistoryWindow{
		entries:  make([]domain.Snapshot, 0, capacity),
		capacity: capacity,
	}
}

// Append inserts at the tail, then evicts from the head while over
// capacity. Entries older than the current tail are dropped so the
// window stays non-decreasing by timestamp.
func (w *HistoryWindow) Append(s domain.Snapshot) {
	if n := len(w.entries); n > 0 && s.Timestamp.Before(w.entries[n-1].Timestamp) {
		return
	}
	w.entries = append(w.entries, s)
	for len(w.entries) > w.capacity {
		w.entries = w.entries[1:]
	}
}

func (w *HistoryWindow) Size() int {
	return len(w.entries)
}

func (w *HistoryWindow) Capacity() int {
	return w.capacity
}

// Entries returns a copy of the window, oldest first.
func (w *HistoryWindow) Entries() []domain.Snapshot {
	out := make([]domain.Snapshot, len(w.entries))
	copy(out, w.entries)
	return out
}

// Latest returns the newest snapshot.
func (w *HistoryWindow) Latest() (domain.Snapshot, bool) {
	if len(w.entries) == 0 {
		return domain.Snapshot{}, false
	}
	return w.entries[len(w.entries)-1], true
}

// Previous returns the snapshot immediately before the newest one.
func (w *HistoryWindow) Previous() (domain.Snapshot, bool) {
	if len(w.entries) < 2 {
		return domain.Snapshot{}, false
	}
	return w.entries[len(w.entries)-2], true
}

// Nearest scans every entry except the most recent and returns the one
// with the minimum absolute time difference to target. It reports false
// when fewer than two such candidates exist. Used to find "previous day"
// baselines; a linear scan is fine at this capacity.
func (w *HistoryWindow) Nearest(target time.Time) (domain.Snapshot, bool) {
	candidates := w.entries
	if len(candidates) > 0 {
		candidates = candidates[:len(candidates)-1]
	}
	if len(candidates) < 2 {
		return domain.Snapshot{}, false
	}

	best := candidates[0]
	bestDiff := absDuration(candidates[0].Timestamp.Sub(target))
	for _, s := range candidates[1:] {
		if d := absDuration(s.Timestamp.Sub(target)); d < bestDiff {
			bestDiff = d
			best = s
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
