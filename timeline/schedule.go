// Package timeline schedules visualization presets against audio time.
//
// A timeline is a list of segments, each naming a preset and the span of
// playback it covers. Schedule answers "which segment governs time t" in
// O(log n), with an O(1) path for the common case where the answer has not
// changed since the previous frame. Scheduler drives an engine from those
// answers.
//
// Lookup rules:
//   - A segment is eligible once its start is at or before t (within Epsilon).
//   - Among eligible segments the earliest one that has not yet expired wins,
//     so a segment is never displaced by one buried behind it.
//   - When every eligible segment has expired, the last eligible one holds,
//     which makes the final segment govern indefinitely.
package timeline

import (
	"fmt"
	"sort"
)

// Epsilon absorbs timestamp jitter at segment boundaries.
const Epsilon = 1e-6

// Schedule is an immutable, start-ordered set of entries.
type Schedule struct {
	entries []Entry
	// maxEnd[i] is the latest end time among entries[0..i].
	maxEnd []float64
}

// NewSchedule validates entries and returns them sorted by start time.
// Entries with equal start keep their relative order.
func NewSchedule(entries []Entry) (*Schedule, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	for i, e := range sorted {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Name, err)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	maxEnd := make([]float64, len(sorted))
	for i, e := range sorted {
		maxEnd[i] = e.End()
		if i > 0 && maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}
	return &Schedule{entries: sorted, maxEnd: maxEnd}, nil
}

// Len returns the number of entries.
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entry returns entry i.
func (s *Schedule) Entry(i int) Entry { return s.entries[i] }

// Entries returns a copy of the sorted entries.
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Find returns the index of the entry governing time t, or false when t
// precedes the first entry. hint is the previously returned index (-1 for
// none); when it still governs t it is returned without searching.
func (s *Schedule) Find(t float64, hint int) (int, bool) {
	if s.Len() == 0 {
		return -1, false
	}
	if hint >= 0 && hint < len(s.entries) && s.governs(hint, t) {
		return hint, true
	}
	i := s.search(t)
	return i, i >= 0
}

// governs reports whether entry i is the lookup result for t.
func (s *Schedule) governs(i int, t float64) bool {
	x := t + Epsilon
	e := s.entries[i]
	if e.Start > x {
		return false
	}
	// An earlier segment that is still running takes precedence.
	if i > 0 && s.maxEnd[i-1] > x {
		return false
	}
	if x < e.End() {
		return true
	}
	return i == len(s.entries)-1 || s.entries[i+1].Start > x
}

// search is the O(log n) lookup. It returns -1 when no entry has started.
func (s *Schedule) search(t float64) int {
	x := t + Epsilon
	n := len(s.entries)
	started := sort.Search(n, func(i int) bool { return s.entries[i].Start > x })
	if started == 0 {
		return -1
	}
	running := sort.Search(started, func(i int) bool { return s.maxEnd[i] > x })
	if running < started {
		return running
	}
	return started - 1
}
