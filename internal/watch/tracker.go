package watch

import "sort"

// Tracker keeps the monotonic story-id watermark. The feed replays
// overlapping id batches across reconnects; Advance filters them so a
// story is surfaced at most once per process.
type Tracker struct {
	maxID int
}

// Advance returns the ids strictly above the watermark in ascending
// order and raises the watermark to the highest of them.
func (t *Tracker) Advance(ids []int) []int {
	var fresh []int
	for _, id := range ids {
		if id <= t.maxID {
			continue
		}
		fresh = append(fresh, id)
	}
	sort.Ints(fresh)
	if n := len(fresh); n > 0 {
		t.maxID = fresh[n-1]
	}
	return fresh
}

// MaxID returns the current watermark.
func (t *Tracker) MaxID() int {
	return t.maxID
}
