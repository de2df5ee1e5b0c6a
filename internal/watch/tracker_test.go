package watch

import (
	"reflect"
	"testing"
)

func TestTrackerAdvance(t *testing.T) {
	var tr Tracker

	got := tr.Advance([]int{5, 3, 9})
	if !reflect.DeepEqual(got, []int{3, 5, 9}) {
		t.Errorf("first batch: got %v", got)
	}
	if tr.MaxID() != 9 {
		t.Errorf("watermark: got %d, want 9", tr.MaxID())
	}
}

// Reconnect replays overlap the previous batch; nothing at or below the
// watermark may come back.
func TestTrackerFiltersReplays(t *testing.T) {
	var tr Tracker
	tr.Advance([]int{1, 2, 3})

	got := tr.Advance([]int{2, 3, 4, 5})
	if !reflect.DeepEqual(got, []int{4, 5}) {
		t.Errorf("replay batch: got %v", got)
	}

	if got := tr.Advance([]int{1, 2, 3, 4, 5}); got != nil {
		t.Errorf("full replay: got %v, want nil", got)
	}
}

func TestTrackerEmptyBatch(t *testing.T) {
	var tr Tracker
	tr.Advance([]int{10})
	if got := tr.Advance(nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if tr.MaxID() != 10 {
		t.Errorf("watermark moved on empty batch: %d", tr.MaxID())
	}
}
