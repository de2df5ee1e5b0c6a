package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/hnlive/hnlive/internal/hn"
)

type stubSink struct {
	announced int
	closed    bool
	err       error
}

func (s *stubSink) Announce(context.Context, *hn.Item) error {
	s.announced++
	return s.err
}

func (s *stubSink) Close() error {
	s.closed = true
	return s.err
}

func TestMultiAnnouncesAll(t *testing.T) {
	a, b := &stubSink{}, &stubSink{}
	m := Multi{a, b}

	if err := m.Announce(context.Background(), &hn.Item{ID: 1}); err != nil {
		t.Fatalf("Announce: %v", err)
	}
	if a.announced != 1 || b.announced != 1 {
		t.Errorf("announced: a=%d b=%d", a.announced, b.announced)
	}
}

// A failing sink must not shadow the others: every sink still sees the
// item and the failure is reported.
func TestMultiFailureDoesNotShortCircuit(t *testing.T) {
	boom := errors.New("boom")
	a, b := &stubSink{err: boom}, &stubSink{}
	m := Multi{a, b}

	err := m.Announce(context.Background(), &hn.Item{ID: 1})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want the sink error", err)
	}
	if b.announced != 1 {
		t.Error("second sink skipped after first failed")
	}
}

func TestMultiClose(t *testing.T) {
	a, b := &stubSink{}, &stubSink{}
	m := Multi{a, b}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("not all sinks closed")
	}
}
