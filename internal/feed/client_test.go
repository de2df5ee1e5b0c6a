package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hnlive/hnlive/internal/sse"
)

func testBackoff() Option {
	return WithBackoff(time.Millisecond, 5*time.Millisecond)
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "not a url", "/relative/path"} {
		if _, err := New(endpoint); !errors.Is(err, ErrBadEndpoint) {
			t.Errorf("New(%q): got %v, want ErrBadEndpoint", endpoint, err)
		}
	}
}

func TestConnectStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Connect(context.Background(), "")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want StatusError", err)
	}
	if se.StatusCode != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", se.StatusCode)
	}
}

func TestConnectProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "{}")
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Connect(context.Background(), "")
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want ProtocolError", err)
	}
}

func TestConnectSendsLastEventID(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Last-Event-ID")
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	conn, err := c.Connect(context.Background(), "42")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn.Close()

	if gotHeader != "42" {
		t.Errorf("Last-Event-ID: got %q, want 42", gotHeader)
	}
}

// The resume round-trip from the published behavior: the server emits
// id 1, drops the connection, and must see Last-Event-ID: 1 on the
// reconnect before emitting id 2. The handler sees exactly two events,
// in order.
func TestRunResumesAfterDisconnect(t *testing.T) {
	var (
		mu       sync.Mutex
		connects int
		resumeID string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connects++
		n := connects
		if n == 2 {
			resumeID = r.Header.Get("Last-Event-ID")
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)
		switch n {
		case 1:
			fmt.Fprint(w, "id: 1\ndata: {\"a\":1}\n\n")
		case 2:
			fmt.Fprint(w, "id: 2\ndata: {\"a\":2}\n\n")
		default:
			// Keep later connections empty so the test controls shutdown.
		}
		f.Flush()
	}))
	defer srv.Close()

	c, err := New(srv.URL, testBackoff())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []string
	err = c.Run(ctx, func(_ context.Context, ev *sse.Event) error {
		got = append(got, ev.Data)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled", err)
	}

	if len(got) != 2 || got[0] != `{"a":1}` || got[1] != `{"a":2}` {
		t.Fatalf("handler deliveries: got %v", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if resumeID != "1" {
		t.Errorf("reconnect Last-Event-ID: got %q, want 1", resumeID)
	}
	if c.LastEventID() != "2" {
		t.Errorf("cursor: got %q, want 2", c.LastEventID())
	}
}

// A retry hint sent as a standalone control frame right before the
// server closes must govern the next reconnection wait: with a 1ms test
// base, a 300ms hint puts the jittered wait at 150ms or more.
func TestRunRetryHintOnDisconnect(t *testing.T) {
	var (
		mu       sync.Mutex
		connects []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connects = append(connects, time.Now())
		n := len(connects)
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)
		if n == 1 {
			fmt.Fprint(w, "retry: 300\n\n")
			f.Flush()
			return
		}
		fmt.Fprint(w, "id: 1\ndata: x\n\n")
		f.Flush()
	}))
	defer srv.Close()

	c, err := New(srv.URL, testBackoff())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = c.Run(ctx, func(context.Context, *sse.Event) error {
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(connects) < 2 {
		t.Fatalf("connects: got %d, want at least 2", len(connects))
	}
	if gap := connects[1].Sub(connects[0]); gap < 150*time.Millisecond {
		t.Errorf("reconnect wait: got %v, want >= 150ms from the retry hint", gap)
	}
}

func TestRunHandlerErrorTerminates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "id: 9\ndata: boom\n\n")
		w.(http.Flusher).Flush()
	}))
	defer srv.Close()

	c, err := New(srv.URL, testBackoff())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cause := errors.New("sink exploded")
	err = c.Run(context.Background(), func(context.Context, *sse.Event) error {
		return cause
	})

	var he *HandlerError
	if !errors.As(err, &he) {
		t.Fatalf("got %v, want HandlerError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("HandlerError must wrap the handler's error")
	}
	if c.LastEventID() != "" {
		t.Errorf("failed delivery must not advance the cursor, got %q", c.LastEventID())
	}
	if c.State() != StateDisconnected {
		t.Errorf("state after Run: got %v, want disconnected", c.State())
	}
}

func TestRunRetriesConnectFailures(t *testing.T) {
	var mu sync.Mutex
	connects := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connects++
		n := connects
		mu.Unlock()

		if n < 3 {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "id: 5\ndata: finally\n\n")
		w.(http.Flusher).Flush()
	}))
	defer srv.Close()

	c, err := New(srv.URL, testBackoff())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	delivered := 0
	err = c.Run(ctx, func(context.Context, *sse.Event) error {
		delivered++
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled", err)
	}
	if delivered != 1 {
		t.Errorf("deliveries: got %d, want 1", delivered)
	}
	mu.Lock()
	defer mu.Unlock()
	if connects < 3 {
		t.Errorf("connects: got %d, want at least 3", connects)
	}
}

func TestRunCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	// Long backoff so cancellation must interrupt the wait.
	c, err := New(srv.URL, WithBackoff(time.Hour, time.Hour))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(context.Context, *sse.Event) error { return nil })
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run: got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not interrupt the backoff wait")
	}
}

type mapStore struct {
	mu    sync.Mutex
	id    string
	saves int
}

func (s *mapStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, nil
}

func (s *mapStore) Save(id string) error {
	s.mu.Lock()
	s.id = id
	s.saves++
	s.mu.Unlock()
	return nil
}

func TestCursorStoreSeedsAndPersists(t *testing.T) {
	store := &mapStore{id: "10"}

	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Last-Event-ID")
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "id: 11\ndata: next\n\n")
		w.(http.Flusher).Flush()
	}))
	defer srv.Close()

	c, err := New(srv.URL, testBackoff(), WithCursorStore(store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.LastEventID() != "10" {
		t.Fatalf("seeded cursor: got %q, want 10", c.LastEventID())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Run(ctx, func(context.Context, *sse.Event) error {
		cancel()
		return nil
	})

	if gotHeader != "10" {
		t.Errorf("first connect Last-Event-ID: got %q, want 10", gotHeader)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.id != "11" || store.saves == 0 {
		t.Errorf("store after delivery: id %q saves %d", store.id, store.saves)
	}
}
