package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/hnlive/hnlive/internal/sse"
)

// Handler consumes one decoded event. A non-nil error terminates the run
// loop: the client never swallows a handler failure.
type Handler func(ctx context.Context, ev *sse.Event) error

// Run drives the connect/decode/dispatch loop until ctx is cancelled
// or the handler fails. Transport drops and bad responses are retried
// indefinitely with jittered exponential backoff; the cursor of the last
// handled event is replayed as Last-Event-ID on every reconnect.
func (c *Client) Run(ctx context.Context, handler Handler) error {
	defer c.setState(StateDisconnected)

	bo := newBackoff(c.backoffBase, c.backoffMax)

	for {
		c.setState(StateConnecting)
		conn, err := c.Connect(ctx, c.LastEventID())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := c.waitBackoff(ctx, bo, err, ""); err != nil {
				return err
			}
			continue
		}

		c.setState(StateStreaming)
		streamErr := c.stream(ctx, conn, handler, bo)
		conn.Close()

		// Apply the server's retry suggestion after the connection drops,
		// not at dispatch time: the hint usually arrives as a standalone
		// control frame right before the server closes.
		if hint := conn.RetryHint(); hint > 0 {
			if c.verbose {
				slog.Info("feed.retry_hint", "conn_id", conn.ID, "retry", hint)
			}
			bo.setBase(hint)
		}

		var he *HandlerError
		if errors.As(streamErr, &he) {
			return streamErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.waitBackoff(ctx, bo, streamErr, conn.ID); err != nil {
			return err
		}
	}
}

// stream pumps events from one connection until it drops. Returns the
// transport error that ended it (io.EOF for a clean server close), or a
// HandlerError.
func (c *Client) stream(ctx context.Context, conn *Conn, handler Handler, bo *backoff) error {
	for {
		ev, err := conn.Next()
		if err != nil {
			return err
		}

		if err := handler(ctx, ev); err != nil {
			return &HandlerError{EventID: ev.ID, Err: err}
		}
		c.advanceCursor(ev.ID)
		bo.reset()
	}
}

// advanceCursor records the id of a successfully handled event. Only the
// run loop calls this, keeping the cursor single-writer.
func (c *Client) advanceCursor(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.lastID = id
	c.mu.Unlock()

	if c.cursor != nil {
		if err := c.cursor.Save(id); err != nil {
			slog.Warn("feed.cursor_save_failed", "id", id, "error", err)
		}
	}
}

func (c *Client) waitBackoff(ctx context.Context, bo *backoff, cause error, connID string) error {
	delay := bo.next()
	attrs := []any{"retry_in", delay}
	if connID != "" {
		attrs = append(attrs, "conn_id", connID)
	}
	if cause != nil && cause != io.EOF {
		attrs = append(attrs, "error", cause)
	}
	slog.Warn("feed.reconnecting", attrs...)

	c.setState(StateBackoff)
	return sleepCtx(ctx, delay)
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
