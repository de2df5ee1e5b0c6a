// Package watch wires the feed client, the item client, and the sinks
// into the live story loop.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hnlive/hnlive/internal/feed"
	"github.com/hnlive/hnlive/internal/hn"
	"github.com/hnlive/hnlive/internal/sink"
	"github.com/hnlive/hnlive/internal/sse"
)

// Resolver is the part of hn.Client the watcher needs.
type Resolver interface {
	Resolve(ctx context.Context, id int, postedAt time.Time) (*hn.Item, error)
}

// Watcher consumes new-story events and announces resolved items.
type Watcher struct {
	Items Resolver
	Sinks sink.Sink

	// Strict makes sink failures terminate the stream instead of being
	// logged and skipped.
	Strict bool

	// Console, when set, receives the red diagnostic for stories that
	// could not be resolved at all.
	Console *sink.Console

	tracker Tracker
	warmed  bool
}

// Handler returns the feed.Handler that drives this watcher.
//
// The first batch after startup is backlog: it advances the watermark so
// reconnect replays are deduplicated, but its items are neither fetched
// nor announced. Every batch after it is live.
func (w *Watcher) Handler() feed.Handler {
	return func(ctx context.Context, ev *sse.Event) error {
		ids := hn.StoryIDs([]byte(ev.Data))
		if ids == nil {
			// Keep-alive or unrecognized payload; the decoder already
			// guarantees the frame was well-formed SSE.
			return nil
		}

		fresh := w.tracker.Advance(ids)
		announce := w.warmed
		w.warmed = true
		if !announce {
			slog.Info("watch.backlog", "stories", len(fresh), "watermark", w.tracker.MaxID())
			return nil
		}

		for _, id := range fresh {
			if err := w.announce(ctx, id); err != nil {
				return err
			}
		}
		return nil
	}
}

func (w *Watcher) announce(ctx context.Context, id int) error {
	item, err := w.Items.Resolve(ctx, id, time.Now())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, hn.ErrItemUnavailable) {
			slog.Warn("watch.unresolvable", "id", id)
			if w.Console != nil {
				w.Console.Unresolvable(id)
			}
			return nil
		}
		return err
	}

	if err := w.Sinks.Announce(ctx, item); err != nil {
		if w.Strict {
			return err
		}
		slog.Warn("watch.sink_failed", "id", id, "error", err)
	}
	return nil
}
