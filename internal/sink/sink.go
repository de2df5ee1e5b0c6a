// Package sink holds the consumers a watched feed announces items to:
// the console printer, a Kafka topic, and a Postgres archive.
package sink

import (
	"context"
	"errors"

	"github.com/hnlive/hnlive/internal/hn"
)

// Sink consumes resolved feed items.
type Sink interface {
	Announce(ctx context.Context, item *hn.Item) error
	Close() error
}

// Multi fans an item out to several sinks in order. Every sink sees the
// item even when an earlier one fails; the failures are joined.
type Multi []Sink

func (m Multi) Announce(ctx context.Context, item *hn.Item) error {
	var errs []error
	for _, s := range m {
		if err := s.Announce(ctx, item); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
