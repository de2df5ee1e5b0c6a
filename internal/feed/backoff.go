package feed

import (
	"math/rand"
	"time"
)

// backoff computes reconnection delays: exponential doubling from base up
// to max, with jitter. A server-sent retry field replaces the base, and a
// successful delivery resets the attempt counter.
type backoff struct {
	base    time.Duration
	max     time.Duration
	attempt int
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max}
}

// delay is the unjittered schedule for the current attempt.
func (b *backoff) delay() time.Duration {
	d := b.base
	for i := 0; i < b.attempt; i++ {
		d *= 2
		if d >= b.max {
			return b.max
		}
	}
	if d > b.max {
		return b.max
	}
	return d
}

// next returns the wait for the current attempt, jittered into
// [delay/2, delay], and advances the attempt counter.
func (b *backoff) next() time.Duration {
	d := b.delay()
	b.attempt++
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int63n(int64(d-half+1)))
}

// reset returns the schedule to the base delay.
func (b *backoff) reset() {
	b.attempt = 0
}

// setBase adopts a server-suggested reconnection delay as the new base.
func (b *backoff) setBase(d time.Duration) {
	if d <= 0 {
		return
	}
	b.base = d
	if b.base > b.max {
		b.max = b.base
	}
}
