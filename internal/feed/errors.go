package feed

import (
	"errors"
	"fmt"
)

// ErrBadEndpoint marks an endpoint URL that cannot be dialed at all.
// It is fatal: the run loop reports it instead of retrying.
var ErrBadEndpoint = errors.New("invalid feed endpoint")

// ConnectError is a transport-level connection failure. Retryable.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// StatusError is a non-success HTTP response from the feed endpoint.
// Retryable; Body holds a bounded prefix of the response for logging.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed endpoint %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

// ProtocolError reports a response that is not an event stream.
// Retryable at the connection level.
type ProtocolError struct {
	ContentType string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("expected text/event-stream, got %q", e.ContentType)
}

// HandlerError wraps a failure returned by the caller's handler. The run
// loop never swallows it: Run terminates and returns the wrapped error.
type HandlerError struct {
	EventID string
	Err     error
}

func (e *HandlerError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("handler failed on event %s: %v", e.EventID, e.Err)
	}
	return fmt.Sprintf("handler failed: %v", e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
