package sse

import "time"

// DefaultType is the event type assumed when a frame carries no "event:" field.
const DefaultType = "message"

// Event is a single decoded Server-Sent-Events frame.
type Event struct {
	// ID is the stream position token from the "id:" field. Sticky: frames
	// without an "id:" field inherit the last one seen on the connection.
	ID string
	// Type is the "event:" field, or DefaultType when absent.
	Type string
	// Data is the newline-joined concatenation of the frame's "data:" lines.
	// The payload is opaque here; callers decode it per their own schema.
	Data string
	// Retry is the server-suggested reconnection delay from a "retry:" field,
	// zero when the frame carried none.
	Retry time.Duration
}
