package sse

import (
	"bufio"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Decoder reads SSE frames from an io.Reader.
type Decoder struct {
	scanner   *bufio.Scanner
	lastID    string
	retryHint time.Duration
}

// NewDecoder creates a new SSE frame decoder.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	return &Decoder{scanner: scanner}
}

// Next returns the next frame that carries data. Frames with no "data:"
// lines (comment keep-alives, bare id updates) are consumed but not
// surfaced; their id and retry fields still take effect. Malformed field
// values are skipped with a diagnostic rather than failing the stream.
// Returns nil, io.EOF when the stream ends.
func (d *Decoder) Next() (*Event, error) {
	var (
		dataLines []string
		eventType string
		retry     time.Duration
	)

	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")

		if line == "" {
			// Blank line ends the frame. Dispatch only if it carried data.
			if len(dataLines) > 0 {
				ev := &Event{
					ID:    d.lastID,
					Type:  eventType,
					Data:  strings.Join(dataLines, "\n"),
					Retry: retry,
				}
				if ev.Type == "" {
					ev.Type = DefaultType
				}
				return ev, nil
			}
			// A data-less frame is not surfaced, but a retry hint it
			// carried stays pending and rides out on the next event.
			eventType = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, hasColon := strings.Cut(line, ":")
		if hasColon {
			value = strings.TrimPrefix(value, " ")
		}
		// A line with no colon is a field name with an empty value.

		switch field {
		case "data":
			dataLines = append(dataLines, value)
		case "event":
			eventType = value
		case "id":
			if strings.Contains(value, "\x00") {
				slog.Debug("sse.id_rejected", "reason", "contains NUL")
				continue
			}
			d.lastID = value
		case "retry":
			ms, err := strconv.Atoi(value)
			if err != nil || ms < 0 {
				slog.Debug("sse.retry_rejected", "value", value)
				continue
			}
			retry = time.Duration(ms) * time.Millisecond
			d.retryHint = retry
		default:
			// Unknown fields are ignored per the SSE grammar.
		}
	}
	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	// Stream ended mid-frame: a frame without its blank-line terminator is
	// discarded, the connection loss is what the caller acts on.
	if len(dataLines) > 0 {
		slog.Warn("sse.frame_truncated", "data_lines", len(dataLines))
	}
	return nil, io.EOF
}

// LastEventID returns the most recent id seen on this connection.
func (d *Decoder) LastEventID() string {
	return d.lastID
}

// RetryHint returns the most recent valid retry value seen on this
// connection, zero if none. It is set the moment the field is parsed,
// so a hint sent as a standalone control frame right before the server
// closes the connection is not lost.
func (d *Decoder) RetryHint() time.Duration {
	return d.retryHint
}
