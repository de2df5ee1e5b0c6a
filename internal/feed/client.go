package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hnlive/hnlive/internal/sse"
)

// responseHeaderTimeout bounds the wait for upstream response headers.
// The stream itself is long-lived, so the client carries no overall timeout.
const responseHeaderTimeout = 30 * time.Second

// errBodyLimit bounds how much of an error response is read for diagnostics.
const errBodyLimit = 4 * 1024

// defaultHTTPClient is the shared HTTP client for feed connections.
var defaultHTTPClient = &http.Client{
	Transport: &http.Transport{
		ResponseHeaderTimeout: responseHeaderTimeout,
	},
}

// CursorStore persists the stream cursor across restarts.
type CursorStore interface {
	Load() (string, error)
	Save(id string) error
}

// Client subscribes to a Server-Sent-Events endpoint and redelivers
// decoded frames to a handler, reconnecting with backoff on transport
// failures. All retry state lives on the instance, so independent
// subscriptions never interfere.
type Client struct {
	endpoint string
	http     *http.Client
	cursor   CursorStore
	verbose  bool

	backoffBase time.Duration
	backoffMax  time.Duration

	state  atomic.Int32
	mu     sync.Mutex
	lastID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for connections.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBackoff sets the base and ceiling of the reconnection delay.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.backoffBase = base
		}
		if max > 0 {
			c.backoffMax = max
		}
	}
}

// WithLastEventID seeds the resumption cursor for the first connection.
func WithLastEventID(id string) Option {
	return func(c *Client) { c.lastID = id }
}

// WithCursorStore persists the cursor after each delivered event and, when
// no explicit WithLastEventID is given, seeds it from the store.
func WithCursorStore(s CursorStore) Option {
	return func(c *Client) { c.cursor = s }
}

// WithVerbose enables per-connection debug logging.
func WithVerbose(v bool) Option {
	return func(c *Client) { c.verbose = v }
}

// New creates a feed client for the given SSE endpoint. The URL is
// validated eagerly: a malformed endpoint is a configuration error and
// is reported here, before any dial.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadEndpoint, endpoint)
	}

	c := &Client{
		endpoint:    endpoint,
		http:        defaultHTTPClient,
		backoffBase: 1 * time.Second,
		backoffMax:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.lastID == "" && c.cursor != nil {
		id, err := c.cursor.Load()
		if err != nil {
			return nil, fmt.Errorf("load cursor: %w", err)
		}
		c.lastID = id
	}
	return c, nil
}

// LastEventID returns the cursor of the last successfully handled event.
func (c *Client) LastEventID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastID
}

// State reports the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// Conn is one live connection to the feed.
type Conn struct {
	body    io.ReadCloser
	decoder *sse.Decoder

	// ID identifies this connection attempt in logs.
	ID string
}

// Next returns the next decoded event from the connection.
func (c *Conn) Next() (*sse.Event, error) {
	return c.decoder.Next()
}

// RetryHint returns the latest server retry suggestion seen on this
// connection, zero if none was sent.
func (c *Conn) RetryHint() time.Duration {
	return c.decoder.RetryHint()
}

// Close terminates the connection.
func (c *Conn) Close() error {
	return c.body.Close()
}

// Connect opens one streaming connection, requesting resumption from
// lastEventID when non-empty. Transport failures return ConnectError,
// non-2xx responses StatusError, and a wrong content type ProtocolError;
// all three are retryable by Run.
func (c *Client) Connect(ctx context.Context, lastEventID string) (*Conn, error) {
	connID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, &ConnectError{URL: c.endpoint, Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	if c.verbose {
		slog.Info("feed.connect", "url", c.endpoint, "conn_id", connID, "last_event_id", lastEventID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectError{URL: c.endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		resp.Body.Close()
		return nil, &StatusError{URL: c.endpoint, StatusCode: resp.StatusCode, Body: body}
	}

	ct := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "text/event-stream" {
		resp.Body.Close()
		return nil, &ProtocolError{ContentType: ct}
	}

	return &Conn{
		body:    resp.Body,
		decoder: sse.NewDecoder(resp.Body),
		ID:      connID,
	}, nil
}
