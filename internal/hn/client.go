package hn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"
)

const (
	// DefaultAPIBase is the Firebase REST API for Hacker News.
	DefaultAPIBase = "https://hacker-news.firebaseio.com/v0"
	// DefaultWebBase is the public item page, used as a scrape fallback
	// when the API has not caught up with a brand-new story.
	DefaultWebBase = "https://news.ycombinator.com/item?id="
)

// ErrItemUnavailable is returned when neither the API nor the web
// fallback could produce the item.
var ErrItemUnavailable = errors.New("item unavailable")

// itemPattern pulls the title link out of the public item page.
var itemPattern = regexp.MustCompile(`"title"><a href="(?P<url>.*?)".*?>(?P<title>.*?)</a>`)

// Client fetches Hacker News items, retrying transient failures.
type Client struct {
	APIBase string
	WebBase string

	// Attempts and RetryDelay bound the per-source retry loop.
	Attempts   int
	RetryDelay time.Duration

	HTTP *http.Client
}

// NewClient creates an item client with the production endpoints and the
// feed's long-standing retry policy of three attempts five seconds apart.
func NewClient() *Client {
	return &Client{
		APIBase:    DefaultAPIBase,
		WebBase:    DefaultWebBase,
		Attempts:   3,
		RetryDelay: 5 * time.Second,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchItem retrieves an item from the API. Transport errors, 5xx
// responses, and "null" bodies (the API's shape for a not-yet-visible
// item) are retried up to Attempts times.
func (c *Client) FetchItem(ctx context.Context, id int) (*Item, error) {
	url := fmt.Sprintf("%s/item/%d.json", c.APIBase, id)

	var lastErr error
	for attempt := 0; attempt < c.Attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.RetryDelay); err != nil {
				return nil, err
			}
		}

		body, err := c.get(ctx, url, "application/json")
		if err != nil {
			lastErr = err
			continue
		}
		if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
			lastErr = ErrItemUnavailable
			continue
		}

		var item Item
		if err := json.Unmarshal(body, &item); err != nil {
			lastErr = fmt.Errorf("decode item %d: %w", id, err)
			continue
		}
		item.Raw = json.RawMessage(body)
		return &item, nil
	}
	return nil, lastErr
}

// ScrapeItem recovers a story's title and url from the public item page.
// postedAt stands in for the API's time field, which the page does not
// expose in a stable form.
func (c *Client) ScrapeItem(ctx context.Context, id int, postedAt time.Time) (*Item, error) {
	url := fmt.Sprintf("%s%d", c.WebBase, id)

	var lastErr error
	for attempt := 0; attempt < c.Attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.RetryDelay); err != nil {
				return nil, err
			}
		}

		body, err := c.get(ctx, url, "text/html")
		if err != nil {
			lastErr = err
			continue
		}

		m := itemPattern.FindSubmatch(body)
		if m == nil {
			lastErr = ErrItemUnavailable
			continue
		}
		return &Item{
			ID:    id,
			Type:  "story",
			URL:   string(m[itemPattern.SubexpIndex("url")]),
			Title: string(m[itemPattern.SubexpIndex("title")]),
			Time:  postedAt.Unix(),
		}, nil
	}
	return nil, lastErr
}

// Resolve fetches an item from the API, falling back to the web scrape.
func (c *Client) Resolve(ctx context.Context, id int, postedAt time.Time) (*Item, error) {
	item, err := c.FetchItem(ctx, id)
	if err == nil {
		return item, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	slog.Debug("hn.api_miss", "id", id, "error", err)

	item, err = c.ScrapeItem(ctx, id, postedAt)
	if err == nil {
		return item, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, fmt.Errorf("%w: id %d", ErrItemUnavailable, id)
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

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
