package sink

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hnlive/hnlive/internal/hn"
)

func TestConsoleAnnounce(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{Out: &buf, NoColor: true}

	item := &hn.Item{
		ID:    123,
		Title: "Show HN: Something",
		URL:   "https://example.com",
		Time:  1700000000,
	}
	if err := c.Announce(context.Background(), item); err != nil {
		t.Fatalf("Announce: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Show HN: Something", "123", "https://example.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("NoColor output must not contain ANSI escapes")
	}
}

func TestConsoleColorized(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{Out: &buf}

	_ = c.Announce(context.Background(), &hn.Item{ID: 1, Title: "t", Time: 1700000000})
	if !strings.Contains(buf.String(), ansiCyan) {
		t.Error("expected ANSI escapes in colorized output")
	}
}

func TestConsoleMissingFields(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{Out: &buf, NoColor: true}

	_ = c.Announce(context.Background(), &hn.Item{ID: 9, Time: 1700000000})
	if !strings.Contains(buf.String(), "-") {
		t.Errorf("missing title/url should print as '-': %s", buf.String())
	}
}

func TestConsoleUnresolvable(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{Out: &buf, NoColor: true}

	c.Unresolvable(404)
	if !strings.Contains(buf.String(), "404") {
		t.Errorf("diagnostic missing the id: %q", buf.String())
	}
}
