package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hnlive/hnlive/internal/hn"
)

const (
	ansiReset       = "\033[0m"
	ansiBrightBlue  = "\033[94m"
	ansiCyan        = "\033[36m"
	ansiBrightGreen = "\033[92m"
	ansiRed         = "\033[31m"
)

// Console prints announced items as colorized "HH:MM:SS title id" lines
// followed by the story URL.
type Console struct {
	Out     io.Writer
	NoColor bool
}

// NewConsole creates a console sink writing to stdout.
func NewConsole(noColor bool) *Console {
	return &Console{Out: os.Stdout, NoColor: noColor}
}

func (c *Console) color(code, s string) string {
	if c.NoColor {
		return s
	}
	return code + s + ansiReset
}

func (c *Console) Announce(_ context.Context, item *hn.Item) error {
	postedAt := time.Unix(item.Time, 0).Format("15:04:05")
	title := item.Title
	if title == "" {
		title = "-"
	}
	url := item.URL
	if url == "" {
		url = "-"
	}

	_, err := fmt.Fprintf(c.Out, "%s %s %s\n%s\n",
		c.color(ansiBrightBlue, postedAt),
		c.color(ansiCyan, title),
		c.color(ansiBrightGreen, fmt.Sprintf("%d", item.ID)),
		url,
	)
	return err
}

// Unresolvable prints the diagnostic for a story that neither the API
// nor the web fallback could produce.
func (c *Console) Unresolvable(id int) {
	fmt.Fprintf(c.Out, "\n\n%s\n\n", c.color(ansiRed, fmt.Sprintf("%d", id)))
}

func (c *Console) Close() error { return nil }
