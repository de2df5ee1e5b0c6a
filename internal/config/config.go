package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// StreamURLDefault is the Firebase SSE endpoint for new stories.
	StreamURLDefault = "https://hacker-news.firebaseio.com/v0/newstories.json"
)

// Config holds all hnlive configuration.
type Config struct {
	StreamURL string
	APIBase   string
	WebBase   string

	BackoffBase time.Duration
	BackoffMax  time.Duration

	FetchAttempts   int
	FetchRetryDelay time.Duration

	// CursorPath enables file cursor persistence when non-empty.
	CursorPath string

	// KafkaBrokers plus KafkaTopic enable the Kafka sink.
	KafkaBrokers []string
	KafkaTopic   string

	// DatabaseURL enables the Postgres archive and durable cursor.
	DatabaseURL string

	Verbose bool
	NoColor bool
	Strict  bool
}

// DefaultFromEnv creates a Config with defaults from environment variables.
func DefaultFromEnv() *Config {
	return &Config{
		StreamURL:       envOrDefault("HNLIVE_STREAM_URL", StreamURLDefault),
		APIBase:         envOrDefault("HNLIVE_API_BASE", ""),
		WebBase:         envOrDefault("HNLIVE_WEB_BASE", ""),
		BackoffBase:     envDuration("HNLIVE_BACKOFF_BASE", time.Second),
		BackoffMax:      envDuration("HNLIVE_BACKOFF_MAX", 30*time.Second),
		FetchAttempts:   envInt("HNLIVE_FETCH_ATTEMPTS", 3),
		FetchRetryDelay: envDuration("HNLIVE_FETCH_RETRY_DELAY", 5*time.Second),
		CursorPath:      os.Getenv("HNLIVE_CURSOR_PATH"),
		KafkaBrokers:    envList("HNLIVE_KAFKA_BROKERS"),
		KafkaTopic:      envOrDefault("HNLIVE_KAFKA_TOPIC", "hn-stories"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("HNLIVE_DATABASE_URL")),
		Verbose:         envBool("HNLIVE_VERBOSE"),
		NoColor:         envBool("HNLIVE_NO_COLOR") || envBool("NO_COLOR"),
		Strict:          envBool("HNLIVE_STRICT_SINKS"),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func envInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func envList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
