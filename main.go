package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hnlive/hnlive/internal/config"
	"github.com/hnlive/hnlive/internal/cursor"
	"github.com/hnlive/hnlive/internal/feed"
	"github.com/hnlive/hnlive/internal/hn"
	"github.com/hnlive/hnlive/internal/sink"
	"github.com/hnlive/hnlive/internal/watch"
)

func main() {
	_ = godotenv.Load()

	// The bare binary behaves as "watch", preserving the original
	// zero-flag invocation.
	args := os.Args[1:]
	cmd := "watch"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "watch":
		os.Exit(cmdWatch(args))
	case "info":
		os.Exit(cmdInfo(args))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprintln(os.Stderr, "Commands: watch, info")
		os.Exit(1)
	}
}

func cmdWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfg := config.DefaultFromEnv()

	fs.StringVar(&cfg.StreamURL, "url", cfg.StreamURL, "SSE endpoint for new stories")
	fs.StringVar(&cfg.CursorPath, "cursor", cfg.CursorPath, "Persist the stream cursor to this file")
	fs.StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "Archive stories to this Postgres URL")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic for forwarded stories")
	brokers := fs.String("kafka-brokers", strings.Join(cfg.KafkaBrokers, ","), "Comma-separated Kafka brokers")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable ANSI colors")
	fs.BoolVar(&cfg.Strict, "strict-sinks", cfg.Strict, "Treat sink failures as fatal")
	fs.Parse(args)

	if *brokers != "" {
		cfg.KafkaBrokers = splitList(*brokers)
	}
	setupLogging(cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console := sink.NewConsole(cfg.NoColor)
	sinks := sink.Multi{console}
	var store feed.CursorStore

	if len(cfg.KafkaBrokers) > 0 {
		slog.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		sinks = append(sinks, sink.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	if cfg.DatabaseURL != "" {
		pg, err := sink.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("postgres sink unavailable", "error", err)
			return 1
		}
		slog.Info("postgres archive enabled")
		sinks = append(sinks, pg)
		store = pg
	} else if cfg.CursorPath != "" {
		store = &cursor.File{Path: cfg.CursorPath}
	}
	defer sinks.Close()

	items := hn.NewClient()
	if cfg.APIBase != "" {
		items.APIBase = cfg.APIBase
	}
	if cfg.WebBase != "" {
		items.WebBase = cfg.WebBase
	}
	items.Attempts = cfg.FetchAttempts
	items.RetryDelay = cfg.FetchRetryDelay

	opts := []feed.Option{
		feed.WithBackoff(cfg.BackoffBase, cfg.BackoffMax),
		feed.WithVerbose(cfg.Verbose),
	}
	if store != nil {
		opts = append(opts, feed.WithCursorStore(store))
	}

	client, err := feed.New(cfg.StreamURL, opts...)
	if err != nil {
		slog.Error("configuration error", "error", err)
		return 1
	}

	watcher := &watch.Watcher{
		Items:   items,
		Sinks:   sinks,
		Strict:  cfg.Strict,
		Console: console,
	}

	slog.Info("hnlive starting", "url", cfg.StreamURL, "last_event_id", client.LastEventID())
	if err := client.Run(ctx, watcher.Handler()); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("shutting down")
			return 0
		}
		slog.Error("feed terminated", "error", err)
		return 1
	}
	return 0
}

func cmdInfo(args []string) int {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cursorPath := fs.String("cursor", os.Getenv("HNLIVE_CURSOR_PATH"), "Cursor file to inspect")
	fs.Parse(args)

	cfg := config.DefaultFromEnv()
	fmt.Println("hnlive configuration")
	fmt.Printf("  stream url:   %s\n", cfg.StreamURL)
	fmt.Printf("  backoff:      %s base, %s max\n", cfg.BackoffBase, cfg.BackoffMax)
	fmt.Printf("  item retries: %d attempts, %s apart\n", cfg.FetchAttempts, cfg.FetchRetryDelay)

	f := &cursor.File{Path: *cursorPath}
	id, err := f.Load()
	switch {
	case err != nil:
		fmt.Printf("  cursor:       unreadable (%v)\n", err)
	case id == "":
		fmt.Println("  cursor:       none stored")
	default:
		fmt.Printf("  cursor:       %s\n", id)
	}
	return 0
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
