package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hnlive/hnlive/internal/hn"
)

// Postgres archives announced stories and doubles as the durable cursor
// store, so a database deployment resumes the stream across restarts.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and creates the schema on first use.
func NewPostgres(ctx context.Context, dbURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stories (
			id          BIGINT PRIMARY KEY,
			title       TEXT,
			url         TEXT,
			author      TEXT,
			posted_at   TIMESTAMPTZ,
			score       INT,
			raw         JSONB,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS feed_cursor (
			name          TEXT PRIMARY KEY,
			last_event_id TEXT NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, s := range stmts {
		if _, err := p.pool.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) Announce(ctx context.Context, item *hn.Item) error {
	var raw any
	if len(item.Raw) > 0 {
		raw = string(item.Raw)
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO stories (id, title, url, author, posted_at, score, raw)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			title = $2, url = $3, author = $4, posted_at = $5, score = $6, raw = $7`,
		item.ID, item.Title, item.URL, item.By, time.Unix(item.Time, 0).UTC(), item.Score, raw,
	)
	if err != nil {
		return fmt.Errorf("archive story %d: %w", item.ID, err)
	}
	return nil
}

// Load implements the cursor store: returns the persisted last event id,
// empty when the feed has never run against this database.
func (p *Postgres) Load() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id string
	err := p.pool.QueryRow(ctx,
		`SELECT last_event_id FROM feed_cursor WHERE name = 'hnlive'`,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load cursor: %w", err)
	}
	return id, nil
}

// Save implements the cursor store.
func (p *Postgres) Save(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.pool.Exec(ctx,
		`INSERT INTO feed_cursor (name, last_event_id, updated_at)
		 VALUES ('hnlive', $1, now())
		 ON CONFLICT (name) DO UPDATE SET last_event_id = $1, updated_at = now()`,
		id,
	)
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
