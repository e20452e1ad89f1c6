// Package audit keeps an optional history of ingestions in PostgreSQL.
//
// Only metadata is recorded: source, file name, outcome, shape and timing.
// Cell values never leave the request that carried them.
package audit

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status values for Entry.Status.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry describes one finished ingestion.
type Entry struct {
	ID        uuid.UUID
	Source    string
	Filename  string
	Status    string
	Code      string // user-facing error code, empty on success
	Rows      int
	Columns   int
	Bytes     int64
	Duration  time.Duration
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// Recorder stores ingestion entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards every entry. It is used when no audit database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Execer is the subset of pgxpool.Pool the recorder needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ingest_audit (
	id          UUID PRIMARY KEY,
	source      TEXT NOT NULL,
	filename    TEXT NOT NULL,
	status      TEXT NOT NULL,
	code        TEXT,
	rows        INTEGER NOT NULL DEFAULT 0,
	columns     INTEGER NOT NULL DEFAULT 0,
	bytes       BIGINT NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL,
	ip_address  INET,
	user_agent  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ingest_audit_created_at_idx ON ingest_audit (created_at DESC);
`

const insertSQL = `
INSERT INTO ingest_audit
	(id, source, filename, status, code, rows, columns, bytes, duration_ms, ip_address, user_agent, created_at)
VALUES
	($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, NULLIF($11, ''), $12)`

// Postgres records entries into the ingest_audit table.
type Postgres struct {
	db Execer
}

// NewPostgres returns a recorder writing through db.
func NewPostgres(db Execer) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the audit table and its index if they are missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Record inserts e. A zero ID or CreatedAt is filled in.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := p.db.Exec(ctx, insertSQL,
		e.ID,
		e.Source,
		e.Filename,
		e.Status,
		e.Code,
		e.Rows,
		e.Columns,
		e.Bytes,
		e.Duration.Milliseconds(),
		parseIP(e.IPAddress),
		e.UserAgent,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record ingestion %s: %w", e.ID, err)
	}
	return nil
}

// parseIP strips a port if present. Unparsable addresses are stored as NULL.
func parseIP(addr string) *netip.Addr {
	if addr == "" {
		return nil
	}
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return &ip
}

// Connect opens a pool against url and verifies it with a ping.
func Connect(ctx context.Context, url string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse audit database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect audit database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return pool, nil
}
