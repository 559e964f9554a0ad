// Package postgres records archived articles in a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/boxarchiver/internal/archiver"
)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "archived_articles"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for catalog rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// IDGenerator yields row identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Catalog writes one row per archived article.
type Catalog struct {
	pool  execCloser
	table string
	ids   IDGenerator
}

var _ archiver.Catalog = (*Catalog)(nil)

// New connects to Postgres and returns a Catalog.
func New(ctx context.Context, cfg Config, ids IDGenerator) (*Catalog, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("catalog.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c, err := NewWithPool(pool, cfg.Table, ids)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

// NewWithPool constructs a Catalog from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string, ids IDGenerator) (*Catalog, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Catalog{pool: pool, table: table, ids: ids}, nil
}

// EnsureSchema creates the catalog table if it does not exist.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id           UUID PRIMARY KEY,
	run_id       TEXT        NOT NULL,
	box_id       BIGINT      NOT NULL,
	writer_name  TEXT        NOT NULL,
	article_index INTEGER    NOT NULL,
	article_url  TEXT        NOT NULL,
	title        TEXT        NOT NULL,
	created_date TEXT        NOT NULL,
	artifact_uri TEXT        NOT NULL,
	sha256       TEXT        NOT NULL,
	archived_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (run_id, article_index)
)`, c.table)
	if _, err := c.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create catalog table: %w", err)
	}
	return nil
}

// RecordArtifact inserts one catalog row.
func (c *Catalog) RecordArtifact(ctx context.Context, rec archiver.CatalogRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	id, err := c.ids.NewID()
	if err != nil {
		return fmt.Errorf("catalog row id: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	run_id,
	box_id,
	writer_name,
	article_index,
	article_url,
	title,
	created_date,
	artifact_uri,
	sha256,
	archived_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, c.table)

	args := []any{
		id,
		rec.RunID,
		rec.WriterID,
		rec.WriterName,
		rec.Index,
		rec.URL,
		rec.Title,
		rec.CreatedDate,
		rec.URI,
		rec.Checksum,
		rec.ArchivedAt,
	}
	if _, err := c.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert catalog row: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (c *Catalog) Close() {
	if c == nil || c.pool == nil {
		return
	}
	c.pool.Close()
}
