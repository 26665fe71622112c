package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const sqlCacheSchema = `
	CREATE TABLE IF NOT EXISTS overpass_cache (
		key        TEXT PRIMARY KEY,
		body       BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// SQLCache stores responses in the PostgreSQL table overpass_cache.
type SQLCache struct {
	db *sqlx.DB
}

func NewSQLCache(ctx context.Context, dsn string) (*SQLCache, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c, err := NewSQLCacheFromDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewSQLCacheFromDB creates the table if needed on an existing connection.
func NewSQLCacheFromDB(ctx context.Context, db *sqlx.DB) (*SQLCache, error) {
	if _, err := db.ExecContext(ctx, sqlCacheSchema); err != nil {
		return nil, fmt.Errorf("create overpass_cache table: %w", err)
	}
	return &SQLCache{db: db}, nil
}

func (c *SQLCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	err := c.db.GetContext(ctx, &body, `SELECT body FROM overpass_cache WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

func (c *SQLCache) Put(ctx context.Context, key string, body []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO overpass_cache (key, body) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		key, body,
	)
	return err
}

func (c *SQLCache) Close(context.Context) error {
	return c.db.Close()
}
