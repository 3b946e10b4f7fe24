// Package sqldriver implements storage.Driver on top of database/sql.
// The sqlite and postgres packages embed it and only supply the connection
// and dialect.
package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/voxrelay/pkg/storage"
)

// Dialect captures the SQL differences between supported databases.
type Dialect struct {
	// Name is used in error messages (e.g., "sqlite", "postgres").
	Name string

	// BlobType is the column type for response bodies.
	BlobType string

	// TimeType is the column type for timestamps.
	TimeType string

	// NumberedParams rewrites "?" placeholders to "$1", "$2", ...
	NumberedParams bool
}

var (
	SQLite = Dialect{
		Name:     "sqlite",
		BlobType: "BLOB",
		TimeType: "DATETIME",
	}

	Postgres = Dialect{
		Name:           "postgres",
		BlobType:       "BYTEA",
		TimeType:       "TIMESTAMPTZ",
		NumberedParams: true,
	}
)

// Driver implements storage.Driver against a *sql.DB.
type Driver struct {
	DB      *sql.DB
	Dialect Dialect
}

// New wraps db and creates the schema if needed.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Driver, error) {
	d := &Driver{DB: db, Dialect: dialect}
	if err := d.migrate(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS caches (
	name TEXT PRIMARY KEY,
	created_at %s NOT NULL
)`, d.Dialect.TimeType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS cache_entries (
	cache_name TEXT NOT NULL REFERENCES caches(name) ON DELETE CASCADE,
	url TEXT NOT NULL,
	status INTEGER NOT NULL,
	header TEXT NOT NULL,
	body %s NOT NULL,
	stored_at %s NOT NULL,
	PRIMARY KEY (cache_name, url)
)`, d.Dialect.BlobType, d.Dialect.TimeType),
	}

	for _, stmt := range stmts {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create %s schema: %w", d.Dialect.Name, err)
		}
	}
	return nil
}

// rebind converts "?" placeholders for dialects with numbered parameters.
func (d *Driver) rebind(query string) string {
	if !d.Dialect.NumberedParams {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (d *Driver) ensureCache(ctx context.Context, ex execer, cache string) error {
	_, err := ex.ExecContext(ctx,
		d.rebind(`INSERT INTO caches (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`),
		cache, time.Now().UTC(),
	)
	return err
}

// Open creates the named cache if missing.
func (d *Driver) Open(ctx context.Context, cache string) error {
	if cache == "" {
		return errors.New("cache name is required")
	}
	if err := d.ensureCache(ctx, d.DB, cache); err != nil {
		return fmt.Errorf("opening cache %s: %w", cache, err)
	}
	return nil
}

// PutAll writes every entry in one transaction.
func (d *Driver) PutAll(ctx context.Context, cache string, entries []*storage.Entry) error {
	for _, e := range entries {
		if e == nil || e.URL == "" {
			return errors.New("cannot store entry without url")
		}
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := d.ensureCache(ctx, tx, cache); err != nil {
		return fmt.Errorf("opening cache %s: %w", cache, err)
	}

	upsert := d.rebind(`INSERT INTO cache_entries (cache_name, url, status, header, body, stored_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (cache_name, url) DO UPDATE SET
	status = excluded.status,
	header = excluded.header,
	body = excluded.body,
	stored_at = excluded.stored_at`)

	for _, e := range entries {
		header, err := json.Marshal(e.Header)
		if err != nil {
			return fmt.Errorf("encoding header for %s: %w", e.URL, err)
		}

		body := e.Body
		if body == nil {
			body = []byte{}
		}

		storedAt := e.StoredAt
		if storedAt.IsZero() {
			storedAt = time.Now()
		}

		if _, err := tx.ExecContext(ctx, upsert, cache, e.URL, e.Status, string(header), body, storedAt.UTC()); err != nil {
			return fmt.Errorf("storing %s: %w", e.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entries: %w", err)
	}
	return nil
}

// Match retrieves an entry by exact URL.
func (d *Driver) Match(ctx context.Context, cache, url string) (*storage.Entry, error) {
	var (
		e      storage.Entry
		header string
	)

	err := d.DB.QueryRowContext(ctx,
		d.rebind(`SELECT url, status, header, body, stored_at FROM cache_entries WHERE cache_name = ? AND url = ?`),
		cache, url,
	).Scan(&e.URL, &e.Status, &header, &e.Body, &e.StoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Cache: cache, URL: url}
	}
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", url, err)
	}

	if err := json.Unmarshal([]byte(header), &e.Header); err != nil {
		return nil, fmt.Errorf("decoding header for %s: %w", url, err)
	}
	return &e, nil
}

func (d *Driver) cacheExists(ctx context.Context, cache string) (bool, error) {
	var n int
	err := d.DB.QueryRowContext(ctx, d.rebind(`SELECT COUNT(*) FROM caches WHERE name = ?`), cache).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Keys lists the URLs stored in the named cache.
func (d *Driver) Keys(ctx context.Context, cache string) ([]string, error) {
	ok, err := d.cacheExists(ctx, cache)
	if err != nil {
		return nil, fmt.Errorf("looking up cache %s: %w", cache, err)
	}
	if !ok {
		return nil, storage.NotFoundError{Cache: cache}
	}

	return d.queryStrings(ctx, d.rebind(`SELECT url FROM cache_entries WHERE cache_name = ? ORDER BY url`), cache)
}

// Caches lists all cache names.
func (d *Driver) Caches(ctx context.Context) ([]string, error) {
	return d.queryStrings(ctx, `SELECT name FROM caches ORDER BY name`)
}

func (d *Driver) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete drops the named cache and its entries.
func (d *Driver) Delete(ctx context.Context, cache string) (bool, error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM cache_entries WHERE cache_name = ?`), cache); err != nil {
		return false, fmt.Errorf("deleting entries of %s: %w", cache, err)
	}

	res, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM caches WHERE name = ?`), cache)
	if err != nil {
		return false, fmt.Errorf("deleting cache %s: %w", cache, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing delete: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.DB.Close()
}
