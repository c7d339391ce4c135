// Package sqlarchive implements an archive stored in a SQLite table.
//
// The table has two columns, key TEXT PRIMARY KEY and value BLOB, where
// value holds the serialized (and optionally compressed) entry.
package sqlarchive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/discochess/memo/archive"
)

// Compile-time check that Archive implements archive.Archive.
var _ archive.Archive[int] = (*Archive[int])(nil)

// queryTimeout bounds every statement.
const queryTimeout = 10 * time.Second

// Archive is a persistent archive backed by one SQLite table.
// An Archive is safe for concurrent use.
type Archive[V any] struct {
	db     *sql.DB
	path   string
	cfg    config
	logger *zap.Logger
}

// New opens the SQLite database at path, creating the file and the table
// if needed.
func New[V any](path string, opts ...Option) (*Archive[V], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	a := &Archive[V]{db: db, path: path, cfg: cfg, logger: cfg.logger}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, a.query(`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table %s: %w", cfg.table, err)
	}
	return a, nil
}

// Get returns the value stored under key.
func (a *Archive[V]) Get(key string) (V, error) {
	var v V

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var raw []byte
	err := a.db.QueryRowContext(ctx, a.query(`SELECT value FROM %s WHERE key = ?`), key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, archive.Miss(key, archive.KindAbsent, err)
		}
		a.logger.Warn("query failed, treating as miss", zap.String("key", key), zap.Error(err))
		return v, archive.Miss(key, archive.KindIO, err)
	}

	if err := a.cfg.format.Decode(raw, &v); err != nil {
		a.logger.Warn("undecodable row treated as miss", zap.String("key", key), zap.Error(err))
		return v, archive.Miss(key, archive.KindCorrupt, err)
	}
	return v, nil
}

// Set inserts or replaces the row for key.
func (a *Archive[V]) Set(key string, value V) error {
	data, err := a.cfg.format.Encode(value)
	if err != nil {
		return archive.WriteFault(archive.OpSet, key, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err = a.db.ExecContext(ctx,
		a.query(`INSERT INTO %s (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`),
		key, data)
	if err != nil {
		return archive.WriteFault(archive.OpSet, key, err)
	}
	return nil
}

// Delete removes the row for key.
func (a *Archive[V]) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := a.db.ExecContext(ctx, a.query(`DELETE FROM %s WHERE key = ?`), key); err != nil {
		return archive.WriteFault(archive.OpDelete, key, err)
	}
	return nil
}

// Contains reports whether a row exists for key.
func (a *Archive[V]) Contains(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var one int
	err := a.db.QueryRowContext(ctx, a.query(`SELECT 1 FROM %s WHERE key = ?`), key).Scan(&one)
	return err == nil
}

// Keys lists every key in key order.
func (a *Archive[V]) Keys() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := a.db.QueryContext(ctx, a.query(`SELECT key FROM %s ORDER BY key`))
	if err != nil {
		return nil, archive.WriteFault(archive.OpKeys, "", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, archive.WriteFault(archive.OpKeys, "", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, archive.WriteFault(archive.OpKeys, "", err)
	}
	return keys, nil
}

// Len returns the row count, or 0 when the table cannot be read.
func (a *Archive[V]) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var n int
	if err := a.db.QueryRowContext(ctx, a.query(`SELECT COUNT(*) FROM %s`)).Scan(&n); err != nil {
		a.logger.Warn("counting rows", zap.Error(err))
		return 0
	}
	return n
}

// Clear deletes every row.
func (a *Archive[V]) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := a.db.ExecContext(ctx, a.query(`DELETE FROM %s`)); err != nil {
		return archive.WriteFault(archive.OpClear, "", err)
	}
	return nil
}

// Mode always reports persistent storage.
func (a *Archive[V]) Mode() archive.Mode {
	return archive.ModePersistent
}

// Name returns the table name.
func (a *Archive[V]) Name() string {
	return a.cfg.table
}

// Copy copies every row into the same table of the database file dest.
// Stored bytes are copied as is.
func (a *Archive[V]) Copy(dest string) (archive.Archive[V], error) {
	cp, err := New[V](dest, withConfig(a.cfg))
	if err != nil {
		return nil, archive.WriteFault(archive.OpCopy, dest, err)
	}
	if dest == a.path {
		return cp, nil
	}
	if err := a.copyRows(cp); err != nil {
		cp.Close()
		return nil, archive.WriteFault(archive.OpCopy, dest, err)
	}
	return cp, nil
}

func (a *Archive[V]) copyRows(dst *Archive[V]) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := a.db.QueryContext(ctx, a.query(`SELECT key, value FROM %s`))
	if err != nil {
		return err
	}
	defer rows.Close()

	tx, err := dst.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, dst.query(`INSERT OR REPLACE INTO %s (key, value) VALUES (?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, key, raw); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (a *Archive[V]) Close() error {
	return a.db.Close()
}

// query substitutes the table name, which is validated by WithTable.
func (a *Archive[V]) query(format string) string {
	return fmt.Sprintf(format, a.cfg.table)
}

