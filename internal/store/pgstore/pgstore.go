// Package pgstore implements store.Store against a single Postgres
// table shared by every namespace (one row per (namespace, key)),
// using github.com/jackc/pgx/v5 as the database/sql driver and
// github.com/jackc/pgerrcode to classify unique-constraint races on
// concurrent inserts — the same pattern the teacher's
// internal/errors.MapDBError uses to recognize duplicate-key
// violations, scoped down to this package's one table instead of the
// teacher's full schema.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store is a store.Store implementation scoped to one namespace
// (e.g. "article/pending", "clients") within a shared table.
type Store struct {
	db        *sql.DB
	table     string
	namespace string
}

// EnsureSchema creates the backing table if it does not already
// exist. It is safe to call once per process startup from each
// namespace that shares db/table; the statement is idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB, table string) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
)`, table)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("pgstore: create table %s: %w", table, err)
	}
	return nil
}

// Open returns a Store scoped to namespace within table. Callers must
// call EnsureSchema once beforehand (typically at process startup).
func Open(db *sql.DB, table, namespace string) *Store {
	return &Store{db: db, table: table, namespace: namespace}
}

// Contains reports whether key is present in this namespace.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	var exists bool
	q := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE namespace = $1 AND key = $2)`, s.table)
	if err := s.db.QueryRowContext(ctx, q, s.namespace, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgstore: contains %s: %w", key, err)
	}
	return exists, nil
}

// Get returns the value stored at key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	q := fmt.Sprintf(`SELECT value FROM %s WHERE namespace = $1 AND key = $2`, s.table)
	err := s.db.QueryRowContext(ctx, q, s.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pgstore: get %s: %w", key, err)
	}
	return value, true, nil
}

// Set durably writes value at key. It first attempts an insert; if the
// (namespace, key) pair already exists, whether from an earlier Set or
// a concurrent writer, the resulting unique-constraint violation is
// classified via pgerrcode and retried as an update instead of
// surfacing as an error.
func (s *Store) Set(ctx context.Context, key, value string) error {
	insert := fmt.Sprintf(`INSERT INTO %s (namespace, key, value) VALUES ($1, $2, $3)`, s.table)
	_, err := s.db.ExecContext(ctx, insert, s.namespace, key, value)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return fmt.Errorf("pgstore: insert %s: %w", key, err)
	}

	update := fmt.Sprintf(`UPDATE %s SET value = $3 WHERE namespace = $1 AND key = $2`, s.table)
	if _, err := s.db.ExecContext(ctx, update, s.namespace, key, value); err != nil {
		return fmt.Errorf("pgstore: update %s after unique violation: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1 AND key = $2`, s.table)
	if _, err := s.db.ExecContext(ctx, q, s.namespace, key); err != nil {
		return fmt.Errorf("pgstore: delete %s: %w", key, err)
	}
	return nil
}

// IterateKeys walks every key currently in this namespace.
func (s *Store) IterateKeys(ctx context.Context, fn func(key string) error) error {
	q := fmt.Sprintf(`SELECT key FROM %s WHERE namespace = $1 ORDER BY key`, s.table)
	rows, err := s.db.QueryContext(ctx, q, s.namespace)
	if err != nil {
		return fmt.Errorf("pgstore: iterate: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return fmt.Errorf("pgstore: scan key: %w", err)
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close is a no-op; the *sql.DB is owned and closed by bootstrap.
func (s *Store) Close() error { return nil }
