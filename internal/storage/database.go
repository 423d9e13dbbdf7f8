package storage

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"lifehub/internal/schema"
)

// DefaultLockTimeout bounds how long a writer waits for the store lock.
const DefaultLockTimeout = 5 * time.Second

// sqliteHeader is the magic string at offset 0 of every SQLite database file.
var sqliteHeader = []byte("SQLite format 3\x00")

// Options configures how the store is opened.
type Options struct {
	// LockTimeout bounds the wait for the exclusive write lock.
	LockTimeout time.Duration
}

// DB is the handle to the record store. Transactions run under a shared
// lock; operations on the underlying file (replace, export) take it
// exclusively so they never observe a half-written transaction.
type DB struct {
	mu   sync.RWMutex
	sql  *sql.DB
	path string
	opts Options
}

// Open opens the SQLite store at path, creating the parent directory if needed.
// Transactions begin with BEGIN EXCLUSIVE and wait up to opts.LockTimeout
// for the lock.
func Open(path string, opts Options) (*DB, error) {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := openSQL(path, opts)
	if err != nil {
		return nil, err
	}
	return &DB{sql: conn, path: path, opts: opts}, nil
}

func openSQL(path string, opts Options) (*sql.DB, error) {
	q := url.Values{}
	q.Set("_txlock", "exclusive")
	q.Set("_busy_timeout", fmt.Sprintf("%d", opts.LockTimeout.Milliseconds()))
	q.Set("_foreign_keys", "on")

	conn, err := sql.Open("sqlite3", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// SQL returns the underlying connection pool for read-only queries.
func (db *DB) SQL() *sql.DB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.sql
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.sql.PingContext(ctx)
}

// Close closes the store.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.sql.Close()
}

// WithTx runs fn inside one exclusive transaction. If fn returns nil the
// transaction is committed, otherwise it is rolled back. Failures to begin or
// commit are reported as *StorageError.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

// Exclusive runs fn with no transaction in flight. fn receives the path of
// the store file and must not write to it.
func (db *DB) Exclusive(fn func(path string) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.path)
}

// CopyTo streams a consistent copy of the store file to w.
func (db *DB) CopyTo(w io.Writer) (int64, error) {
	var n int64
	err := db.Exclusive(func(path string) error {
		f, err := os.Open(path)
		if err != nil {
			return &StorageError{Op: "export", Err: err}
		}
		defer func() { _ = f.Close() }()

		n, err = io.Copy(w, f)
		if err != nil {
			return &StorageError{Op: "export", Err: err}
		}
		return nil
	})
	return n, err
}

// Replace swaps the store file for the database read from src. The upload is
// staged next to the store, checked for the SQLite header and integrity, then
// renamed into place and migrated against reg. The current store is left
// untouched when any check fails.
func (db *DB) Replace(ctx context.Context, src io.Reader, reg *schema.Registry) error {
	staged, err := db.stage(ctx, src)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(staged) }()

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.sql.Close(); err != nil {
		return &StorageError{Op: "replace", Err: fmt.Errorf("failed to close store: %w", err)}
	}

	renameErr := os.Rename(staged, db.path)

	// Reopen even if the rename failed so the handle stays usable.
	conn, err := openSQL(db.path, db.opts)
	if err != nil {
		return &StorageError{Op: "replace", Err: err}
	}
	db.sql = conn

	if renameErr != nil {
		return &StorageError{Op: "replace", Err: renameErr}
	}
	if reg != nil {
		if err := migrate(ctx, conn, reg); err != nil {
			return &StorageError{Op: "replace", Err: err}
		}
	}
	return nil
}

func (db *DB) stage(ctx context.Context, src io.Reader) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(db.path), ".upload-*.db")
	if err != nil {
		return "", &StorageError{Op: "replace", Err: err}
	}
	name := tmp.Name()

	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(name)
		if copyErr == nil {
			copyErr = closeErr
		}
		return "", &StorageError{Op: "replace", Err: copyErr}
	}

	if err := checkDatabaseFile(ctx, name, db.opts); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

func checkDatabaseFile(ctx context.Context, path string, opts Options) error {
	f, err := os.Open(path)
	if err != nil {
		return &StorageError{Op: "replace", Err: err}
	}
	header := make([]byte, len(sqliteHeader))
	_, err = io.ReadFull(f, header)
	_ = f.Close()
	if err != nil || !bytes.Equal(header, sqliteHeader) {
		return ErrNotDatabase
	}

	conn, err := openSQL(path, opts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotDatabase, err)
	}
	defer func() { _ = conn.Close() }()

	var result string
	if err := conn.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("%w: %v", ErrNotDatabase, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: integrity check: %s", ErrNotDatabase, result)
	}
	return nil
}

// Migrate creates every table in reg. It is idempotent and can be run
// multiple times safely.
func Migrate(ctx context.Context, db *DB, reg *schema.Registry) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return migrate(ctx, db.sql, reg)
}

func migrate(ctx context.Context, conn *sql.DB, reg *schema.Registry) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range reg.Tables() {
		for _, stmt := range tableDDL(t) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to migrate table %s: %w", t.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

// tableDDL returns the statements creating t and the index on its natural key.
// The key index is not unique: key uniqueness is checked by Upsert so that a
// duplicate is a skip rather than a constraint failure.
func tableDDL(t schema.Table) []string {
	cols := []string{
		quoteIdent(schema.IDColumn) + " INTEGER PRIMARY KEY AUTOINCREMENT",
		quoteIdent(schema.IdentifierColumn) + " TEXT NOT NULL UNIQUE",
	}
	for _, c := range t.Columns {
		def := quoteIdent(c.Name) + " " + c.Type.SQLType()
		if c.Required {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}
	cols = append(cols,
		quoteIdent(schema.CreatedAtColumn)+" TEXT NOT NULL",
		quoteIdent(schema.UpdatedAtColumn)+" TEXT NOT NULL",
	)

	keyCols := make([]string, len(t.Key))
	for i, k := range t.Key {
		keyCols[i] = quoteIdent(k)
	}

	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(t.Name), strings.Join(cols, ",\n\t")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent("idx_"+t.Name+"_key"), quoteIdent(t.Name), strings.Join(keyCols, ", ")),
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
