package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/dori/todosync/internal/debug"
)

//go:embed migrations/*.sql
var migrations embed.FS

// FileName is the cache database file inside the data directory
const FileName = "todosync.db"

// DB is the local cache. One process owns it at a time (see app's lock).
type DB struct {
	*sql.DB
}

// PathIn returns the cache database path inside dataDir
func PathIn(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Open opens the cache at dbPath, creating the file and schema as needed
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", "file:"+dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open cache %s: %w", dbPath, err)
	}

	db := &DB{DB: sqlDB}
	if err := db.migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenOrReset opens the cache like Open. A file that cannot be opened as a
// cache is moved aside to <path>.corrupt-<unix seconds> and a fresh cache
// takes its place, so a damaged cache costs the local copy, never startup.
// reset reports whether that happened.
func OpenOrReset(dbPath string) (db *DB, reset bool, err error) {
	db, err = Open(dbPath)
	if err == nil {
		return db, false, nil
	}
	if _, statErr := os.Stat(dbPath); statErr != nil {
		return nil, false, err
	}

	aside := fmt.Sprintf("%s.corrupt-%d", dbPath, time.Now().Unix())
	debug.Log("db: cache unusable (%v), moving it to %s", err, aside)
	if renameErr := os.Rename(dbPath, aside); renameErr != nil {
		return nil, false, errors.Join(err, renameErr)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(dbPath + suffix)
	}

	db, err = Open(dbPath)
	if err != nil {
		return nil, true, err
	}
	return db, true, nil
}

// migrate brings the schema up to date. A goose Provider keeps the
// migration state local to this connection rather than in goose globals.
func (db *DB) migrate(ctx context.Context) error {
	start := time.Now()
	defer func() { debug.LogTiming("db: migrate", time.Since(start)) }()

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		debug.Log("db: applied migration %s", r.Source.Path)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Transaction runs fn in a transaction, rolling back if fn fails
func (db *DB) Transaction(fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}
