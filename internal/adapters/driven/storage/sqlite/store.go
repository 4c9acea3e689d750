package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	msqlite "modernc.org/sqlite" // SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wkyt-app/wkyt/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
	"github.com/wkyt-app/wkyt/internal/keylock"
)

// Schema selects the migration set of a database file.
type Schema string

const (
	// SchemaCredentials holds the credentials table.
	SchemaCredentials Schema = "credentials"
	// SchemaRecords holds the records and sync_cursors tables.
	SchemaRecords Schema = "records"
)

// Store is a SQLite database with separate writer and reader pools.
// It provides the store interfaces of its schema through wrapper types.
type Store struct {
	writer *sql.DB
	reader *sql.DB
	path   string
	schema Schema
	codec  driven.Codec
	locks  *keylock.Map
	now    func() time.Time
}

// NewStore opens (creating if needed) the database at dbPath and migrates it.
func NewStore(dbPath string, schema Schema, codec driven.Codec) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		dbPath,
	)

	s, err := open(dsn, schema, codec)
	if err != nil {
		return nil, err
	}
	s.path = dbPath

	// Ciphertext only, but the file still reveals metadata.
	if err := os.Chmod(dbPath, 0600); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("restricting database permissions: %w", err)
	}

	return s, nil
}

func open(dsn string, schema Schema, codec driven.Codec) (*Store, error) {
	if codec == nil {
		return nil, errors.New("sqlite store: codec required")
	}

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}

	if err := runMigrations(writer, schema); err != nil {
		writer.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if err := reader.Ping(); err != nil {
		reader.Close()
		writer.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	return &Store{
		writer: writer,
		reader: reader,
		path:   dsn,
		schema: schema,
		codec:  codec,
		locks:  keylock.New(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// runMigrations applies all pending migrations of schema.
// Already-applied migrations are skipped.
func runMigrations(db *sql.DB, schema Schema) error {
	sourceDriver, err := iofs.New(migrations.FS, string(schema))
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close closes both pools. Returns the first error encountered.
func (s *Store) Close() error {
	var firstErr error

	if err := s.reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}

	if err := s.writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}

	return firstErr
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SecretStore returns a SecretStore backed by this store.
// The store must use SchemaCredentials.
func (s *Store) SecretStore() driven.SecretStore {
	return &secretStore{store: s}
}

// RecordStore returns a RecordStore backed by this store.
// The store must use SchemaRecords.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// CursorStore returns a CursorStore backed by this store.
// The store must use SchemaRecords.
func (s *Store) CursorStore() driven.CursorStore {
	return &cursorStore{store: s}
}

// withTx runs fn in a write transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return classify(err)
	}
	return classify(tx.Commit())
}

// classify maps SQLite lock contention to domain.ErrWriteConflict and other
// failures to the storage category.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var serr *msqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", domain.ErrWriteConflict, err)
		}
	}
	if errors.Is(err, domain.ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}

func lockKey(provider domain.Provider, id string) string {
	return string(provider) + "\x00" + id
}

// toNanos stores zero times as NULL.
func toNanos(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.Unix(0, n.Int64).UTC()
}
