package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
)

// DuplicateTitleError is returned when a Note title is already taken
type DuplicateTitleError struct {
	Title      string
	ExistingID int64
}

func (e *DuplicateTitleError) Error() string {
	return fmt.Sprintf("note titled %q already exists (id %d)", e.Title, e.ExistingID)
}

// timeLayout is the fixed-width UTC layout stored in every timestamp
// column. Fixed width keeps lexical order equal to time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger

	// generation is bumped after every committed write, ours or another
	// connection's (seen through PRAGMA data_version)
	generation  atomic.Uint64
	dataVersion atomic.Int64
	now         func() time.Time
	retry       RetryConfig
}

// Option configures a SQLiteStorage
type Option func(*SQLiteStorage)

// WithLogger sets the logger used for migrations and decode warnings
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLiteStorage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStorage) {
		if now != nil {
			s.now = now
		}
	}
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// One connection: SQLite serializes writers and :memory: databases
	// are per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath and
// applies pending migrations before returning.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	s := &SQLiteStorage{
		logger: slog.Default(),
		now:    time.Now,
		retry:  DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if isFilePath(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db, s.logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	s.db = db
	if dv, err := s.readDataVersion(); err == nil {
		s.dataVersion.Store(dv)
	}
	return s, nil
}

func isFilePath(dbPath string) bool {
	return dbPath != "" && dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:")
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Generation returns a counter that changes after every committed write,
// including commits made by other connections or processes on the same
// database file. If the external check fails the counter is advanced, so
// callers treat anything derived from an older value as stale.
func (s *SQLiteStorage) Generation() uint64 {
	dv, err := s.readDataVersion()
	if err != nil {
		s.logger.Debug("failed to read data_version", "error", err)
		return s.generation.Add(1)
	}
	if old := s.dataVersion.Load(); old != dv && s.dataVersion.CompareAndSwap(old, dv) {
		s.generation.Add(1)
	}
	return s.generation.Load()
}

// readDataVersion returns SQLite's data_version for the pooled connection.
// It changes whenever another connection commits to the database.
func (s *SQLiteStorage) readDataVersion() (int64, error) {
	var dv int64
	if err := s.db.QueryRowContext(context.Background(), "PRAGMA data_version").Scan(&dv); err != nil {
		return 0, err
	}
	return dv, nil
}

// SchemaVersion returns the schema version of the open database
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (*semver.Version, error) {
	return SchemaVersion(ctx, s.db)
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// withTx runs fn in a transaction, committing on nil and rolling back
// otherwise. A busy database re-runs the whole transaction, so fn must
// not keep state from an earlier attempt. Nothing inside fn may use s.db:
// the pool has one connection.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	attempt := 0
	err := retryBusy(ctx, s.retry, isBusy, func() error {
		attempt++
		if attempt > 1 {
			s.logger.Debug("retrying busy transaction", "attempt", attempt)
		}
		return s.runTx(ctx, fn)
	})
	if err != nil {
		return err
	}
	s.generation.Add(1)
	return nil
}

func (s *SQLiteStorage) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) timestamp() (time.Time, string) {
	now := s.now().UTC().Truncate(time.Microsecond)
	return now, now.Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return time.Time{}
		}
	}
	return t.UTC()
}

// encodeList stores a slice as JSON; nil becomes []
func encodeList[T any](v []T) (string, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeList reads a stored JSON array. Corrupt data yields an empty slice,
// a warning and the field name appended to decodeErrs.
func decodeList[T any](s *SQLiteStorage, table string, id int64, field, raw string, decodeErrs *[]string) []T {
	out := []T{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.Warn("failed to decode stored field",
			"table", table, "id", id, "field", field, "error", err)
		*decodeErrs = append(*decodeErrs, field)
		return []T{}
	}
	if out == nil {
		return []T{}
	}
	return out
}

func boolInt(b *bool) int {
	if b != nil && *b {
		return 1
	}
	return 0
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func boolPtr(v int) *bool {
	b := v != 0
	return &b
}

// noteExists validates an optional Note reference on an entity
func noteExists(ctx context.Context, q querier, noteID *int64) error {
	if noteID == nil {
		return nil
	}
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM notes WHERE id = ?", *noteID).Scan(&id)
	if err == sql.ErrNoRows {
		return &ValidationError{Field: "note_id", Value: fmt.Sprint(*noteID), Reason: "no such note"}
	}
	if err != nil {
		return fmt.Errorf("failed to check note reference: %w", err)
	}
	return nil
}

func asValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
