package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

const (
	defaultDir    = ".fractions"
	defaultDBName = "history.db"
)

// SQLiteStoreConfig configures the SQLite history store.
type SQLiteStoreConfig struct {
	// DSN is a file path or a "file:" URI.
	DSN string

	// Retention bounds what Prune keeps.
	Retention Retention

	// Now provides the current time for age pruning (default time.Now).
	Now func() time.Time
}

// SQLiteStore persists records to a SQLite database in WAL mode.
type SQLiteStore struct {
	db        *sql.DB
	retention Retention
	now       func() time.Time
}

// DefaultPath returns ~/.fractions/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("history: resolve user home: %w", err)
	}
	return filepath.Join(home, defaultDir, defaultDBName), nil
}

// NewSQLiteStore opens (or creates) a SQLite history store. Parent
// directories of a plain file path are created as needed.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("history: sqlite dsn is required")
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") && dsn != ":memory:" {
		dsn = filepath.Clean(dsn)
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SQLiteStore{
		db:        db,
		retention: cfg.Retention,
		now:       now,
	}, nil
}

// Append stores a record.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, session_id, expression, operator, output, result, error_kind, created_at, elapsed, trace_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.SessionID,
		rec.Expression,
		rec.Operator,
		rec.Output,
		rec.Result,
		rec.ErrorKind,
		rec.CreatedAt.UnixNano(),
		int64(rec.Elapsed),
		rec.TraceID,
	)
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// List returns records newest first.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	query := `SELECT id, session_id, expression, operator, output, result, error_kind, created_at, elapsed, trace_id
	          FROM evaluations`
	var (
		where []string
		args  []any
	)
	if opts.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, opts.SessionID)
	}
	if opts.FailedOnly {
		where = append(where, "error_kind != ''")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Clear deletes every record.
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations`)
	if err != nil {
		return 0, fmt.Errorf("history: clear: %w", err)
	}
	return res.RowsAffected()
}

// Prune runs a single retention pass.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	var removed int64

	if s.retention.MaxAge > 0 {
		cutoff := s.now().Add(-s.retention.MaxAge).UnixNano()
		res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE created_at < ?`, cutoff)
		if err != nil {
			return removed, fmt.Errorf("history: prune by age: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if s.retention.MaxCount > 0 {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM evaluations WHERE seq NOT IN (
				SELECT seq FROM evaluations ORDER BY seq DESC LIMIT ?
			)`, s.retention.MaxCount,
		)
		if err != nil {
			return removed, fmt.Errorf("history: prune by count: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	return removed, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec       Record
			createdAt int64
			elapsed   int64
		)
		err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Expression,
			&rec.Operator,
			&rec.Output,
			&rec.Result,
			&rec.ErrorKind,
			&createdAt,
			&elapsed,
			&rec.TraceID,
		)
		if err != nil {
			return nil, fmt.Errorf("history: scan record: %w", err)
		}
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		rec.Elapsed = time.Duration(elapsed)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)
