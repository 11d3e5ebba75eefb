package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	m "github.com/mouse-blink/refit/internal/model"
)

// LedgerStore persists applied improvements so repeated runs can show
// what changed and when.
type LedgerStore interface {
	Record(ctx context.Context, rec m.ImprovementRecord) error
	History(ctx context.Context, path m.Path, limit int) ([]m.ImprovementRecord, error)
	Close() error
}

// SQLiteLedgerStore writes the ledger to a local sqlite database.
type SQLiteLedgerStore struct {
	db *sql.DB
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS improvements (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	original    TEXT NOT NULL,
	new         TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_improvements_path ON improvements(path, created_at);
`

// NewSQLiteLedgerStore opens (creating if needed) the ledger database
// at dbPath and ensures the schema exists.
func NewSQLiteLedgerStore(dbPath string) (*SQLiteLedgerStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	// sqlite serialises writers; a single connection avoids SQLITE_BUSY
	// under the worker pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()

		return nil, fmt.Errorf("initialising ledger schema: %w", err)
	}

	return &SQLiteLedgerStore{db: db}, nil
}

// Record appends one improvement to the ledger. A missing ID or
// timestamp is filled in here so callers can stay terse.
func (s *SQLiteLedgerStore) Record(ctx context.Context, rec m.ImprovementRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO improvements (id, path, kind, original, new, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Path), string(rec.Kind), rec.Original, rec.New, rec.Description, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording improvement: %w", err)
	}

	return nil
}

// History returns the most recent improvements for path, newest first.
func (s *SQLiteLedgerStore) History(ctx context.Context, path m.Path, limit int) ([]m.ImprovementRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, kind, original, new, description, created_at
		 FROM improvements WHERE path = ? ORDER BY created_at DESC LIMIT ?`,
		string(path), limit)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var records []m.ImprovementRecord

	for rows.Next() {
		var (
			rec     m.ImprovementRecord
			pathStr string
			kindStr string
		)

		if err := rows.Scan(&rec.ID, &pathStr, &kindStr, &rec.Original, &rec.New, &rec.Description, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}

		rec.Path = m.Path(pathStr)
		rec.Kind = m.FixKind(kindStr)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteLedgerStore) Close() error {
	return s.db.Close()
}
