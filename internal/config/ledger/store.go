package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_versions (
	history      TEXT NOT NULL,
	version      INTEGER NOT NULL,
	entry_id     TEXT NOT NULL,
	description  TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	checksum     TEXT NOT NULL,
	snapshot     TEXT NOT NULL,
	PRIMARY KEY (history, version)
);
`

// SQLiteStore persists ledger entries in a SQLite database. One database
// can hold any number of named histories.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens the database at path and creates the schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts e into history, replacing a row with the same version.
func (s *SQLiteStore) Append(ctx context.Context, history string, e Entry) error {
	snap, err := json.Marshal(e.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ledger_versions
		 (history, version, entry_id, description, created_at, checksum, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		history, e.Version, e.ID.String(), e.Description,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		strconv.FormatUint(e.Checksum, 16), string(snap),
	)
	if err != nil {
		return fmt.Errorf("insert version %d: %w", e.Version, err)
	}
	return nil
}

// Load returns the entries of history ordered by version.
func (s *SQLiteStore) Load(ctx context.Context, history string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, entry_id, description, created_at, checksum, snapshot
		 FROM ledger_versions WHERE history = ? ORDER BY version`, history,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                      Entry
			id, created, sum, snap string
		)
		if err := rows.Scan(&e.Version, &id, &e.Description, &created, &sum, &snap); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("version %d id: %w", e.Version, err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("version %d timestamp: %w", e.Version, err)
		}
		if e.Checksum, err = strconv.ParseUint(sum, 16, 64); err != nil {
			return nil, fmt.Errorf("version %d checksum: %w", e.Version, err)
		}
		if err := json.Unmarshal([]byte(snap), &e.Snapshot); err != nil {
			return nil, fmt.Errorf("version %d snapshot: %w", e.Version, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear deletes every entry of history.
func (s *SQLiteStore) Clear(ctx context.Context, history string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ledger_versions WHERE history = ?`, history); err != nil {
		return fmt.Errorf("clear history %q: %w", history, err)
	}
	return nil
}

// Histories returns the names of all stored histories.
func (s *SQLiteStore) Histories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT history FROM ledger_versions ORDER BY history`)
	if err != nil {
		return nil, fmt.Errorf("query histories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
