package session

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// SQLitePersistence implements SessionPersistence with one row per player
type SQLitePersistence struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens a SQLite world store and applies the schema
func OpenSQLite(path string) (*SQLitePersistence, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLitePersistence{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle
func (s *SQLitePersistence) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save upserts a record. An older revision never replaces a newer one.
func (s *SQLitePersistence) Save(record *Record) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	_, err := s.sqlDB.Exec(
		`INSERT INTO worlds (id, display_name, economy, created_at, last_accessed_at, revision, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   display_name = excluded.display_name,
		   economy = excluded.economy,
		   last_accessed_at = excluded.last_accessed_at,
		   revision = excluded.revision,
		   snapshot = excluded.snapshot
		 WHERE excluded.revision >= worlds.revision`,
		record.ID,
		record.DisplayName,
		record.Economy,
		toMillis(record.CreatedAt),
		toMillis(record.LastAccessedAt),
		record.Revision,
		[]byte(record.Snapshot),
	)
	if err != nil {
		return fmt.Errorf("save world %s: %w", record.ID, err)
	}
	return nil
}

// Load returns one record by player ID
func (s *SQLitePersistence) Load(id string) (*Record, error) {
	row := s.sqlDB.QueryRow(
		`SELECT id, display_name, economy, created_at, last_accessed_at, revision, snapshot
		 FROM worlds WHERE id = ?`,
		id,
	)

	var (
		record       Record
		createdAt    int64
		lastAccessed int64
		snapshot     []byte
	)
	if err := row.Scan(&record.ID, &record.DisplayName, &record.Economy, &createdAt, &lastAccessed, &record.Revision, &snapshot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load world %s: %w", id, err)
	}
	record.CreatedAt = fromMillis(createdAt)
	record.LastAccessedAt = fromMillis(lastAccessed)
	record.Snapshot = snapshot
	return &record, nil
}

// Delete removes one record
func (s *SQLitePersistence) Delete(id string) error {
	result, err := s.sqlDB.Exec(`DELETE FROM worlds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete world %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete world %s: %w", id, err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all persisted player IDs
func (s *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := s.sqlDB.Query(`SELECT id FROM worlds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list worlds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan world id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worlds: %w", err)
	}
	return ids, nil
}

// Exists checks if a record exists
func (s *SQLitePersistence) Exists(id string) bool {
	var one int
	err := s.sqlDB.QueryRow(`SELECT 1 FROM worlds WHERE id = ?`, id).Scan(&one)
	return err == nil
}
