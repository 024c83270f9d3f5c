package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists the audit log in SQLite, for single-node deployments
// without PostgreSQL.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite audit store.
// If dbPath is empty, defaults to "./data/squarewire.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/squarewire.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		square_mid TEXT NOT NULL DEFAULT '',
		target_mid TEXT NOT NULL DEFAULT '',
		credential_hash TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordAction inserts an audit entry.
func (s *SQLiteStore) RecordAction(ctx context.Context, entry *AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, square_mid, target_mid, credential_hash, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID.String(), entry.Action, entry.SquareMid, entry.TargetMid, entry.CredentialHash, entry.Detail, entry.CreatedAt)
	return err
}

// ListRecent retrieves the newest audit entries.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, square_mid, target_mid, credential_hash, detail, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var id string
		err := rows.Scan(
			&id,
			&e.Action,
			&e.SquareMid,
			&e.TargetMid,
			&e.CredentialHash,
			&e.Detail,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if parsed, err := uuid.Parse(id); err == nil {
			e.ID = parsed
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// CountActions returns the total number of recorded actions.
func (s *SQLiteStore) CountActions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&count)
	return count, err
}
