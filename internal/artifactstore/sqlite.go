package artifactstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based artifact store. Use ":memory:"
// for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		scenario TEXT NOT NULL,
		format TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		content BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_session_id ON artifacts(session_id);
	CREATE INDEX IF NOT EXISTS idx_created_at ON artifacts(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append archives a rendered artifact.
func (s *SQLiteStore) Append(ctx context.Context, a Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if a.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO artifacts (session_id, scenario, format, created_at, content, metadata) VALUES (?, ?, ?, ?, ?, ?)",
		a.SessionID, a.Scenario, a.Format, createdAt.Unix(), a.Content, metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// GetBySession retrieves all artifacts for one capture session.
func (s *SQLiteStore) GetBySession(ctx context.Context, sessionID string) ([]Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, scenario, format, created_at, content, metadata FROM artifacts WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	return s.scanArtifacts(rows)
}

// GetRange retrieves artifacts created within a time range.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, scenario, format, created_at, content, metadata FROM artifacts WHERE created_at >= ? AND created_at <= ? ORDER BY id",
		start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	return s.scanArtifacts(rows)
}

// Sessions lists archived session IDs, most recent first.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id FROM artifacts GROUP BY session_id ORDER BY MAX(created_at) DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return sessions, nil
}

func (s *SQLiteStore) scanArtifacts(rows *sql.Rows) ([]Artifact, error) {
	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		var createdAtUnix int64
		var metadataJSON []byte

		err := rows.Scan(&a.ID, &a.SessionID, &a.Scenario, &a.Format, &createdAtUnix, &a.Content, &metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}

		a.CreatedAt = time.Unix(createdAtUnix, 0)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &a.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}

		artifacts = append(artifacts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return artifacts, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
