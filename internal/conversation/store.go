package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists conversation turns in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the turns database and initializes the schema.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	// WAL mode allows readers alongside the single writer
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		turn_id    INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		image_path TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// AppendTurn inserts a turn and fills in its assigned ID and timestamp.
func (s *Store) AppendTurn(ctx context.Context, t *Turn) error {
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO turns (session_id, role, content, image_path, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query, t.SessionID, string(t.Role), t.Content, t.ImagePath, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read turn id: %w", err)
	}
	t.ID = id
	return nil
}

// History returns all turns of a session in append order.
func (s *Store) History(ctx context.Context, sessionID string) ([]Turn, error) {
	query := `
		SELECT turn_id, session_id, role, content, image_path, created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY turn_id
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var role string
		var imagePath sql.NullString
		if err := rows.Scan(&t.ID, &t.SessionID, &role, &t.Content, &imagePath, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Role = Role(role)
		if imagePath.Valid {
			t.ImagePath = imagePath.String
		}
		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}
	return turns, nil
}

// DeleteSession removes all turns of a session.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	query := `DELETE FROM turns WHERE session_id = ?`
	_, err := s.db.ExecContext(ctx, query, sessionID)
	return err
}
