package session

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteStore persists sessions in the sessions/messages tables created by
// telemetry.InitDB. Turns are ordered by the autoincrement message id.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an initialized database
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Turns(ctx context.Context, id string) ([]Turn, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return turns, nil
}

func (s *SQLiteStore) Append(ctx context.Context, id string, turn Turn) error {
	if id == "" {
		return ErrEmptyID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (id, start_time) VALUES (?, ?)",
		id, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
		id, turn.Role, turn.Content, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
