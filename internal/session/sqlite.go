package session

import (
	"context"
	"fmt"
	"time"

	"github.com/ziadkadry99/courserag/internal/db"
)

// SQLiteStore keeps sessions in the chat_sessions/chat_turns tables so they
// survive restarts.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a store backed by d.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Create(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_sessions (id, created_at, updated_at) VALUES (?, ?, ?)`,
		id, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, id string, turns []Turn, keep int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		id, now, now,
	); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	for _, t := range turns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
			id, string(t.Role), t.Text, now,
		); err != nil {
			return fmt.Errorf("adding turn: %w", err)
		}
	}

	if keep < 0 {
		keep = 0
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chat_turns WHERE session_id = ? AND seq NOT IN (
		     SELECT seq FROM chat_turns WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		 )`,
		id, id, keep,
	); err != nil {
		return fmt.Errorf("trimming session: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Turns(ctx context.Context, id string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM chat_turns WHERE session_id = ? ORDER BY seq ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&role, &t.Text); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.Role = Role(role)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_turns WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_sessions`).Scan(&n)
	return n, err
}
