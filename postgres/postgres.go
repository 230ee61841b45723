// Package postgres is a phenotree.Store on PostgreSQL via pgx. Every session
// owns one row per slot in phenotree_slots.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/phenotree"
)

// PGStore implements phenotree.Store for one session.
type PGStore struct {
	db        *pgxpool.Pool
	sessionID string
}

// New creates a PGStore for sessionID backed by the given pgx connection pool.
func New(db *pgxpool.Pool, sessionID string) *PGStore {
	return &PGStore{db: db, sessionID: sessionID}
}

// SessionID returns the session the store reads and writes.
func (s *PGStore) SessionID() string {
	return s.sessionID
}

// Get returns the value of key, or phenotree.ErrNotFound.
func (s *PGStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx,
		`SELECT value FROM phenotree_slots WHERE session_id = $1 AND key = $2`,
		s.sessionID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, phenotree.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s: %w", key, err)
	}
	return value, nil
}

// Set overwrites the value of key.
func (s *PGStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO phenotree_slots (session_id, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (session_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		s.sessionID, key, value,
	)
	if err != nil {
		return fmt.Errorf("postgres: set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. No error if it doesn't exist.
func (s *PGStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM phenotree_slots WHERE session_id = $1 AND key = $2`,
		s.sessionID, key,
	); err != nil {
		return fmt.Errorf("postgres: remove %s: %w", key, err)
	}
	return nil
}

// Keys lists the slots the session has stored.
func (s *PGStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT key FROM phenotree_slots WHERE session_id = $1 ORDER BY key`, s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("postgres: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows keys: %w", err)
	}
	return keys, nil
}
