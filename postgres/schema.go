package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS phenotree_slots (
    session_id TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (session_id, key)
);

CREATE INDEX IF NOT EXISTS idx_phenotree_slots_updated ON phenotree_slots(updated_at);
`

// CreateSchema creates the phenotree_slots table if it doesn't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the phenotree_slots table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS phenotree_slots CASCADE;`)
	return err
}
