package postgres

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scholarships (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	provider     TEXT NOT NULL DEFAULT '',
	amount_min   DOUBLE PRECISION NOT NULL DEFAULT 0,
	amount_max   DOUBLE PRECISION NOT NULL DEFAULT 0,
	deadline     DATE,
	description  TEXT NOT NULL DEFAULT '',
	requirements TEXT[] NOT NULL DEFAULT '{}',
	url          TEXT NOT NULL DEFAULT '',
	tags         TEXT[] NOT NULL DEFAULT '{}',
	is_active    BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scholarships_active_deadline_idx ON scholarships (is_active, deadline);

CREATE TABLE IF NOT EXISTS scholarship_recommendations (
	id             UUID PRIMARY KEY,
	user_id        TEXT NOT NULL,
	scholarship_id TEXT NOT NULL REFERENCES scholarships(id) ON DELETE CASCADE,
	match_score    INTEGER NOT NULL,
	priority_level TEXT NOT NULL,
	match_reasons  TEXT[] NOT NULL DEFAULT '{}',
	generated_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, scholarship_id)
);
CREATE INDEX IF NOT EXISTS scholarship_recommendations_user_idx ON scholarship_recommendations (user_id);
`

// EnsureSchema creates the tables when missing. It is idempotent.
func EnsureSchema(ctx context.Context, pool PgxPool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("op=postgres.schema: %w", err)
	}
	return nil
}
