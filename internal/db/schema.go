package db

import "context"

// EnsureSchema creates the users and tasks tables if they do not exist.
// Task rows reference their owner without ON DELETE CASCADE: the cascade on
// account deletion is performed explicitly by the user service so its
// partial-failure behavior stays visible.
func (db *Postgres) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			auth_tokens TEXT[] NOT NULL DEFAULT '{}',
			avatar BYTEA,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			description TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			owner_id UUID NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS tasks_owner_id_idx ON tasks(owner_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}
