package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS profiles (
    id TEXT PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL DEFAULT '',
    role VARCHAR(20) NOT NULL,
    primary_category TEXT NOT NULL DEFAULT '',
    secondary_category TEXT NOT NULL DEFAULT '',
    support_tags TEXT[] NOT NULL DEFAULT '{}',
    interests TEXT[] NOT NULL DEFAULT '{}',
    age_bracket TEXT NOT NULL DEFAULT '',
    stage_descriptor TEXT NOT NULL DEFAULT '',
    stage_kind VARCHAR(20) NOT NULL DEFAULT 'unknown',
    stage_number INTEGER NOT NULL DEFAULT 0,
    recurrence TEXT NOT NULL DEFAULT '',
    available BOOLEAN,
    building TEXT NOT NULL DEFAULT '',
    floor TEXT NOT NULL DEFAULT '',
    bio TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_role CHECK (role IN ('seeker', 'supporter'))
);

CREATE INDEX IF NOT EXISTS idx_profiles_role ON profiles(role, created_at);
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS connection_requests (
    id TEXT PRIMARY KEY,
    pair_key TEXT NOT NULL,
    sender_id TEXT NOT NULL,
    sender_name VARCHAR(100) NOT NULL DEFAULT '',
    receiver_id TEXT NOT NULL,
    receiver_name VARCHAR(100) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_request_status CHECK (status IN ('pending', 'accepted', 'rejected')),
    CONSTRAINT different_users CHECK (sender_id != receiver_id)
);

-- At most one active request per unordered pair
CREATE UNIQUE INDEX IF NOT EXISTS uniq_connection_requests_active_pair
    ON connection_requests(pair_key) WHERE status IN ('pending', 'accepted');

CREATE INDEX IF NOT EXISTS idx_connection_requests_sender ON connection_requests(sender_id, status);
CREATE INDEX IF NOT EXISTS idx_connection_requests_receiver ON connection_requests(receiver_id, status);
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS chats (
    id TEXT PRIMARY KEY,
    participants TEXT[] NOT NULL,
    participant_names JSONB NOT NULL DEFAULT '{}'::jsonb,
    last_message JSONB,
    last_message_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_chats_participants ON chats USING GIN (participants);
`

const migration004Up = `
ALTER TABLE profiles ADD COLUMN IF NOT EXISTS stage_numbered BOOLEAN NOT NULL DEFAULT FALSE;

UPDATE profiles SET stage_numbered = TRUE WHERE stage_kind = 'numbered';
`

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_profiles", UpSQL: migration001Up},
		{Version: 2, Name: "create_connection_requests", UpSQL: migration002Up},
		{Version: 3, Name: "create_chats", UpSQL: migration003Up},
		{Version: 4, Name: "add_profiles_stage_numbered", UpSQL: migration004Up},
	}
}

// Migrate applies every migration not yet recorded in schema_migrations.
func Migrate(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) error {
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range GetMigrations() {
		var applied bool
		err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if applied {
			continue
		}

		tx, err := db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		logger.Info("applied migration", zap.Int("version", m.Version), zap.String("name", m.Name))
	}

	return nil
}
