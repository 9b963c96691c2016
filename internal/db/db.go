package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS meetups (
            id SERIAL PRIMARY KEY,
            listing_id INT NOT NULL,
            requester_id INT NOT NULL,
            requester_username TEXT NOT NULL DEFAULT '',
            receiver_id INT NOT NULL,
            receiver_username TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            requester_code TEXT,
            receiver_code TEXT,
            requester_verified BOOLEAN NOT NULL DEFAULT FALSE,
            receiver_verified BOOLEAN NOT NULL DEFAULT FALSE,
            location TEXT,
            notes TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            accepted_at TIMESTAMPTZ,
            verified_at TIMESTAMPTZ,
            completed_at TIMESTAMPTZ
        );`,
		// One non-terminal meetup per listing and user pair. An insert racing
		// against this index is what keeps the DuplicateActive check atomic.
		`CREATE UNIQUE INDEX IF NOT EXISTS meetups_active_pair_idx
            ON meetups (listing_id, LEAST(requester_id, receiver_id), GREATEST(requester_id, receiver_id))
            WHERE status IN ('pending', 'accepted', 'verified');`,
		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            listing_id INT NOT NULL,
            sender_id INT NOT NULL,
            sender_username TEXT NOT NULL DEFAULT '',
            recipient_id INT NOT NULL,
            content TEXT NOT NULL,
            read BOOLEAN NOT NULL DEFAULT FALSE,
            deleted BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_unread_idx
            ON messages (recipient_id, created_at DESC)
            WHERE read = FALSE AND deleted = FALSE;`,
		`CREATE INDEX IF NOT EXISTS messages_thread_idx
            ON messages (listing_id, sender_id, recipient_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS chat_tombstones (
            listing_id INT NOT NULL,
            user_id INT NOT NULL,
            counterparty_id INT NOT NULL,
            cleared_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (listing_id, user_id, counterparty_id)
        );`,
		`CREATE TABLE IF NOT EXISTS presence (
            user_id INT PRIMARY KEY,
            last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL,
            type TEXT NOT NULL,
            content TEXT NOT NULL,
            read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS notifications_user_idx
            ON notifications (user_id, created_at DESC);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Info().Msg("database migrations applied")
	return nil
}
