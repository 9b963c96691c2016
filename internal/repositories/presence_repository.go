package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"meetup-service/internal/models"
)

// PresenceRepository tracks last-activity timestamps. Online state is derived
// at read time, never stored.
type PresenceRepository interface {
	Touch(ctx context.Context, userID int) error
	Get(ctx context.Context, userID int) (models.PresenceRecord, error)
}

// PresenceRepo is a sqlx-backed PresenceRepository.
type PresenceRepo struct {
	db *sqlx.DB
}

// NewPresenceRepo constructs a PresenceRepo.
func NewPresenceRepo(db *sqlx.DB) *PresenceRepo {
	return &PresenceRepo{db: db}
}

// Touch refreshes the user's last_seen to now.
func (r *PresenceRepo) Touch(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO presence (user_id, last_seen) VALUES ($1, NOW())
         ON CONFLICT (user_id) DO UPDATE SET last_seen = NOW()`, userID)
	return err
}

// Get returns the user's presence record.
func (r *PresenceRepo) Get(ctx context.Context, userID int) (models.PresenceRecord, error) {
	var rec models.PresenceRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT user_id, last_seen FROM presence WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PresenceRecord{}, ErrPresenceNotFound
	}
	return rec, err
}
