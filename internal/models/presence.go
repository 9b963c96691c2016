package models

import "time"

// PresenceRecord stores the last time a user performed an authenticated
// request.
type PresenceRecord struct {
	UserID   int       `db:"user_id" json:"user_id"`
	LastSeen time.Time `db:"last_seen" json:"last_seen"`
}

// PresenceStatus is the derived online state returned to clients. IsOnline is
// time-relative and must be recomputed on every read.
type PresenceStatus struct {
	UserID   int        `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}
