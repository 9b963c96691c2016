package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"meetup-service/internal/models"
)

const meetupColumns = `id, listing_id, requester_id, requester_username, receiver_id, receiver_username,
        status, requester_code, receiver_code, requester_verified, receiver_verified,
        location, notes, created_at, accepted_at, verified_at, completed_at`

// CreateMeetupParams carries the inputs for a new meetup request.
type CreateMeetupParams struct {
	ListingID         int
	RequesterID       int
	RequesterUsername string
	ReceiverID        int
	ReceiverUsername  string
	Location          *string
	Notes             *string
}

// MeetupRepository owns the meetup state machine. Every transition is a
// single conditional UPDATE; the WHERE clause doubles as the optimistic lock
// so two racing requests from the two participants cannot corrupt state.
type MeetupRepository interface {
	Create(ctx context.Context, params CreateMeetupParams) (models.Meetup, error)
	Get(ctx context.Context, meetupID int) (models.Meetup, error)
	ListForUser(ctx context.Context, userID int) ([]models.Meetup, error)
	Accept(ctx context.Context, meetupID, actorID int) (models.Meetup, error)
	Reject(ctx context.Context, meetupID, actorID int) (models.Meetup, error)
	Cancel(ctx context.Context, meetupID, actorID int) (models.Meetup, error)
	Verify(ctx context.Context, meetupID, actorID int, code string) (models.Meetup, error)
	Complete(ctx context.Context, meetupID, actorID int) (models.Meetup, error)
	ExpireStale(ctx context.Context, cutoff time.Time) ([]models.Meetup, error)
}

// MeetupRepo is a sqlx implementation of MeetupRepository.
type MeetupRepo struct {
	db *sqlx.DB
}

// NewMeetupRepo constructs a MeetupRepo.
func NewMeetupRepo(db *sqlx.DB) *MeetupRepo {
	return &MeetupRepo{db: db}
}

// Create inserts a pending meetup. The partial unique index on active meetups
// turns a concurrent duplicate into a unique violation, reported as
// ErrDuplicateActive.
func (r *MeetupRepo) Create(ctx context.Context, params CreateMeetupParams) (models.Meetup, error) {
	if params.RequesterID == params.ReceiverID {
		return models.Meetup{}, ErrInvalidTarget
	}

	var meetup models.Meetup
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO meetups (listing_id, requester_id, requester_username, receiver_id, receiver_username, location, notes)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING `+meetupColumns,
		params.ListingID, params.RequesterID, params.RequesterUsername,
		params.ReceiverID, params.ReceiverUsername, params.Location, params.Notes,
	).StructScan(&meetup)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.Meetup{}, ErrDuplicateActive
		}
		return models.Meetup{}, err
	}
	return meetup, nil
}

// Get fetches a meetup by id.
func (r *MeetupRepo) Get(ctx context.Context, meetupID int) (models.Meetup, error) {
	var meetup models.Meetup
	err := r.db.GetContext(ctx, &meetup, `SELECT `+meetupColumns+` FROM meetups WHERE id=$1`, meetupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Meetup{}, ErrMeetupNotFound
	}
	return meetup, err
}

// ListForUser returns the user's meetups, newest first.
func (r *MeetupRepo) ListForUser(ctx context.Context, userID int) ([]models.Meetup, error) {
	var meetups []models.Meetup
	err := r.db.SelectContext(ctx, &meetups,
		`SELECT `+meetupColumns+` FROM meetups
         WHERE requester_id=$1 OR receiver_id=$1
         ORDER BY created_at DESC`, userID)
	return meetups, err
}

// Accept moves a pending meetup to accepted and issues both verification
// codes. Only the receiver may accept.
func (r *MeetupRepo) Accept(ctx context.Context, meetupID, actorID int) (models.Meetup, error) {
	requesterCode, receiverCode, err := newMeetupCodes()
	if err != nil {
		return models.Meetup{}, err
	}

	var meetup models.Meetup
	err = r.db.QueryRowxContext(ctx,
		`UPDATE meetups
         SET status=$1, requester_code=$2, receiver_code=$3, accepted_at=NOW()
         WHERE id=$4 AND receiver_id=$5 AND status=$6
         RETURNING `+meetupColumns,
		models.MeetupAccepted, requesterCode, receiverCode, meetupID, actorID, models.MeetupPending,
	).StructScan(&meetup)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Meetup{}, r.classify(ctx, meetupID, actorID, receiverOnly)
	}
	return meetup, err
}

// Reject moves a pending meetup to rejected. Only the receiver may reject.
func (r *MeetupRepo) Reject(ctx context.Context, meetupID, actorID int) (models.Meetup, error) {
	var meetup models.Meetup
	err := r.db.QueryRowxContext(ctx,
		`UPDATE meetups SET status=$1
         WHERE id=$2 AND receiver_id=$3 AND status=$4
         RETURNING `+meetupColumns,
		models.MeetupRejected, meetupID, actorID, models.MeetupPending,
	).StructScan(&meetup)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Meetup{}, r.classify(ctx, meetupID, actorID, receiverOnly)
	}
	return meetup, err
}

// Cancel lets either party abandon a meetup any time before completion,
// including after mutual verification.
func (r *MeetupRepo) Cancel(ctx context.Context, meetupID, actorID int) (models.Meetup, error) {
	var meetup models.Meetup
	err := r.db.QueryRowxContext(ctx,
		`UPDATE meetups SET status=$1
         WHERE id=$2 AND (requester_id=$3 OR receiver_id=$3)
           AND status IN ($4, $5, $6)
         RETURNING `+meetupColumns,
		models.MeetupCancelled, meetupID, actorID,
		models.MeetupPending, models.MeetupAccepted, models.MeetupVerified,
	).StructScan(&meetup)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Meetup{}, r.classify(ctx, meetupID, actorID, eitherParty)
	}
	return meetup, err
}

// Verify records that the actor entered the counterparty's code. The match is
// evaluated inside the UPDATE so concurrent submissions from both sides each
// flip their own flag; whichever lands second flips status to verified.
// Resubmitting a correct code after the meetup is verified is a no-op success.
func (r *MeetupRepo) Verify(ctx context.Context, meetupID, actorID int, code string) (models.Meetup, error) {
	var meetup models.Meetup
	err := r.db.QueryRowxContext(ctx,
		`UPDATE meetups SET
            requester_verified = requester_verified OR (requester_id = $2),
            receiver_verified  = receiver_verified  OR (receiver_id  = $2),
            status = CASE
                WHEN (requester_verified OR requester_id = $2) AND (receiver_verified OR receiver_id = $2)
                THEN 'verified' ELSE status END,
            verified_at = CASE
                WHEN verified_at IS NULL
                     AND (requester_verified OR requester_id = $2) AND (receiver_verified OR receiver_id = $2)
                THEN NOW() ELSE verified_at END
         WHERE id = $1
           AND status IN ('accepted', 'verified')
           AND ((requester_id = $2 AND receiver_code = $3) OR (receiver_id = $2 AND requester_code = $3))
         RETURNING `+meetupColumns,
		meetupID, actorID, code,
	).StructScan(&meetup)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Meetup{}, r.classifyVerify(ctx, meetupID, actorID)
	}
	return meetup, err
}

// Complete finishes a verified meetup. Idempotent: the second of two racing
// callers observes the already-completed row and still gets a success, with a
// single completed_at timestamp.
func (r *MeetupRepo) Complete(ctx context.Context, meetupID, actorID int) (models.Meetup, error) {
	var meetup models.Meetup
	err := r.db.QueryRowxContext(ctx,
		`UPDATE meetups SET status=$1, completed_at=NOW()
         WHERE id=$2 AND (requester_id=$3 OR receiver_id=$3) AND status=$4
         RETURNING `+meetupColumns,
		models.MeetupCompleted, meetupID, actorID, models.MeetupVerified,
	).StructScan(&meetup)
	if !errors.Is(err, sql.ErrNoRows) {
		return meetup, err
	}

	current, getErr := r.Get(ctx, meetupID)
	if getErr != nil {
		return models.Meetup{}, getErr
	}
	if !current.IsParticipant(actorID) {
		return models.Meetup{}, ErrForbidden
	}
	if current.Status == models.MeetupCompleted {
		return current, nil
	}
	return models.Meetup{}, ErrInvalidState
}

// ExpireStale moves pending and accepted meetups created before the cutoff to
// expired, returning the rows it touched. Sweeping an already-terminal meetup
// is a no-op, so the sweep is safe to rerun.
func (r *MeetupRepo) ExpireStale(ctx context.Context, cutoff time.Time) ([]models.Meetup, error) {
	var expired []models.Meetup
	err := r.db.SelectContext(ctx, &expired,
		`UPDATE meetups SET status=$1
         WHERE status IN ($2, $3) AND created_at < $4
         RETURNING `+meetupColumns,
		models.MeetupExpired, models.MeetupPending, models.MeetupAccepted, cutoff)
	return expired, err
}

type actorRule int

const (
	receiverOnly actorRule = iota
	eitherParty
)

// classify explains a zero-row conditional update: missing row, wrong actor,
// or wrong state, checked in that order.
func (r *MeetupRepo) classify(ctx context.Context, meetupID, actorID int, rule actorRule) error {
	current, err := r.Get(ctx, meetupID)
	if err != nil {
		return err
	}
	switch rule {
	case receiverOnly:
		if current.ReceiverID != actorID {
			return ErrForbidden
		}
	case eitherParty:
		if !current.IsParticipant(actorID) {
			return ErrForbidden
		}
	}
	return ErrInvalidState
}

func (r *MeetupRepo) classifyVerify(ctx context.Context, meetupID, actorID int) error {
	current, err := r.Get(ctx, meetupID)
	if err != nil {
		return err
	}
	if !current.IsParticipant(actorID) {
		return ErrForbidden
	}
	if current.Status != models.MeetupAccepted && current.Status != models.MeetupVerified {
		return ErrInvalidState
	}
	return ErrInvalidCode
}
