package repositories

import "errors"

// Domain errors shared across repositories. Handlers map these onto HTTP
// statuses; a rejected transition is terminal for that request and the caller
// is expected to re-fetch state rather than retry blindly.
var (
	ErrMeetupNotFound       = errors.New("meetup not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrPresenceNotFound     = errors.New("presence not found")

	// ErrForbidden: the actor is not authorized for this transition.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState: the transition was attempted from an incompatible state.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidCode: the submitted verification code does not match the
	// counterparty's code.
	ErrInvalidCode = errors.New("invalid code")
	// ErrInvalidTarget: requester and receiver (or sender and recipient) are
	// the same user.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrEmptyContent: message content is blank after trimming.
	ErrEmptyContent = errors.New("empty content")
	// ErrDuplicateActive: a non-terminal meetup already exists for this
	// listing and user pair.
	ErrDuplicateActive = errors.New("duplicate active meetup")
)
