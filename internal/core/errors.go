package core

import "errors"

var (
	// ErrCapacityExceeded is returned when the live session count is at the
	// configured maximum.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrRoomMismatch is returned when an identity tries to enter a room
	// other than its own.
	ErrRoomMismatch = errors.New("room mismatch")
)

// Rejection reasons published as error envelopes. The session stays open
// after either of these.
const (
	RejectInvalidType   = "invalid type"
	RejectTimeViolation = "time window violation"
)
