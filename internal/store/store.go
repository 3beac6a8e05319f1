package store

import (
	"context"
	"errors"
	"time"

	"github.com/manhle/roomchat-server/internal/core"
)

// User represents a user in the system. Users are never deleted;
// LastOnline is the only mutable field after creation.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Email        string
	Name         string
	CreatedAt    time.Time
	LastOnline   time.Time
}

var (
	// ErrUserExists is returned when creating a user whose username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when a username does not resolve to a user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidRange is returned when a range query's start is after its end.
	ErrInvalidRange = errors.New("invalid range")
	// ErrUnavailable wraps any underlying I/O failure. The store does not
	// retry; that is a caller concern.
	ErrUnavailable = errors.New("store unavailable")
)

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser persists a new user. Fails with ErrUserExists without
	// mutating the stored record when the username is taken.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// TouchLastOnline sets the user's last_online timestamp.
	TouchLastOnline(ctx context.Context, username string, at time.Time) error
}

// MessageStore handles durable, time-ordered message persistence per room.
type MessageStore interface {
	// AppendMessage persists a message under its room, ordered by the
	// message's UTC epoch ordering key. No deduplication is performed.
	AppendMessage(ctx context.Context, roomID string, msg core.Message) error

	// RangeMessages returns messages whose ordering key falls in
	// [start, end], most recent first, paginated by offset/limit.
	// A nil bound is open (-inf/+inf).
	RangeMessages(ctx context.Context, roomID string, start, end *time.Time, offset, limit int64) ([]core.Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying connection.
	Close() error
}
