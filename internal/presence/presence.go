package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/manhle/roomchat-server/internal/store"
)

// Tracker records and queries per-user last-activity timestamps. It is
// refreshed by heartbeats and by every accepted inbound chat activity.
type Tracker struct {
	store store.UserStore
	now   func() time.Time
}

// NewTracker creates a tracker over the given user store.
func NewTracker(userStore store.UserStore) *Tracker {
	return &Tracker{
		store: userStore,
		now:   time.Now,
	}
}

// Touch sets the user's last_online to the current UTC time and returns
// the timestamp that was written.
func (t *Tracker) Touch(ctx context.Context, username string) (time.Time, error) {
	at := t.now().UTC()
	if err := t.store.TouchLastOnline(ctx, username, at); err != nil {
		return time.Time{}, fmt.Errorf("touch %s: %w", username, err)
	}
	return at, nil
}

// RecentlyOnline reports whether lastOnline falls within threshold of now.
func (t *Tracker) RecentlyOnline(lastOnline time.Time, threshold time.Duration) bool {
	return t.now().UTC().Sub(lastOnline.UTC()) <= threshold
}
