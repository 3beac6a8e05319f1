package bus

import "context"

// Bus is a thin contract over an external pub/sub primitive. No ordering
// is guaranteed across distinct publishers to one channel; publish order
// per single publisher is preserved.
type Bus interface {
	// Publish sends a payload to every current subscriber of the channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe opens a scoped subscription yielding a lazy, infinite,
	// non-restartable sequence of events.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription yields events for one channel until closed. Events are not
// persisted; a subscriber that is not reading misses them.
type Subscription interface {
	// Next blocks until the next event or context cancellation.
	Next(ctx context.Context) ([]byte, error)

	// Close releases the subscription. Safe to call more than once.
	Close() error
}
