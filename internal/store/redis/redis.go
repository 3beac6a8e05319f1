package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manhle/roomchat-server/internal/core"
	"github.com/manhle/roomchat-server/internal/store"
)

// Store implements store.Store on Redis: one hash per user keyed by
// username, one sorted set per room scored by the message ordering key.
type Store struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client. Useful for tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func userKey(username string) string {
	return "user:" + username
}

func messagesKey(roomID string) string {
	return "messages:" + roomID
}

// CreateUser persists a new user hash. The username check and write are not
// atomic across processes; registration collisions resolve to ErrUserExists
// for the later caller.
func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	key := userKey(user.Username)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return unavailable("exists user", err)
	}
	if exists > 0 {
		return store.ErrUserExists
	}

	fields := map[string]interface{}{
		"id":            user.ID,
		"username":      user.Username,
		"password_hash": user.PasswordHash,
		"email":         user.Email,
		"name":          user.Name,
		"created_at":    user.CreatedAt.UTC().Format(time.RFC3339Nano),
		"last_online":   user.LastOnline.UTC().Format(time.RFC3339Nano),
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return unavailable("hset user", err)
	}
	return nil
}

// GetUserByUsername retrieves a user hash by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	fields, err := s.client.HGetAll(ctx, userKey(username)).Result()
	if err != nil {
		return nil, unavailable("hgetall user", err)
	}
	if len(fields) == 0 {
		return nil, store.ErrUserNotFound
	}

	user := &store.User{
		ID:           fields["id"],
		Username:     fields["username"],
		PasswordHash: fields["password_hash"],
		Email:        fields["email"],
		Name:         fields["name"],
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		user.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["last_online"]); err == nil {
		user.LastOnline = t
	}
	return user, nil
}

// TouchLastOnline sets the user's last_online field.
func (s *Store) TouchLastOnline(ctx context.Context, username string, at time.Time) error {
	err := s.client.HSet(ctx, userKey(username), "last_online", at.UTC().Format(time.RFC3339Nano)).Err()
	if err != nil {
		return unavailable("hset last_online", err)
	}
	return nil
}

// AppendMessage adds the serialized message to the room's sorted set,
// scored by the message ordering key. Equal scores keep Redis's own
// lexicographic member tie-break.
func (s *Store) AppendMessage(ctx context.Context, roomID string, msg core.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	z := redis.Z{
		Score:  float64(msg.OrderingKey()),
		Member: data,
	}
	if err := s.client.ZAdd(ctx, messagesKey(roomID), z).Err(); err != nil {
		return unavailable("zadd message", err)
	}
	return nil
}

// RangeMessages queries the room's sorted set descending by score.
func (s *Store) RangeMessages(ctx context.Context, roomID string, start, end *time.Time, offset, limit int64) ([]core.Message, error) {
	if start != nil && end != nil && start.After(*end) {
		return nil, store.ErrInvalidRange
	}

	min := "-inf"
	if start != nil {
		min = strconv.FormatInt(start.UTC().Unix(), 10)
	}
	max := "+inf"
	if end != nil {
		max = strconv.FormatInt(end.UTC().Unix(), 10)
	}

	raw, err := s.client.ZRevRangeByScore(ctx, messagesKey(roomID), &redis.ZRangeBy{
		Min:    min,
		Max:    max,
		Offset: offset,
		Count:  limit,
	}).Result()
	if err != nil {
		return nil, unavailable("zrevrangebyscore messages", err)
	}

	messages := make([]core.Message, 0, len(raw))
	for _, member := range raw {
		var msg core.Message
		if err := json.Unmarshal([]byte(member), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(store.ErrUnavailable, err))
}
