package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/manhle/roomchat-server/internal/core"
	"github.com/manhle/roomchat-server/internal/store"
)

// Integration tests require Redis on localhost:6379 and skip otherwise.
const testRedisAddr = "localhost:6379"

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client)
}

// testRoom returns a unique room id and registers key cleanup.
func testRoom(t *testing.T, s *Store) string {
	t.Helper()

	roomID := "testroom-" + uuid.NewString()
	t.Cleanup(func() {
		s.client.Del(context.Background(), messagesKey(roomID), userKey(roomID))
	})
	return roomID
}

func seedMessage(t *testing.T, s *Store, roomID string, hour int) core.Message {
	t.Helper()

	msg := core.Message{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Kind:     0,
		Text:     fmt.Sprintf("message at hour %d", hour),
		SendTime: time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC),
	}
	if err := s.AppendMessage(context.Background(), roomID, msg); err != nil {
		t.Fatalf("append message: %v", err)
	}
	return msg
}

func TestUserLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	username := testRoom(t, s)

	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	user := &store.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "hash",
		Email:        "a@example.com",
		Name:         "A",
		CreatedAt:    created,
		LastOnline:   created,
	}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := s.CreateUser(ctx, user); !errors.Is(err, store.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	got, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.ID != user.ID || got.Email != user.Email || !got.LastOnline.Equal(created) {
		t.Fatalf("unexpected user: %+v", got)
	}

	touched := created.Add(time.Hour)
	if err := s.TouchLastOnline(ctx, username, touched); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, err = s.GetUserByUsername(ctx, username)
	if err != nil {
		t.Fatalf("get user after touch: %v", err)
	}
	if !got.LastOnline.Equal(touched) {
		t.Fatalf("last_online = %v, want %v", got.LastOnline, touched)
	}

	if _, err := s.GetUserByUsername(ctx, "nobody-"+uuid.NewString()); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRangeMessagesDescending(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	roomID := testRoom(t, s)

	early := seedMessage(t, s, roomID, 10)
	late := seedMessage(t, s, roomID, 12)
	seedMessage(t, s, roomID, 11)

	msgs, err := s.RangeMessages(ctx, roomID, nil, nil, 0, 10)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].ID != late.ID || msgs[2].ID != early.ID {
		t.Fatalf("not descending: %v", msgs)
	}
}

func TestRangeMessagesBoundsAndPagination(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	roomID := testRoom(t, s)

	for hour := 10; hour < 15; hour++ {
		seedMessage(t, s, roomID, hour)
	}

	// Limit caps the open query.
	page, err := s.RangeMessages(ctx, roomID, nil, nil, 0, 2)
	if err != nil {
		t.Fatalf("range limit: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d messages, want 2", len(page))
	}

	// Offset skips the most recent entries.
	next, err := s.RangeMessages(ctx, roomID, nil, nil, 2, 2)
	if err != nil {
		t.Fatalf("range offset: %v", err)
	}
	if len(next) != 2 || next[0].OrderingKey() >= page[1].OrderingKey() {
		t.Fatalf("unexpected second page: %v", next)
	}

	// Inclusive explicit bounds.
	start := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	bounded, err := s.RangeMessages(ctx, roomID, &start, &end, 0, 10)
	if err != nil {
		t.Fatalf("range bounded: %v", err)
	}
	if len(bounded) != 3 {
		t.Fatalf("got %d bounded messages, want 3", len(bounded))
	}
	if bounded[0].OrderingKey() != end.Unix() || bounded[2].OrderingKey() != start.Unix() {
		t.Fatalf("bounds not inclusive: %v", bounded)
	}
}

func TestRangeMessagesInvalidRange(t *testing.T) {
	s := setupTestStore(t)
	roomID := testRoom(t, s)

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.RangeMessages(context.Background(), roomID, &start, &end, 0, 10); !errors.Is(err, store.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestAppendEqualTimestampsBothPersist(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	roomID := testRoom(t, s)

	first := seedMessage(t, s, roomID, 10)
	second := seedMessage(t, s, roomID, 10)

	msgs, err := s.RangeMessages(ctx, roomID, nil, nil, 0, 10)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 (no deduplication)", len(msgs))
	}
	ids := map[string]bool{msgs[0].ID: true, msgs[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Fatalf("missing ids in %v", msgs)
	}
}
