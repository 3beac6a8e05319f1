package http

import (
	"context"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/manhle/roomchat-server/internal/auth"
	"github.com/manhle/roomchat-server/internal/bus"
	"github.com/manhle/roomchat-server/internal/config"
	"github.com/manhle/roomchat-server/internal/core"
	"github.com/manhle/roomchat-server/internal/presence"
	"github.com/manhle/roomchat-server/internal/service/messages"
	"github.com/manhle/roomchat-server/internal/store"
)

// memStore is an in-memory store.Store for handler tests.
type memStore struct {
	mu    sync.Mutex
	users map[string]store.User
	rooms map[string][]core.Message
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]store.User),
		rooms: make(map[string][]core.Message),
	}
}

func (m *memStore) CreateUser(_ context.Context, user *store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return store.ErrUserExists
	}
	m.users[user.Username] = *user
	return nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &user, nil
}

func (m *memStore) TouchLastOnline(_ context.Context, username string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return store.ErrUserNotFound
	}
	user.LastOnline = at
	m.users[username] = user
	return nil
}

func (m *memStore) AppendMessage(_ context.Context, roomID string, msg core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[roomID] = append(m.rooms[roomID], msg)
	return nil
}

func (m *memStore) RangeMessages(_ context.Context, roomID string, start, end *time.Time, offset, limit int64) ([]core.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if start != nil && end != nil && start.After(*end) {
		return nil, store.ErrInvalidRange
	}

	var matched []core.Message
	for _, msg := range m.rooms[roomID] {
		key := msg.OrderingKey()
		if start != nil && key < start.UTC().Unix() {
			continue
		}
		if end != nil && key > end.UTC().Unix() {
			continue
		}
		matched = append(matched, msg)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OrderingKey() > matched[j].OrderingKey()
	})

	if offset >= int64(len(matched)) {
		return nil, nil
	}
	matched = matched[offset:]
	if int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memStore) Close() error { return nil }

// memBus fans published payloads out to channel subscribers.
type memBus struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

func newMemBus() *memBus {
	return &memBus{subs: make(map[string][]chan []byte)}
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *memBus) Subscribe(_ context.Context, channel string) (bus.Subscription, error) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()
	return &memSubscription{events: ch}, nil
}

type memSubscription struct {
	events chan []byte
}

func (s *memSubscription) Next(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-s.events:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *memSubscription) Close() error { return nil }

func testConfig(maxClients int) config.Config {
	cfg := config.Default()
	cfg.MaxClients = maxClients
	cfg.JWTSecret = "test-secret-change-me"
	cfg.JWTIssuer = "test"
	cfg.JWTAudience = "test"
	return cfg
}

// startTestServer wires the full router over in-memory store and bus.
func startTestServer(t *testing.T, maxClients int) (*httptest.Server, *memStore) {
	t.Helper()

	st := newMemStore()
	b := newMemBus()
	cfg := testConfig(maxClients)
	logger := zerolog.Nop()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)
	tracker := presence.NewTracker(st)
	manager := core.NewManager(cfg.MaxClients)

	policies := core.PolicyTable{}
	for name, p := range cfg.Policies {
		policies[name] = core.Policy{Kind: p.Kind, MinHour: p.MinHour, MaxHour: p.MaxHour}
	}
	messageService := messages.New(st, b, policies, &logger)

	server := NewServer(cfg, authService, messageService, tracker, manager, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, st
}
