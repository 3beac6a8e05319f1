package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/manhle/roomchat-server/internal/auth"
	redisbus "github.com/manhle/roomchat-server/internal/bus/redis"
	"github.com/manhle/roomchat-server/internal/config"
	"github.com/manhle/roomchat-server/internal/core"
	"github.com/manhle/roomchat-server/internal/presence"
	"github.com/manhle/roomchat-server/internal/service/messages"
	"github.com/manhle/roomchat-server/internal/store"
	redisstore "github.com/manhle/roomchat-server/internal/store/redis"
	transporthttp "github.com/manhle/roomchat-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration. The broadcast
// bus and the store share one Redis client, constructed here and shut down
// in cleanup.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("redis connected")

	st := redisstore.NewWithClient(client)
	b := redisbus.New(client)

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)
	tracker := presence.NewTracker(st)
	manager := core.NewManager(cfg.MaxClients)
	messageService := messages.New(st, b, policyTable(cfg.Policies), logger)

	server := transporthttp.NewServer(cfg, authService, messageService, tracker, manager, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the shared Redis connection.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

func policyTable(policies map[string]config.MessagePolicy) core.PolicyTable {
	table := make(core.PolicyTable, len(policies))
	for name, p := range policies {
		table[name] = core.Policy{
			Kind:    p.Kind,
			MinHour: p.MinHour,
			MaxHour: p.MaxHour,
		}
	}
	return table
}
