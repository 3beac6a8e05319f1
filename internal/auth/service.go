package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/manhle/roomchat-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with an existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrMissingCredential is returned when no credential was supplied.
	ErrMissingCredential = errors.New("missing credential")
	// ErrMalformedCredential is returned when the header is not bearer-shaped.
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrInvalidToken is returned when the token cannot be decoded or verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnknownIdentity is returned when the decoded identity no longer
	// resolves to a stored user.
	ErrUnknownIdentity = errors.New("unknown identity")
)

// Service provides registration, login, and credential resolution. The same
// Authenticate path serves both the HTTP bearer header and the raw WebSocket
// query token through thin entry adapters.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a new user with a hashed password.
func (s *Service) Register(ctx context.Context, username, password, email, name string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrInvalidUsername
	}
	if password == "" {
		return ErrInvalidPassword
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &store.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hashedPassword,
		Email:        email,
		Name:         name,
		CreatedAt:    now,
		LastOnline:   now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user.Username, user.Email, user.Name)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// Authenticate resolves a raw token to the full stored user record.
func (s *Service) Authenticate(ctx context.Context, token string) (*store.User, error) {
	if token == "" {
		return nil, ErrMissingCredential
	}

	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := s.store.GetUserByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUnknownIdentity
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return user, nil
}

// BearerToken extracts the raw token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredential
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrMalformedCredential
	}
	return parts[1], nil
}
