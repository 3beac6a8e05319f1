package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/manhle/roomchat-server/internal/auth"
	"github.com/manhle/roomchat-server/internal/presence"
)

// APIHandlers provides HTTP handlers for the REST endpoints.
type APIHandlers struct {
	authService *auth.Service
	tracker     *presence.Tracker
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, tracker *presence.Tracker, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		tracker:     tracker,
		log:         logger,
	}
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest represents the form-encoded login request.
type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// TokenResponse represents the login response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse carries a human-readable status message.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register handles user registration.
// POST /register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Email, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			c.JSON(http.StatusNotAcceptable, ErrorResponse{Error: "username already in use"})
			return
		}
		if errors.Is(err, auth.ErrInvalidUsername) || errors.Is(err, auth.ErrInvalidPassword) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("username", req.Username).Msg("user registered")
	c.JSON(http.StatusOK, MessageResponse{Msg: "user registered successfully"})
}

// Login handles user login with form-encoded credentials.
// POST /login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "incorrect username or password"})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("username", req.Username).Msg("user logged in")
	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Heartbeat refreshes the caller's presence.
// POST /heartbeat
func (h *APIHandlers) Heartbeat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if _, err := h.tracker.Touch(c.Request.Context(), user.Username); err != nil {
		h.log.Error().Err(err).Str("username", user.Username).Msg("failed to touch presence")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Msg: "ok"})
}
