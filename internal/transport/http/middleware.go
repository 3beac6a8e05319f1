package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/manhle/roomchat-server/internal/auth"
	"github.com/manhle/roomchat-server/internal/store"
)

// ContextKeyUser is the context key holding the authenticated *store.User.
const ContextKeyUser = "user"

// AuthMiddleware resolves the bearer token to a stored user and aborts
// with 401 when it cannot.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			logger.Debug().Err(err).Msg("bad authorization header")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			c.Abort()
			return
		}

		user, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			logger.Debug().Err(err).Msg("authentication failed")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// currentUser returns the authenticated user placed by AuthMiddleware.
func currentUser(c *gin.Context) (*store.User, bool) {
	v, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*store.User)
	return user, ok
}

// LoggerMiddleware logs each HTTP request after it completes.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
