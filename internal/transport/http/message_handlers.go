package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/manhle/roomchat-server/internal/core"
	"github.com/manhle/roomchat-server/internal/service/messages"
	"github.com/manhle/roomchat-server/internal/store"
)

// MessageHandlers serves the paginated message history endpoint.
type MessageHandlers struct {
	service *messages.Service
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(service *messages.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service: service,
		log:     logger,
	}
}

// History returns a room's messages, most recent first.
// GET /messages/:room_id?time_start&time_end&page&page_size
func (h *MessageHandlers) History(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	roomID := c.Param("room_id")
	if user.Username != roomID {
		c.JSON(http.StatusNotAcceptable, ErrorResponse{Error: "not allowed to read messages in this room"})
		return
	}

	start, err := parseTimeParam(c.Query("time_start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "time_start is not a valid timestamp"})
		return
	}
	end, err := parseTimeParam(c.Query("time_end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "time_end is not a valid timestamp"})
		return
	}

	page := parseIntParam(c.Query("page"), 0)
	pageSize := parseIntParam(c.Query("page_size"), 10)

	msgs, err := h.service.History(c.Request.Context(), roomID, start, end, page, pageSize)
	if err != nil {
		if errors.Is(err, store.ErrInvalidRange) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "time_start is after time_end"})
			return
		}
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to query history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if msgs == nil {
		msgs = []core.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseIntParam(value string, fallback int64) int64 {
	if value == "" {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
