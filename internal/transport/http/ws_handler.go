package http

import (
	"context"
	"errors"
	"io"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/manhle/roomchat-server/internal/auth"
	"github.com/manhle/roomchat-server/internal/bus"
	"github.com/manhle/roomchat-server/internal/config"
	"github.com/manhle/roomchat-server/internal/core"
	"github.com/manhle/roomchat-server/internal/presence"
	"github.com/manhle/roomchat-server/internal/proto"
	"github.com/manhle/roomchat-server/internal/service/messages"
)

// WSHandler upgrades connections and drives the per-session
// receive -> validate -> persist -> publish -> reply loop.
type WSHandler struct {
	cfg     config.Config
	auth    *auth.Service
	service *messages.Service
	tracker *presence.Tracker
	manager *core.Manager
	log     *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(
	cfg config.Config,
	authService *auth.Service,
	service *messages.Service,
	tracker *presence.Tracker,
	manager *core.Manager,
	logger *zerolog.Logger,
) *WSHandler {
	return &WSHandler{
		cfg:     cfg,
		auth:    authService,
		service: service,
		tracker: tracker,
		manager: manager,
		log:     logger,
	}
}

// Handle serves GET /ws/:room_id?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	roomID := c.Param("room_id")
	ctx := c.Request.Context()

	// Resolve the credential and reserve a session slot before accepting
	// the handshake; a rejected connection only lives long enough to
	// receive its close code.
	user, authErr := h.auth.Authenticate(ctx, c.Query("token"))

	var session *core.Session
	var admitErr error
	if authErr == nil {
		session, admitErr = h.manager.TryAdmit(uuid.NewString(), roomID, user.Username)
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		if session != nil {
			h.manager.Remove(session)
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if authErr != nil {
		h.log.Debug().Err(authErr).Str("room", roomID).Msg("ws auth rejected")
		conn.Close(websocket.StatusPolicyViolation, "user not found")
		return
	}
	if admitErr != nil {
		if errors.Is(admitErr, core.ErrCapacityExceeded) {
			h.log.Warn().Str("room", roomID).Msg("ws admission rejected: at capacity")
			conn.Close(websocket.StatusTryAgainLater, "server at capacity")
			return
		}
		h.log.Debug().Err(admitErr).Str("room", roomID).Str("username", user.Username).Msg("ws admission rejected")
		conn.Close(websocket.StatusPolicyViolation, "room mismatch")
		return
	}
	defer h.manager.Remove(session)

	sub, err := h.service.Subscribe(ctx, roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("ws subscribe error")
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer sub.Close()

	h.log.Info().Str("room", roomID).Str("session", session.ID).Msg("session admitted")

	err = h.runSession(ctx, conn, session, sub)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "session error"
			h.log.Warn().Err(err).Str("session", session.ID).Msg("ws session closed with error")
		}
	}

	conn.Close(status, reason)
	h.log.Info().Str("room", roomID).Str("session", session.ID).Msg("session closed")
}

// runSession processes inbound frames until disconnect or a fatal protocol
// violation. A nil return means the connection was already closed with an
// explicit status.
func (h *WSHandler) runSession(ctx context.Context, conn *websocket.Conn, session *core.Session, sub bus.Subscription) error {
	for {
		data, err := h.readFrame(ctx, conn)
		if err != nil {
			return err
		}

		frame, err := proto.ParseFrame(data)
		if err != nil {
			conn.Close(websocket.StatusPolicyViolation, "malformed frame")
			return nil
		}

		outcome, err := h.service.Send(ctx, session.RoomID, frame)
		if err != nil {
			if errors.Is(err, proto.ErrBadFrame) {
				conn.Close(websocket.StatusPolicyViolation, "malformed frame")
				return nil
			}
			return err
		}

		if outcome.Message != nil {
			lastOnline, touchErr := h.tracker.Touch(ctx, session.Username)
			if touchErr != nil {
				return touchErr
			}
			if !h.tracker.RecentlyOnline(lastOnline, h.cfg.OnlineThreshold) {
				conn.Close(websocket.StatusPolicyViolation, "presence expired")
				return nil
			}
		}

		// Echo whatever the bus yields next. With several publishers in
		// one room the event may belong to another sender.
		event, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, event); err != nil {
			return err
		}
	}
}

func (h *WSHandler) readFrame(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	readCtx := ctx
	if h.cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, h.cfg.ReadTimeout)
		defer cancel()
	}

	_, data, err := conn.Read(readCtx)
	if err != nil {
		return nil, err
	}
	return data, nil
}
