// Package messages composes the message store, the broadcast bus, and the
// sending policies into the room read (history) and write (send) paths.
package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/manhle/roomchat-server/internal/bus"
	"github.com/manhle/roomchat-server/internal/core"
	"github.com/manhle/roomchat-server/internal/proto"
	"github.com/manhle/roomchat-server/internal/store"
)

// Channel returns the bus channel name for a room.
func Channel(roomID string) string {
	return "chat:" + roomID
}

// Service is the room message facade.
type Service struct {
	store    store.MessageStore
	bus      bus.Bus
	policies core.PolicyTable
	log      *zerolog.Logger
}

// New creates a message service.
func New(messageStore store.MessageStore, b bus.Bus, policies core.PolicyTable, logger *zerolog.Logger) *Service {
	return &Service{
		store:    messageStore,
		bus:      b,
		policies: policies,
		log:      logger,
	}
}

// Outcome is the result of one intake run. Exactly one envelope has been
// published to the room channel; Message is non-nil only when the frame
// passed every stage and was persisted.
type Outcome struct {
	Envelope core.Envelope
	Message  *core.Message
}

// Send runs the intake protocol for one inbound frame: type check, time
// window check, persist, publish. Content-policy failures publish an error
// envelope and return a rejected outcome; only infrastructure failures and
// unparseable send_time values return an error.
func (s *Service) Send(ctx context.Context, roomID string, frame proto.Frame) (Outcome, error) {
	policy, known := s.policies.Lookup(frame.Type)
	if !known {
		return s.reject(ctx, roomID, core.RejectInvalidType)
	}

	sendTime, err := frame.ParsedSendTime()
	if err != nil {
		return Outcome{}, err
	}

	if !policy.Allows(sendTime) {
		return s.reject(ctx, roomID, core.RejectTimeViolation)
	}

	msg := core.Message{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Kind:     policy.Kind,
		Text:     frame.Text,
		URL:      frame.URL,
		SendTime: sendTime.UTC(),
	}

	if err := s.store.AppendMessage(ctx, roomID, msg); err != nil {
		return Outcome{}, fmt.Errorf("append message: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal message: %w", err)
	}

	envelope := core.Envelope{Type: core.EnvelopeReply, Message: string(body)}
	if err := s.publish(ctx, roomID, envelope); err != nil {
		return Outcome{}, err
	}

	s.log.Debug().Str("room", roomID).Str("message_id", msg.ID).Msg("message accepted")
	return Outcome{Envelope: envelope, Message: &msg}, nil
}

// Subscribe opens a bus subscription on the room's channel.
func (s *Service) Subscribe(ctx context.Context, roomID string) (bus.Subscription, error) {
	sub, err := s.bus.Subscribe(ctx, Channel(roomID))
	if err != nil {
		return nil, fmt.Errorf("subscribe room: %w", err)
	}
	return sub, nil
}

// History returns a descending page of the room's messages. Nil bounds are
// open.
func (s *Service) History(ctx context.Context, roomID string, start, end *time.Time, page, pageSize int64) ([]core.Message, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	if page < 0 {
		page = 0
	}
	return s.store.RangeMessages(ctx, roomID, start, end, page*pageSize, pageSize)
}

func (s *Service) reject(ctx context.Context, roomID, reason string) (Outcome, error) {
	envelope := core.Envelope{Type: core.EnvelopeError, Message: reason}
	if err := s.publish(ctx, roomID, envelope); err != nil {
		return Outcome{}, err
	}
	s.log.Debug().Str("room", roomID).Str("reason", reason).Msg("message rejected")
	return Outcome{Envelope: envelope}, nil
}

func (s *Service) publish(ctx context.Context, roomID string, envelope core.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := s.bus.Publish(ctx, Channel(roomID), payload); err != nil {
		return fmt.Errorf("publish envelope: %w", err)
	}
	return nil
}
