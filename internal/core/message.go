package core

import "time"

// Message is the domain model for a chat message. Messages are immutable
// once stored; SendTime is normalized to UTC and its epoch second is the
// ordering key inside a room.
type Message struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	Kind     int       `json:"type"`
	Text     string    `json:"text,omitempty"`
	URL      string    `json:"url,omitempty"`
	SendTime time.Time `json:"send_time"`
}

// OrderingKey returns the UTC epoch second used to order the message
// inside its room.
func (m Message) OrderingKey() int64 {
	return m.SendTime.UTC().Unix()
}

// Envelope types delivered back over a session. Envelopes are ephemeral
// and never stored.
const (
	EnvelopeReply        = "reply"
	EnvelopeError        = "error"
	EnvelopeNotification = "notification"
)

// Envelope is the reply/error/notification payload sent to clients.
type Envelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
