package proto

import (
	"encoding/json"
	"errors"
	"time"
)

// Frame is one inbound WebSocket payload: a message-send request.
type Frame struct {
	Type     string `json:"type"`
	SendTime string `json:"send_time"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
}

var (
	// ErrBadFrame marks payloads that are fatal to the session: malformed
	// JSON, a missing type, or an unparseable send_time.
	ErrBadFrame = errors.New("bad frame")
)

// ParseFrame decodes raw bytes into a Frame. Malformed JSON and missing
// required fields are protocol violations, not recoverable rejections.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, errors.Join(ErrBadFrame, err)
	}
	if f.Type == "" {
		return Frame{}, errors.Join(ErrBadFrame, errors.New("missing type"))
	}
	if f.SendTime == "" {
		return Frame{}, errors.Join(ErrBadFrame, errors.New("missing send_time"))
	}
	return f, nil
}

// ParsedSendTime parses the frame's send_time as an ISO-8601 timestamp.
func (f Frame) ParsedSendTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, f.SendTime)
	if err != nil {
		return time.Time{}, errors.Join(ErrBadFrame, err)
	}
	return t, nil
}
