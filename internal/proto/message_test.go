package proto

import (
	"errors"
	"testing"
	"time"
)

func TestParseFrameValid(t *testing.T) {
	data := []byte(`{"type":"text","send_time":"2024-01-01T10:00:00+00:00","text":"hi"}`)

	f, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Type != "text" || f.Text != "hi" {
		t.Fatalf("unexpected frame: %+v", f)
	}

	sendTime, err := f.ParsedSendTime()
	if err != nil {
		t.Fatalf("ParsedSendTime: %v", err)
	}
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if !sendTime.Equal(want) {
		t.Fatalf("send time = %v, want %v", sendTime, want)
	}
}

func TestParseFrameMalformedJSONIsFatal(t *testing.T) {
	if _, err := ParseFrame([]byte("not json")); !errors.Is(err, ErrBadFrame) {
		t.Fatalf("expected ErrBadFrame, got %v", err)
	}
}

func TestParseFrameMissingFields(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing type", `{"send_time":"2024-01-01T10:00:00Z","text":"hi"}`},
		{"missing send_time", `{"type":"text","text":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFrame([]byte(tt.data)); !errors.Is(err, ErrBadFrame) {
				t.Fatalf("expected ErrBadFrame, got %v", err)
			}
		})
	}
}

func TestParsedSendTimeBadTimestamp(t *testing.T) {
	f := Frame{Type: "text", SendTime: "yesterday"}
	if _, err := f.ParsedSendTime(); !errors.Is(err, ErrBadFrame) {
		t.Fatalf("expected ErrBadFrame, got %v", err)
	}
}

func TestParseFrameKeepsOffsetTimestamps(t *testing.T) {
	f := Frame{Type: "text", SendTime: "2024-01-01T17:00:00+07:00"}

	sendTime, err := f.ParsedSendTime()
	if err != nil {
		t.Fatalf("ParsedSendTime: %v", err)
	}
	if sendTime.UTC().Hour() != 10 {
		t.Fatalf("UTC hour = %d, want 10", sendTime.UTC().Hour())
	}
}
