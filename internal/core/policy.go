package core

import "time"

// Policy holds the sending rules for one message type: a numeric kind
// persisted with the message and an allowed UTC hour window.
type Policy struct {
	Kind    int
	MinHour int
	MaxHour int
}

// Allows reports whether t falls inside the policy window. The window is
// half-open: MinHour <= hour < MaxHour, evaluated in UTC.
func (p Policy) Allows(t time.Time) bool {
	hour := t.UTC().Hour()
	return hour >= p.MinHour && hour < p.MaxHour
}

// PolicyTable maps a message type name to its policy. The table is plain
// data so deployments can swap windows without code changes.
type PolicyTable map[string]Policy

// Lookup returns the policy for a message type name.
func (pt PolicyTable) Lookup(msgType string) (Policy, bool) {
	p, ok := pt[msgType]
	return p, ok
}
