// Package queue defines message payloads exchanged over the message broker.
package queue

// SecurityEventQueue is the durable queue carrying audit fan-out messages.
const SecurityEventQueue = "security.events"

// SecurityEvent mirrors an audit log entry for downstream consumers
// (monitoring, alerting, offline log shipping). The MySQL audit row is the
// durable record; this message is a best-effort side channel and may be
// lost when the broker is unreachable.
type SecurityEvent struct {
	UserID     string `json:"user_id,omitempty"`
	Action     string `json:"action"`
	Success    bool   `json:"success"`
	Details    string `json:"details,omitempty"`
	SourceAddr string `json:"source_address,omitempty"`
	ClientDesc string `json:"client_descriptor,omitempty"`
	Timestamp  string `json:"timestamp"`
}
