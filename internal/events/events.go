package events

import (
	"ctchen222/solo-tic-tac-toe/internal/session"
	"encoding/json"
)

// Pub/Sub channel constants
const (
	SessionChannelPrefix  = "channel:session:"
	SessionChannelPattern = SessionChannelPrefix + "*"
)

// TypeSessionUpdated is published after every session change.
const TypeSessionUpdated = "session_updated"

// Event represents a message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// SessionUpdatedPayload is the payload for the "session_updated" event.
type SessionUpdatedPayload struct {
	SessionID string       `json:"session_id"`
	View      session.View `json:"view"`
}

// SessionChannel returns the channel updates for id are published on.
func SessionChannel(id string) string {
	return SessionChannelPrefix + id
}

// NewSessionUpdated builds a "session_updated" event.
func NewSessionUpdated(id string, view session.View) ([]byte, error) {
	payload, err := json.Marshal(SessionUpdatedPayload{SessionID: id, View: view})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: TypeSessionUpdated, Payload: payload})
}
