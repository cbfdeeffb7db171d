package proto

import "ctchen222/solo-tic-tac-toe/internal/session"

// Client message types.
const (
	TypeChoose  = "choose"
	TypeMove    = "move"
	TypeRestart = "restart"
)

// Server message types.
const (
	TypeUpdate = "update"
	TypeError  = "error"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type     string `json:"type" validate:"required,oneof=choose move restart"`
	Mark     string `json:"mark,omitempty" validate:"omitempty,mark"`
	Position *int   `json:"position,omitempty" validate:"omitempty,cell"`
}

// ServerToClientMessage represents a message from the server to the client.
// For updates the view's fields are inlined next to the type.
type ServerToClientMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
	*session.View
}

// NewUpdate wraps a view in an update message.
func NewUpdate(view session.View) *ServerToClientMessage {
	return &ServerToClientMessage{Type: TypeUpdate, View: &view}
}

// NewError builds an error message.
func NewError(reason string) *ServerToClientMessage {
	return &ServerToClientMessage{Type: TypeError, Reason: reason}
}
