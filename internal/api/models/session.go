package models

import "ctchen222/solo-tic-tac-toe/internal/session"

// SessionURI binds the session id path parameter.
type SessionURI struct {
	ID string `uri:"id" binding:"required"`
}

// CellURI binds the cell a human move targets.
type CellURI struct {
	ID    string `uri:"id" binding:"required"`
	Index int    `uri:"index" binding:"min=0,max=8"`
}

// ChooseSymbolRequest defines the structure for a symbol choice.
type ChooseSymbolRequest struct {
	Mark string `json:"mark" binding:"required,oneof=X O"`
}

// SessionResponse is returned when a session is created.
type SessionResponse struct {
	SessionID string       `json:"sessionId"`
	View      session.View `json:"view"`
}
