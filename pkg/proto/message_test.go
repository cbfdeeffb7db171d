package proto

import (
	"ctchen222/solo-tic-tac-toe/internal/game"
	"ctchen222/solo-tic-tac-toe/internal/session"
	"ctchen222/solo-tic-tac-toe/internal/validator"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "Choose X", raw: `{"type":"choose","mark":"X"}`},
		{name: "Move to corner zero", raw: `{"type":"move","position":0}`},
		{name: "Restart", raw: `{"type":"restart"}`},
		{name: "Missing type", raw: `{"mark":"X"}`, wantErr: true},
		{name: "Unknown type", raw: `{"type":"rematch"}`, wantErr: true},
		{name: "Lowercase mark", raw: `{"type":"choose","mark":"x"}`, wantErr: true},
		{name: "Position past the board", raw: `{"type":"move","position":9}`, wantErr: true},
		{name: "Negative position", raw: `{"type":"move","position":-1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg ClientToServerMessage
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &msg))

			err := validator.GetValidator().Struct(msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServerMessageInlinesView(t *testing.T) {
	update, err := json.Marshal(NewUpdate(sessionViewFixture()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"update","board":["X","","","","O","","","",""],"message":"Your turn!","showBoard":true,"phase":"active","active":true,"humanMark":"X","computerMark":"O"}`, string(update))

	errMsg, err := json.Marshal(NewError("bad frame"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","reason":"bad frame"}`, string(errMsg))
}

func sessionViewFixture() session.View {
	return session.View{
		Board:        game.Board{game.PlayerX, game.None, game.None, game.None, game.PlayerO},
		Message:      session.MessageYourTurn,
		ShowBoard:    true,
		Phase:        session.PhaseActive,
		Active:       true,
		HumanMark:    game.PlayerX,
		ComputerMark: game.PlayerO,
	}
}
