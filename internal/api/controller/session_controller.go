package controller

import (
	"ctchen222/solo-tic-tac-toe/internal/api/models"
	"ctchen222/solo-tic-tac-toe/internal/api/response"
	"ctchen222/solo-tic-tac-toe/internal/repository"
	"ctchen222/solo-tic-tac-toe/internal/service"
	"ctchen222/solo-tic-tac-toe/internal/session"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionController handles the game session HTTP requests.
type SessionController struct {
	sessionService service.SessionService
}

// NewSessionController creates a new SessionController.
func NewSessionController(sessionService service.SessionService) *SessionController {
	return &SessionController{
		sessionService: sessionService,
	}
}

// Create starts a session waiting for the player's symbol choice.
func (sc *SessionController) Create(c *gin.Context) {
	id, view, err := sc.sessionService.Create(c.Request.Context())
	if err != nil {
		sc.fail(c, err)
		return
	}

	response.CreatedResponse(c, models.SessionResponse{SessionID: id, View: view})
}

// Get returns the current view of a session.
func (sc *SessionController) Get(c *gin.Context) {
	var uri models.SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	view, err := sc.sessionService.Get(c.Request.Context(), uri.ID)
	sc.respond(c, view, err)
}

// ChooseSymbol handles the player's X or O choice.
func (sc *SessionController) ChooseSymbol(c *gin.Context) {
	var uri models.SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	var req models.ChooseSymbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	view, err := sc.sessionService.ChooseSymbol(c.Request.Context(), uri.ID, req.Mark)
	sc.respond(c, view, err)
}

// PlayCell handles a click on a board cell.
func (sc *SessionController) PlayCell(c *gin.Context) {
	var uri models.CellURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	view, err := sc.sessionService.PlayCellAt(c.Request.Context(), uri.ID, uri.Index)
	sc.respond(c, view, err)
}

// Restart handles the restart button.
func (sc *SessionController) Restart(c *gin.Context) {
	var uri models.SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	view, err := sc.sessionService.Restart(c.Request.Context(), uri.ID)
	sc.respond(c, view, err)
}

// Close forgets a session.
func (sc *SessionController) Close(c *gin.Context) {
	var uri models.SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := sc.sessionService.Close(c.Request.Context(), uri.ID); err != nil {
		sc.fail(c, err)
		return
	}
	response.NoContentResponse(c)
}

func (sc *SessionController) respond(c *gin.Context, view session.View, err error) {
	if err != nil {
		sc.fail(c, err)
		return
	}
	response.SuccessResponse(c, view)
}

func (sc *SessionController) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		response.ErrorResponse(c, http.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrInvalidMark):
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "session request failed", "path", c.FullPath(), "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "internal error")
	}
}
