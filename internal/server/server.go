package server

import (
	"ctchen222/solo-tic-tac-toe/internal/api/controller"
	"ctchen222/solo-tic-tac-toe/internal/api/response"
	"ctchen222/solo-tic-tac-toe/internal/hub"
	"ctchen222/solo-tic-tac-toe/internal/repository"
	"ctchen222/solo-tic-tac-toe/internal/room"
	"ctchen222/solo-tic-tac-toe/internal/service"
	"ctchen222/solo-tic-tac-toe/web"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

type Server struct {
	hub      *hub.Hub
	service  service.SessionService
	sessions *controller.SessionController
	upgrader websocket.Upgrader
}

func NewServer(h *hub.Hub, svc service.SessionService, sessions *controller.SessionController) *Server {
	return &Server{
		hub:      h,
		service:  svc,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Engine builds the gin router serving the page, the JSON API and the websocket.
func (s *Server) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		response.SuccessResponse(c, gin.H{"status": "ok"})
	})
	engine.GET("/ws", s.handleWebSocket)

	api := engine.Group("/api/sessions")
	api.POST("", s.sessions.Create)
	api.GET("/:id", s.sessions.Get)
	api.POST("/:id/symbol", s.sessions.ChooseSymbol)
	api.POST("/:id/cells/:index", s.sessions.PlayCell)
	api.POST("/:id/restart", s.sessions.Restart)
	api.DELETE("/:id", s.sessions.Close)

	page := web.Handler()
	engine.GET("/", gin.WrapH(page))
	engine.GET("/static/*filepath", gin.WrapH(http.StripPrefix("/static", page)))

	return engine
}

// handleWebSocket upgrades the connection and binds it to the requested
// session until the player goes away.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("http.method", c.Request.Method),
	))
	defer span.End()

	sessionID := c.Query("sessionId")
	if sessionID == "" {
		response.ErrorResponse(c, http.StatusBadRequest, "sessionId is required")
		return
	}
	span.SetAttributes(attribute.String("session.id", sessionID))

	view, err := s.service.Get(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load session")
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.ErrorResponse(c, http.StatusNotFound, "session not found")
			return
		}
		slog.ErrorContext(ctx, "Failed to load session for websocket", "session.id", sessionID, "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "internal error")
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	r := room.NewRoom(sessionID, conn, s.service)
	s.hub.Register(r)
	defer s.hub.Unregister(r)

	slog.InfoContext(ctx, "Player connected", "session.id", sessionID)
	r.SendView(ctx, view)
	r.Start(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "http request",
			"http.method", c.Request.Method,
			"http.route", c.FullPath(),
			"http.status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
