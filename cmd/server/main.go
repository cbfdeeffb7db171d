package main

import (
	"context"
	"ctchen222/solo-tic-tac-toe/internal/api/controller"
	"ctchen222/solo-tic-tac-toe/internal/bot"
	"ctchen222/solo-tic-tac-toe/internal/config"
	"ctchen222/solo-tic-tac-toe/internal/db"
	"ctchen222/solo-tic-tac-toe/internal/hub"
	"ctchen222/solo-tic-tac-toe/internal/logger"
	"ctchen222/solo-tic-tac-toe/internal/repository"
	"ctchen222/solo-tic-tac-toe/internal/server"
	"ctchen222/solo-tic-tac-toe/internal/service"
	"ctchen222/solo-tic-tac-toe/internal/session"
	"ctchen222/solo-tic-tac-toe/internal/telemetry"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

const hubReadyTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "optional YAML config file; environment variables apply otherwise")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Otel)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	logger.Init(cfg.LogLevel, cfg.Otel.Enabled)
	if logger.ParseLevel(cfg.LogLevel) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Session store and update fan-out
	var (
		repo repository.SessionRepository
		h    *hub.Hub
	)
	switch cfg.Session.Store {
	case config.StoreRedis:
		rdb, err := db.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			slog.Error("failed to initialize redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		repo = repository.NewRedisSessionRepository(rdb, cfg.Session.TTL)
		h = hub.NewRedisHub(rdb)
	default:
		repo = repository.NewMemorySessionRepository(cfg.Session.TTL)
		h = hub.NewHub()
	}

	go func() {
		if err := h.Run(ctx); err != nil {
			slog.Error("hub stopped", "error", err)
		}
	}()
	select {
	case <-h.Ready():
	case <-time.After(hubReadyTimeout):
		slog.Warn("Redis subscription not up yet, updates stay on this replica until it is", "timeout", hubReadyTimeout)
	case <-ctx.Done():
	}

	var selector session.MoveSelector
	if cfg.Session.RandomSeed != 0 {
		selector = bot.NewSelector(cfg.Session.RandomSeed)
	} else {
		selector = bot.NewTimeSeededSelector()
	}

	sessionService, err := service.NewSessionService(repo, selector, service.WithObserver(h))
	if err != nil {
		slog.Error("failed to create session service", "error", err)
		os.Exit(1)
	}
	sessionController := controller.NewSessionController(sessionService)

	// Create the Gin-based server
	srv := server.NewServer(h, sessionService, sessionController)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("http server started", "addr", cfg.HTTPAddr, "session.store", cfg.Session.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ListenAndServe failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}
