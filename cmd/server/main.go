package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/khadijauser/chat-app/internal/adapters/http"
	"github.com/khadijauser/chat-app/internal/adapters/ws"
	"github.com/khadijauser/chat-app/internal/app"
	"github.com/khadijauser/chat-app/internal/auth"
	"github.com/khadijauser/chat-app/internal/config"
	"github.com/khadijauser/chat-app/internal/core"
	"github.com/khadijauser/chat-app/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	store, err := storage.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}

	newCode, err := app.NewCodeGenerator()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build code generator")
	}

	presence := core.NewPresenceRegistry()
	rooms := app.NewService(store, presence, newCode)

	tokens := auth.NewTokenManager(cfg.Secret, cfg.TokenTTL)
	authSvc := auth.NewService(store, auth.NewPasswordHasher(), tokens)

	wsCtrl := ws.NewController(rooms, cfg.ReadLimit, cfg.PingPeriod)
	handlers := &router.Handlers{
		Auth:    authSvc,
		Rooms:   rooms,
		Store:   store,
		History: cfg.MessageHistory,
	}

	r := router.SetupRouter(cfg, handlers, tokens, wsCtrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("chat-app server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
