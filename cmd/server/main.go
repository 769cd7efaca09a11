// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/emojihunt/emojihunt/internal/events"
	"github.com/emojihunt/emojihunt/internal/game"
	"github.com/emojihunt/emojihunt/internal/handlers"
	"github.com/emojihunt/emojihunt/internal/historian"
	"github.com/emojihunt/emojihunt/internal/middleware"
	"github.com/emojihunt/emojihunt/internal/models"
	"github.com/emojihunt/emojihunt/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	bc := events.NewRedisBroadcaster(st.Client())
	engine := game.NewEngine(st, bc, logger)

	// Finished games are queued for the historian; losing a record must
	// never block play.
	engine.OnGameEnd = func(ctx context.Context, l *models.Lobby) {
		rec := historian.RecordFromLobby(l, time.Now())
		if err := historian.Enqueue(ctx, st.Client(), rec); err != nil {
			logger.WithError(err).WithField("lobby", l.ID).Warn("failed to enqueue game result")
		}
	}

	srv := handlers.NewServer(engine, logger)
	srv.Relay = bc

	// Advance lobbies even when no client is polling.
	poller := game.NewPoller(engine, st, time.Second)
	go poller.Run(ctx)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	server := &http.Server{
		Addr:    addr,
		Handler: middleware.LogMiddleware(logger)(srv.Routes()),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Infof("Running on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server exited: %v", err)
	}
}
