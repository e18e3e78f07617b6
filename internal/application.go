package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/quickforge/tactics-backend/internal/broadcast"
	"github.com/quickforge/tactics-backend/internal/config"
	"github.com/quickforge/tactics-backend/internal/repository"
	"github.com/quickforge/tactics-backend/internal/repository/storage"
	"github.com/quickforge/tactics-backend/internal/usecase"
	"github.com/quickforge/tactics-backend/transport/rest"
	"github.com/quickforge/tactics-backend/transport/tcp"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	playerRepo := repository.NewPlayerRepository(redisStorage.Connection)
	sessionRepo := repository.NewSessionRepository(redisStorage.Connection)
	gameManager := usecase.NewGameManager(logger, playerRepo, sessionRepo, conf.Game.MapWidth, conf.Game.MapHeight)
	hub := broadcast.NewHub()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run game TCP server
	tcpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting TCP server", "port", conf.TCP.Port)
		tcpServer := tcp.New(logger, gameManager, hub, conf.TCP.IdleTimeout)
		if tcpErr := tcpServer.Start(ctx, conf.TCP.Port); tcpErr != nil {
			log.Error("TCP server error", "error", tcpErr)
			tcpErrCh <- tcpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-tcpErrCh:
		return fmt.Errorf("TCP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
