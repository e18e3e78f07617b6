package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/quickforge/tactics-backend/internal/broadcast"
	"github.com/quickforge/tactics-backend/internal/gamemap"
	"github.com/quickforge/tactics-backend/internal/protocol"
	"github.com/quickforge/tactics-backend/internal/repository"
)

type gameManager interface {
	CreatePlayer(ctx context.Context, pseudo string) (string, error)
	CreateGame(ctx context.Context, playerToken string) (string, error)
	JoinGame(ctx context.Context, playerToken, gameToken string) (*repository.JoinOutcome, error)
	ChooseCharacter(ctx context.Context, playerToken, gameToken, class string) (*repository.ChooseOutcome, error)
	StartGame(ctx context.Context, playerToken, gameToken string) (*repository.StartOutcome, error)
	ApplyTurn(ctx context.Context, playerToken, gameToken string, code int, target gamemap.Point) (*repository.TurnOutcome, error)
}

type Server struct {
	logger  *slog.Logger
	manager gameManager
	hub     *broadcast.Hub

	idleTimeout time.Duration
}

func New(logger *slog.Logger, manager gameManager, hub *broadcast.Hub, idleTimeout time.Duration) *Server {
	return &Server{
		logger:  logger,
		manager: manager,
		hub:     hub,

		idleTimeout: idleTimeout,
	}
}

// Start - listens on port and serves until ctx is canceled or the listener
// fails.
func (that *Server) Start(ctx context.Context, port string) error {
	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	return that.Serve(ctx, listener)
}

// Serve - accepts one stream per client and drives each on its own
// goroutine.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		go that.handleConnection(ctx, conn)
	}
}

// connection is the per-client state threaded through the protocol phases.
type connection struct {
	conn net.Conn
	log  *slog.Logger

	gameToken string
	sub       *broadcast.Subscription

	frames  chan []byte
	readErr chan error

	idleTimeout time.Duration
}

func (that *Server) handleConnection(ctx context.Context, conn net.Conn) {
	log := that.logger.With("component", "tcp", "remote", conn.RemoteAddr().String())

	defer conn.Close()

	log.Info("connection established")

	c := &connection{
		conn:        conn,
		log:         log,
		frames:      make(chan []byte),
		readErr:     make(chan error, 1),
		idleTimeout: that.idleTimeout,
	}
	go c.readLoop()

	if err := that.servePlayerCreation(ctx, c); err != nil {
		log.Info("connection closed", "state", "connected", "reason", err)
		return
	}

	if err := that.serveLobbyEntry(ctx, c); err != nil {
		log.Info("connection closed", "state", "player_created", "reason", err)
		return
	}

	defer that.hub.Leave(c.gameToken, c.sub)

	that.serveGame(ctx, c)

	log.Info("connection closed", "game", c.gameToken)
}

// readLoop - feeds framed requests to the dispatch loop so it can wait on
// the client and the peer's broadcasts at the same time.
func (that *connection) readLoop() {
	for {
		if that.idleTimeout > 0 {
			_ = that.conn.SetReadDeadline(time.Now().Add(that.idleTimeout))
		}

		body, err := protocol.ReadPacket(that.conn)
		if err != nil {
			that.readErr <- err
			return
		}

		that.frames <- body
	}
}

// next - blocks until the client sends a request, the stream fails, or ctx
// is canceled.
func (that *connection) next(ctx context.Context) ([]byte, error) {
	select {
	case body := <-that.frames:
		return body, nil
	case err := <-that.readErr:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
