package tcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/quickforge/tactics-backend/internal/apperror"
	"github.com/quickforge/tactics-backend/internal/broadcast"
	"github.com/quickforge/tactics-backend/internal/gamemap"
	"github.com/quickforge/tactics-backend/internal/protocol"
)

var (
	errClientQuit    = errors.New("client requested termination")
	errProtocolState = errors.New("request type not allowed in this state")
)

// servePlayerCreation - the Connected state. The first request must create a
// player; validation failures keep the connection open for another try, any
// other request type drops it.
func (that *Server) servePlayerCreation(ctx context.Context, c *connection) error {
	for {
		body, err := c.next(ctx)
		if err != nil {
			return err
		}

		req, err := protocol.ParseRequest(body)
		if err != nil {
			_ = protocol.WriteStatus(c.conn, protocol.StatusErrMalformedRequest)
			return fmt.Errorf("failed to parse request: %w", err)
		}

		switch req.RequestType {
		case protocol.RequestTerminate:
			_ = protocol.WriteStatus(c.conn, protocol.StatusOKTerminate)
			return errClientQuit

		case protocol.RequestPlayerCreate:
			token, err := that.manager.CreatePlayer(ctx, req.Pseudo)
			if err != nil {
				if werr := protocol.WriteStatus(c.conn, statusForError(err)); werr != nil {
					return werr
				}
				continue
			}

			return protocol.WriteMessage(c.conn, protocol.PlayerCreated{
				Status:      protocol.StatusOKPlayerCreate,
				PlayerToken: token,
			})

		default:
			_ = protocol.WriteStatus(c.conn, protocol.StatusErrMalformedRequest)
			return errProtocolState
		}
	}
}

// serveLobbyEntry - the PlayerCreated state: the client either hosts a new
// game or joins an existing one, which decides its side of the broadcast
// channel.
func (that *Server) serveLobbyEntry(ctx context.Context, c *connection) error {
	for {
		body, err := c.next(ctx)
		if err != nil {
			return err
		}

		req, err := protocol.ParseRequest(body)
		if err != nil {
			_ = protocol.WriteStatus(c.conn, protocol.StatusErrMalformedRequest)
			return fmt.Errorf("failed to parse request: %w", err)
		}

		switch req.RequestType {
		case protocol.RequestTerminate:
			_ = protocol.WriteStatus(c.conn, protocol.StatusOKTerminate)
			return errClientQuit

		case protocol.RequestGameCreate:
			token, err := that.manager.CreateGame(ctx, req.PlayerToken)
			if err != nil {
				if werr := protocol.WriteStatus(c.conn, statusForError(err)); werr != nil {
					return werr
				}
				continue
			}

			c.gameToken = token
			c.sub = that.hub.Create(token)

			return protocol.WriteMessage(c.conn, protocol.GameCreated{
				Status:    protocol.StatusOKGameCreate,
				GameToken: token,
			})

		case protocol.RequestGameJoin:
			outcome, err := that.manager.JoinGame(ctx, req.PlayerToken, req.GameToken)
			if err != nil {
				if werr := protocol.WriteStatus(c.conn, statusForError(err)); werr != nil {
					return werr
				}
				continue
			}

			sub, err := that.hub.Join(req.GameToken)
			if err != nil {
				// joined in the store but the host's task is gone
				if werr := protocol.WriteStatus(c.conn, protocol.StatusErrInternal); werr != nil {
					return werr
				}
				continue
			}

			c.gameToken = req.GameToken
			c.sub = sub

			return that.replyAndPublish(c, protocol.GameJoined{
				Status:    protocol.StatusOKGameJoin,
				Pseudo:    outcome.Pseudo,
				PlayerVec: outcome.Roster,
			})

		default:
			_ = protocol.WriteStatus(c.conn, protocol.StatusErrMalformedRequest)
			return errProtocolState
		}
	}
}

// serveGame - the in-game loop: whichever arrives first is processed, a
// request from the own client or an update the peer's task published.
func (that *Server) serveGame(ctx context.Context, c *connection) {
	for {
		select {
		case <-ctx.Done():
			return

		case payload := <-c.sub.C():
			if err := protocol.WritePacket(c.conn, payload); err != nil {
				c.log.Error("failed to forward broadcast", "error", err)
				return
			}

		case err := <-c.readErr:
			c.log.Info("client stream ended", "reason", err)
			return

		case body := <-c.frames:
			req, err := protocol.ParseRequest(body)
			if err != nil {
				_ = protocol.WriteStatus(c.conn, protocol.StatusErrMalformedRequest)
				continue
			}

			switch req.RequestType {
			case protocol.RequestTerminate:
				_ = protocol.WriteStatus(c.conn, protocol.StatusOKTerminate)
				return

			case protocol.RequestCharacterChoose:
				err = that.handleCharacterChoose(ctx, c, req)

			case protocol.RequestGameStart:
				err = that.handleGameStart(ctx, c, req)

			case protocol.RequestGameData:
				err = that.handleGameData(ctx, c, req)

			default:
				err = protocol.WriteStatus(c.conn, protocol.StatusErrMalformedRequest)
			}

			if err != nil {
				c.log.Error("failed to write response", "error", err)
				return
			}
		}
	}
}

func (that *Server) handleCharacterChoose(ctx context.Context, c *connection, req *protocol.Request) error {
	outcome, err := that.manager.ChooseCharacter(ctx, req.PlayerToken, req.GameToken, req.Character)
	if err != nil {
		return protocol.WriteStatus(c.conn, statusForError(err))
	}

	return that.replyAndPublish(c, protocol.CharacterChosen{
		Status:    protocol.StatusOKCharacterChoose,
		Pseudo:    outcome.Pseudo,
		Character: req.Character,
	})
}

func (that *Server) handleGameStart(ctx context.Context, c *connection, req *protocol.Request) error {
	outcome, err := that.manager.StartGame(ctx, req.PlayerToken, req.GameToken)
	if err != nil {
		// a non-host start changes nothing and reaches no peer, but the
		// caller still gets an answer
		return protocol.WriteStatus(c.conn, statusForError(err))
	}

	return that.replyAndPublish(c, protocol.GameStarted{
		Status:     protocol.StatusOKGameStart,
		PlayerTurn: outcome.PlayerTurn,
		Map:        outcome.Map,
	})
}

func (that *Server) handleGameData(ctx context.Context, c *connection, req *protocol.Request) error {
	var target gamemap.Point

	switch req.GMCode {
	case protocol.ActionMove, protocol.ActionAttack:
		if req.Target == nil {
			return protocol.WriteStatus(c.conn, protocol.StatusErrMalformedRequest)
		}
		target = gamemap.Point{X: req.Target[0], Y: req.Target[1]}
	case protocol.ActionSkip:
	default:
		return protocol.WriteStatus(c.conn, protocol.StatusErrMalformedRequest)
	}

	outcome, err := that.manager.ApplyTurn(ctx, req.PlayerToken, req.GameToken, req.GMCode, target)
	if err != nil {
		return protocol.WriteStatus(c.conn, statusForError(err))
	}

	return that.replyAndPublish(c, protocol.GameData{
		Status:     protocol.StatusOKGameData,
		DataType:   outcome.DataType,
		PlayerNum:  outcome.PlayerNum,
		PlayerTurn: outcome.PlayerTurn,
		Map:        outcome.Map,
		Enemy: protocol.Enemy{
			PlayerNum:   outcome.EnemyNum,
			RemainingHP: outcome.EnemyHP,
		},
	})
}

// replyAndPublish - sends one update to the own client and fans the same
// bytes out to the peer's task.
func (that *Server) replyAndPublish(c *connection, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err = protocol.WritePacket(c.conn, body); err != nil {
		return err
	}

	that.hub.Publish(c.gameToken, c.sub, body)

	return nil
}

// statusForError - maps the error taxonomy onto wire status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperror.ErrInvalidPseudo):
		return protocol.StatusErrInvalidPseudo
	case errors.Is(err, apperror.ErrInvalidPlayerToken):
		return protocol.StatusErrInvalidPlayerToken
	case errors.Is(err, apperror.ErrInvalidGameToken):
		return protocol.StatusErrInvalidGameToken
	case errors.Is(err, apperror.ErrAlreadyHosting):
		return protocol.StatusErrAlreadyHosting
	case errors.Is(err, apperror.ErrGameAlreadyStarted):
		return protocol.StatusErrGameAlreadyStarted
	case errors.Is(err, apperror.ErrGameFull):
		return protocol.StatusErrGameFull
	case errors.Is(err, apperror.ErrGameNotJoined):
		return protocol.StatusErrGameNotJoined
	case errors.Is(err, apperror.ErrGameNotFull):
		return protocol.StatusErrGameNotFull
	case errors.Is(err, apperror.ErrGameNotStarted):
		return protocol.StatusErrGameNotStarted
	case errors.Is(err, apperror.ErrNotYourTurn):
		return protocol.StatusErrNotYourTurn
	case errors.Is(err, apperror.ErrAlreadyJoined),
		errors.Is(err, apperror.ErrNotHost),
		errors.Is(err, apperror.ErrInvalidCharacter),
		errors.Is(err, apperror.ErrIllegalAction):
		return protocol.StatusErrMalformedRequest
	case errors.Is(err, broadcast.ErrNoChannel):
		return protocol.StatusErrInternal
	default:
		return protocol.StatusErrInternal
	}
}
