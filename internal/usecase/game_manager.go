package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode"

	"github.com/google/uuid"

	"github.com/quickforge/tactics-backend/internal/apperror"
	"github.com/quickforge/tactics-backend/internal/entity"
	"github.com/quickforge/tactics-backend/internal/gamemap"
	"github.com/quickforge/tactics-backend/internal/repository"
)

// TokenLength - player and game tokens are uuid-v4 strings, 36 characters.
const TokenLength = 36

const maxPseudoLength = 32

type playerRepo interface {
	Create(ctx context.Context, token string, player *entity.Player) error
	GetByToken(ctx context.Context, token string) (*entity.Player, error)
	Exists(ctx context.Context, token string) (bool, error)
}

type sessionRepo interface {
	CreateGame(ctx context.Context, game *entity.Game) error
	GameExists(ctx context.Context, token string) (bool, error)
	JoinGame(ctx context.Context, playerToken, gameToken string) (*repository.JoinOutcome, error)
	ChooseCharacter(ctx context.Context, playerToken, gameToken, class string, stats entity.Stats) (*repository.ChooseOutcome, error)
	StartGame(ctx context.Context, playerToken, gameToken string) (*repository.StartOutcome, error)
	ApplyTurn(ctx context.Context, playerToken, gameToken string, action repository.Action) (*repository.TurnOutcome, error)
}

// GameManager validates requests, generates tokens and delegates all state
// changes to the session repository.
type GameManager struct {
	logger *slog.Logger

	playerRepo  playerRepo
	sessionRepo sessionRepo

	mapWidth  int
	mapHeight int
}

func NewGameManager(logger *slog.Logger, playerRepo playerRepo, sessionRepo sessionRepo, mapWidth, mapHeight int) *GameManager {
	return &GameManager{
		logger: logger,

		playerRepo:  playerRepo,
		sessionRepo: sessionRepo,

		mapWidth:  mapWidth,
		mapHeight: mapHeight,
	}
}

// CreatePlayer - registers pseudo under a fresh token. Token collisions are
// retried transparently.
func (that *GameManager) CreatePlayer(ctx context.Context, pseudo string) (string, error) {
	if !validPseudo(pseudo) {
		return "", apperror.ErrInvalidPseudo
	}

	for {
		token := uuid.NewString()

		err := that.playerRepo.Create(ctx, token, &entity.Player{Pseudo: pseudo})
		if errors.Is(err, repository.ErrPlayerExists) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create player: %w", err)
		}

		return token, nil
	}
}

// CreateGame - opens a game hosted by playerToken with a fresh random map
// and turn order.
func (that *GameManager) CreateGame(ctx context.Context, playerToken string) (string, error) {
	if err := that.verifyPlayerToken(ctx, playerToken); err != nil {
		return "", err
	}

	for {
		game := &entity.Game{
			Token:      uuid.NewString(),
			HostPlayer: playerToken,
			Turn:       entity.RandomTurnOrder(),
			Map:        gamemap.Generate(that.mapWidth, that.mapHeight).String(),
		}

		err := that.sessionRepo.CreateGame(ctx, game)
		if errors.Is(err, repository.ErrGameTokenTaken) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create game: %w", err)
		}

		return game.Token, nil
	}
}

func (that *GameManager) JoinGame(ctx context.Context, playerToken, gameToken string) (*repository.JoinOutcome, error) {
	if err := that.verifyTokens(ctx, playerToken, gameToken); err != nil {
		return nil, err
	}

	outcome, err := that.sessionRepo.JoinGame(ctx, playerToken, gameToken)
	if err != nil {
		return nil, fmt.Errorf("failed to join game: %w", err)
	}

	return outcome, nil
}

func (that *GameManager) ChooseCharacter(ctx context.Context, playerToken, gameToken, class string) (*repository.ChooseOutcome, error) {
	if err := that.verifyTokens(ctx, playerToken, gameToken); err != nil {
		return nil, err
	}

	stats, ok := entity.ClassStats(class)
	if !ok {
		return nil, apperror.ErrInvalidCharacter
	}

	outcome, err := that.sessionRepo.ChooseCharacter(ctx, playerToken, gameToken, class, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to choose character: %w", err)
	}

	return outcome, nil
}

func (that *GameManager) StartGame(ctx context.Context, playerToken, gameToken string) (*repository.StartOutcome, error) {
	if err := that.verifyTokens(ctx, playerToken, gameToken); err != nil {
		return nil, err
	}

	outcome, err := that.sessionRepo.StartGame(ctx, playerToken, gameToken)
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	return outcome, nil
}

// ApplyTurn - submits one move/attack/skip action for the caller.
func (that *GameManager) ApplyTurn(ctx context.Context, playerToken, gameToken string, code int, target gamemap.Point) (*repository.TurnOutcome, error) {
	if err := that.verifyTokens(ctx, playerToken, gameToken); err != nil {
		return nil, err
	}

	outcome, err := that.sessionRepo.ApplyTurn(ctx, playerToken, gameToken, repository.Action{Code: code, Target: target})
	if err != nil {
		return nil, fmt.Errorf("failed to apply turn: %w", err)
	}

	if outcome.Finished {
		that.logger.With("method", "ApplyTurn").
			Info("game finished", "game", gameToken, "eliminated", outcome.EnemyNum)
	}

	return outcome, nil
}

func (that *GameManager) verifyPlayerToken(ctx context.Context, token string) error {
	if len(token) != TokenLength {
		return apperror.ErrInvalidPlayerToken
	}

	exists, err := that.playerRepo.Exists(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to verify player token: %w", err)
	}
	if !exists {
		return apperror.ErrInvalidPlayerToken
	}

	return nil
}

func (that *GameManager) verifyGameToken(ctx context.Context, token string) error {
	if len(token) != TokenLength {
		return apperror.ErrInvalidGameToken
	}

	exists, err := that.sessionRepo.GameExists(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to verify game token: %w", err)
	}
	if !exists {
		return apperror.ErrInvalidGameToken
	}

	return nil
}

func (that *GameManager) verifyTokens(ctx context.Context, playerToken, gameToken string) error {
	if err := that.verifyPlayerToken(ctx, playerToken); err != nil {
		return err
	}

	return that.verifyGameToken(ctx, gameToken)
}

// pseudos are 1..32 alphanumeric runes
func validPseudo(pseudo string) bool {
	if pseudo == "" || len(pseudo) > maxPseudoLength {
		return false
	}

	for _, r := range pseudo {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}

	return true
}
