package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quickforge/tactics-backend/internal/entity"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerExists   = errors.New("player token already in use")
)

// playersKey is the hash of all known players, keyed by token.
const playersKey = "player"

type PlayerRepository interface {
	Create(ctx context.Context, token string, player *entity.Player) error
	GetByToken(ctx context.Context, token string) (*entity.Player, error)
	Exists(ctx context.Context, token string) (bool, error)
}

type dbPlayer struct {
	client *redis.Client
}

func NewPlayerRepository(client *redis.Client) PlayerRepository {
	return &dbPlayer{
		client: client,
	}
}

// Create - stores a new player under token; create-if-absent, so a token
// collision surfaces as ErrPlayerExists instead of clobbering the record.
func (that *dbPlayer) Create(ctx context.Context, token string, player *entity.Player) error {
	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	set, err := that.client.HSetNX(ctx, playersKey, token, playerJSON).Result()
	if err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	if !set {
		return ErrPlayerExists
	}

	return nil
}

func (that *dbPlayer) GetByToken(ctx context.Context, token string) (*entity.Player, error) {
	response, err := that.client.HGet(ctx, playersKey, token).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by token: %w", err)
	}

	var existingPlayer entity.Player
	if err = json.Unmarshal([]byte(response), &existingPlayer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &existingPlayer, nil
}

func (that *dbPlayer) Exists(ctx context.Context, token string) (bool, error) {
	exists, err := that.client.HExists(ctx, playersKey, token).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check player existence: %w", err)
	}

	return exists, nil
}
