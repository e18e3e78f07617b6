package usecase

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickforge/tactics-backend/internal/apperror"
	"github.com/quickforge/tactics-backend/internal/entity"
	"github.com/quickforge/tactics-backend/internal/gamemap"
	"github.com/quickforge/tactics-backend/internal/repository"
)

type stubPlayers struct {
	players map[string]*entity.Player
	// pending Create calls that report a token collision before succeeding
	collisions int
}

func newStubPlayers() *stubPlayers {
	return &stubPlayers{players: make(map[string]*entity.Player)}
}

func (that *stubPlayers) Create(_ context.Context, token string, player *entity.Player) error {
	if that.collisions > 0 {
		that.collisions--
		return repository.ErrPlayerExists
	}

	that.players[token] = player

	return nil
}

func (that *stubPlayers) GetByToken(_ context.Context, token string) (*entity.Player, error) {
	player, ok := that.players[token]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}

	return player, nil
}

func (that *stubPlayers) Exists(_ context.Context, token string) (bool, error) {
	_, ok := that.players[token]
	return ok, nil
}

type stubSessions struct {
	games map[string]*entity.Game
	// pending CreateGame calls that report a taken token before succeeding
	collisions int
}

func newStubSessions() *stubSessions {
	return &stubSessions{games: make(map[string]*entity.Game)}
}

func (that *stubSessions) CreateGame(_ context.Context, game *entity.Game) error {
	if that.collisions > 0 {
		that.collisions--
		return repository.ErrGameTokenTaken
	}

	that.games[game.Token] = game

	return nil
}

func (that *stubSessions) GameExists(_ context.Context, token string) (bool, error) {
	_, ok := that.games[token]
	return ok, nil
}

func (that *stubSessions) JoinGame(context.Context, string, string) (*repository.JoinOutcome, error) {
	return &repository.JoinOutcome{}, nil
}

func (that *stubSessions) ChooseCharacter(context.Context, string, string, string, entity.Stats) (*repository.ChooseOutcome, error) {
	return &repository.ChooseOutcome{}, nil
}

func (that *stubSessions) StartGame(context.Context, string, string) (*repository.StartOutcome, error) {
	return &repository.StartOutcome{}, nil
}

func (that *stubSessions) ApplyTurn(context.Context, string, string, repository.Action) (*repository.TurnOutcome, error) {
	return &repository.TurnOutcome{}, nil
}

func newTestManager(players *stubPlayers, sessions *stubSessions) *GameManager {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewGameManager(logger, players, sessions, 10, 5)
}

func TestGameManager_CreatePlayer(t *testing.T) {
	t.Run("Issues distinct tokens of the fixed length", func(t *testing.T) {
		players := newStubPlayers()
		manager := newTestManager(players, newStubSessions())

		first, err := manager.CreatePlayer(context.Background(), "alice")
		require.NoError(t, err)
		second, err := manager.CreatePlayer(context.Background(), "bob")
		require.NoError(t, err)

		assert.Len(t, first, TokenLength)
		assert.Len(t, second, TokenLength)
		assert.NotEqual(t, first, second)
		assert.Equal(t, "alice", players.players[first].Pseudo)
	})

	t.Run("Retries transparently on a token collision", func(t *testing.T) {
		players := newStubPlayers()
		players.collisions = 2
		manager := newTestManager(players, newStubSessions())

		token, err := manager.CreatePlayer(context.Background(), "alice")

		require.NoError(t, err)
		assert.Len(t, players.players, 1)
		assert.Equal(t, "alice", players.players[token].Pseudo)
	})

	t.Run("Rejects pseudos outside the allowed shape", func(t *testing.T) {
		manager := newTestManager(newStubPlayers(), newStubSessions())

		for _, pseudo := range []string{
			"",
			strings.Repeat("a", 33),
			"with space",
			"semi;colon",
		} {
			_, err := manager.CreatePlayer(context.Background(), pseudo)
			assert.ErrorIs(t, err, apperror.ErrInvalidPseudo, "pseudo %q", pseudo)
		}
	})

	t.Run("Accepts unicode letters and digits", func(t *testing.T) {
		manager := newTestManager(newStubPlayers(), newStubSessions())

		_, err := manager.CreatePlayer(context.Background(), "Жора42")

		require.NoError(t, err)
	})
}

func TestGameManager_CreateGame(t *testing.T) {
	t.Run("Builds a game with a generated map and a legal turn order", func(t *testing.T) {
		players := newStubPlayers()
		sessions := newStubSessions()
		manager := newTestManager(players, sessions)

		hostToken, err := manager.CreatePlayer(context.Background(), "alice")
		require.NoError(t, err)

		gameToken, err := manager.CreateGame(context.Background(), hostToken)
		require.NoError(t, err)
		require.Len(t, gameToken, TokenLength)

		game := sessions.games[gameToken]
		require.NotNil(t, game)
		assert.Equal(t, hostToken, game.HostPlayer)
		assert.Contains(t, []string{"12", "21"}, game.Turn)

		grid, err := gamemap.Parse(game.Map)
		require.NoError(t, err)
		assert.Equal(t, 10, grid.Width())
		assert.Equal(t, 5, grid.Height())
	})

	t.Run("Retries transparently on a taken game token", func(t *testing.T) {
		players := newStubPlayers()
		sessions := newStubSessions()
		sessions.collisions = 1
		manager := newTestManager(players, sessions)

		hostToken, err := manager.CreatePlayer(context.Background(), "alice")
		require.NoError(t, err)

		_, err = manager.CreateGame(context.Background(), hostToken)

		require.NoError(t, err)
		assert.Len(t, sessions.games, 1)
	})

	t.Run("Rejects a malformed or unknown host token", func(t *testing.T) {
		manager := newTestManager(newStubPlayers(), newStubSessions())

		_, err := manager.CreateGame(context.Background(), "short")
		assert.ErrorIs(t, err, apperror.ErrInvalidPlayerToken)

		_, err = manager.CreateGame(context.Background(), strings.Repeat("x", TokenLength))
		assert.ErrorIs(t, err, apperror.ErrInvalidPlayerToken)
	})
}

func TestGameManager_ChooseCharacter(t *testing.T) {
	t.Run("Rejects an unknown class before touching the store", func(t *testing.T) {
		players := newStubPlayers()
		sessions := newStubSessions()
		manager := newTestManager(players, sessions)

		hostToken, err := manager.CreatePlayer(context.Background(), "alice")
		require.NoError(t, err)
		gameToken, err := manager.CreateGame(context.Background(), hostToken)
		require.NoError(t, err)

		_, err = manager.ChooseCharacter(context.Background(), hostToken, gameToken, "knight")

		assert.ErrorIs(t, err, apperror.ErrInvalidCharacter)
	})

	t.Run("Rejects an unknown game token", func(t *testing.T) {
		players := newStubPlayers()
		manager := newTestManager(players, newStubSessions())

		hostToken, err := manager.CreatePlayer(context.Background(), "alice")
		require.NoError(t, err)

		_, err = manager.ChooseCharacter(context.Background(), hostToken, strings.Repeat("x", TokenLength), entity.ClassBowman)

		assert.ErrorIs(t, err, apperror.ErrInvalidGameToken)
	})
}
