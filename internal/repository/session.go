package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/quickforge/tactics-backend/internal/apperror"
	"github.com/quickforge/tactics-backend/internal/entity"
	"github.com/quickforge/tactics-backend/internal/gamemap"
	"github.com/quickforge/tactics-backend/internal/protocol"
	"github.com/quickforge/tactics-backend/internal/resolver"
)

var ErrGameTokenTaken = errors.New("game token already in use")

// gamesKey is the set of active game tokens; per-game state lives in the
// game_info:<token> and game_player:<token> hashes.
const gamesKey = "game"

const (
	fieldStarted     = "started"
	fieldHostPlayer  = "host_player"
	fieldPlayerCount = "player_count"
	fieldMap         = "map"
	fieldTurn        = "turn"
)

// every check-then-mutate runs as one optimistic transaction; conflicting
// commits from the peer's connection retry up to this bound
const maxTxRetries = 5

func gameInfoKey(token string) string {
	return "game_info:" + token
}

func gamePlayerKey(token string) string {
	return "game_player:" + token
}

// Action is one turn submission: a move/attack/skip code plus its target
// cell (ignored for skip).
type Action struct {
	Code   int
	Target gamemap.Point
}

type JoinOutcome struct {
	Pseudo    string
	PlayerNum string
	// Roster rows are [slot, pseudo, character, is_host], one per member.
	Roster [][4]string
}

type ChooseOutcome struct {
	Pseudo string
}

type StartOutcome struct {
	PlayerTurn string
	Map        string
}

type TurnOutcome struct {
	DataType   int
	PlayerNum  string
	PlayerTurn string
	Map        string
	EnemyNum   string
	EnemyHP    int
	Finished   bool
}

// SessionRepository is the authority over all game session state. Every
// operation that inspects and then mutates shared state commits atomically,
// so two connections can never both observe "room available" or "not
// started" and both proceed.
type SessionRepository interface {
	CreateGame(ctx context.Context, game *entity.Game) error
	GameExists(ctx context.Context, token string) (bool, error)
	JoinGame(ctx context.Context, playerToken, gameToken string) (*JoinOutcome, error)
	ChooseCharacter(ctx context.Context, playerToken, gameToken, class string, stats entity.Stats) (*ChooseOutcome, error)
	StartGame(ctx context.Context, playerToken, gameToken string) (*StartOutcome, error)
	ApplyTurn(ctx context.Context, playerToken, gameToken string, action Action) (*TurnOutcome, error)
}

type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

// watch - runs txf as an optimistic transaction over keys, retrying on
// commit conflicts. Exhausted retries surface as ErrTxConflict, which the
// transport reports as an internal error.
func (that *dbSession) watch(ctx context.Context, txf func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := that.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return apperror.ErrTxConflict
}

func (that *dbSession) GameExists(ctx context.Context, token string) (bool, error) {
	exists, err := that.client.SIsMember(ctx, gamesKey, token).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check game existence: %w", err)
	}

	return exists, nil
}

// CreateGame - registers a new game hosted by game.HostPlayer: marks the
// host as hosting, stores the metadata hash and the host's slot-1
// membership. ErrGameTokenTaken signals the caller to retry with a fresh
// token.
func (that *dbSession) CreateGame(ctx context.Context, game *entity.Game) error {
	infoKey := gameInfoKey(game.Token)
	memberKey := gamePlayerKey(game.Token)

	txf := func(tx *redis.Tx) error {
		taken, err := tx.SIsMember(ctx, gamesKey, game.Token).Result()
		if err != nil {
			return fmt.Errorf("failed to check game token: %w", err)
		}
		if taken {
			return ErrGameTokenTaken
		}

		host, err := getPlayer(ctx, tx, game.HostPlayer)
		if err != nil {
			return err
		}

		if host.IsHosting() {
			return apperror.ErrAlreadyHosting
		}
		host.Hosting = 1

		hostJSON, err := json.Marshal(host)
		if err != nil {
			return fmt.Errorf("failed to marshal host: %w", err)
		}

		memberJSON, err := json.Marshal(&entity.Membership{PlayerNum: entity.SlotOne})
		if err != nil {
			return fmt.Errorf("failed to marshal membership: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, gamesKey, game.Token)
			pipe.HSet(ctx, infoKey,
				fieldStarted, "0",
				fieldHostPlayer, game.HostPlayer,
				fieldPlayerCount, 1,
				fieldMap, game.Map,
				fieldTurn, game.Turn,
			)
			pipe.HSet(ctx, playersKey, game.HostPlayer, hostJSON)
			pipe.HSet(ctx, memberKey, game.HostPlayer, memberJSON)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to commit game creation: %w", err)
		}

		return nil
	}

	return that.watch(ctx, txf, gamesKey, playersKey, infoKey, memberKey)
}

// JoinGame - assigns the next free slot to playerToken and returns the full
// roster. The started/full/membership checks and the slot assignment commit
// as one transaction.
func (that *dbSession) JoinGame(ctx context.Context, playerToken, gameToken string) (*JoinOutcome, error) {
	infoKey := gameInfoKey(gameToken)
	memberKey := gamePlayerKey(gameToken)

	var outcome *JoinOutcome

	txf := func(tx *redis.Tx) error {
		outcome = nil

		started, err := isStarted(ctx, tx, infoKey)
		if err != nil {
			return err
		}
		if started {
			return apperror.ErrGameAlreadyStarted
		}

		joined, err := tx.HExists(ctx, memberKey, playerToken).Result()
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if joined {
			return apperror.ErrAlreadyJoined
		}

		count, err := tx.HGet(ctx, infoKey, fieldPlayerCount).Int()
		if err != nil {
			return fmt.Errorf("failed to get player count: %w", err)
		}
		if count >= entity.MaxPlayers {
			return apperror.ErrGameFull
		}

		joiner, err := getPlayer(ctx, tx, playerToken)
		if err != nil {
			return err
		}

		slot := strconv.Itoa(count + 1)
		memberJSON, err := json.Marshal(&entity.Membership{PlayerNum: slot})
		if err != nil {
			return fmt.Errorf("failed to marshal membership: %w", err)
		}

		roster, err := buildRoster(ctx, tx, memberKey)
		if err != nil {
			return err
		}
		roster = append(roster, [4]string{slot, joiner.Pseudo, "", "0"})

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, infoKey, fieldPlayerCount, count+1)
			pipe.HSet(ctx, memberKey, playerToken, memberJSON)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to commit join: %w", err)
		}

		outcome = &JoinOutcome{
			Pseudo:    joiner.Pseudo,
			PlayerNum: slot,
			Roster:    roster,
		}

		return nil
	}

	if err := that.watch(ctx, txf, infoKey, memberKey, playersKey); err != nil {
		return nil, err
	}

	return outcome, nil
}

// ChooseCharacter - stores the class and its fixed stats against the
// caller's membership. Only legal before the game starts.
func (that *dbSession) ChooseCharacter(ctx context.Context, playerToken, gameToken, class string, stats entity.Stats) (*ChooseOutcome, error) {
	infoKey := gameInfoKey(gameToken)
	memberKey := gamePlayerKey(gameToken)

	var outcome *ChooseOutcome

	txf := func(tx *redis.Tx) error {
		outcome = nil

		membership, err := getMembership(ctx, tx, memberKey, playerToken)
		if err != nil {
			return err
		}

		started, err := isStarted(ctx, tx, infoKey)
		if err != nil {
			return err
		}
		if started {
			return apperror.ErrGameAlreadyStarted
		}

		membership.Character = class
		membership.Stats = stats

		memberJSON, err := json.Marshal(membership)
		if err != nil {
			return fmt.Errorf("failed to marshal membership: %w", err)
		}

		chooser, err := getPlayer(ctx, tx, playerToken)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, memberKey, playerToken, memberJSON)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to commit character choice: %w", err)
		}

		outcome = &ChooseOutcome{Pseudo: chooser.Pseudo}

		return nil
	}

	if err := that.watch(ctx, txf, infoKey, memberKey); err != nil {
		return nil, err
	}

	return outcome, nil
}

// StartGame - flips the started flag, stamps both slot markers onto their
// starting cells and returns the first-turn slot with the map snapshot.
// Only the host of a full game may start it.
func (that *dbSession) StartGame(ctx context.Context, playerToken, gameToken string) (*StartOutcome, error) {
	infoKey := gameInfoKey(gameToken)

	var outcome *StartOutcome

	txf := func(tx *redis.Tx) error {
		outcome = nil

		info, err := tx.HGetAll(ctx, infoKey).Result()
		if err != nil {
			return fmt.Errorf("failed to get game info: %w", err)
		}
		if len(info) == 0 {
			return apperror.ErrInvalidGameToken
		}

		if info[fieldStarted] == "1" {
			return apperror.ErrGameAlreadyStarted
		}

		if info[fieldHostPlayer] != playerToken {
			return apperror.ErrNotHost
		}

		count, err := strconv.Atoi(info[fieldPlayerCount])
		if err != nil {
			return fmt.Errorf("failed to parse player count: %w", err)
		}
		if count < entity.MaxPlayers {
			return apperror.ErrGameNotFull
		}

		grid, err := gamemap.Parse(info[fieldMap])
		if err != nil {
			return fmt.Errorf("failed to parse stored map: %w", err)
		}
		grid.PlaceStartMarkers()
		serialized := grid.String()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, infoKey, fieldStarted, "1", fieldMap, serialized)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to commit game start: %w", err)
		}

		outcome = &StartOutcome{
			PlayerTurn: info[fieldTurn][:1],
			Map:        serialized,
		}

		return nil
	}

	if err := that.watch(ctx, txf, infoKey); err != nil {
		return nil, err
	}

	return outcome, nil
}

// ApplyTurn - validates that the caller holds the current turn, delegates
// legality and effects to the resolver, persists the new map and rotated
// turn, and on an attack the defender's reduced HP. An elimination finishes
// the game: its keys are deleted and the host's hosting flag cleared in the
// same commit.
func (that *dbSession) ApplyTurn(ctx context.Context, playerToken, gameToken string, action Action) (*TurnOutcome, error) {
	infoKey := gameInfoKey(gameToken)
	memberKey := gamePlayerKey(gameToken)

	var outcome *TurnOutcome

	txf := func(tx *redis.Tx) error {
		outcome = nil

		info, err := tx.HGetAll(ctx, infoKey).Result()
		if err != nil {
			return fmt.Errorf("failed to get game info: %w", err)
		}
		if len(info) == 0 {
			return apperror.ErrInvalidGameToken
		}

		if info[fieldStarted] != "1" {
			return apperror.ErrGameNotStarted
		}

		members, err := tx.HGetAll(ctx, memberKey).Result()
		if err != nil {
			return fmt.Errorf("failed to get memberships: %w", err)
		}

		rawActor, ok := members[playerToken]
		if !ok {
			return apperror.ErrGameNotJoined
		}

		var actor entity.Membership
		if err = json.Unmarshal([]byte(rawActor), &actor); err != nil {
			return fmt.Errorf("failed to unmarshal membership: %w", err)
		}

		// no character chosen means no stats to act with
		if actor.Character == "" {
			return apperror.ErrIllegalAction
		}

		turn := info[fieldTurn]
		if turn[:1] != actor.PlayerNum {
			return apperror.ErrNotYourTurn
		}

		grid, err := gamemap.Parse(info[fieldMap])
		if err != nil {
			return fmt.Errorf("failed to parse stored map: %w", err)
		}

		enemies := make([]*entity.Membership, 0, len(members)-1)
		enemyTokens := make(map[string]string, len(members)-1)
		for token, raw := range members {
			if token == playerToken {
				continue
			}

			var member entity.Membership
			if err = json.Unmarshal([]byte(raw), &member); err != nil {
				return fmt.Errorf("failed to unmarshal membership: %w", err)
			}
			enemies = append(enemies, &member)
			enemyTokens[member.PlayerNum] = token
		}

		var attack *resolver.AttackOutcome
		switch action.Code {
		case protocol.ActionMove:
			if err = resolver.Move(grid, actor.PlayerNum, action.Target, actor.Stats.MS); err != nil {
				return err
			}
		case protocol.ActionAttack:
			attack, err = resolver.Attack(grid, actor.PlayerNum, enemies, action.Target, actor.Stats.ATK, actor.Stats.RNG)
			if err != nil {
				return err
			}
		case protocol.ActionSkip:
		default:
			return apperror.ErrIllegalAction
		}

		newTurn := entity.RotateTurn(turn)
		serialized := grid.String()

		var hostJSON []byte
		if attack != nil && attack.Eliminated {
			host, herr := getPlayer(ctx, tx, info[fieldHostPlayer])
			if herr != nil {
				return herr
			}
			host.Hosting = 0

			if hostJSON, herr = json.Marshal(host); herr != nil {
				return fmt.Errorf("failed to marshal host: %w", herr)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, infoKey, fieldMap, serialized, fieldTurn, newTurn)

			if attack == nil {
				return nil
			}

			for _, enemy := range enemies {
				if enemy.PlayerNum != attack.EnemyNum {
					continue
				}

				enemyJSON, merr := json.Marshal(enemy)
				if merr != nil {
					return fmt.Errorf("failed to marshal membership: %w", merr)
				}
				pipe.HSet(ctx, memberKey, enemyTokens[enemy.PlayerNum], enemyJSON)
			}

			if attack.Eliminated {
				deleteGame(ctx, pipe, gameToken, info[fieldHostPlayer], hostJSON)
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to commit turn: %w", err)
		}

		outcome = &TurnOutcome{
			DataType:   action.Code,
			PlayerNum:  actor.PlayerNum,
			PlayerTurn: newTurn[:1],
			Map:        serialized,
		}
		if attack != nil {
			outcome.EnemyNum = attack.EnemyNum
			outcome.EnemyHP = attack.RemainingHP
			outcome.Finished = attack.Eliminated
		}

		return nil
	}

	if err := that.watch(ctx, txf, infoKey, memberKey, playersKey); err != nil {
		return nil, err
	}

	return outcome, nil
}

// deleteGame - queues the teardown of a finished game: the token leaves the
// active set, its hashes go away and the host may host again.
func deleteGame(ctx context.Context, pipe redis.Pipeliner, gameToken, hostToken string, hostJSON []byte) {
	pipe.SRem(ctx, gamesKey, gameToken)
	pipe.Del(ctx, gameInfoKey(gameToken), gamePlayerKey(gameToken))
	pipe.HSet(ctx, playersKey, hostToken, hostJSON)
}

func getPlayer(ctx context.Context, tx *redis.Tx, token string) (*entity.Player, error) {
	raw, err := tx.HGet(ctx, playersKey, token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrInvalidPlayerToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	var player entity.Player
	if err = json.Unmarshal([]byte(raw), &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &player, nil
}

func getMembership(ctx context.Context, tx *redis.Tx, memberKey, token string) (*entity.Membership, error) {
	raw, err := tx.HGet(ctx, memberKey, token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotJoined
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	var membership entity.Membership
	if err = json.Unmarshal([]byte(raw), &membership); err != nil {
		return nil, fmt.Errorf("failed to unmarshal membership: %w", err)
	}

	return &membership, nil
}

func isStarted(ctx context.Context, tx *redis.Tx, infoKey string) (bool, error) {
	started, err := tx.HGet(ctx, infoKey, fieldStarted).Result()
	if errors.Is(err, redis.Nil) {
		return false, apperror.ErrInvalidGameToken
	}
	if err != nil {
		return false, fmt.Errorf("failed to get started flag: %w", err)
	}

	return started == "1", nil
}

// buildRoster - one [slot, pseudo, character, is_host] row per stored member.
func buildRoster(ctx context.Context, tx *redis.Tx, memberKey string) ([][4]string, error) {
	members, err := tx.HGetAll(ctx, memberKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}

	roster := make([][4]string, 0, len(members)+1)
	for token, raw := range members {
		var membership entity.Membership
		if err = json.Unmarshal([]byte(raw), &membership); err != nil {
			return nil, fmt.Errorf("failed to unmarshal membership: %w", err)
		}

		member, err := getPlayer(ctx, tx, token)
		if err != nil {
			return nil, err
		}

		roster = append(roster, [4]string{
			membership.PlayerNum,
			member.Pseudo,
			membership.Character,
			strconv.Itoa(member.Hosting),
		})
	}

	return roster, nil
}
