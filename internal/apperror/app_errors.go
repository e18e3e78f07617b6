package apperror

import "errors"

var (
	ErrInvalidPseudo      = errors.New("invalid pseudo")
	ErrInvalidPlayerToken = errors.New("invalid player token")
	ErrInvalidGameToken   = errors.New("invalid game token")
	ErrAlreadyHosting     = errors.New("player is already hosting a game")
	ErrAlreadyJoined      = errors.New("player already joined this game")
	ErrGameAlreadyStarted = errors.New("game is already started")
	ErrGameFull           = errors.New("game is full")
	ErrGameNotJoined      = errors.New("game is not joined")
	ErrGameNotFull        = errors.New("game is not full")
	ErrGameNotStarted     = errors.New("game is not started")
	ErrNotHost            = errors.New("player is not the host")
	ErrNotYourTurn        = errors.New("it's not your turn")
	ErrInvalidCharacter   = errors.New("unknown character class")
	ErrIllegalAction      = errors.New("illegal action")
	ErrTxConflict         = errors.New("transaction retry limit exceeded")
)
