package protocol

// Request type tags.
const (
	RequestTerminate       = 10
	RequestPlayerCreate    = 11
	RequestGameCreate      = 12
	RequestGameJoin        = 13
	RequestCharacterChoose = 14
	RequestGameStart       = 15
	RequestGameData        = 16
)

// Response status codes, one success code per request type plus the shared
// error codes.
const (
	StatusOKTerminate       = 20
	StatusOKPlayerCreate    = 21
	StatusOKGameCreate      = 22
	StatusOKGameJoin        = 23
	StatusOKCharacterChoose = 24
	StatusOKGameStart       = 25
	StatusOKGameData        = 26

	StatusErrInternal           = 30
	StatusErrMalformedRequest   = 31
	StatusErrInvalidPseudo      = 32
	StatusErrInvalidPlayerToken = 33
	StatusErrInvalidGameToken   = 34
	StatusErrGameAlreadyStarted = 35
	StatusErrGameFull           = 36
	StatusErrGameNotJoined      = 37
	StatusErrGameNotFull        = 38
	StatusErrGameNotStarted     = 39
	StatusErrNotYourTurn        = 40
	StatusErrAlreadyHosting     = 41
)

// Game-data action codes.
const (
	ActionMove   = 50
	ActionAttack = 51
	ActionSkip   = 52
)
