package entity

import "math/rand"

const (
	SlotOne = "1"
	SlotTwo = "2"

	MaxPlayers = 2
)

// Game mirrors the per-game metadata hash: one row per field.
type Game struct {
	Token       string
	Started     bool
	HostPlayer  string
	PlayerCount int
	Turn        string
	Map         string
}

// CurrentTurn - the slot that acts next; Turn holds the rotation order.
func (that *Game) CurrentTurn() string {
	if that.Turn == "" {
		return ""
	}
	return that.Turn[:1]
}

func (that *Game) IsFull() bool {
	return that.PlayerCount == MaxPlayers
}

// Membership is the per-(game, player) record: assigned slot, chosen class
// and the live stats snapshot. Character stays empty until chosen.
type Membership struct {
	PlayerNum string `json:"player_num"`
	Character string `json:"character"`
	Stats     Stats  `json:"stats"`
}

// RandomTurnOrder - picks the initial rotation over the two slots.
func RandomTurnOrder() string {
	if rand.Intn(2) == 0 { //nolint: gosec // it's ok
		return SlotOne + SlotTwo
	}
	return SlotTwo + SlotOne
}

// RotateTurn - moves the acting slot to the back of the order.
func RotateTurn(turn string) string {
	if len(turn) < 2 {
		return turn
	}
	return turn[1:] + turn[:1]
}
