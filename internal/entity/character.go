package entity

import (
	"encoding/json"
	"fmt"
)

const (
	ClassBowman    = "bow"
	ClassBarbarian = "bar"
	ClassMagician  = "mag"
)

// Stats is the live stat block of one character: attack damage, health
// points, movement speed and attack range. It serializes as the 4-element
// array [atk, hp, ms, rng] the clients expect.
type Stats struct {
	ATK int
	HP  int
	MS  int
	RNG int
}

func (that Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{that.ATK, that.HP, that.MS, that.RNG})
}

func (that *Stats) UnmarshalJSON(data []byte) error {
	var arr [4]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	that.ATK, that.HP, that.MS, that.RNG = arr[0], arr[1], arr[2], arr[3]

	return nil
}

var classStats = map[string]Stats{
	ClassBowman:    {ATK: 6, HP: 70, MS: 2, RNG: 6},
	ClassBarbarian: {ATK: 10, HP: 100, MS: 4, RNG: 1},
	ClassMagician:  {ATK: 4, HP: 80, MS: 3, RNG: 2},
}

// ClassStats - returns the fixed stat block for a character class tag.
func ClassStats(class string) (Stats, bool) {
	stats, ok := classStats[class]
	return stats, ok
}
