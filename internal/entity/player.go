package entity

// Player is the account record stored once per player token.
// Hosting is 0 or 1 on the wire, matching the stored JSON.
type Player struct {
	Pseudo  string `json:"pseudo"`
	Hosting int    `json:"hosting"`
}

func (that *Player) IsHosting() bool {
	return that.Hosting == 1
}
