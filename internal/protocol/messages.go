package protocol

import (
	"encoding/json"
	"fmt"
)

// Request is the closed set of client messages; RequestType selects which
// fields are meaningful. Dispatch switches exhaustively on the tag at the
// connection boundary.
type Request struct {
	RequestType int     `json:"request_type"`
	Pseudo      string  `json:"pseudo,omitempty"`
	PlayerToken string  `json:"player_token,omitempty"`
	GameToken   string  `json:"game_token,omitempty"`
	Character   string  `json:"character,omitempty"`
	GMCode      int     `json:"gm_code,omitempty"`
	Target      *[2]int `json:"target,omitempty"`
}

// ParseRequest - decodes one request body.
func ParseRequest(body []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}

	return &req, nil
}

type StatusOnly struct {
	Status int `json:"status"`
}

type PlayerCreated struct {
	Status      int    `json:"status"`
	PlayerToken string `json:"player_token"`
}

type GameCreated struct {
	Status    int    `json:"status"`
	GameToken string `json:"game_token"`
}

// GameJoined carries the joiner's pseudo and the full roster: one
// [slot, pseudo, character, is_host] row per member.
type GameJoined struct {
	Status    int         `json:"status"`
	Pseudo    string      `json:"pseudo"`
	PlayerVec [][4]string `json:"player_vec"`
}

type CharacterChosen struct {
	Status    int    `json:"status"`
	Pseudo    string `json:"pseudo"`
	Character string `json:"character"`
}

type GameStarted struct {
	Status     int    `json:"status"`
	PlayerTurn string `json:"player_turn"`
	Map        string `json:"map"`
}

type GameData struct {
	Status     int    `json:"status"`
	DataType   int    `json:"data_type"`
	PlayerNum  string `json:"player_num"`
	PlayerTurn string `json:"player_turn"`
	Map        string `json:"map"`
	Enemy      Enemy  `json:"enemy"`
}

// Enemy serializes as the pair [slot, remaining_hp]; both fields are empty
// values for move and skip updates.
type Enemy struct {
	PlayerNum   string
	RemainingHP int
}

func (that Enemy) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{that.PlayerNum, that.RemainingHP})
}

func (that *Enemy) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("failed to unmarshal enemy pair: %w", err)
	}

	if err := json.Unmarshal(pair[0], &that.PlayerNum); err != nil {
		return fmt.Errorf("failed to unmarshal enemy slot: %w", err)
	}

	if err := json.Unmarshal(pair[1], &that.RemainingHP); err != nil {
		return fmt.Errorf("failed to unmarshal enemy hp: %w", err)
	}

	return nil
}
