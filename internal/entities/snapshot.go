package entities

// RosterView is a roster entry with its character resolved
type RosterView struct {
	PlayerID    string     `json:"playerId"`
	PlayerEmail string     `json:"playerEmail,omitempty"`
	IsHost      bool       `json:"isHost"`
	Character   *Character `json:"character"`
}

// NPCView is a placed NPC with its definition summary
type NPCView struct {
	Instance   *NPCInstance `json:"instance"`
	ArmorClass int          `json:"armorClass"`
	Speed      int          `json:"speed"`
}

// GameStateSnapshot is the full state a polling client renders. Tiles are
// served by the map endpoint; Map.ID changes when a map is regenerated.
type GameStateSnapshot struct {
	Session   *GameSession        `json:"session"`
	Roster    []RosterView        `json:"roster"`
	Map       *Map                `json:"map,omitempty"`
	Tokens    []*MapToken         `json:"tokens"`
	NPCs      []NPCView           `json:"npcs"`
	Turn      TurnState           `json:"turn"`
	RecentLog []*ActivityLogEntry `json:"recentLog"`
	Version   int64               `json:"stateVersion"`
}
