package entities

import "time"

// LogType classifies an activity log entry
type LogType string

// Log entry types
const (
	LogTypeSessionCreated LogType = "session_created"
	LogTypePlayerJoined   LogType = "player_joined"
	LogTypeStatusChanged  LogType = "status_changed"
	LogTypeMapGenerated   LogType = "map_generated"
	LogTypeTerrainEdited  LogType = "terrain_edited"
	LogTypeTokenMoved     LogType = "token_moved"
	LogTypeNPCPlaced      LogType = "npc_placed"
	LogTypeCombatStarted  LogType = "combat_started"
	LogTypeCombatEnded    LogType = "combat_ended"
	LogTypeMove           LogType = "move"
	LogTypeAttack         LogType = "attack"
	LogTypeSpell          LogType = "spell"
	LogTypeItemUsed       LogType = "item_used"
	LogTypeTurnEnded      LogType = "turn_ended"
	LogTypeReroll         LogType = "reroll"
	LogTypeNarration      LogType = "narration"
	LogTypeToolCommand    LogType = "tool_command"
	LogTypeCharacterEdit  LogType = "character_updated"
)

// ActivityLogEntry is an append-only audit record
type ActivityLogEntry struct {
	ID          int64          `json:"id"`
	GameID      string         `json:"gameId"`
	ActorID     string         `json:"actorId,omitempty"`
	ActorName   string         `json:"actorName,omitempty"`
	Type        LogType        `json:"type"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
