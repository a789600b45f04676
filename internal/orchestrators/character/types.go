package character

import (
	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

// Sheet is the player-editable part of a character
type Sheet struct {
	Name      string
	Level     int
	Race      string
	Class     string
	Stats     entities.Stats
	Skills    []string
	Inventory []entities.Item
	Equipped  map[entities.EquipmentSlot]string
}

// CreateCharacterInput defines the request for creating a character
type CreateCharacterInput struct {
	PlayerID    string
	PlayerEmail string
	Sheet       Sheet
}

// CreateCharacterOutput defines the response for creating a character
type CreateCharacterOutput struct {
	Character *entities.Character
}

// GetCharacterInput defines the request for fetching an owned character
type GetCharacterInput struct {
	PlayerID    string
	CharacterID string
}

// GetCharacterOutput defines the response for fetching an owned character
type GetCharacterOutput struct {
	Character *entities.Character
}

// ListCharactersInput defines the request for listing a player's characters
type ListCharactersInput struct {
	PlayerID string
}

// ListCharactersOutput defines the response for listing a player's characters
type ListCharactersOutput struct {
	Characters []*entities.Character
}

// UpdateCharacterInput defines a partial update. Nil fields are left as they are.
type UpdateCharacterInput struct {
	PlayerID     string
	CharacterID  string
	Name         *string
	Level        *int
	Race         *string
	Class        *string
	Stats        *entities.Stats
	Skills       *[]string
	Health       *int
	ActionPoints *int
	Inventory    *[]entities.Item
	Equipped     *map[entities.EquipmentSlot]string
}

// UpdateCharacterOutput defines the response for updating a character.
// Games lists the active sessions whose state version was bumped.
type UpdateCharacterOutput struct {
	Character *entities.Character
	Games     []string
}

// DeleteCharacterInput defines the request for deleting a character
type DeleteCharacterInput struct {
	PlayerID    string
	CharacterID string
}

// DeleteCharacterOutput defines the response for deleting a character
type DeleteCharacterOutput struct {
	Games []string
}
