// Package builders provides test data builders for creating test fixtures
package builders

import (
	"time"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

// CharacterBuilder provides a fluent interface for building test Character instances
type CharacterBuilder struct {
	character *entities.Character
}

// NewCharacterBuilder creates a level 1 human fighter with average stats
func NewCharacterBuilder() *CharacterBuilder {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &CharacterBuilder{
		character: &entities.Character{
			ID:       "char-test-123",
			PlayerID: "player-test-123",
			Name:     "Test Hero",
			Level:    1,
			Race:     "human",
			Class:    "fighter",
			Stats: entities.Stats{
				Strength:     10,
				Dexterity:    10,
				Constitution: 10,
				Intelligence: 10,
				Wisdom:       10,
				Charisma:     10,
			},
			Skills:          []string{},
			Health:          10,
			MaxHealth:       10,
			ActionPoints:    3,
			MaxActionPoints: 3,
			Speed:           6,
			Inventory:       []entities.Item{},
			Equipped:        map[entities.EquipmentSlot]string{},
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

// WithID sets the character ID
func (b *CharacterBuilder) WithID(id string) *CharacterBuilder {
	b.character.ID = id
	return b
}

// WithPlayer sets the owning player
func (b *CharacterBuilder) WithPlayer(playerID, email string) *CharacterBuilder {
	b.character.PlayerID = playerID
	b.character.PlayerEmail = email
	return b
}

// WithName sets the character name
func (b *CharacterBuilder) WithName(name string) *CharacterBuilder {
	b.character.Name = name
	return b
}

// WithClass sets the class
func (b *CharacterBuilder) WithClass(class string) *CharacterBuilder {
	b.character.Class = class
	return b
}

// WithRace sets the race
func (b *CharacterBuilder) WithRace(race string) *CharacterBuilder {
	b.character.Race = race
	return b
}

// WithLevel sets the level
func (b *CharacterBuilder) WithLevel(level int) *CharacterBuilder {
	b.character.Level = level
	return b
}

// WithStats replaces all six ability scores
func (b *CharacterBuilder) WithStats(stats entities.Stats) *CharacterBuilder {
	b.character.Stats = stats
	return b
}

// WithHealth sets current and max health
func (b *CharacterBuilder) WithHealth(current, maxHealth int) *CharacterBuilder {
	b.character.Health = current
	b.character.MaxHealth = maxHealth
	return b
}

// WithActionPoints sets current and max action points
func (b *CharacterBuilder) WithActionPoints(current, maxPoints int) *CharacterBuilder {
	b.character.ActionPoints = current
	b.character.MaxActionPoints = maxPoints
	return b
}

// WithSpeed sets movement speed in squares
func (b *CharacterBuilder) WithSpeed(speed int) *CharacterBuilder {
	b.character.Speed = speed
	return b
}

// WithSkills sets the skill list
func (b *CharacterBuilder) WithSkills(skills ...string) *CharacterBuilder {
	b.character.Skills = skills
	return b
}

// WithItem adds an inventory item
func (b *CharacterBuilder) WithItem(item entities.Item) *CharacterBuilder {
	b.character.Inventory = append(b.character.Inventory, item)
	return b
}

// WithEquipped adds item to the inventory and equips it in slot
func (b *CharacterBuilder) WithEquipped(slot entities.EquipmentSlot, item entities.Item) *CharacterBuilder {
	b.character.Inventory = append(b.character.Inventory, item)
	b.character.Equipped[slot] = item.ID
	return b
}

// Build returns the built character
func (b *CharacterBuilder) Build() *entities.Character {
	return b.character
}
