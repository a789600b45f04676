package entities

import "time"

// Ability names one of the six attributes
type Ability string

// Abilities
const (
	AbilityStrength     Ability = "strength"
	AbilityDexterity    Ability = "dexterity"
	AbilityConstitution Ability = "constitution"
	AbilityIntelligence Ability = "intelligence"
	AbilityWisdom       Ability = "wisdom"
	AbilityCharisma     Ability = "charisma"
)

// Abilities lists every ability in display order
var Abilities = []Ability{
	AbilityStrength,
	AbilityDexterity,
	AbilityConstitution,
	AbilityIntelligence,
	AbilityWisdom,
	AbilityCharisma,
}

// Stats holds the six attribute scores
type Stats struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// Score returns the score for an ability, 0 when unknown
func (s Stats) Score(a Ability) int {
	switch a {
	case AbilityStrength:
		return s.Strength
	case AbilityDexterity:
		return s.Dexterity
	case AbilityConstitution:
		return s.Constitution
	case AbilityIntelligence:
		return s.Intelligence
	case AbilityWisdom:
		return s.Wisdom
	case AbilityCharisma:
		return s.Charisma
	}
	return 0
}

// Modifier is floor((score - 10) / 2)
func (s Stats) Modifier(a Ability) int {
	score := s.Score(a) - 10
	if score < 0 {
		return (score - 1) / 2
	}
	return score / 2
}

// EquipmentSlot is one of a fixed set of mutually exclusive slots
type EquipmentSlot string

// Equipment slots
const (
	SlotMainHand EquipmentSlot = "main_hand"
	SlotOffHand  EquipmentSlot = "off_hand"
	SlotArmor    EquipmentSlot = "armor"
	SlotHead     EquipmentSlot = "head"
	SlotHands    EquipmentSlot = "hands"
	SlotFeet     EquipmentSlot = "feet"
	SlotNeck     EquipmentSlot = "neck"
	SlotRing     EquipmentSlot = "ring"
)

// EquipmentSlots lists the valid slots
var EquipmentSlots = []EquipmentSlot{
	SlotMainHand, SlotOffHand, SlotArmor, SlotHead, SlotHands, SlotFeet, SlotNeck, SlotRing,
}

// IsValid reports whether s is a known slot
func (s EquipmentSlot) IsValid() bool {
	for _, slot := range EquipmentSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// Item is one inventory entry
type Item struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Quantity   int    `json:"quantity"`
	Damage     string `json:"damage,omitempty"`
	Range      int    `json:"range,omitempty"`
	ArmorBonus int    `json:"armorBonus,omitempty"`
	Heal       string `json:"heal,omitempty"`
	Consumable bool   `json:"consumable,omitempty"`
}

// Character is a player-owned entity
type Character struct {
	ID              string                   `json:"id"`
	PlayerID        string                   `json:"playerId"`
	PlayerEmail     string                   `json:"playerEmail,omitempty"`
	Name            string                   `json:"name"`
	Level           int                      `json:"level"`
	Race            string                   `json:"race"`
	Class           string                   `json:"class"`
	Stats           Stats                    `json:"stats"`
	Skills          []string                 `json:"skills"`
	Health          int                      `json:"health"`
	MaxHealth       int                      `json:"maxHealth"`
	ActionPoints    int                      `json:"actionPoints"`
	MaxActionPoints int                      `json:"maxActionPoints"`
	Speed           int                      `json:"speed"`
	Inventory       []Item                   `json:"inventory"`
	Equipped        map[EquipmentSlot]string `json:"equipped"`
	Removed         bool                     `json:"removed,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// RemovedCharacter is the placeholder shown when a referenced character was deleted
func RemovedCharacter(id string) *Character {
	return &Character{
		ID:       id,
		Name:     "Removed character",
		Removed:  true,
		Equipped: map[EquipmentSlot]string{},
	}
}

// Clamp forces health and action points into their valid ranges
func (c *Character) Clamp() {
	c.Health = clamp(c.Health, 0, c.MaxHealth)
	c.ActionPoints = clamp(c.ActionPoints, 0, c.MaxActionPoints)
}

// ApplyDamage lowers health, never below zero, and returns the amount lost
func (c *Character) ApplyDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.Health
	c.Health = clamp(c.Health-amount, 0, c.MaxHealth)
	return before - c.Health
}

// Heal raises health, never above max, and returns the amount gained
func (c *Character) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.Health
	c.Health = clamp(c.Health+amount, 0, c.MaxHealth)
	return c.Health - before
}

// SpendActionPoints removes points, never below zero
func (c *Character) SpendActionPoints(amount int) {
	c.ActionPoints = clamp(c.ActionPoints-amount, 0, c.MaxActionPoints)
}

// RestoreActionPoints adds points, never above max
func (c *Character) RestoreActionPoints(amount int) {
	c.ActionPoints = clamp(c.ActionPoints+amount, 0, c.MaxActionPoints)
}

// IsDefeated reports whether the character is at zero health
func (c *Character) IsDefeated() bool {
	return c.Health <= 0
}

// FindItem returns the inventory index of the item with id, or -1
func (c *Character) FindItem(id string) int {
	for i, item := range c.Inventory {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// FindItemByName matches case-sensitively on name, or -1
func (c *Character) FindItemByName(name string) int {
	for i, item := range c.Inventory {
		if item.Name == name {
			return i
		}
	}
	return -1
}

// EquippedItem returns the item in slot, if any
func (c *Character) EquippedItem(slot EquipmentSlot) *Item {
	id, ok := c.Equipped[slot]
	if !ok || id == "" {
		return nil
	}
	if i := c.FindItem(id); i >= 0 {
		return &c.Inventory[i]
	}
	return nil
}

// ConsumeItem decrements the quantity at index i and removes it at zero.
// Any slot holding the removed item is cleared.
func (c *Character) ConsumeItem(i int) {
	if i < 0 || i >= len(c.Inventory) {
		return
	}
	c.Inventory[i].Quantity--
	if c.Inventory[i].Quantity > 0 {
		return
	}
	removed := c.Inventory[i].ID
	c.Inventory = append(c.Inventory[:i], c.Inventory[i+1:]...)
	for slot, id := range c.Equipped {
		if id == removed {
			delete(c.Equipped, slot)
		}
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
