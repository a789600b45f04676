package entities

import "time"

// Disposition is how an NPC regards the party
type Disposition string

// Dispositions
const (
	DispositionHostile  Disposition = "hostile"
	DispositionNeutral  Disposition = "neutral"
	DispositionFriendly Disposition = "friendly"
)

// IsValid reports whether d is a known disposition
func (d Disposition) IsValid() bool {
	switch d {
	case DispositionHostile, DispositionNeutral, DispositionFriendly:
		return true
	}
	return false
}

// NPCAttack is the default attack of an NPC definition
type NPCAttack struct {
	Name   string `json:"name"`
	Damage string `json:"damage"`
	Range  int    `json:"range"`
	Bonus  int    `json:"bonus"`
}

// LootEntry is a chance (0-100) of an item dropping
type LootEntry struct {
	Item   string `json:"item"`
	Chance int    `json:"chance"`
}

// NPCDefinition is a shared template keyed by slug
type NPCDefinition struct {
	Slug               string      `json:"slug"`
	Name               string      `json:"name"`
	Archetype          string      `json:"archetype"`
	Description        string      `json:"description,omitempty"`
	MaxHealth          int         `json:"maxHealth"`
	ArmorClass         int         `json:"armorClass"`
	Speed              int         `json:"speed"`
	Stats              Stats       `json:"stats"`
	Attack             NPCAttack   `json:"attack"`
	LootTable          []LootEntry `json:"lootTable"`
	DefaultDisposition Disposition `json:"defaultDisposition"`
}

// NPCInstance is one placed occurrence of a definition in a session
type NPCInstance struct {
	ID            string      `json:"id"`
	GameID        string      `json:"gameId"`
	MapID         string      `json:"mapId"`
	Slug          string      `json:"slug"`
	Name          string      `json:"name"`
	CurrentHealth int         `json:"currentHealth"`
	MaxHealth     int         `json:"maxHealth"`
	StatusEffects []string    `json:"statusEffects"`
	Disposition   Disposition `json:"disposition"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// ApplyDamage lowers health, never below zero, and returns the amount lost
func (n *NPCInstance) ApplyDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := n.CurrentHealth
	n.CurrentHealth = clamp(n.CurrentHealth-amount, 0, n.MaxHealth)
	return before - n.CurrentHealth
}

// Heal raises health, never above max, and returns the amount gained
func (n *NPCInstance) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := n.CurrentHealth
	n.CurrentHealth = clamp(n.CurrentHealth+amount, 0, n.MaxHealth)
	return n.CurrentHealth - before
}

// IsDefeated reports whether the NPC is at zero health
func (n *NPCInstance) IsDefeated() bool {
	return n.CurrentHealth <= 0
}

// HasStatus reports whether effect is active
func (n *NPCInstance) HasStatus(effect string) bool {
	for _, e := range n.StatusEffects {
		if e == effect {
			return true
		}
	}
	return false
}

// StatusDefeated is added to an NPC's effects when it drops to zero health
const StatusDefeated = "defeated"
