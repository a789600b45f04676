// Package rules holds the configurable game-rule data used by character
// creation and combat resolution. Numbers live here rather than in the
// engine so a table can tune them with a YAML file.
package rules

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
)

// Class describes a character class
type Class struct {
	HitDie        int              `yaml:"hitDie" json:"hitDie"`
	AttackAbility entities.Ability `yaml:"attackAbility" json:"attackAbility"`
	SpellAbility  entities.Ability `yaml:"spellAbility,omitempty" json:"spellAbility,omitempty"`
	Spells        []string         `yaml:"spells,omitempty" json:"spells,omitempty"`
}

// Race describes a character race
type Race struct {
	Speed int `yaml:"speed" json:"speed"`
}

// Spell is a castable ability. Attack spells roll against armour class;
// others hit automatically.
type Spell struct {
	Name    string           `yaml:"name" json:"name"`
	APCost  int              `yaml:"apCost" json:"apCost"`
	Range   int              `yaml:"range" json:"range"`
	Attack  bool             `yaml:"attack" json:"attack"`
	Ability entities.Ability `yaml:"ability,omitempty" json:"ability,omitempty"`
	Damage  string           `yaml:"damage,omitempty" json:"damage,omitempty"`
	Heal    string           `yaml:"heal,omitempty" json:"heal,omitempty"`
	Self    bool             `yaml:"self,omitempty" json:"self,omitempty"`
	Minor   bool             `yaml:"minor,omitempty" json:"minor,omitempty"`
}

// Ruleset is the full set of tunable rules
type Ruleset struct {
	Classes map[string]Class `yaml:"classes"`
	Races   map[string]Race  `yaml:"races"`
	Spells  map[string]Spell `yaml:"spells"`
	Skills  []string         `yaml:"skills"`

	// RerollSkills grant one reroll of a critical failure
	RerollSkills []string `yaml:"rerollSkills"`

	MaxSkills int `yaml:"maxSkills"`
	MinLevel  int `yaml:"minLevel"`
	MaxLevel  int `yaml:"maxLevel"`
	MinStat   int `yaml:"minStat"`
	MaxStat   int `yaml:"maxStat"`

	BaseArmorClass       int    `yaml:"baseArmorClass"`
	UnarmedDamage        string `yaml:"unarmedDamage"`
	MeleeRange           int    `yaml:"meleeRange"`
	CriticalHit          int    `yaml:"criticalHit"`
	CriticalFailure      int    `yaml:"criticalFailure"`
	BaseActionPoints     int    `yaml:"baseActionPoints"`
	ActionPointsPerLevel int    `yaml:"actionPointsPerLevel"`
	ActionPointRegen     int    `yaml:"actionPointRegen"`
	DefaultSpeed         int    `yaml:"defaultSpeed"`
	CheckDie             int    `yaml:"checkDie"`
}

// Default returns the built-in ruleset
func Default() *Ruleset {
	return &Ruleset{
		Classes: map[string]Class{
			"fighter": {HitDie: 10, AttackAbility: entities.AbilityStrength},
			"rogue":   {HitDie: 8, AttackAbility: entities.AbilityDexterity},
			"ranger":  {HitDie: 10, AttackAbility: entities.AbilityDexterity, SpellAbility: entities.AbilityWisdom, Spells: []string{"cure_wounds", "hunters_mark"}},
			"wizard":  {HitDie: 6, AttackAbility: entities.AbilityDexterity, SpellAbility: entities.AbilityIntelligence, Spells: []string{"fire_bolt", "magic_missile", "shield"}},
			"cleric":  {HitDie: 8, AttackAbility: entities.AbilityStrength, SpellAbility: entities.AbilityWisdom, Spells: []string{"sacred_flame", "cure_wounds", "healing_word"}},
			"bard":    {HitDie: 8, AttackAbility: entities.AbilityDexterity, SpellAbility: entities.AbilityCharisma, Spells: []string{"vicious_mockery", "healing_word"}},
		},
		Races: map[string]Race{
			"human":    {Speed: 6},
			"elf":      {Speed: 6},
			"dwarf":    {Speed: 5},
			"halfling": {Speed: 5},
			"gnome":    {Speed: 5},
			"orc":      {Speed: 6},
		},
		Spells: map[string]Spell{
			"fire_bolt":       {Name: "Fire Bolt", APCost: 1, Range: 12, Attack: true, Damage: "1d10"},
			"magic_missile":   {Name: "Magic Missile", APCost: 2, Range: 12, Damage: "3d4+3"},
			"sacred_flame":    {Name: "Sacred Flame", APCost: 1, Range: 6, Damage: "1d8"},
			"vicious_mockery": {Name: "Vicious Mockery", APCost: 1, Range: 6, Damage: "1d4"},
			"cure_wounds":     {Name: "Cure Wounds", APCost: 2, Range: 1, Heal: "1d8+2"},
			"healing_word":    {Name: "Healing Word", APCost: 1, Range: 6, Heal: "1d4+2", Minor: true},
			"shield":          {Name: "Shield", APCost: 1, Self: true, Minor: true},
			"hunters_mark":    {Name: "Hunter's Mark", APCost: 1, Range: 18, Minor: true},
		},
		Skills: []string{
			"acrobatics", "animal_handling", "arcana", "athletics", "deception", "history",
			"insight", "intimidation", "investigation", "lucky", "medicine", "nature",
			"perception", "performance", "persuasion", "religion", "sleight_of_hand",
			"stealth", "survival",
		},
		RerollSkills:         []string{"lucky"},
		MaxSkills:            4,
		MinLevel:             1,
		MaxLevel:             20,
		MinStat:              1,
		MaxStat:              30,
		BaseArmorClass:       10,
		UnarmedDamage:        "1d4",
		MeleeRange:           1,
		CriticalHit:          20,
		CriticalFailure:      1,
		BaseActionPoints:     3,
		ActionPointsPerLevel: 1,
		ActionPointRegen:     1,
		DefaultSpeed:         6,
		CheckDie:             20,
	}
}

// Load reads a YAML ruleset. Fields left out keep their Default values and
// maps are merged into the defaults.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Ruleset, error) {
	rs := Default()
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, errors.InvalidArgumentf("invalid ruleset yaml: %v", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Validate checks that every notation parses and every bound is sane
func (r *Ruleset) Validate() error {
	vb := errors.NewValidationBuilder()

	if len(r.Classes) == 0 {
		vb.RequiredField("classes")
	}
	if len(r.Races) == 0 {
		vb.RequiredField("races")
	}
	for name, c := range r.Classes {
		if c.HitDie <= 0 {
			vb.Field("classes."+name+".hitDie", "must be positive")
		}
		for _, spell := range c.Spells {
			if _, ok := r.Spells[spell]; !ok {
				vb.Fieldf("classes."+name+".spells", "unknown spell %q", spell)
			}
		}
	}
	for name, race := range r.Races {
		if race.Speed <= 0 {
			vb.Field("races."+name+".speed", "must be positive")
		}
	}
	for name, spell := range r.Spells {
		if spell.APCost < 0 {
			vb.Field("spells."+name+".apCost", "must not be negative")
		}
		validateNotation("spells."+name+".damage", spell.Damage, vb)
		validateNotation("spells."+name+".heal", spell.Heal, vb)
	}
	validateNotation("unarmedDamage", r.UnarmedDamage, vb)

	if r.MinLevel < 1 || r.MaxLevel < r.MinLevel {
		vb.Field("maxLevel", "level bounds are invalid")
	}
	if r.MinStat < 1 || r.MaxStat < r.MinStat {
		vb.Field("maxStat", "stat bounds are invalid")
	}
	if r.MaxSkills < 0 {
		vb.Field("maxSkills", "must not be negative")
	}
	if r.CriticalHit <= r.CriticalFailure || r.CheckDie < r.CriticalHit {
		vb.Field("criticalHit", "critical range does not fit the check die")
	}
	if r.DefaultSpeed <= 0 {
		vb.Field("defaultSpeed", "must be positive")
	}

	return vb.Build()
}

func validateNotation(field, notation string, vb *errors.ValidationBuilder) {
	if notation == "" {
		return
	}
	if _, err := dice.Parse(notation); err != nil {
		vb.Field(field, errors.GetMessage(err))
	}
}

// HasSkill reports whether skill is in the allowed list
func (r *Ruleset) HasSkill(skill string) bool {
	for _, s := range r.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// CanReroll reports whether any of skills grants a critical-failure reroll
func (r *Ruleset) CanReroll(skills []string) bool {
	for _, skill := range skills {
		for _, reroll := range r.RerollSkills {
			if skill == reroll {
				return true
			}
		}
	}
	return false
}

// ClassNames returns the configured classes sorted
func (r *Ruleset) ClassNames() []string {
	names := make([]string, 0, len(r.Classes))
	for name := range r.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RaceNames returns the configured races sorted
func (r *Ruleset) RaceNames() []string {
	names := make([]string, 0, len(r.Races))
	for name := range r.Races {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Speed returns the race's speed, or the default for unknown races
func (r *Ruleset) Speed(race string) int {
	if def, ok := r.Races[race]; ok && def.Speed > 0 {
		return def.Speed
	}
	return r.DefaultSpeed
}

// MaxHealth is hit die + CON modifier per level, at least 1 per level
func (r *Ruleset) MaxHealth(class string, level int, stats entities.Stats) int {
	hitDie := r.Classes[class].HitDie
	perLevel := hitDie + stats.Modifier(entities.AbilityConstitution)
	if perLevel < 1 {
		perLevel = 1
	}
	return perLevel * level
}

// MaxActionPoints grows with level
func (r *Ruleset) MaxActionPoints(level int) int {
	return r.BaseActionPoints + r.ActionPointsPerLevel*(level-1)
}

// ArmorClass is the base plus DEX modifier plus any equipped armour bonuses
func (r *Ruleset) ArmorClass(c *entities.Character) int {
	ac := r.BaseArmorClass + c.Stats.Modifier(entities.AbilityDexterity)
	for _, slot := range entities.EquipmentSlots {
		if item := c.EquippedItem(slot); item != nil {
			ac += item.ArmorBonus
		}
	}
	return ac
}
