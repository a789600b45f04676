// Package character implements character management for players. Characters
// are owned by one player and can be rostered in many sessions; changing one
// bumps the state version of each active session it plays in.
package character

//go:generate mockgen -destination=mock/mock_service.go -package=charactermock github.com/KirkDiggler/tabletop-api/internal/orchestrators/character Service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/KirkDiggler/tabletop-api/internal/engine/rules"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/services/gamestate"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

const (
	// MaxNameLength bounds a character name
	MaxNameLength = 100
	// MaxInventory bounds the number of distinct items carried
	MaxInventory = 100
)

// Service defines character management
type Service interface {
	CreateCharacter(ctx context.Context, input *CreateCharacterInput) (*CreateCharacterOutput, error)
	GetCharacter(ctx context.Context, input *GetCharacterInput) (*GetCharacterOutput, error)
	ListCharacters(ctx context.Context, input *ListCharactersInput) (*ListCharactersOutput, error)
	UpdateCharacter(ctx context.Context, input *UpdateCharacterInput) (*UpdateCharacterOutput, error)

	// DeleteCharacter removes the character. Tokens and log entries stay;
	// snapshots show a removed placeholder in its place.
	DeleteCharacter(ctx context.Context, input *DeleteCharacterInput) (*DeleteCharacterOutput, error)
}

// Config holds the dependencies for the character orchestrator
type Config struct {
	DB          *sqlite.DB
	Characters  characters.Repository
	Games       games.Repository
	GameState   gamestate.Service
	Rules       *rules.Ruleset
	IDGenerator idgen.Generator
	Clock       clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.DB == nil {
		vb.RequiredField("DB")
	}
	if c.Characters == nil {
		vb.RequiredField("Characters")
	}
	if c.Games == nil {
		vb.RequiredField("Games")
	}
	if c.GameState == nil {
		vb.RequiredField("GameState")
	}
	if c.Rules == nil {
		vb.RequiredField("Rules")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}

	return vb.Build()
}

type orchestrator struct {
	db         *sqlite.DB
	characters characters.Repository
	games      games.Repository
	state      gamestate.Service
	rules      *rules.Ruleset
	ids        idgen.Generator
	clock      clock.Clock
}

// NewOrchestrator creates a new character orchestrator
func NewOrchestrator(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &orchestrator{
		db:         cfg.DB,
		characters: cfg.Characters,
		games:      cfg.Games,
		state:      cfg.GameState,
		rules:      cfg.Rules,
		ids:        cfg.IDGenerator,
		clock:      cfg.Clock,
	}, nil
}

// CreateCharacter validates the sheet and derives health, action points and
// speed from the ruleset
func (o *orchestrator) CreateCharacter(ctx context.Context, input *CreateCharacterInput) (*CreateCharacterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument("player ID is required")
	}

	sheet := input.Sheet
	if sheet.Level == 0 {
		sheet.Level = o.rules.MinLevel
	}
	if sheet.Skills == nil {
		sheet.Skills = []string{}
	}
	if sheet.Inventory == nil {
		sheet.Inventory = []entities.Item{}
	}
	if sheet.Equipped == nil {
		sheet.Equipped = map[entities.EquipmentSlot]string{}
	}
	if err := o.validateSheet(&sheet); err != nil {
		return nil, err
	}

	now := o.clock.Now()
	maxHealth := o.rules.MaxHealth(sheet.Class, sheet.Level, sheet.Stats)
	maxAP := o.rules.MaxActionPoints(sheet.Level)
	c := &entities.Character{
		ID:              o.ids.Generate(),
		PlayerID:        input.PlayerID,
		PlayerEmail:     input.PlayerEmail,
		Name:            strings.TrimSpace(sheet.Name),
		Level:           sheet.Level,
		Race:            sheet.Race,
		Class:           sheet.Class,
		Stats:           sheet.Stats,
		Skills:          sheet.Skills,
		Health:          maxHealth,
		MaxHealth:       maxHealth,
		ActionPoints:    maxAP,
		MaxActionPoints: maxAP,
		Speed:           o.rules.Speed(sheet.Race),
		Inventory:       sheet.Inventory,
		Equipped:        sheet.Equipped,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	out, err := o.characters.Create(ctx, characters.CreateInput{Character: c})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Character created",
		"character_id", c.ID,
		"player_id", c.PlayerID,
		"class", c.Class,
		"level", c.Level,
	)
	return &CreateCharacterOutput{Character: out.Character}, nil
}

func (o *orchestrator) GetCharacter(ctx context.Context, input *GetCharacterInput) (*GetCharacterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	c, err := o.owned(ctx, input.PlayerID, input.CharacterID)
	if err != nil {
		return nil, err
	}
	return &GetCharacterOutput{Character: c}, nil
}

func (o *orchestrator) ListCharacters(ctx context.Context, input *ListCharactersInput) (*ListCharactersOutput, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.InvalidArgument("player ID is required")
	}

	out, err := o.characters.ListByPlayerID(ctx, characters.ListByPlayerIDInput{PlayerID: input.PlayerID})
	if err != nil {
		return nil, err
	}
	return &ListCharactersOutput{Characters: out.Characters}, nil
}

// UpdateCharacter applies the given fields. Level, class and constitution
// changes recompute max health; health and action points are clamped.
func (o *orchestrator) UpdateCharacter(ctx context.Context, input *UpdateCharacterInput) (*UpdateCharacterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	out := &UpdateCharacterOutput{}
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		c, err := o.owned(ctx, input.PlayerID, input.CharacterID)
		if err != nil {
			return err
		}

		sheet := Sheet{
			Name:      c.Name,
			Level:     c.Level,
			Race:      c.Race,
			Class:     c.Class,
			Stats:     c.Stats,
			Skills:    c.Skills,
			Inventory: c.Inventory,
			Equipped:  c.Equipped,
		}
		applyUpdate(&sheet, input)
		if err := o.validateSheet(&sheet); err != nil {
			return err
		}

		c.Name = strings.TrimSpace(sheet.Name)
		c.Level = sheet.Level
		c.Race = sheet.Race
		c.Class = sheet.Class
		c.Stats = sheet.Stats
		c.Skills = sheet.Skills
		c.Inventory = sheet.Inventory
		c.Equipped = sheet.Equipped
		c.Speed = o.rules.Speed(c.Race)
		c.MaxHealth = o.rules.MaxHealth(c.Class, c.Level, c.Stats)
		c.MaxActionPoints = o.rules.MaxActionPoints(c.Level)
		if input.Health != nil {
			c.Health = *input.Health
		}
		if input.ActionPoints != nil {
			c.ActionPoints = *input.ActionPoints
		}
		c.Clamp()
		c.UpdatedAt = o.clock.Now()

		updated, err := o.characters.Update(ctx, characters.UpdateInput{Character: c})
		if err != nil {
			return err
		}
		out.Character = updated.Character

		out.Games, err = o.bumpSessions(ctx, c.ID, fmt.Sprintf("%s was updated", c.Name), map[string]any{
			"characterId": c.ID,
			"health":      c.Health,
			"maxHealth":   c.MaxHealth,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Character updated",
		"character_id", input.CharacterID,
		"player_id", input.PlayerID,
		"sessions", len(out.Games),
	)
	return out, nil
}

func (o *orchestrator) DeleteCharacter(ctx context.Context, input *DeleteCharacterInput) (*DeleteCharacterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	out := &DeleteCharacterOutput{}
	err := o.db.InTx(ctx, func(ctx context.Context) error {
		c, err := o.owned(ctx, input.PlayerID, input.CharacterID)
		if err != nil {
			return err
		}
		if _, err := o.characters.Delete(ctx, characters.DeleteInput{ID: c.ID}); err != nil {
			return err
		}
		out.Games, err = o.bumpSessions(ctx, c.ID, fmt.Sprintf("%s was removed", c.Name), map[string]any{
			"characterId": c.ID,
			"removed":     true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Character deleted",
		"character_id", input.CharacterID,
		"player_id", input.PlayerID,
		"sessions", len(out.Games),
	)
	return out, nil
}

// owned loads a character, hiding other players' characters as not found
func (o *orchestrator) owned(ctx context.Context, playerID, characterID string) (*entities.Character, error) {
	if playerID == "" {
		return nil, errors.InvalidArgument("player ID is required")
	}
	if characterID == "" {
		return nil, errors.InvalidArgument("character ID is required")
	}

	out, err := o.characters.Get(ctx, characters.GetInput{ID: characterID})
	if err != nil {
		return nil, err
	}
	if out.Character.PlayerID != playerID {
		return nil, errors.NotFoundf("character %s not found", characterID)
	}
	return out.Character, nil
}

// bumpSessions commits a character_updated entry to every active session the
// character is rostered in
func (o *orchestrator) bumpSessions(ctx context.Context, characterID, description string, data map[string]any) ([]string, error) {
	active, err := o.games.ListActiveForCharacter(ctx, games.ListActiveForCharacterInput{CharacterID: characterID})
	if err != nil {
		return nil, err
	}

	for _, gameID := range active.GameIDs {
		sessionOut, err := o.games.Get(ctx, games.GetInput{ID: gameID})
		if err != nil {
			return nil, err
		}
		stateOut, err := o.games.GetState(ctx, games.GetStateInput{GameID: gameID})
		if err != nil {
			return nil, err
		}

		entryData := make(map[string]any, len(data))
		for k, v := range data {
			entryData[k] = v
		}
		if _, err := o.state.Commit(ctx, &gamestate.CommitInput{
			Session:         sessionOut.Session,
			ExpectedVersion: stateOut.State.Version,
			Entries: []*entities.ActivityLogEntry{{
				ActorID:     characterID,
				Type:        entities.LogTypeCharacterEdit,
				Description: description,
				Data:        entryData,
			}},
		}); err != nil {
			return nil, err
		}
	}
	return active.GameIDs, nil
}

func applyUpdate(sheet *Sheet, input *UpdateCharacterInput) {
	if input.Name != nil {
		sheet.Name = *input.Name
	}
	if input.Level != nil {
		sheet.Level = *input.Level
	}
	if input.Race != nil {
		sheet.Race = *input.Race
	}
	if input.Class != nil {
		sheet.Class = *input.Class
	}
	if input.Stats != nil {
		sheet.Stats = *input.Stats
	}
	if input.Skills != nil {
		sheet.Skills = *input.Skills
	}
	if input.Inventory != nil {
		sheet.Inventory = *input.Inventory
	}
	if input.Equipped != nil {
		sheet.Equipped = *input.Equipped
	}
	if sheet.Skills == nil {
		sheet.Skills = []string{}
	}
	if sheet.Inventory == nil {
		sheet.Inventory = []entities.Item{}
	}
	if sheet.Equipped == nil {
		sheet.Equipped = map[entities.EquipmentSlot]string{}
	}
}

func (o *orchestrator) validateSheet(sheet *Sheet) error {
	vb := errors.NewValidationBuilder()

	errors.ValidateRequired("name", sheet.Name, vb)
	errors.ValidateMaxLength("name", sheet.Name, MaxNameLength, vb)
	errors.ValidateRange("level", sheet.Level, o.rules.MinLevel, o.rules.MaxLevel, vb)
	errors.ValidateEnum("class", sheet.Class, o.rules.ClassNames(), vb)
	errors.ValidateEnum("race", sheet.Race, o.rules.RaceNames(), vb)

	for _, a := range entities.Abilities {
		errors.ValidateRange("stats."+string(a), sheet.Stats.Score(a), o.rules.MinStat, o.rules.MaxStat, vb)
	}

	if len(sheet.Skills) > o.rules.MaxSkills {
		vb.Fieldf("skills", "must have at most %d entries", o.rules.MaxSkills)
	}
	seen := make(map[string]bool, len(sheet.Skills))
	for _, skill := range sheet.Skills {
		switch {
		case !o.rules.HasSkill(skill):
			vb.Fieldf("skills", "unknown skill %q", skill)
		case seen[skill]:
			vb.Fieldf("skills", "duplicate skill %q", skill)
		}
		seen[skill] = true
	}

	if len(sheet.Inventory) > MaxInventory {
		vb.Fieldf("inventory", "must have at most %d items", MaxInventory)
	}
	itemIDs := make([]string, 0, len(sheet.Inventory))
	for i, item := range sheet.Inventory {
		field := fmt.Sprintf("inventory[%d]", i)
		if item.ID == "" {
			vb.RequiredField(field + ".id")
		} else if slices.Contains(itemIDs, item.ID) {
			vb.Fieldf(field+".id", "duplicate item id %q", item.ID)
		}
		itemIDs = append(itemIDs, item.ID)
		errors.ValidateRequired(field+".name", item.Name, vb)
		if item.Quantity < 1 {
			vb.Field(field+".quantity", "must be at least 1")
		}
		if item.Range < 0 {
			vb.Field(field+".range", "must not be negative")
		}
		validateNotation(field+".damage", item.Damage, vb)
		validateNotation(field+".heal", item.Heal, vb)
	}

	for slot, itemID := range sheet.Equipped {
		if !slot.IsValid() {
			vb.Fieldf("equipped", "unknown slot %q", slot)
			continue
		}
		if !slices.Contains(itemIDs, itemID) {
			vb.Fieldf("equipped."+string(slot), "item %q is not in the inventory", itemID)
		}
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
