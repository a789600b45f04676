package action

import (
	"context"

	"github.com/KirkDiggler/tabletop-api/internal/engine/grid"
	"github.com/KirkDiggler/tabletop-api/internal/engine/rules"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/maps"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/services/gamestate"
	"github.com/KirkDiggler/tabletop-api/internal/services/placement"
)

// combatant is a character or NPC instance together with its token
type combatant struct {
	id        string
	typ       entities.TurnType
	character *entities.Character
	npc       *entities.NPCInstance
	def       *entities.NPCDefinition
	token     *entities.MapToken
}

func (c *combatant) name() string {
	if c.character != nil {
		return c.character.Name
	}
	return c.npc.Name
}

func (c *combatant) position() entities.Point {
	return c.token.Position()
}

func (c *combatant) defeated() bool {
	if c.character != nil {
		return c.character.IsDefeated()
	}
	return c.npc.IsDefeated()
}

func (c *combatant) stats() entities.Stats {
	if c.character != nil {
		return c.character.Stats
	}
	return c.def.Stats
}

func (c *combatant) modifier(a entities.Ability) int {
	return c.stats().Modifier(a)
}

func (c *combatant) speed(r *rules.Ruleset) int {
	switch {
	case c.character != nil && c.character.Speed > 0:
		return c.character.Speed
	case c.character != nil:
		return r.Speed(c.character.Race)
	case c.def.Speed > 0:
		return c.def.Speed
	}
	return r.DefaultSpeed
}

func (c *combatant) armorClass(r *rules.Ruleset) int {
	if c.character != nil {
		return r.ArmorClass(c.character)
	}
	return c.def.ArmorClass
}

// battle is everything one action attempt reads and writes. It is loaded
// fresh inside the transaction of every attempt.
type battle struct {
	resolved *gamestate.ResolveOutput
	turn     entities.TurnState
	mapID    string

	characters map[string]*combatant
	npcs       map[string]*combatant
	grid       *grid.Grid

	dirtyCharacters map[string]bool
	dirtyNPCs       map[string]bool
	dirtyTokens     map[string]bool

	rolls   []*dice.Result
	purpose []string
	entries []*entities.ActivityLogEntry
}

func (b *battle) session() *entities.GameSession {
	return b.resolved.Session
}

// combatant finds a participant by initiative identity
func (b *battle) combatant(id string, typ entities.TurnType) *combatant {
	if typ == entities.TurnTypeNPC {
		return b.npcs[id]
	}
	return b.characters[id]
}

// target finds a participant by id alone
func (b *battle) target(id string) *combatant {
	if c, ok := b.characters[id]; ok {
		return c
	}
	return b.npcs[id]
}

func (b *battle) active() *combatant {
	at := b.turn.ActiveTurn
	return b.combatant(at.EntityID, at.Type)
}

func (b *battle) record(purpose string, r *dice.Result) {
	b.rolls = append(b.rolls, r)
	b.purpose = append(b.purpose, purpose)
}

func (b *battle) touch(c *combatant) {
	if c.character != nil {
		b.dirtyCharacters[c.id] = true
	} else {
		b.dirtyNPCs[c.id] = true
	}
	b.dirtyTokens[c.id] = true
}

func (o *orchestrator) loadBattle(ctx context.Context, resolved *gamestate.ResolveOutput) (*battle, error) {
	session := resolved.Session
	if session.CurrentMapID == "" {
		return nil, errors.FailedPrecondition("no map has been generated for this game")
	}

	b := &battle{
		resolved:        resolved,
		turn:            resolved.State.Turn.Clone(),
		mapID:           session.CurrentMapID,
		characters:      map[string]*combatant{},
		npcs:            map[string]*combatant{},
		dirtyCharacters: map[string]bool{},
		dirtyNPCs:       map[string]bool{},
		dirtyTokens:     map[string]bool{},
	}

	tokensOut, err := o.tokens.ListForMap(ctx, tokens.ListForMapInput{MapID: b.mapID})
	if err != nil {
		return nil, err
	}
	playerTokens := map[string]*entities.MapToken{}
	npcTokens := map[string]*entities.MapToken{}
	for _, t := range tokensOut.Tokens {
		switch t.TokenType {
		case entities.TokenTypePlayer:
			playerTokens[t.CharacterID] = t
		case entities.TokenTypeNPC:
			npcTokens[t.NPCInstanceID] = t
		}
	}

	rosterOut, err := o.games.ListPlayers(ctx, games.ListPlayersInput{GameID: session.ID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rosterOut.Entries))
	for _, entry := range rosterOut.Entries {
		if _, ok := playerTokens[entry.CharacterID]; ok {
			ids = append(ids, entry.CharacterID)
		}
	}
	charsOut, err := o.characters.GetMany(ctx, characters.GetManyInput{IDs: ids})
	if err != nil {
		return nil, err
	}
	for id, c := range charsOut.Characters {
		b.characters[id] = &combatant{
			id:        id,
			typ:       entities.TurnTypePlayer,
			character: c,
			token:     playerTokens[id],
		}
	}

	instancesOut, err := o.npcs.ListInstancesForGame(ctx, npcs.ListInstancesForGameInput{
		GameID: session.ID,
		MapID:  b.mapID,
	})
	if err != nil {
		return nil, err
	}
	if len(instancesOut.Instances) > 0 {
		defsOut, err := o.npcs.ListDefinitions(ctx, npcs.ListDefinitionsInput{})
		if err != nil {
			return nil, err
		}
		defs := make(map[string]*entities.NPCDefinition, len(defsOut.Definitions))
		for _, def := range defsOut.Definitions {
			defs[def.Slug] = def
		}
		for _, inst := range instancesOut.Instances {
			token, ok := npcTokens[inst.ID]
			def, known := defs[inst.Slug]
			if !ok || !known {
				continue
			}
			b.npcs[inst.ID] = &combatant{
				id:    inst.ID,
				typ:   entities.TurnTypeNPC,
				npc:   inst,
				def:   def,
				token: token,
			}
		}
	}

	return b, nil
}

// loadGrid reads the tiles of the current map for movement and range checks
func (o *orchestrator) loadGrid(ctx context.Context, b *battle) (*grid.Grid, error) {
	if b.grid != nil {
		return b.grid, nil
	}
	mapOut, err := o.maps.GetMap(ctx, maps.GetMapInput{ID: b.mapID})
	if err != nil {
		return nil, err
	}
	tilesOut, err := o.maps.GetTilesForMap(ctx, maps.GetTilesForMapInput{MapID: b.mapID})
	if err != nil {
		return nil, err
	}
	b.grid = grid.New(mapOut.Map.Width, mapOut.Map.Height, tilesOut.Tiles)
	return b.grid, nil
}

// flush writes every changed character, NPC instance and token
func (o *orchestrator) flush(ctx context.Context, b *battle) error {
	for id := range b.dirtyCharacters {
		c := b.characters[id]
		c.character.Clamp()
		c.character.UpdatedAt = o.clock.Now()
		if _, err := o.characters.Update(ctx, characters.UpdateInput{Character: c.character}); err != nil {
			return err
		}
	}
	for id := range b.dirtyNPCs {
		c := b.npcs[id]
		c.npc.UpdatedAt = o.clock.Now()
		if _, err := o.npcs.UpdateInstance(ctx, npcs.UpdateInstanceInput{Instance: c.npc}); err != nil {
			return err
		}
	}
	for id := range b.dirtyTokens {
		c := b.target(id)
		if c == nil {
			continue
		}
		status := c.token.Status
		switch {
		case c.defeated():
			status = entities.TokenStatusDefeated
		case status == entities.TokenStatusDefeated:
			status = entities.TokenStatusActive
		}
		update := &placement.UpdateTokenStatusInput{TokenID: c.token.ID, Status: status}
		if c.npc != nil {
			hp := c.npc.CurrentHealth
			update.HitPoints = &hp
		}
		if _, err := o.placement.UpdateTokenStatus(ctx, update); err != nil {
			return err
		}
	}
	return nil
}
