package narration

import (
	"context"
	"strings"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/services/placement"
)

// target is a character or NPC instance a command can name
type target struct {
	character *entities.Character
	npc       *entities.NPCInstance
	def       *entities.NPCDefinition
	token     *entities.MapToken
}

func (t *target) name() string {
	if t.character != nil {
		return t.character.Name
	}
	if t.token != nil && t.token.Label != "" {
		return t.token.Label
	}
	return t.npc.Name
}

func (t *target) stats() entities.Stats {
	if t.character != nil {
		return t.character.Stats
	}
	if t.def != nil {
		return t.def.Stats
	}
	return entities.Stats{}
}

func (t *target) defeated() bool {
	if t.character != nil {
		return t.character.IsDefeated()
	}
	return t.npc.IsDefeated()
}

// scene indexes the roster characters and the NPCs on the current map by
// lower-cased name
type scene struct {
	byName  map[string]*target
	changed []*target
}

func (sc *scene) find(name string) *target {
	return sc.byName[strings.ToLower(strings.TrimSpace(name))]
}

func (sc *scene) touch(t *target) {
	for _, c := range sc.changed {
		if c == t {
			return
		}
	}
	sc.changed = append(sc.changed, t)
}

func (o *orchestrator) loadScene(ctx context.Context, session *entities.GameSession) (*scene, error) {
	sc := &scene{byName: map[string]*target{}}

	playerTokens := map[string]*entities.MapToken{}
	npcTokens := map[string]*entities.MapToken{}
	if session.CurrentMapID != "" {
		tokensOut, err := o.tokens.ListForMap(ctx, tokens.ListForMapInput{MapID: session.CurrentMapID})
		if err != nil {
			return nil, err
		}
		for _, t := range tokensOut.Tokens {
			switch t.TokenType {
			case entities.TokenTypePlayer:
				playerTokens[t.CharacterID] = t
			case entities.TokenTypeNPC:
				npcTokens[t.NPCInstanceID] = t
			}
		}
	}

	rosterOut, err := o.games.ListPlayers(ctx, games.ListPlayersInput{GameID: session.ID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rosterOut.Entries))
	for _, entry := range rosterOut.Entries {
		ids = append(ids, entry.CharacterID)
	}
	charsOut, err := o.characters.GetMany(ctx, characters.GetManyInput{IDs: ids})
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		c, ok := charsOut.Characters[id]
		if !ok {
			continue
		}
		sc.byName[strings.ToLower(c.Name)] = &target{character: c, token: playerTokens[id]}
	}

	if session.CurrentMapID == "" {
		return sc, nil
	}
	instancesOut, err := o.npcs.ListInstancesForGame(ctx, npcs.ListInstancesForGameInput{
		GameID: session.ID,
		MapID:  session.CurrentMapID,
	})
	if err != nil {
		return nil, err
	}
	if len(instancesOut.Instances) == 0 {
		return sc, nil
	}
	defsOut, err := o.npcs.ListDefinitions(ctx, npcs.ListDefinitionsInput{})
	if err != nil {
		return nil, err
	}
	defs := make(map[string]*entities.NPCDefinition, len(defsOut.Definitions))
	for _, def := range defsOut.Definitions {
		defs[def.Slug] = def
	}
	for _, inst := range instancesOut.Instances {
		t := &target{npc: inst, def: defs[inst.Slug], token: npcTokens[inst.ID]}
		key := strings.ToLower(t.name())
		// characters win name clashes
		if _, taken := sc.byName[key]; !taken {
			sc.byName[key] = t
		}
	}
	return sc, nil
}

// flush writes every changed character and NPC and keeps their tokens'
// status and hit points in line
func (o *orchestrator) flush(ctx context.Context, sc *scene) error {
	now := o.clock.Now()
	for _, t := range sc.changed {
		if t.character != nil {
			t.character.Clamp()
			t.character.UpdatedAt = now
			if _, err := o.characters.Update(ctx, characters.UpdateInput{Character: t.character}); err != nil {
				return err
			}
		} else {
			t.npc.UpdatedAt = now
			if _, err := o.npcs.UpdateInstance(ctx, npcs.UpdateInstanceInput{Instance: t.npc}); err != nil {
				return err
			}
		}

		if t.token == nil {
			continue
		}
		status := t.token.Status
		switch {
		case t.defeated():
			status = entities.TokenStatusDefeated
		case status == entities.TokenStatusDefeated:
			status = entities.TokenStatusActive
		}
		update := &placement.UpdateTokenStatusInput{TokenID: t.token.ID, Status: status}
		if t.npc != nil {
			hp := t.npc.CurrentHealth
			update.HitPoints = &hp
		}
		if _, err := o.placement.UpdateTokenStatus(ctx, update); err != nil {
			return err
		}
	}
	return nil
}
