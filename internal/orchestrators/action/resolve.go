package action

import (
	"context"
	"fmt"
	"slices"

	"github.com/KirkDiggler/tabletop-api/internal/engine/initiative"
	"github.com/KirkDiggler/tabletop-api/internal/engine/rules"
	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
	"github.com/KirkDiggler/tabletop-api/internal/services/placement"
)

const (
	msgMajorUsed = "major action already used this turn"
	msgMinorUsed = "minor action already used this turn"
)

// resolve dispatches one action. replay is set for rerolls, which neither
// check nor consume the action slot and action points.
func (o *orchestrator) resolve(ctx context.Context, b *battle, actor *combatant, action entities.Action, replay bool) (*Result, error) {
	switch a := action.(type) {
	case entities.MoveAction:
		return o.move(ctx, b, actor, a)
	case entities.BasicAttackAction:
		return o.attack(ctx, b, actor, a, replay)
	case entities.CastSpellAction:
		return o.castSpell(ctx, b, actor, a, replay)
	case entities.UseItemAction:
		return o.useItem(ctx, b, actor, a)
	case entities.EndTurnAction:
		return o.endTurn(b, actor)
	default:
		return nil, errors.InvalidArgumentf("unsupported action %T", action)
	}
}

func (o *orchestrator) move(ctx context.Context, b *battle, actor *combatant, a entities.MoveAction) (*Result, error) {
	if a.Facing != "" && !a.Facing.IsValid() {
		return nil, errors.InvalidArgumentf("unknown facing %q", a.Facing)
	}
	g, err := o.loadGrid(ctx, b)
	if err != nil {
		return nil, err
	}
	if !g.InBounds(a.X, a.Y) {
		return nil, errors.InvalidArgumentf("(%d, %d) is outside the map", a.X, a.Y).
			WithMeta("x", a.X).
			WithMeta("y", a.Y)
	}
	if !g.Walkable(a.X, a.Y) {
		return nil, errors.FailedPreconditionf("tile (%d, %d) is blocked", a.X, a.Y)
	}

	remaining := b.turn.ActiveTurn.RemainingMovement()
	from := actor.position()
	steps, ok := g.PathLength(from, entities.Point{X: a.X, Y: a.Y}, remaining)
	if !ok {
		return nil, errors.FailedPreconditionf("not enough movement: %d squares left", remaining).
			WithMeta("remaining", remaining)
	}

	moved, err := o.placement.MoveToken(ctx, &placement.MoveTokenInput{
		TokenID: actor.token.ID,
		X:       a.X,
		Y:       a.Y,
		Facing:  a.Facing,
	})
	if err != nil {
		return nil, err
	}
	actor.token = moved.Token
	b.turn.ActiveTurn.MovementUsed += steps

	result := &Result{
		Type:        entities.ActionTypeMove,
		ActorID:     actor.id,
		ActorName:   actor.name(),
		Moved:       steps,
		Description: fmt.Sprintf("%s moves %d squares to (%d, %d)", actor.name(), steps, a.X, a.Y),
	}
	b.log(actor, entities.LogTypeMove, result.Description, map[string]any{
		"from":      from,
		"to":        moved.Token.Position(),
		"steps":     steps,
		"remaining": b.turn.ActiveTurn.RemainingMovement(),
	})
	return result, nil
}

// weapon is what a basic attack strikes with
type weapon struct {
	name     string
	damage   string
	reach    int
	toHit    int
	damageUp int
}

func (o *orchestrator) weaponOf(actor *combatant) weapon {
	if actor.npc != nil {
		atk := actor.def.Attack
		w := weapon{name: atk.Name, damage: atk.Damage, reach: max(atk.Range, o.rules.MeleeRange), toHit: atk.Bonus}
		if w.damage == "" {
			w.damage = o.rules.UnarmedDamage
		}
		return w
	}

	ability := entities.AbilityStrength
	if class, ok := o.rules.Classes[actor.character.Class]; ok && class.AttackAbility != "" {
		ability = class.AttackAbility
	}
	mod := actor.modifier(ability)
	w := weapon{name: "Unarmed strike", damage: o.rules.UnarmedDamage, reach: o.rules.MeleeRange, toHit: mod, damageUp: mod}
	if main := actor.character.EquippedItem(entities.SlotMainHand); main != nil && main.Damage != "" {
		w.name = main.Name
		w.damage = main.Damage
		w.reach = max(main.Range, o.rules.MeleeRange)
	}
	return w
}

func (o *orchestrator) attack(ctx context.Context, b *battle, actor *combatant, a entities.BasicAttackAction, replay bool) (*Result, error) {
	if !replay && b.turn.ActiveTurn.MajorActionUsed {
		return nil, errors.FailedPrecondition(msgMajorUsed)
	}
	target, err := b.opponent(actor, a.TargetID)
	if err != nil {
		return nil, err
	}
	w := o.weaponOf(actor)
	if err := o.checkRange(ctx, b, actor, target, w.reach); err != nil {
		return nil, err
	}

	result := &Result{
		Type:       entities.ActionTypeBasicAttack,
		ActorID:    actor.id,
		ActorName:  actor.name(),
		TargetID:   target.id,
		TargetName: target.name(),
	}
	if err := o.strike(b, target, w.toHit, w.damage, w.damageUp, result); err != nil {
		return nil, err
	}
	if !replay {
		b.turn.ActiveTurn.MajorActionUsed = true
	}

	result.Description = describeStrike(actor.name(), w.name, result)
	b.log(actor, entities.LogTypeAttack, result.Description, map[string]any{
		"targetId": target.id,
		"weapon":   w.name,
		"hit":      result.Hit,
		"critical": result.Critical,
		"damage":   result.Damage,
		"rolls":    b.rolls,
	})
	return result, nil
}

// strike rolls to hit against the target's armour class and applies damage
// on a hit. A natural critical hit doubles the damage dice.
func (o *orchestrator) strike(b *battle, target *combatant, toHit int, damage string, damageUp int, result *Result) error {
	roll, err := o.roller.Roll(dice.Notation{Count: 1, Size: o.rules.CheckDie, Modifier: toHit})
	if err != nil {
		return errors.Wrap(err, "failed to roll attack")
	}
	b.record("attack", roll)

	natural := roll.Natural()
	switch {
	case natural == o.rules.CriticalFailure:
		result.CriticalFailure = true
	case natural >= o.rules.CriticalHit:
		result.Hit = true
		result.Critical = true
	default:
		result.Hit = roll.Total >= target.armorClass(o.rules)
	}
	if !result.Hit {
		return nil
	}
	return o.dealDamage(b, target, damage, damageUp, result)
}

func (o *orchestrator) dealDamage(b *battle, target *combatant, damage string, damageUp int, result *Result) error {
	n, err := dice.Parse(damage)
	if err != nil {
		return errors.Wrapf(err, "invalid damage notation %q", damage)
	}
	if result.Critical {
		n = n.Doubled()
	}
	roll, err := o.roller.Roll(n.WithModifier(damageUp))
	if err != nil {
		return errors.Wrap(err, "failed to roll damage")
	}
	b.record("damage", roll)

	if target.character != nil {
		result.Damage = target.character.ApplyDamage(roll.Total)
	} else {
		result.Damage = target.npc.ApplyDamage(roll.Total)
		if target.npc.IsDefeated() && !target.npc.HasStatus(entities.StatusDefeated) {
			target.npc.StatusEffects = append(target.npc.StatusEffects, entities.StatusDefeated)
		}
	}
	result.TargetDefeated = target.defeated()
	if result.Damage > 0 {
		b.touch(target)
	}
	return nil
}

func (o *orchestrator) heal(b *battle, target *combatant, notation string, result *Result) error {
	roll, err := dice.RollString(o.roller, notation)
	if err != nil {
		return errors.Wrap(err, "failed to roll healing")
	}
	b.record("heal", roll)

	if target.character != nil {
		result.Healing = target.character.Heal(roll.Total)
	} else {
		result.Healing = target.npc.Heal(roll.Total)
		if !target.npc.IsDefeated() {
			target.npc.StatusEffects = slices.DeleteFunc(target.npc.StatusEffects, func(e string) bool {
				return e == entities.StatusDefeated
			})
		}
	}
	if result.Healing > 0 {
		b.touch(target)
	}
	return nil
}

func (o *orchestrator) castSpell(ctx context.Context, b *battle, actor *combatant, a entities.CastSpellAction, replay bool) (*Result, error) {
	if actor.character == nil {
		return nil, errors.FailedPrecondition("NPCs cannot cast spells")
	}
	spell, ok := o.rules.Spells[a.Spell]
	if !ok {
		return nil, errors.InvalidArgumentf("unknown spell %q", a.Spell)
	}
	class := o.rules.Classes[actor.character.Class]
	if !slices.Contains(class.Spells, a.Spell) {
		return nil, errors.FailedPreconditionf("a %s cannot cast %s", actor.character.Class, spell.Name)
	}

	if !replay {
		if spell.Minor && b.turn.ActiveTurn.MinorActionUsed {
			return nil, errors.FailedPrecondition(msgMinorUsed)
		}
		if !spell.Minor && b.turn.ActiveTurn.MajorActionUsed {
			return nil, errors.FailedPrecondition(msgMajorUsed)
		}
		if actor.character.ActionPoints < spell.APCost {
			return nil, errors.FailedPreconditionf("not enough action points: %s costs %d, %d left",
				spell.Name, spell.APCost, actor.character.ActionPoints).
				WithMeta("cost", spell.APCost).
				WithMeta("available", actor.character.ActionPoints)
		}
	}

	target, err := o.spellTarget(ctx, b, actor, spell, a.TargetID)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Type:       entities.ActionTypeCastSpell,
		ActorID:    actor.id,
		ActorName:  actor.name(),
		TargetID:   target.id,
		TargetName: target.name(),
	}

	ability := spell.Ability
	if ability == "" {
		ability = class.SpellAbility
	}
	switch {
	case spell.Damage != "" && spell.Attack:
		if err := o.strike(b, target, actor.modifier(ability), spell.Damage, 0, result); err != nil {
			return nil, err
		}
	case spell.Damage != "":
		result.Hit = true
		if err := o.dealDamage(b, target, spell.Damage, 0, result); err != nil {
			return nil, err
		}
	case spell.Heal != "":
		result.Hit = true
		if err := o.heal(b, target, spell.Heal, result); err != nil {
			return nil, err
		}
	default:
		result.Hit = true
	}

	if !replay {
		if spell.Minor {
			b.turn.ActiveTurn.MinorActionUsed = true
		} else {
			b.turn.ActiveTurn.MajorActionUsed = true
		}
		if spell.APCost > 0 {
			actor.character.SpendActionPoints(spell.APCost)
			b.touch(actor)
		}
	}

	result.Description = describeSpell(actor.name(), spell, result)
	b.log(actor, entities.LogTypeSpell, result.Description, map[string]any{
		"spell":    a.Spell,
		"targetId": target.id,
		"hit":      result.Hit,
		"damage":   result.Damage,
		"healing":  result.Healing,
		"apCost":   spell.APCost,
		"rolls":    b.rolls,
	})
	return result, nil
}

// spellTarget picks the target of a spell. Self spells, and healing with no
// target given, affect the caster.
func (o *orchestrator) spellTarget(ctx context.Context, b *battle, actor *combatant, spell rules.Spell, targetID string) (*combatant, error) {
	if spell.Self || (targetID == "" && spell.Heal != "") || targetID == actor.id {
		if spell.Damage != "" {
			return nil, errors.InvalidArgument("cannot target yourself")
		}
		return actor, nil
	}
	if targetID == "" {
		return nil, errors.InvalidArgumentf("%s needs a target", spell.Name)
	}
	target := b.target(targetID)
	if target == nil {
		return nil, errors.NotFoundf("target %s is not on this map", targetID)
	}
	if spell.Damage != "" && target.defeated() {
		return nil, errors.FailedPreconditionf("%s is already defeated", target.name())
	}
	if err := o.checkRange(ctx, b, actor, target, spell.Range); err != nil {
		return nil, err
	}
	return target, nil
}

func (o *orchestrator) useItem(ctx context.Context, b *battle, actor *combatant, a entities.UseItemAction) (*Result, error) {
	if actor.character == nil {
		return nil, errors.FailedPrecondition("NPCs do not carry items")
	}
	if b.turn.ActiveTurn.MinorActionUsed {
		return nil, errors.FailedPrecondition(msgMinorUsed)
	}
	idx := actor.character.FindItem(a.ItemID)
	if idx < 0 {
		return nil, errors.NotFoundf("item %s is not in your inventory", a.ItemID)
	}
	item := actor.character.Inventory[idx]
	if item.Heal == "" && item.Damage == "" {
		return nil, errors.FailedPreconditionf("%s has no use in combat", item.Name)
	}

	target := actor
	if a.TargetID != "" && a.TargetID != actor.id {
		target = b.target(a.TargetID)
		if target == nil {
			return nil, errors.NotFoundf("target %s is not on this map", a.TargetID)
		}
		if err := o.checkRange(ctx, b, actor, target, max(item.Range, o.rules.MeleeRange)); err != nil {
			return nil, err
		}
	}
	if item.Damage != "" && target == actor {
		return nil, errors.InvalidArgument("cannot target yourself")
	}

	result := &Result{
		Type:       entities.ActionTypeUseItem,
		ActorID:    actor.id,
		ActorName:  actor.name(),
		TargetID:   target.id,
		TargetName: target.name(),
		Hit:        true,
	}
	if item.Heal != "" {
		if err := o.heal(b, target, item.Heal, result); err != nil {
			return nil, err
		}
	}
	if item.Damage != "" {
		if err := o.dealDamage(b, target, item.Damage, 0, result); err != nil {
			return nil, err
		}
	}
	if item.Consumable {
		actor.character.ConsumeItem(idx)
		b.touch(actor)
	}
	b.turn.ActiveTurn.MinorActionUsed = true

	result.Description = describeItem(actor.name(), item.Name, result)
	b.log(actor, entities.LogTypeItemUsed, result.Description, map[string]any{
		"itemId":   item.ID,
		"item":     item.Name,
		"targetId": target.id,
		"damage":   result.Damage,
		"healing":  result.Healing,
	})
	return result, nil
}

// endTurn passes the turn to the next undefeated combatant, which gets its
// speed and regains action points
func (o *orchestrator) endTurn(b *battle, actor *combatant) (*Result, error) {
	next := initiative.Advance(&b.turn, func(e entities.InitiativeEntry) bool {
		c := b.combatant(e.EntityID, e.Type)
		return c == nil || c.defeated()
	})

	holder := b.combatant(next.EntityID, next.Type)
	b.turn.ActiveTurn.Speed = o.rules.DefaultSpeed
	if holder != nil {
		b.turn.ActiveTurn.Speed = holder.speed(o.rules)
		if holder.character != nil && o.rules.ActionPointRegen > 0 &&
			holder.character.ActionPoints < holder.character.MaxActionPoints {
			holder.character.RestoreActionPoints(o.rules.ActionPointRegen)
			b.dirtyCharacters[holder.id] = true
		}
	}

	result := &Result{
		Type:        entities.ActionTypeEndTurn,
		ActorID:     actor.id,
		ActorName:   actor.name(),
		Description: fmt.Sprintf("%s ends the turn. %s is up", actor.name(), next.Name),
	}
	b.log(actor, entities.LogTypeTurnEnded, result.Description, map[string]any{
		"next":       next.EntityID,
		"nextType":   next.Type,
		"turnNumber": b.turn.ActiveTurn.TurnNumber,
	})
	return result, nil
}

// opponent resolves the target of an attack
func (b *battle) opponent(actor *combatant, targetID string) (*combatant, error) {
	if targetID == "" {
		return nil, errors.InvalidArgument("target id is required")
	}
	if targetID == actor.id {
		return nil, errors.InvalidArgument("cannot target yourself")
	}
	target := b.target(targetID)
	if target == nil {
		return nil, errors.NotFoundf("target %s is not on this map", targetID)
	}
	if target.defeated() {
		return nil, errors.FailedPreconditionf("%s is already defeated", target.name())
	}
	return target, nil
}

func (o *orchestrator) checkRange(ctx context.Context, b *battle, actor, target *combatant, reach int) error {
	g, err := o.loadGrid(ctx, b)
	if err != nil {
		return err
	}
	if g.InRange(actor.position(), target.position(), reach) {
		return nil
	}
	dist := g.Distance(actor.position(), target.position())
	return errors.FailedPreconditionf("%s is out of range (%d squares, reach %d)", target.name(), dist, reach).
		WithMeta("distance", dist).
		WithMeta("range", reach)
}

func (b *battle) log(actor *combatant, typ entities.LogType, description string, data map[string]any) {
	b.entries = append(b.entries, &entities.ActivityLogEntry{
		ActorID:     actor.id,
		ActorName:   actor.name(),
		Type:        typ,
		Description: description,
		Data:        data,
	})
}

func describeStrike(actor, with string, r *Result) string {
	switch {
	case r.CriticalFailure:
		return fmt.Sprintf("%s fumbles an attack on %s with %s", actor, r.TargetName, with)
	case !r.Hit:
		return fmt.Sprintf("%s misses %s with %s", actor, r.TargetName, with)
	}
	text := fmt.Sprintf("%s hits %s with %s for %d damage", actor, r.TargetName, with, r.Damage)
	if r.Critical {
		text = fmt.Sprintf("%s critically hits %s with %s for %d damage", actor, r.TargetName, with, r.Damage)
	}
	if r.TargetDefeated {
		text += fmt.Sprintf(". %s falls", r.TargetName)
	}
	return text
}

func describeSpell(actor string, spell rules.Spell, r *Result) string {
	switch {
	case r.Healing > 0:
		return fmt.Sprintf("%s casts %s on %s, restoring %d health", actor, spell.Name, r.TargetName, r.Healing)
	case spell.Damage == "":
		return fmt.Sprintf("%s casts %s on %s", actor, spell.Name, r.TargetName)
	}
	return describeStrike(actor, spell.Name, r)
}

func describeItem(actor, item string, r *Result) string {
	if r.Healing > 0 || r.Damage == 0 {
		return fmt.Sprintf("%s uses %s on %s, restoring %d health", actor, item, r.TargetName, r.Healing)
	}
	text := fmt.Sprintf("%s uses %s on %s for %d damage", actor, item, r.TargetName, r.Damage)
	if r.TargetDefeated {
		text += fmt.Sprintf(". %s falls", r.TargetName)
	}
	return text
}
