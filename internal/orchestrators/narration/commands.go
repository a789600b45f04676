package narration

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
)

// run applies one command. Bad arguments skip the command; only storage and
// dice failures are returned as errors.
func (o *orchestrator) run(sc *scene, cmd Command) (*CommandResult, error) {
	result := &CommandResult{Tool: cmd.Tool, Raw: cmd.Raw}

	var err error
	switch cmd.Tool {
	case ToolRoll:
		err = o.roll(cmd.Args, result)
	case ToolHealth:
		o.health(sc, cmd.Args, result)
	case ToolInventory:
		o.inventory(sc, cmd.Args, result)
	case ToolCheck, ToolSave:
		err = o.check(sc, cmd.Tool, cmd.Args, result)
	default:
		skip(result, "unknown tool %q", cmd.Tool)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func skip(result *CommandResult, format string, args ...any) {
	result.Applied = false
	result.Skipped = fmt.Sprintf(format, args...)
	result.Description = fmt.Sprintf("Skipped %s: %s", result.Raw, result.Skipped)
}

// roll: [roll: 2d6+1, reason]
func (o *orchestrator) roll(args []string, result *CommandResult) error {
	if len(args) == 0 {
		skip(result, "dice notation is required")
		return nil
	}
	n, err := dice.Parse(args[0])
	if err != nil {
		skip(result, "invalid dice notation %q", args[0])
		return nil
	}
	r, err := o.roller.Roll(n)
	if err != nil {
		return errors.Wrap(err, "failed to roll narration dice")
	}

	result.Applied = true
	result.Roll = r
	result.Description = fmt.Sprintf("Rolled %s", r.Description)
	if len(args) > 1 {
		result.Description = fmt.Sprintf("Rolled %s for %s", r.Description, strings.Join(args[1:], ", "))
	}
	return nil
}

// health: [health: Name, -4] damages, +4 heals, a bare number sets
func (o *orchestrator) health(sc *scene, args []string, result *CommandResult) {
	if len(args) < 2 {
		skip(result, "expected a target and an amount")
		return
	}
	t := sc.find(args[0])
	if t == nil {
		skip(result, "no character or NPC named %q", args[0])
		return
	}
	result.Target = t.name()

	raw := args[1]
	amount, err := strconv.Atoi(raw)
	if err != nil {
		skip(result, "invalid amount %q", raw)
		return
	}

	current, maxHealth := healthOf(t)
	next := amount
	if strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "-") {
		next = current + amount
	}
	next = min(max(next, 0), maxHealth)
	setHealth(t, next)
	sc.touch(t)

	result.Applied = true
	result.Description = fmt.Sprintf("%s health %d -> %d", t.name(), current, next)
	if next == 0 && current > 0 {
		result.Description += fmt.Sprintf(". %s falls", t.name())
	}
}

func healthOf(t *target) (current, maxHealth int) {
	if t.character != nil {
		return t.character.Health, t.character.MaxHealth
	}
	return t.npc.CurrentHealth, t.npc.MaxHealth
}

func setHealth(t *target, value int) {
	if t.character != nil {
		t.character.Health = value
		return
	}
	t.npc.CurrentHealth = value
	hasDefeated := t.npc.HasStatus(entities.StatusDefeated)
	switch {
	case value == 0 && !hasDefeated:
		t.npc.StatusEffects = append(t.npc.StatusEffects, entities.StatusDefeated)
	case value > 0 && hasDefeated:
		t.npc.StatusEffects = slices.DeleteFunc(t.npc.StatusEffects, func(e string) bool {
			return e == entities.StatusDefeated
		})
	}
	if t.token != nil {
		hp := value
		t.token.HitPoints = &hp
	}
}

// inventory: [inventory: Name, add Rope x2] or [inventory: Name, remove Rope]
func (o *orchestrator) inventory(sc *scene, args []string, result *CommandResult) {
	if len(args) < 2 {
		skip(result, "expected a target and a change")
		return
	}
	t := sc.find(args[0])
	if t == nil {
		skip(result, "no character or NPC named %q", args[0])
		return
	}
	result.Target = t.name()
	if t.character == nil {
		skip(result, "%s does not carry an inventory", t.name())
		return
	}

	op, item, qty, ok := parseItemChange(args[1])
	if !ok {
		skip(result, "expected \"add <item>\" or \"remove <item>\", optionally ending in xN")
		return
	}

	c := t.character
	idx := c.FindItemByName(item)
	switch op {
	case "add":
		if idx >= 0 {
			c.Inventory[idx].Quantity += qty
		} else {
			c.Inventory = append(c.Inventory, entities.Item{ID: o.ids.Generate(), Name: item, Quantity: qty})
		}
		result.Description = fmt.Sprintf("%s gains %s x%d", c.Name, item, qty)
	case "remove":
		if idx < 0 {
			skip(result, "%s does not carry %s", c.Name, item)
			return
		}
		for i := 0; i < qty && idx >= 0; i++ {
			c.ConsumeItem(idx)
			idx = c.FindItemByName(item)
		}
		result.Description = fmt.Sprintf("%s loses %s x%d", c.Name, item, qty)
	}
	sc.touch(t)
	result.Applied = true
}

func parseItemChange(arg string) (op, item string, qty int, ok bool) {
	fields := strings.Fields(arg)
	if len(fields) < 2 {
		return "", "", 0, false
	}
	op = strings.ToLower(fields[0])
	if op != "add" && op != "remove" {
		return "", "", 0, false
	}

	qty = 1
	rest := fields[1:]
	last := strings.ToLower(rest[len(rest)-1])
	if len(rest) > 1 && strings.HasPrefix(last, "x") {
		if n, err := strconv.Atoi(last[1:]); err == nil {
			if n < 1 {
				return "", "", 0, false
			}
			qty = n
			rest = rest[:len(rest)-1]
		}
	}
	return op, strings.Join(rest, " "), qty, true
}

// check and save: [check: Name, dexterity, 15]
func (o *orchestrator) check(sc *scene, tool string, args []string, result *CommandResult) error {
	if len(args) < 3 {
		skip(result, "expected a target, an ability and a DC")
		return nil
	}
	t := sc.find(args[0])
	if t == nil {
		skip(result, "no character or NPC named %q", args[0])
		return nil
	}
	result.Target = t.name()

	ability, ok := parseAbility(args[1])
	if !ok {
		skip(result, "unknown ability %q", args[1])
		return nil
	}
	dc, err := strconv.Atoi(args[2])
	if err != nil || dc < 1 {
		skip(result, "invalid DC %q", args[2])
		return nil
	}

	r, err := o.roller.Roll(dice.Notation{Count: 1, Size: o.rules.CheckDie, Modifier: t.stats().Modifier(ability)})
	if err != nil {
		return errors.Wrap(err, "failed to roll narration check")
	}
	success := r.Total >= dc
	outcome := "failure"
	if success {
		outcome = "success"
	}

	result.Applied = true
	result.Roll = r
	result.Success = &success
	result.Description = fmt.Sprintf("%s makes a %s %s (DC %d): %d, %s", t.name(), ability, tool, dc, r.Total, outcome)
	return nil
}

// parseAbility accepts full names and three-letter abbreviations
func parseAbility(s string) (entities.Ability, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range entities.Abilities {
		if s == string(a) || (len(s) == 3 && strings.HasPrefix(string(a), s)) {
			return a, true
		}
	}
	return "", false
}
