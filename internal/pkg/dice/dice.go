// Package dice parses dice notation and rolls it with the rpg-toolkit dice package
package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	toolkitdice "github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
)

//go:generate mockgen -destination=mock/mock.go -package=dicemock github.com/KirkDiggler/tabletop-api/internal/pkg/dice Roller

const (
	maxDiceCount = 100
	maxDieSize   = 1000
)

// Supports "d20", "2d6", "3d6+2", "1d8-1"
var notationRegex = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// Notation is a parsed dice expression
type Notation struct {
	Count    int
	Size     int
	Modifier int
}

// String renders the notation in canonical form
func (n Notation) String() string {
	switch {
	case n.Modifier > 0:
		return fmt.Sprintf("%dd%d+%d", n.Count, n.Size, n.Modifier)
	case n.Modifier < 0:
		return fmt.Sprintf("%dd%d%d", n.Count, n.Size, n.Modifier)
	default:
		return fmt.Sprintf("%dd%d", n.Count, n.Size)
	}
}

// WithModifier returns a copy with extra added to the modifier
func (n Notation) WithModifier(extra int) Notation {
	n.Modifier += extra
	return n
}

// Doubled returns a copy rolling twice as many dice
func (n Notation) Doubled() Notation {
	n.Count *= 2
	return n
}

// Parse reads dice notation such as "2d6+3"
func Parse(notation string) (Notation, error) {
	cleaned := strings.ToLower(strings.ReplaceAll(notation, " ", ""))
	matches := notationRegex.FindStringSubmatch(cleaned)
	if matches == nil {
		return Notation{}, errors.InvalidArgumentf("invalid dice notation: %q (expected format: XdY+Z)", notation)
	}

	count := 1
	if matches[1] != "" {
		c, err := strconv.Atoi(matches[1])
		if err != nil {
			return Notation{}, errors.InvalidArgumentf("invalid dice count in notation: %s", notation)
		}
		count = c
	}

	size, err := strconv.Atoi(matches[2])
	if err != nil {
		return Notation{}, errors.InvalidArgumentf("invalid die size in notation: %s", notation)
	}

	modifier := 0
	if matches[3] != "" {
		modifier, err = strconv.Atoi(matches[3])
		if err != nil {
			return Notation{}, errors.InvalidArgumentf("invalid modifier in notation: %s", notation)
		}
	}

	if count <= 0 || size <= 0 {
		return Notation{}, errors.InvalidArgumentf("dice count and size must be positive: %s", notation)
	}
	if count > maxDiceCount || size > maxDieSize {
		return Notation{}, errors.InvalidArgumentf("dice notation %s exceeds %dd%d", notation, maxDiceCount, maxDieSize)
	}

	return Notation{Count: count, Size: size, Modifier: modifier}, nil
}

// Result is the outcome of one roll
type Result struct {
	Notation    string `json:"notation"`
	Count       int    `json:"count"`
	Dice        []int  `json:"dice,omitempty"`
	DiceTotal   int    `json:"diceTotal"`
	Modifier    int    `json:"modifier"`
	Total       int    `json:"total"`
	Description string `json:"description"`
}

// Natural returns the raw die value of a single-die roll, or 0 for multi-die rolls
func (r *Result) Natural() int {
	if r == nil || r.Count != 1 {
		return 0
	}
	return r.DiceTotal
}

// Roller rolls parsed notation
type Roller interface {
	Roll(n Notation) (*Result, error)
}

// ToolkitRoller rolls with rpg-toolkit's crypto-backed dice
type ToolkitRoller struct{}

// NewRoller creates a Roller backed by rpg-toolkit
func NewRoller() *ToolkitRoller {
	return &ToolkitRoller{}
}

// Roll rolls the dice and applies the modifier
func (r *ToolkitRoller) Roll(n Notation) (*Result, error) {
	roll, err := toolkitdice.NewRoll(n.Count, n.Size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create dice roll")
	}

	diceTotal := roll.GetValue()
	values := parseDescription(roll.GetDescription())

	result := &Result{
		Notation:  n.String(),
		Count:     n.Count,
		Dice:      values,
		DiceTotal: diceTotal,
		Modifier:  n.Modifier,
		Total:     diceTotal + n.Modifier,
	}
	result.Description = Describe(result)
	return result, nil
}

// RollString parses then rolls notation
func RollString(r Roller, notation string) (*Result, error) {
	n, err := Parse(notation)
	if err != nil {
		return nil, err
	}
	return r.Roll(n)
}

// Describe renders a result as "2d6+1: [3 4] +1 = 8"
func Describe(r *Result) string {
	parts := make([]string, len(r.Dice))
	for i, d := range r.Dice {
		parts[i] = strconv.Itoa(d)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: [%s]", r.Notation, strings.Join(parts, " "))
	switch {
	case r.Modifier > 0:
		fmt.Fprintf(&sb, " +%d", r.Modifier)
	case r.Modifier < 0:
		fmt.Fprintf(&sb, " %d", r.Modifier)
	}
	fmt.Fprintf(&sb, " = %d", r.Total)
	return sb.String()
}

// rpg-toolkit describes rolls as "+2d6[3,4]=7" without exposing individual dice
func parseDescription(description string) []int {
	start := strings.Index(description, "[")
	end := strings.Index(description, "]")
	if start < 0 || end <= start {
		return nil
	}

	var values []int
	for _, part := range strings.Split(description[start+1:end], ",") {
		if v, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			values = append(values, v)
		}
	}
	return values
}
