// Package mocks provides mock expectation helpers for common testing patterns
package mocks

import (
	"time"

	"go.uber.org/mock/gomock"

	mockclock "github.com/KirkDiggler/tabletop-api/internal/pkg/clock/mock"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/dice"
	dicemock "github.com/KirkDiggler/tabletop-api/internal/pkg/dice/mock"
)

// ExpectNow makes the clock return now for every call
func ExpectNow(clk *mockclock.MockClock, now time.Time) {
	clk.EXPECT().Now().Return(now).AnyTimes()
}

// ExpectRolls queues dice totals. Each Roll call consumes the next total and
// reports it as the dice sum before the modifier; the first die carries
// whatever the remaining dice (all 1s) leave over.
func ExpectRolls(roller *dicemock.MockRoller, totals ...int) {
	queue := append([]int(nil), totals...)
	roller.EXPECT().Roll(gomock.Any()).DoAndReturn(func(n dice.Notation) (*dice.Result, error) {
		value := queue[0]
		queue = queue[1:]
		return Fixed(n, value), nil
	}).Times(len(totals))
}

// ExpectAnyRolls makes every roll come up as value per die
func ExpectAnyRolls(roller *dicemock.MockRoller, value int) {
	roller.EXPECT().Roll(gomock.Any()).DoAndReturn(func(n dice.Notation) (*dice.Result, error) {
		return Fixed(n, value*n.Count), nil
	}).AnyTimes()
}

// Fixed builds the result of n rolling diceTotal
func Fixed(n dice.Notation, diceTotal int) *dice.Result {
	values := make([]int, n.Count)
	for i := range values {
		values[i] = 1
	}
	values[0] = diceTotal - (n.Count - 1)

	result := &dice.Result{
		Notation:  n.String(),
		Count:     n.Count,
		Dice:      values,
		DiceTotal: diceTotal,
		Modifier:  n.Modifier,
		Total:     diceTotal + n.Modifier,
	}
	result.Description = dice.Describe(result)
	return result
}
