package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/decider-eventstore-go/domain"
)

func Test_Decider_ComputeNewEvents_ReplaysHistoryBeforeDeciding(t *testing.T) {
	// arrange
	decider := counterDecider()
	history := []counterEvent{incremented{By: 4}, incremented{By: 5}}

	// act
	events := decider.ComputeNewEvents(history, increment{By: 2})

	// assert
	assert.Equal(t, []counterEvent{limitReached{Requested: 2}}, events)
}

func Test_Decider_Fold_IsDeterministic(t *testing.T) {
	// arrange
	decider := counterDecider()
	history := []counterEvent{incremented{By: 1}, limitReached{Requested: 20}, incremented{By: 3}}

	// act
	first := decider.Fold(decider.InitialState, history)
	second := decider.Fold(decider.InitialState, history)

	// assert
	assert.Equal(t, 4, first)
	assert.Equal(t, first, second)
}

func Test_Decider_ComputeNewState_ReturnsEvolvedStateAndEvents(t *testing.T) {
	// arrange
	decider := switchDecider()

	// act
	state, events := decider.ComputeNewState(decider.InitialState, turnOn{})

	// assert
	assert.True(t, state)
	assert.Equal(t, []switchEvent{turnedOn{}}, events)
}

func Test_Decider_ComputeNewState_IsIdempotentWhenNoEventsAreDecided(t *testing.T) {
	// arrange
	decider := switchDecider()

	// act
	state, events := decider.ComputeNewState(true, turnOn{})

	// assert
	assert.True(t, state)
	assert.Empty(t, events)
}

func Test_Decider_IsTerminal_IsFalseWithoutTerminalFunction(t *testing.T) {
	decider := labelDecider()

	assert.False(t, decider.IsTerminal("anything"))
}

func Test_Combine_RoutesCommandsToTheDeclaringSide(t *testing.T) {
	// arrange
	combined := domain.Combine[command, event](switchDecider(), counterDecider())

	// act
	switchEvents := combined.Decide(turnOn{}, combined.InitialState)
	counterEvents := combined.Decide(increment{By: 3}, combined.InitialState)

	// assert
	assert.Equal(t, []event{turnedOn{}}, switchEvents)
	assert.Equal(t, []event{incremented{By: 3}}, counterEvents)
}

func Test_Combine_EvolvesOnlyTheDeclaringStateHalf(t *testing.T) {
	// arrange
	combined := domain.Combine[command, event](switchDecider(), counterDecider())

	// act
	state := combined.Fold(combined.InitialState, []event{turnedOn{}, incremented{By: 2}, incremented{By: 5}})

	// assert
	assert.Equal(t, domain.NewTuple2(true, 7), state)
}

func Test_Combine_WithAnEmptyDeciderBehavesLikeTheSingleDecider(t *testing.T) {
	// arrange
	single := counterDecider()
	combined := domain.Combine[counterCommand, counterEvent](single, emptyDecider())
	commands := []counterCommand{increment{By: 4}, increment{By: 8}, increment{By: 6}}

	state := single.InitialState
	combinedState := combined.InitialState

	for _, c := range commands {
		// act
		var events []counterEvent
		var combinedEvents []counterEvent
		state, events = single.ComputeNewState(state, c)
		combinedState, combinedEvents = combined.ComputeNewState(combinedState, c)

		// assert
		assert.Equal(t, events, combinedEvents)
		assert.Equal(t, state, combinedState.First)
	}
}

func Test_Combine_IsAssociative(t *testing.T) {
	// arrange
	left := domain.Combine[command, event](
		domain.Combine[command, event](switchDecider(), counterDecider()),
		labelDecider(),
	)
	right := domain.Combine[command, event](
		switchDecider(),
		domain.Combine[command, event](counterDecider(), labelDecider()),
	)
	commands := []command{turnOn{}, increment{By: 6}, rename{Name: "hall"}, increment{By: 6}, turnOff{}, rename{Name: "hall"}}

	leftState, rightState := left.InitialState, right.InitialState

	for _, c := range commands {
		// act
		var leftEvents, rightEvents []event
		leftState, leftEvents = left.ComputeNewState(leftState, c)
		rightState, rightEvents = right.ComputeNewState(rightState, c)

		// assert
		assert.Equal(t, leftEvents, rightEvents)
	}

	assert.Equal(t, leftState.First.First, rightState.First)
	assert.Equal(t, leftState.First.Second, rightState.Second.First)
	assert.Equal(t, leftState.Second, rightState.Second.Second)
	assert.Equal(t, "hall", leftState.Second)
	assert.Equal(t, 6, leftState.First.Second)
}

func Test_Combine_IsCommutative(t *testing.T) {
	// arrange
	xy := domain.Combine[command, event](switchDecider(), counterDecider())
	yx := domain.Combine[command, event](counterDecider(), switchDecider())
	commands := []command{increment{By: 2}, turnOn{}, turnOn{}, increment{By: 9}}

	xyState, yxState := xy.InitialState, yx.InitialState

	for _, c := range commands {
		// act
		var xyEvents, yxEvents []event
		xyState, xyEvents = xy.ComputeNewState(xyState, c)
		yxState, yxEvents = yx.ComputeNewState(yxState, c)

		// assert
		assert.Equal(t, xyEvents, yxEvents)
	}

	assert.Equal(t, xyState.First, yxState.Second)
	assert.Equal(t, xyState.Second, yxState.First)
}

func Test_Combine_IsTerminalOnlyWhenBothHalvesAre(t *testing.T) {
	combined := domain.Combine[command, event](switchDecider(), counterDecider())

	assert.False(t, combined.IsTerminal(domain.NewTuple2(true, 3)))
	assert.False(t, combined.IsTerminal(domain.NewTuple2(false, 10)))
	assert.True(t, combined.IsTerminal(domain.NewTuple2(true, 10)))
}

func Test_Combine_PanicsWhenAnEventDoesNotFitTheWideEventType(t *testing.T) {
	// arrange
	miswired := domain.Combine[command, counterEvent](switchDecider(), counterDecider())

	// act / assert
	assert.Panics(t, func() {
		miswired.Decide(turnOn{}, miswired.InitialState)
	})
}

func Test_DimapOnState_AdaptsTheStateShape(t *testing.T) {
	// arrange
	type lamp struct{ Lit bool }
	decider := domain.DimapOnState(
		switchDecider(),
		func(l lamp) bool { return l.Lit },
		func(on bool) lamp { return lamp{Lit: on} },
	)

	// act
	state, events := decider.ComputeNewState(decider.InitialState, turnOn{})

	// assert
	assert.Equal(t, lamp{Lit: true}, state)
	assert.Len(t, events, 1)
	assert.True(t, decider.IsTerminal(state))
}

func Test_MapLeftOnCommand_AdaptsTheCommandType(t *testing.T) {
	// arrange
	decider := domain.MapLeftOnCommand(counterDecider(), func(by int) counterCommand {
		return increment{By: by}
	})

	// act
	events := decider.Decide(3, decider.InitialState)

	// assert
	assert.Equal(t, []counterEvent{incremented{By: 3}}, events)
}

func Test_DimapOnEvent_AdaptsTheEventType(t *testing.T) {
	// arrange
	decider := domain.DimapOnEvent(
		counterDecider(),
		func(by int) counterEvent { return incremented{By: by} },
		func(e counterEvent) int {
			if inc, ok := e.(incremented); ok {
				return inc.By
			}
			return 0
		},
	)

	// act
	events := decider.Decide(increment{By: 4}, decider.InitialState)
	state := decider.Fold(decider.InitialState, []int{4, 5})

	// assert
	require.Len(t, events, 1)
	assert.Equal(t, 4, events[0])
	assert.Equal(t, 9, state)
}
