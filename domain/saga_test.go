package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/decider-eventstore-go/domain"
)

// lightSaga names the label after the switch position.
func lightSaga() domain.Saga[switchEvent, labelCommand] {
	return domain.Saga[switchEvent, labelCommand]{
		React: func(e switchEvent) []labelCommand {
			switch e.(type) {
			case turnedOn:
				return []labelCommand{rename{Name: "on"}}
			case turnedOff:
				return []labelCommand{rename{Name: "off"}}
			default:
				return nil
			}
		},
	}
}

// limitSaga switches the light off when the counter hits its limit.
func limitSaga() domain.Saga[counterEvent, switchCommand] {
	return domain.Saga[counterEvent, switchCommand]{
		React: func(e counterEvent) []switchCommand {
			if _, ok := e.(limitReached); ok {
				return []switchCommand{turnOff{}}
			}
			return nil
		},
	}
}

func Test_Saga_React_IgnoresUndeclaredActionResults(t *testing.T) {
	saga := limitSaga()

	assert.Empty(t, saga.React(incremented{By: 1}))
	assert.Equal(t, []switchCommand{turnOff{}}, saga.React(limitReached{}))
}

func Test_CombineSagas_EachSideReactsToWhatItDeclares(t *testing.T) {
	// arrange
	combined := domain.CombineSagas[event, command](lightSaga(), limitSaga())

	// act
	fromSwitch := combined.React(turnedOn{})
	fromCounter := combined.React(limitReached{})
	fromLabel := combined.React(renamed{Name: "x"})

	// assert
	assert.Equal(t, []command{rename{Name: "on"}}, fromSwitch)
	assert.Equal(t, []command{turnOff{}}, fromCounter)
	assert.Empty(t, fromLabel)
}

func Test_MapLeftOnActionResult_AdaptsTheActionResultType(t *testing.T) {
	// arrange
	saga := domain.MapLeftOnActionResult(lightSaga(), func(on bool) switchEvent {
		if on {
			return turnedOn{}
		}
		return turnedOff{}
	})

	// act
	actions := saga.React(false)

	// assert
	assert.Equal(t, []labelCommand{rename{Name: "off"}}, actions)
}

func Test_MapOnAction_AdaptsTheActionType(t *testing.T) {
	// arrange
	saga := domain.MapOnAction(lightSaga(), func(c labelCommand) string {
		return c.(rename).Name
	})

	// act
	actions := saga.React(turnedOn{})

	// assert
	assert.Equal(t, []string{"on"}, actions)
}
