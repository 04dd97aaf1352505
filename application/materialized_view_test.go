package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/decider-eventstore-go/application"
	"github.com/AntonStoeckl/decider-eventstore-go/domain"
)

func Test_MaterializedView_Handle_EvolvesFromInitialState(t *testing.T) {
	// arrange
	repository := newViewRepositoryFake()
	view := givenMaterializedView(t, repository)

	// act
	state, err := view.Handle(context.Background(), registered{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{"registered"}, state)
	assert.Equal(t, []string{"registered"}, repository.states["p1"])
}

func Test_MaterializedView_CatchUp_FoldsInOrder(t *testing.T) {
	// arrange
	repository := newViewRepositoryFake()
	view := givenMaterializedView(t, repository)

	// act
	err := view.CatchUp(context.Background(), []event{registered{id: "p1"}, shipped{id: "p1"}, registered{id: "p2"}})

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{"registered", "shipped"}, repository.states["p1"])
	assert.Equal(t, []string{"registered"}, repository.states["p2"])
}

func Test_MaterializedView_CatchUp_StopsAtFirstFailure(t *testing.T) {
	// arrange
	repository := newViewRepositoryFake()
	repository.saveErr = errors.New("read model store down")
	view := givenMaterializedView(t, repository)

	// act
	err := view.CatchUp(context.Background(), []event{registered{id: "p1"}, shipped{id: "p1"}})

	// assert
	var stepErr *application.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, application.StepSaving, stepErr.Step)
	assert.Equal(t, 1, repository.saveCalls)
}

func Test_NewMaterializedView_Validates(t *testing.T) {
	_, err := application.NewMaterializedView[[]string, event](domain.View[[]string, event]{}, newViewRepositoryFake())
	assert.ErrorIs(t, err, application.ErrIncompleteView)

	_, err = application.NewMaterializedView[[]string, event](historyView(), nil)
	assert.ErrorIs(t, err, application.ErrNilRepository)
}

// historyView lists the kinds of events seen per parcel.
func historyView() domain.View[[]string, event] {
	return domain.View[[]string, event]{
		InitialState: nil,
		Evolve: func(s []string, e event) []string {
			switch e.(type) {
			case registered:
				return append(append([]string{}, s...), "registered")
			case shipped:
				return append(append([]string{}, s...), "shipped")
			default:
				return s
			}
		},
	}
}

type viewRepositoryFake struct {
	states    map[string][]string
	saveErr   error
	saveCalls int
}

func newViewRepositoryFake() *viewRepositoryFake {
	return &viewRepositoryFake{states: make(map[string][]string)}
}

func (r *viewRepositoryFake) FetchState(_ context.Context, e event) ([]string, bool, error) {
	state, found := r.states[eventID(e)]
	return state, found, nil
}

func (r *viewRepositoryFake) Save(_ context.Context, e event, s []string) error {
	r.saveCalls++
	if r.saveErr != nil {
		return r.saveErr
	}

	r.states[eventID(e)] = s

	return nil
}

func eventID(e event) string {
	switch e := e.(type) {
	case registered:
		return e.id
	case shipped:
		return e.id
	default:
		return ""
	}
}

func givenMaterializedView(t *testing.T, repository application.ViewStateRepository[event, []string]) *application.MaterializedView[[]string, event] {
	t.Helper()

	view, err := application.NewMaterializedView[[]string, event](historyView(), repository)
	require.NoError(t, err)

	return view
}
