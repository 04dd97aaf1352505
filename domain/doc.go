// Package domain provides the pure building blocks of the functional core:
// deciders, views and sagas, plus the combinators that compose them.
//
// Nothing in this package performs I/O. A Decider turns a command and the current state into
// new events and folds events into state. A View folds events into a read model. A Saga reacts
// to an action result (usually an event) with follow-up actions (usually commands).
//
// Command and event families are modeled as marker interfaces implemented by value structs.
// Combinators route by type assertion, so a component that does not declare a variant
// ignores it:
//
//	restaurant := core.RestaurantDecider()
//	order := core.RestaurantOrderDecider()
//
//	all := domain.Combine[core.Command, core.Event](restaurant, order)
//	state, events := all.ComputeNewState(all.InitialState, cmd)
//
// All types are immutable values and can be shared between goroutines.
package domain
