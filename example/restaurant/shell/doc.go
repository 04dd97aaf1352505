// Package shell wires the restaurant domain to the event store and the runtimes
// for the example: Restaurants and the orders placed at them.
//
// It converts between domain events and storable events, adapts the engines to the repositories
// the runtimes need, routes commands through a CommandBus, and keeps state-stored aggregates and
// read models in SQL tables or snapshots.
//
// In Domain-Driven Design or Hexagonal Architecture terminology, this would be
// called the 'infrastructure' layer.
package shell
