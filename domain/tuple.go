package domain

// Tuple2 is the joined state of two combined components.
type Tuple2[A, B any] struct {
	First  A
	Second B
}

// NewTuple2 builds a Tuple2 from its halves.
func NewTuple2[A, B any](first A, second B) Tuple2[A, B] {
	return Tuple2[A, B]{First: first, Second: second}
}
