package domain_test

import "github.com/AntonStoeckl/decider-eventstore-go/domain"

type command interface{ isCommand() }

type event interface{ isEvent() }

// light switch family

type switchCommand interface {
	command
	isSwitchCommand()
}

type switchEvent interface {
	event
	isSwitchEvent()
}

type turnOn struct{}
type turnOff struct{}
type turnedOn struct{}
type turnedOff struct{}

func (turnOn) isCommand()        {}
func (turnOn) isSwitchCommand()  {}
func (turnOff) isCommand()       {}
func (turnOff) isSwitchCommand() {}
func (turnedOn) isEvent()        {}
func (turnedOn) isSwitchEvent()  {}
func (turnedOff) isEvent()       {}
func (turnedOff) isSwitchEvent() {}

func switchDecider() domain.Decider[switchCommand, bool, switchEvent] {
	return domain.Decider[switchCommand, bool, switchEvent]{
		InitialState: false,
		Decide: func(c switchCommand, on bool) []switchEvent {
			switch c.(type) {
			case turnOn:
				if on {
					return nil
				}
				return []switchEvent{turnedOn{}}
			case turnOff:
				if !on {
					return nil
				}
				return []switchEvent{turnedOff{}}
			default:
				return nil
			}
		},
		Evolve: func(on bool, e switchEvent) bool {
			switch e.(type) {
			case turnedOn:
				return true
			case turnedOff:
				return false
			default:
				return on
			}
		},
		Terminal: func(on bool) bool { return on },
	}
}

// counter family

type counterCommand interface {
	command
	isCounterCommand()
}

type counterEvent interface {
	event
	isCounterEvent()
}

type increment struct{ By int }
type incremented struct{ By int }
type limitReached struct{ Requested int }

func (increment) isCommand()         {}
func (increment) isCounterCommand()  {}
func (incremented) isEvent()         {}
func (incremented) isCounterEvent()  {}
func (limitReached) isEvent()        {}
func (limitReached) isCounterEvent() {}

const counterLimit = 10

func counterDecider() domain.Decider[counterCommand, int, counterEvent] {
	return domain.Decider[counterCommand, int, counterEvent]{
		InitialState: 0,
		Decide: func(c counterCommand, count int) []counterEvent {
			switch c := c.(type) {
			case increment:
				if count+c.By > counterLimit {
					return []counterEvent{limitReached{Requested: c.By}}
				}
				return []counterEvent{incremented{By: c.By}}
			default:
				return nil
			}
		},
		Evolve: func(count int, e counterEvent) int {
			switch e := e.(type) {
			case incremented:
				return count + e.By
			default:
				return count
			}
		},
		Terminal: func(count int) bool { return count >= counterLimit },
	}
}

// label family

type labelCommand interface {
	command
	isLabelCommand()
}

type labelEvent interface {
	event
	isLabelEvent()
}

type rename struct{ Name string }
type renamed struct{ Name string }

func (rename) isCommand()      {}
func (rename) isLabelCommand() {}
func (renamed) isEvent()       {}
func (renamed) isLabelEvent()  {}

func labelDecider() domain.Decider[labelCommand, string, labelEvent] {
	return domain.Decider[labelCommand, string, labelEvent]{
		InitialState: "",
		Decide: func(c labelCommand, label string) []labelEvent {
			switch c := c.(type) {
			case rename:
				if c.Name == label {
					return nil
				}
				return []labelEvent{renamed(c)}
			default:
				return nil
			}
		},
		Evolve: func(label string, e labelEvent) string {
			switch e := e.(type) {
			case renamed:
				return e.Name
			default:
				return label
			}
		},
	}
}

// never is implemented by no command or event.
type never interface {
	command
	event
	isNever()
}

func emptyDecider() domain.Decider[never, struct{}, never] {
	return domain.Decider[never, struct{}, never]{
		InitialState: struct{}{},
		Decide:       func(never, struct{}) []never { return nil },
		Evolve:       func(s struct{}, _ never) struct{} { return s },
		Terminal:     func(struct{}) bool { return true },
	}
}
