package fsm

import (
	"fmt"

	"github.com/latticelab/lattice/utils"
)

// Valid returns true if the automaton is total and deterministic over {0, 1}:
// state 0 is declared, every declared state has a transition record, and every
// state referenced by a transition record is declared. Unreachable states are allowed.
func (f *FSM) Valid() bool {
	return f.Validate() == nil
}

// Validate returns nil if the automaton is valid (see Valid), and otherwise
// an error wrapping ErrInvalid that describes the first violation found.
// Violations are searched in increasing order of state identifier, except
// undeclared transition targets which are all listed in a single error.
func (f *FSM) Validate() error {

	if _, ok := f.states[InitialState]; !ok {
		return fmt.Errorf("%w: initial state %d is not declared", ErrInvalid, InitialState)
	}

	targets := make([]int, 0, 2*len(f.transitions))

	for _, id := range utils.GetSortedKeys(f.transitions) {

		if _, ok := f.states[id]; !ok {
			return fmt.Errorf("%w: transition source %d is not a declared state", ErrInvalid, id)
		}

		next := f.transitions[id].Next
		targets = append(targets, next[0], next[1])
	}

	var dangling []int
	for _, next := range utils.GetDistincts(targets) {
		if _, ok := f.states[next]; !ok {
			dangling = append(dangling, next)
		}
	}

	if len(dangling) != 0 {
		return fmt.Errorf("%w: transitions target undeclared states %v", ErrInvalid, dangling)
	}

	for _, id := range utils.GetSortedKeys(f.states) {
		if _, ok := f.transitions[id]; !ok {
			return fmt.Errorf("%w: state %d has no transition record", ErrInvalid, id)
		}
	}

	return nil
}
