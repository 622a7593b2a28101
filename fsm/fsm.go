// Package fsm implements deterministic finite automata over the binary alphabet {0, 1},
// with validation, bit-by-bit execution and Hopcroft minimization.
//
// An [FSM] has no usable zero value: it is obtained from a [Description]
// (see [New], [ParseText], [ParseYAML] and [Load]) or copied from another
// automaton with [FSM.CopyNew].
package fsm

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/latticelab/lattice/utils"
)

// ErrInvalid is wrapped by every error reporting that an automaton is not
// a total deterministic automaton with initial state 0.
var ErrInvalid = errors.New("invalid automaton")

// InitialState is the state the automaton starts in and returns to on Reset.
const InitialState = 0

// State is the data attached to a state identifier.
type State struct {
	Accept bool
}

// Transition stores the successors of a state: Next[0] on input 0, Next[1] on input 1.
type Transition struct {
	Next [2]int
}

// FSM is a deterministic finite automaton over {0, 1}.
// State identifiers need not be contiguous until the automaton is minimized.
// An FSM is not safe for concurrent use if any goroutine calls a mutating method.
type FSM struct {
	states      map[int]State
	transitions map[int]Transition
	current     int
}

func newFSM() *FSM {
	return &FSM{
		states:      map[int]State{},
		transitions: map[int]Transition{},
		current:     InitialState,
	}
}

// addState registers id with the given accept flag, overwriting any previous flag.
func (f *FSM) addState(id int, accept bool) {
	f.states[id] = State{Accept: accept}
}

// addTransition registers the successors of from. The targets do not need
// to be declared yet.
func (f *FSM) addTransition(from, next0, next1 int) {
	f.transitions[from] = Transition{Next: [2]int{next0, next1}}
}

// CopyNew returns a deep copy of the automaton, including its current state.
func (f *FSM) CopyNew() *FSM {
	return &FSM{
		states:      utils.CloneMap(f.states),
		transitions: utils.CloneMap(f.transitions),
		current:     f.current,
	}
}

// States returns a copy of the declared states.
func (f *FSM) States() map[int]State {
	return utils.CloneMap(f.states)
}

// Transitions returns a copy of the transition records.
func (f *FSM) Transitions() map[int]Transition {
	return utils.CloneMap(f.transitions)
}

// NumStates returns the number of declared states.
func (f *FSM) NumStates() int {
	return len(f.states)
}

// CurrentState returns the current state identifier.
func (f *FSM) CurrentState() int {
	return f.current
}

// Equal returns true if both automata have the same states and transitions.
// The current state is not compared.
func (f *FSM) Equal(other *FSM) bool {
	if f == other {
		return true
	}
	if f == nil || other == nil {
		return false
	}
	return cmp.Equal(f.states, other.states) && cmp.Equal(f.transitions, other.transitions)
}

// Reset moves the automaton back to its initial state.
func (f *FSM) Reset() {
	f.current = InitialState
}

// ApplyTransition moves the automaton to the successor of the current state on bit.
// It panics if the current state has no transition record, which cannot happen
// on an automaton for which Valid returns true.
func (f *FSM) ApplyTransition(bit bool) {
	t, ok := f.transitions[f.current]
	if !ok {
		panic(fmt.Errorf("cannot ApplyTransition: state %d has no transition record: %w", f.current, ErrInvalid))
	}
	if bit {
		f.current = t.Next[1]
	} else {
		f.current = t.Next[0]
	}
}

// IsInAcceptState returns true if the current state is accepting.
// It panics if the current state is not declared.
func (f *FSM) IsInAcceptState() bool {
	s, ok := f.states[f.current]
	if !ok {
		panic(fmt.Errorf("cannot IsInAcceptState: state %d is not declared: %w", f.current, ErrInvalid))
	}
	return s.Accept
}

// ReadState returns the current state identifier.
func (f *FSM) ReadState() int {
	return f.current
}

// Accepts resets the automaton, runs word on it and returns the verdict.
func (f *FSM) Accepts(word []bool) bool {
	f.Reset()
	for _, bit := range word {
		f.ApplyTransition(bit)
	}
	return f.IsInAcceptState()
}

// AcceptsBits resets the automaton, runs the first nbits bits of data on it,
// least significant bit of data[0] first, and returns the verdict.
func (f *FSM) AcceptsBits(data []byte, nbits int) bool {
	if nbits < 0 || nbits > len(data)<<3 {
		panic(fmt.Errorf("cannot AcceptsBits: nbits=%d out of range [0, %d]", nbits, len(data)<<3))
	}
	f.Reset()
	for i := 0; i < nbits; i++ {
		f.ApplyTransition((data[i>>3]>>(i&7))&1 == 1)
	}
	return f.IsInAcceptState()
}
