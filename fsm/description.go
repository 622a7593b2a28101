package fsm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/latticelab/lattice/utils"
)

// Description is the external description an FSM is built from.
//
// NumStates, if non-zero, must equal the number of distinct state identifiers
// declared in States. Defects such as missing transition records or transitions
// towards undeclared states are not construction errors: they are reported by
// [FSM.Valid] on the built automaton.
type Description struct {
	NumStates   int                     `yaml:"num_states,omitempty"`
	States      []StateDescription      `yaml:"states"`
	Transitions []TransitionDescription `yaml:"transitions"`
}

// StateDescription declares a state and its accept flag.
type StateDescription struct {
	ID     int  `yaml:"id"`
	Accept bool `yaml:"accept"`
}

// TransitionDescription declares the successors of a state.
type TransitionDescription struct {
	From  int `yaml:"from"`
	Next0 int `yaml:"next0"`
	Next1 int `yaml:"next1"`
}

// New builds an automaton from a description. States are registered in order,
// a repeated identifier overwriting the accept flag of the previous declaration,
// and so are transition records.
func New(desc Description) (*FSM, error) {

	f := newFSM()

	for i, s := range desc.States {
		if s.ID < 0 {
			return nil, fmt.Errorf("cannot New: state %d: negative identifier %d", i, s.ID)
		}
		f.addState(s.ID, s.Accept)
	}

	for i, t := range desc.Transitions {
		if t.From < 0 || t.Next0 < 0 || t.Next1 < 0 {
			return nil, fmt.Errorf("cannot New: transition %d: negative identifier in %d -> (%d, %d)", i, t.From, t.Next0, t.Next1)
		}
		f.addTransition(t.From, t.Next0, t.Next1)
	}

	if desc.NumStates != 0 && desc.NumStates != len(f.states) {
		return nil, fmt.Errorf("cannot New: description announces %d states but declares %d", desc.NumStates, len(f.states))
	}

	return f, nil
}

// Description returns the description of the automaton, sorted by state identifier.
// New(f.Description()) returns an automaton equal to f.
func (f *FSM) Description() Description {

	desc := Description{
		NumStates:   len(f.states),
		States:      make([]StateDescription, 0, len(f.states)),
		Transitions: make([]TransitionDescription, 0, len(f.transitions)),
	}

	for _, id := range utils.GetSortedKeys(f.states) {
		desc.States = append(desc.States, StateDescription{ID: id, Accept: f.states[id].Accept})
	}

	for _, id := range utils.GetSortedKeys(f.transitions) {
		next := f.transitions[id].Next
		desc.Transitions = append(desc.Transitions, TransitionDescription{From: id, Next0: next[0], Next1: next[1]})
	}

	return desc
}

// Load reads an automaton description from a file. Files with a .yaml or .yml
// extension are parsed with ParseYAML, any other file with ParseText.
func Load(path string) (f *FSM, err error) {

	/* #nosec G304 -- loading a user-chosen description file is the purpose of Load */
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot Load: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err = ParseYAML(file)
	default:
		f, err = ParseText(file)
	}

	if err != nil {
		return nil, fmt.Errorf("cannot Load %s: %w", path, err)
	}

	return f, nil
}

// ParseText reads an automaton from its line-oriented text description:
//
//	# comment
//	states 3
//	state 0 reject
//	state 1 accept
//	transition 0 1 2
//
// The states line is optional and may appear once. An accept flag is one of
// accept, reject, 1 or 0. Lines may appear in any order.
func ParseText(r io.Reader) (*FSM, error) {

	var desc Description
	var seenHeader bool

	scanner := bufio.NewScanner(r)

	for line := 1; scanner.Scan(); line++ {

		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}

		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		args := fields[1:]

		switch fields[0] {
		case "states":

			if seenHeader {
				return nil, fmt.Errorf("line %d: duplicate states directive", line)
			}
			seenHeader = true

			v, err := parseInts(line, args, 1)
			if err != nil {
				return nil, err
			}
			desc.NumStates = v[0]

		case "state":

			if len(args) != 2 {
				return nil, fmt.Errorf("line %d: state expects 2 arguments, got %d", line, len(args))
			}

			v, err := parseInts(line, args[:1], 1)
			if err != nil {
				return nil, err
			}

			var accept bool
			switch args[1] {
			case "accept", "1":
				accept = true
			case "reject", "0":
			default:
				return nil, fmt.Errorf("line %d: invalid accept flag %q", line, args[1])
			}

			desc.States = append(desc.States, StateDescription{ID: v[0], Accept: accept})

		case "transition":

			v, err := parseInts(line, args, 3)
			if err != nil {
				return nil, err
			}

			desc.Transitions = append(desc.Transitions, TransitionDescription{From: v[0], Next0: v[1], Next1: v[2]})

		default:
			return nil, fmt.Errorf("line %d: unknown directive %q", line, fields[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot ParseText: %w", err)
	}

	f, err := New(desc)
	if err != nil {
		return nil, fmt.Errorf("cannot ParseText: %w", err)
	}

	return f, nil
}

func parseInts(line int, args []string, want int) ([]int, error) {

	if len(args) != want {
		return nil, fmt.Errorf("line %d: expected %d integer arguments, got %d", line, want, len(args))
	}

	v := make([]int, want)
	for i, arg := range args {
		x, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if x < 0 {
			return nil, fmt.Errorf("line %d: negative value %d", line, x)
		}
		v[i] = x
	}

	return v, nil
}

type yamlDescription struct {
	NumStates   int              `yaml:"num_states"`
	States      []yamlState      `yaml:"states"`
	Transitions []yamlTransition `yaml:"transitions"`
}

type yamlState struct {
	ID     *int `yaml:"id"`
	Accept bool `yaml:"accept"`
}

type yamlTransition struct {
	From  *int `yaml:"from"`
	Next0 *int `yaml:"next0"`
	Next1 *int `yaml:"next1"`
}

// ParseYAML reads an automaton from its YAML description:
//
//	num_states: 2
//	states:
//	  - {id: 0, accept: false}
//	  - {id: 1, accept: true}
//	transitions:
//	  - {from: 0, next0: 0, next1: 1}
//	  - {from: 1, next0: 1, next1: 0}
//
// Unknown keys and omitted identifiers are errors.
func ParseYAML(r io.Reader) (*FSM, error) {

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var yd yamlDescription
	if err := dec.Decode(&yd); err != nil && err != io.EOF {
		return nil, fmt.Errorf("cannot ParseYAML: %w", err)
	}

	desc := Description{
		NumStates:   yd.NumStates,
		States:      make([]StateDescription, len(yd.States)),
		Transitions: make([]TransitionDescription, len(yd.Transitions)),
	}

	for i, s := range yd.States {
		if s.ID == nil {
			return nil, fmt.Errorf("cannot ParseYAML: state %d: missing id", i)
		}
		desc.States[i] = StateDescription{ID: *s.ID, Accept: s.Accept}
	}

	for i, t := range yd.Transitions {
		if t.From == nil || t.Next0 == nil || t.Next1 == nil {
			return nil, fmt.Errorf("cannot ParseYAML: transition %d: from, next0 and next1 are required", i)
		}
		desc.Transitions[i] = TransitionDescription{From: *t.From, Next0: *t.Next0, Next1: *t.Next1}
	}

	f, err := New(desc)
	if err != nil {
		return nil, fmt.Errorf("cannot ParseYAML: %w", err)
	}

	return f, nil
}
