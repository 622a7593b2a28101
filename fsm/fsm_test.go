package fsm

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// divisibleBy3 accepts the binary words, most significant bit first, whose value is a multiple of 3.
func divisibleBy3(t *testing.T) *FSM {
	desc := Description{NumStates: 3}
	for r := 0; r < 3; r++ {
		desc.States = append(desc.States, StateDescription{ID: r, Accept: r == 0})
		desc.Transitions = append(desc.Transitions, TransitionDescription{From: r, Next0: (2 * r) % 3, Next1: (2*r + 1) % 3})
	}
	f, err := New(desc)
	require.NoError(t, err)
	require.True(t, f.Valid())
	return f
}

// divisibleBy3Redundant recognizes the same language as divisibleBy3 with
// every remainder duplicated and two unreachable states.
func divisibleBy3Redundant(t *testing.T) *FSM {
	var desc Description
	for s := 0; s < 6; s++ {
		r := s % 3
		desc.States = append(desc.States, StateDescription{ID: s, Accept: r == 0})
		desc.Transitions = append(desc.Transitions, TransitionDescription{
			From:  s,
			Next0: (2*r)%3 + 3*((s+1)%2),
			Next1: (2*r+1)%3 + 3*(s%2),
		})
	}
	desc.States = append(desc.States, StateDescription{ID: 10, Accept: true}, StateDescription{ID: 11})
	desc.Transitions = append(desc.Transitions,
		TransitionDescription{From: 10, Next0: 11, Next1: 0},
		TransitionDescription{From: 11, Next0: 10, Next1: 11})
	f, err := New(desc)
	require.NoError(t, err)
	require.True(t, f.Valid())
	return f
}

// evenOnes accepts the words with an even number of ones.
func evenOnes(t *testing.T) *FSM {
	f, err := ParseText(strings.NewReader(`
states 2
state 0 accept
state 1 reject
transition 0 0 1
transition 1 1 0
`))
	require.NoError(t, err)
	return f
}

// randomFSM returns a valid automaton with n states whose identifiers are sparse.
func randomFSM(r *rand.Rand, n int) *FSM {
	f := newFSM()
	id := func(i int) int { return 7 * i }
	for i := 0; i < n; i++ {
		f.addState(id(i), r.Intn(3) == 0)
		f.addTransition(id(i), id(r.Intn(n)), id(r.Intn(n)))
	}
	return f
}

// words returns every binary word of length at most maxLen.
func words(maxLen int) (w [][]bool) {
	w = [][]bool{{}}
	for prev := w; maxLen > 0; maxLen-- {
		var next [][]bool
		for _, p := range prev {
			for _, b := range []bool{false, true} {
				next = append(next, append(append([]bool{}, p...), b))
			}
		}
		w = append(w, next...)
		prev = next
	}
	return
}

func verdicts(f *FSM, ws [][]bool) []bool {
	v := make([]bool, len(ws))
	for i, w := range ws {
		v[i] = f.Accepts(w)
	}
	return v
}

// signature returns the verdicts of the words of ws started from state s.
func signature(f *FSM, s int, ws [][]bool) string {
	var sb strings.Builder
	for _, w := range ws {
		f.current = s
		for _, b := range w {
			f.ApplyTransition(b)
		}
		if f.IsInAcceptState() {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func TestFSM(t *testing.T) {
	testValidity(t)
	testExecution(t)
	testMinimization(t)
	testMinimizationRandom(t)
	testEquivalence(t)
	testDescription(t)
	testMarshalBinary(t)
}

func testValidity(t *testing.T) {

	t.Run("Valid", func(t *testing.T) {
		require.NoError(t, divisibleBy3(t).Validate())
		require.True(t, divisibleBy3Redundant(t).Valid())
	})

	for _, tc := range []struct {
		name  string
		build func(f *FSM)
	}{
		{"Empty", func(f *FSM) {}},
		{"MissingInitialState", func(f *FSM) {
			f.addState(1, true)
			f.addTransition(1, 1, 1)
		}},
		{"MissingTransition", func(f *FSM) {
			f.addState(0, false)
			f.addState(1, true)
			f.addTransition(0, 1, 1)
		}},
		{"DanglingTarget", func(f *FSM) {
			f.addState(0, false)
			f.addTransition(0, 0, 5)
		}},
		{"UndeclaredSource", func(f *FSM) {
			f.addState(0, false)
			f.addTransition(0, 0, 0)
			f.addTransition(3, 0, 0)
		}},
	} {
		t.Run("Invalid/"+tc.name, func(t *testing.T) {
			f := newFSM()
			tc.build(f)
			require.False(t, f.Valid())
			require.ErrorIs(t, f.Validate(), ErrInvalid)
		})
	}

	t.Run("Invalid/DanglingTargets", func(t *testing.T) {
		f := newFSM()
		f.addState(0, false)
		f.addState(1, true)
		f.addTransition(0, 9, 1)
		f.addTransition(1, 5, 9)
		err := f.Validate()
		require.ErrorIs(t, err, ErrInvalid)
		require.Contains(t, err.Error(), "undeclared states [5 9]")
	})

	t.Run("TransitionBeforeState", func(t *testing.T) {
		f := newFSM()
		f.addTransition(0, 1, 0)
		f.addTransition(1, 1, 1)
		require.False(t, f.Valid())
		f.addState(1, true)
		f.addState(0, true)
		f.addState(0, false)
		require.True(t, f.Valid())
		require.False(t, f.States()[0].Accept)
		require.Equal(t, 2, f.NumStates())
	})
}

func testExecution(t *testing.T) {

	t.Run("Execution", func(t *testing.T) {

		f := divisibleBy3(t)
		require.Equal(t, 0, f.ReadState())
		require.True(t, f.IsInAcceptState())

		// 6 = 110
		f.ApplyTransition(true)
		f.ApplyTransition(true)
		require.Equal(t, 0, f.ReadState())
		f.ApplyTransition(false)
		require.True(t, f.IsInAcceptState())

		// 7 = 111
		f.Reset()
		require.Equal(t, 0, f.CurrentState())
		for i := 0; i < 3; i++ {
			f.ApplyTransition(true)
		}
		require.Equal(t, 1, f.ReadState())
		require.False(t, f.IsInAcceptState())

		for v := 0; v < 256; v++ {
			var w []bool
			for i := 7; i >= 0; i-- {
				w = append(w, (v>>i)&1 == 1)
			}
			require.Equal(t, v%3 == 0, f.Accepts(w), "v=%d", v)
		}
	})

	t.Run("Execution/Determinism", func(t *testing.T) {

		r := rand.New(rand.NewSource(1))
		f := randomFSM(r, 9)

		for i := 0; i < 64; i++ {
			w := make([]bool, r.Intn(40))
			for j := range w {
				w[j] = r.Intn(2) == 1
			}

			f.Reset()
			for _, b := range w {
				f.ApplyTransition(b)
			}
			state, verdict := f.ReadState(), f.IsInAcceptState()

			f.Reset()
			for _, b := range w {
				f.ApplyTransition(b)
			}
			require.Equal(t, state, f.ReadState())
			require.Equal(t, verdict, f.IsInAcceptState())
			require.Equal(t, verdict, f.Accepts(w))
		}
	})

	t.Run("Execution/AcceptsBits", func(t *testing.T) {
		f := evenOnes(t)
		require.True(t, f.AcceptsBits([]byte{0b00000011}, 8))
		require.False(t, f.AcceptsBits([]byte{0b00000011}, 1))
		require.False(t, f.AcceptsBits([]byte{0xff, 0x01}, 9))
		require.True(t, f.AcceptsBits(nil, 0))
		require.Panics(t, func() { f.AcceptsBits([]byte{0}, 9) })
	})

	t.Run("Execution/Invalid", func(t *testing.T) {

		f := newFSM()
		f.addState(0, false)
		require.Panics(t, func() { f.ApplyTransition(false) })

		f.addTransition(0, 0, 4)
		f.ApplyTransition(true)
		require.Equal(t, 4, f.ReadState())
		require.Panics(t, func() { f.IsInAcceptState() })
		require.Panics(t, func() { f.ApplyTransition(true) })
	})

	t.Run("CopyNew", func(t *testing.T) {

		f := divisibleBy3(t)
		f.ApplyTransition(true)

		g := f.CopyNew()
		require.True(t, f.Equal(g))
		require.Equal(t, f.ReadState(), g.ReadState())

		g.addState(0, false)
		g.addTransition(2, 0, 0)
		g.ApplyTransition(false)

		require.True(t, f.States()[0].Accept)
		require.Equal(t, Transition{Next: [2]int{1, 2}}, f.Transitions()[2])
		require.Equal(t, 1, f.ReadState())
		require.False(t, f.Equal(g))

		states := f.States()
		states[0] = State{Accept: false}
		require.True(t, f.States()[0].Accept)

		transitions := f.Transitions()
		transitions[0] = Transition{Next: [2]int{2, 2}}
		require.Equal(t, Transition{Next: [2]int{0, 1}}, f.Transitions()[0])
	})
}

func testMinimization(t *testing.T) {

	ws := words(10)

	t.Run("Minimize/AlreadyMinimal", func(t *testing.T) {

		f := divisibleBy3(t)
		before := verdicts(f, ws)

		f.ApplyTransition(true)

		n, err := f.HopcroftOptimization()
		require.NoError(t, err)
		require.Equal(t, 3, n)
		require.Equal(t, n, f.NumStates())
		require.Equal(t, 0, f.ReadState())
		require.True(t, f.Valid())
		require.Equal(t, before, verdicts(f, ws))

		// Canonical numbering already matches
		require.True(t, f.Equal(divisibleBy3(t)))
	})

	t.Run("Minimize/Redundant", func(t *testing.T) {

		f := divisibleBy3Redundant(t)
		before := verdicts(f, ws)
		require.Equal(t, 8, f.NumStates())

		n, err := f.HopcroftOptimization()
		require.NoError(t, err)
		require.Equal(t, 3, n)
		require.Equal(t, before, verdicts(f, ws))

		for id := range f.States() {
			require.Less(t, id, 3)
		}

		// Idempotence
		g := f.CopyNew()
		n, err = g.HopcroftOptimization()
		require.NoError(t, err)
		require.Equal(t, 3, n)
		require.True(t, f.Equal(g))
	})

	t.Run("Minimize/NoAcceptingState", func(t *testing.T) {

		f := newFSM()
		for i := 0; i < 4; i++ {
			f.addState(i, false)
			f.addTransition(i, (i+1)%4, (i+2)%4)
		}

		n, err := f.HopcroftOptimization()
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, map[int]State{0: {Accept: false}}, f.States())
		require.Equal(t, map[int]Transition{0: {Next: [2]int{0, 0}}}, f.Transitions())
	})

	t.Run("Minimize/AllAccepting", func(t *testing.T) {

		f := newFSM()
		for i := 0; i < 5; i++ {
			f.addState(i, true)
			f.addTransition(i, (i+3)%5, i)
		}

		n, err := f.HopcroftOptimization()
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.True(t, f.Accepts([]bool{true, false, false}))
	})

	t.Run("Minimize/Unreachable", func(t *testing.T) {

		// 0 loops on itself; 1 and 2 are unreachable and distinguishable from 0.
		f := newFSM()
		f.addState(0, false)
		f.addTransition(0, 0, 0)
		f.addState(1, true)
		f.addTransition(1, 0, 2)
		f.addState(2, false)
		f.addTransition(2, 1, 1)

		n, err := f.HopcroftOptimization()
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, map[int]State{0: {Accept: false}}, f.States())
	})

	t.Run("Minimize/Invalid", func(t *testing.T) {

		f := newFSM()
		f.addState(0, true)
		f.addState(1, false)
		f.addTransition(0, 1, 0)

		g := f.CopyNew()

		n, err := f.HopcroftOptimization()
		require.ErrorIs(t, err, ErrInvalid)
		require.Equal(t, 0, n)
		require.True(t, f.Equal(g))
	})
}

func testMinimizationRandom(t *testing.T) {

	r := rand.New(rand.NewSource(0x5eed))

	for i := 0; i < 200; i++ {

		n := 1 + r.Intn(12)
		f := randomFSM(r, n)

		t.Run(fmt.Sprintf("Minimize/Random/%d/N=%d", i, n), func(t *testing.T) {

			ws := words(n + 1)
			before := verdicts(f, ws)

			m := f.CopyNew()
			size, err := m.HopcroftOptimization()
			require.NoError(t, err)

			// Never grows, returns the resulting number of states
			require.LessOrEqual(t, size, n)
			require.Equal(t, size, m.NumStates())
			require.True(t, m.Valid())

			// Same language
			require.Equal(t, before, verdicts(m, ws))

			// Minimal: states are pairwise distinguishable by words shorter than the number of states
			short := words(size)
			seen := map[string]int{}
			for s := 0; s < size; s++ {
				sig := signature(m, s, short)
				prev, dup := seen[sig]
				require.False(t, dup, "states %d and %d are equivalent", prev, s)
				seen[sig] = s
			}

			// Idempotent
			again := m.CopyNew()
			size2, err := again.HopcroftOptimization()
			require.NoError(t, err)
			require.Equal(t, size, size2)
			require.True(t, m.Equal(again))

			// The original automaton is untouched by the copy's minimization
			require.Equal(t, n, f.NumStates())
		})
	}
}

func testEquivalence(t *testing.T) {

	t.Run("Equivalent", func(t *testing.T) {

		a, b := divisibleBy3(t), divisibleBy3Redundant(t)

		ok, err := Equivalent(a, b)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 8, b.NumStates())

		ok, err = Equivalent(a, evenOnes(t))
		require.NoError(t, err)
		require.False(t, ok)

		invalid := newFSM()
		_, err = Equivalent(a, invalid)
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("Fingerprint", func(t *testing.T) {

		fa, err := divisibleBy3(t).Fingerprint()
		require.NoError(t, err)
		fb, err := divisibleBy3Redundant(t).Fingerprint()
		require.NoError(t, err)
		require.Equal(t, fa, fb)

		// Complement
		c := divisibleBy3(t)
		for id, s := range c.States() {
			c.addState(id, !s.Accept)
		}
		fc, err := c.Fingerprint()
		require.NoError(t, err)
		require.NotEqual(t, fa, fc)

		_, err = newFSM().Fingerprint()
		require.ErrorIs(t, err, ErrInvalid)
	})
}

func testDescription(t *testing.T) {

	t.Run("ParseText", func(t *testing.T) {

		f, err := ParseText(strings.NewReader(`
# remainder modulo 3
transition 0 0 1   # transitions may precede states
transition 1 2 0
transition 2 1 2
state 0 accept
state 1 0
state 2 reject
`))
		require.NoError(t, err)
		require.True(t, f.Equal(divisibleBy3(t)))
	})

	t.Run("ParseText/Incomplete", func(t *testing.T) {
		f, err := ParseText(strings.NewReader("state 0 1\nstate 1 0\ntransition 0 1 1\n"))
		require.NoError(t, err)
		require.False(t, f.Valid())
	})

	for _, tc := range []struct {
		name, text string
	}{
		{"UnknownDirective", "node 0 accept"},
		{"BadFlag", "state 0 yes"},
		{"MissingArgument", "transition 0 1"},
		{"NotAnInteger", "transition 0 1 x"},
		{"Negative", "state -1 accept"},
		{"DuplicateHeader", "states 1\nstates 1"},
		{"HeaderMismatch", "states 2\nstate 0 accept\ntransition 0 0 0"},
	} {
		t.Run("ParseText/Error/"+tc.name, func(t *testing.T) {
			_, err := ParseText(strings.NewReader(tc.text))
			require.Error(t, err)
		})
	}

	t.Run("ParseYAML", func(t *testing.T) {

		f, err := ParseYAML(strings.NewReader(`
num_states: 2
states:
  - {id: 0, accept: true}
  - {id: 1, accept: false}
transitions:
  - {from: 0, next0: 0, next1: 1}
  - {from: 1, next0: 1, next1: 0}
`))
		require.NoError(t, err)
		require.True(t, f.Equal(evenOnes(t)))

		_, err = ParseYAML(strings.NewReader("states:\n  - {id: 0, accepting: true}\n"))
		require.Error(t, err)

		_, err = ParseYAML(strings.NewReader("states:\n  - {id: 0}\ntransitions:\n  - {from: 0, next0: 0}\n"))
		require.Error(t, err)

		_, err = ParseYAML(strings.NewReader("states:\n  - {accept: true}\n"))
		require.Error(t, err)

		f, err = ParseYAML(strings.NewReader(""))
		require.NoError(t, err)
		require.False(t, f.Valid())
	})

	t.Run("Description/RoundTrip", func(t *testing.T) {

		f := divisibleBy3Redundant(t)

		g, err := New(f.Description())
		require.NoError(t, err)
		require.True(t, f.Equal(g))

		data, err := yaml.Marshal(f.Description())
		require.NoError(t, err)
		h, err := ParseYAML(bytes.NewReader(data))
		require.NoError(t, err)
		require.True(t, f.Equal(h))
	})

	t.Run("Load", func(t *testing.T) {

		dir := t.TempDir()

		textPath := filepath.Join(dir, "parity.fsm")
		require.NoError(t, os.WriteFile(textPath, []byte("state 0 accept\nstate 1 reject\ntransition 0 0 1\ntransition 1 1 0\n"), 0o600))

		f, err := Load(textPath)
		require.NoError(t, err)
		require.True(t, f.Equal(evenOnes(t)))

		data, err := yaml.Marshal(divisibleBy3(t).Description())
		require.NoError(t, err)
		yamlPath := filepath.Join(dir, "mod3.yaml")
		require.NoError(t, os.WriteFile(yamlPath, data, 0o600))

		f, err = Load(yamlPath)
		require.NoError(t, err)
		require.True(t, f.Equal(divisibleBy3(t)))

		_, err = Load(filepath.Join(dir, "missing.fsm"))
		require.ErrorIs(t, err, os.ErrNotExist)

		badPath := filepath.Join(dir, "bad.yml")
		require.NoError(t, os.WriteFile(badPath, []byte("states: 3\n"), 0o600))
		_, err = Load(badPath)
		require.Error(t, err)
	})

	t.Run("New/Errors", func(t *testing.T) {
		_, err := New(Description{States: []StateDescription{{ID: -2}}})
		require.Error(t, err)
		_, err = New(Description{Transitions: []TransitionDescription{{From: 0, Next0: -1}}})
		require.Error(t, err)
		_, err = New(Description{NumStates: 1})
		require.Error(t, err)
	})
}

func testMarshalBinary(t *testing.T) {

	t.Run("MarshalBinary", func(t *testing.T) {

		f := divisibleBy3Redundant(t)
		f.ApplyTransition(true)

		data, err := f.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, f.BinarySize())

		g := new(FSM)
		require.NoError(t, g.UnmarshalBinary(data))
		require.True(t, f.Equal(g))
		require.Equal(t, f.ReadState(), g.ReadState())

		require.Error(t, new(FSM).UnmarshalBinary(data[:len(data)-3]))
	})

	t.Run("MarshalBinary/Invalid", func(t *testing.T) {

		f := newFSM()
		f.addState(3, true)
		f.addTransition(0, 3, 9)

		var buf bytes.Buffer
		n, err := f.WriteTo(&buf)
		require.NoError(t, err)
		require.Equal(t, int64(f.BinarySize()), n)

		g := new(FSM)
		n, err = g.ReadFrom(&buf)
		require.NoError(t, err)
		require.Equal(t, int64(f.BinarySize()), n)
		require.True(t, f.Equal(g))
		require.False(t, g.Valid())
	})
}
