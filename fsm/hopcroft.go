package fsm

import (
	"fmt"
)

// HopcroftOptimization replaces the automaton by the minimal automaton
// recognizing the same language and returns its number of states.
//
// States unreachable from state 0 are discarded, the remaining ones are
// merged with Hopcroft's partition refinement, and the result is numbered in
// breadth-first order from the initial state (input 0 explored before input 1).
// This numbering is canonical: two automata recognizing the same language
// minimize to identical automata. The current state is reset to 0.
//
// If the automaton is invalid, it is left untouched and an error wrapping
// ErrInvalid is returned.
func (f *FSM) HopcroftOptimization() (int, error) {

	if err := f.Validate(); err != nil {
		return 0, fmt.Errorf("cannot HopcroftOptimization: %w", err)
	}

	d := newDenseAutomaton(f)
	p := refine(d)

	// Renumbers the blocks in breadth-first order from the initial block.
	blockID := make([]int, p.numBlocks())
	for i := range blockID {
		blockID[i] = -1
	}

	reps := make([]int, 0, len(blockID))

	root := p.blockOf[0]
	blockID[root] = 0
	reps = append(reps, p.representative(root))

	for head := 0; head < len(reps); head++ {
		for _, next := range d.delta[reps[head]] {
			if b := p.blockOf[next]; blockID[b] == -1 {
				blockID[b] = len(reps)
				reps = append(reps, p.representative(b))
			}
		}
	}

	states := make(map[int]State, len(reps))
	transitions := make(map[int]Transition, len(reps))

	for id, q := range reps {
		states[id] = State{Accept: d.accept[q]}
		transitions[id] = Transition{Next: [2]int{
			blockID[p.blockOf[d.delta[q][0]]],
			blockID[p.blockOf[d.delta[q][1]]],
		}}
	}

	f.states = states
	f.transitions = transitions
	f.current = InitialState

	return len(reps), nil
}

// denseAutomaton is the part of a valid FSM reachable from the initial
// state, with states renamed 0..n-1 in breadth-first order.
type denseAutomaton struct {
	delta  [][2]int
	accept []bool
	// inverse[a][q] lists the predecessors of q on input a.
	inverse [2][][]int
}

func newDenseAutomaton(f *FSM) *denseAutomaton {

	index := map[int]int{InitialState: 0}
	order := []int{InitialState}

	for head := 0; head < len(order); head++ {
		for _, next := range f.transitions[order[head]].Next {
			if _, ok := index[next]; !ok {
				index[next] = len(order)
				order = append(order, next)
			}
		}
	}

	n := len(order)

	d := &denseAutomaton{
		delta:  make([][2]int, n),
		accept: make([]bool, n),
	}

	for a := range d.inverse {
		d.inverse[a] = make([][]int, n)
	}

	for q, id := range order {
		d.accept[q] = f.states[id].Accept
		for a, next := range f.transitions[id].Next {
			d.delta[q][a] = index[next]
			d.inverse[a][index[next]] = append(d.inverse[a][index[next]], q)
		}
	}

	return d
}

// partition is a partition of the states 0..n-1 into blocks. The members of
// block b are elems[first[b]:end[b]], and loc is the inverse permutation of elems.
type partition struct {
	elems   []int
	loc     []int
	blockOf []int
	first   []int
	end     []int
	marked  []int
}

func (p *partition) numBlocks() int {
	return len(p.first)
}

func (p *partition) size(b int) int {
	return p.end[b] - p.first[b]
}

func (p *partition) representative(b int) int {
	return p.elems[p.first[b]]
}

func (p *partition) newBlock(first, end int) (b int) {
	b = len(p.first)
	p.first = append(p.first, first)
	p.end = append(p.end, end)
	p.marked = append(p.marked, 0)
	for _, q := range p.elems[first:end] {
		p.blockOf[q] = b
	}
	return
}

// mark moves q to the marked prefix of its block.
// It returns true if q is the first marked state of its block.
func (p *partition) mark(q int) (firstMark bool) {
	b := p.blockOf[q]
	i := p.loc[q]
	j := p.first[b] + p.marked[b]
	if i < j {
		return false
	}
	p.elems[i], p.elems[j] = p.elems[j], p.elems[i]
	p.loc[p.elems[i]] = i
	p.loc[p.elems[j]] = j
	p.marked[b]++
	return p.marked[b] == 1
}

// split detaches the marked prefix of b into a new block and returns it,
// or returns -1 if every or no state of b is marked.
func (p *partition) split(b int) int {
	m := p.marked[b]
	p.marked[b] = 0
	if m == 0 || m == p.size(b) {
		return -1
	}
	first := p.first[b]
	p.first[b] = first + m
	return p.newBlock(first, first+m)
}

type splitter struct {
	block  int
	symbol int
}

// refine computes the coarsest partition of the states of d that separates
// accepting from rejecting states and is stable under the transitions.
func refine(d *denseAutomaton) *partition {

	n := len(d.delta)

	p := &partition{
		elems:   make([]int, 0, n),
		loc:     make([]int, n),
		blockOf: make([]int, n),
	}

	for q := 0; q < n; q++ {
		if d.accept[q] {
			p.elems = append(p.elems, q)
		}
	}

	nAccept := len(p.elems)

	for q := 0; q < n; q++ {
		if !d.accept[q] {
			p.elems = append(p.elems, q)
		}
	}

	for i, q := range p.elems {
		p.loc[q] = i
	}

	var worklist []splitter
	var inWorklist [2][]bool

	push := func(b, a int) {
		for len(inWorklist[a]) <= b {
			inWorklist[a] = append(inWorklist[a], false)
		}
		if !inWorklist[a][b] {
			inWorklist[a][b] = true
			worklist = append(worklist, splitter{block: b, symbol: a})
		}
	}

	isPending := func(b, a int) bool {
		return b < len(inWorklist[a]) && inWorklist[a][b]
	}

	switch {
	case nAccept == 0 || nAccept == n:
		p.newBlock(0, n)
	default:
		accepting := p.newBlock(0, nAccept)
		rejecting := p.newBlock(nAccept, n)
		smaller := accepting
		if p.size(rejecting) < p.size(accepting) {
			smaller = rejecting
		}
		push(smaller, 0)
		push(smaller, 1)
	}

	var touched []int

	for len(worklist) > 0 {

		s := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		inWorklist[s.symbol][s.block] = false

		// Predecessors of the splitter, collected before any block moves.
		var preds []int
		for _, q := range p.elems[p.first[s.block]:p.end[s.block]] {
			preds = append(preds, d.inverse[s.symbol][q]...)
		}

		touched = touched[:0]
		for _, q := range preds {
			if p.mark(q) {
				touched = append(touched, p.blockOf[q])
			}
		}

		for _, b := range touched {

			nb := p.split(b)
			if nb == -1 {
				continue
			}

			for a := 0; a < 2; a++ {
				if isPending(b, a) {
					push(nb, a)
				} else if p.size(nb) <= p.size(b) {
					push(nb, a)
				} else {
					push(b, a)
				}
			}
		}
	}

	return p
}
