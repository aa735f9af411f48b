/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: backend.go
Description: Automaton backend contract consumed by the learner, and a reference
implementation over explicit transition relations. The reference backend answers
membership by subset simulation and equivalence by a breadth-first search over pairs of
state sets, which returns a shortest (graded-lexicographically least) counterexample.
*/

package automaton

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kleascm/regular-learner/pkg/alphabet"
)

// Automaton is an opaque handle produced by a Backend
type Automaton interface {
	AlphabetSize() int
}

// Backend builds automata and answers membership and equivalence questions about them.
// Determinization and minimization, if any, are the backend's business.
type Backend interface {
	// Construct builds an automaton from an explicit description
	Construct(deterministic bool, alphabetSize, stateCount int, initial, final []int, transitions []Transition) (Automaton, error)

	// Contains reports whether the automaton accepts w
	Contains(a Automaton, w alphabet.Word) bool

	// Equivalence compares a with a conjecture. When they differ it returns a
	// word on which they disagree.
	Equivalence(a Automaton, c *Conjecture) (counterexample alphabet.Word, equal bool, err error)
}

// explicit is the reference backend's automaton: a validated conjecture plus
// its successor index
type explicit struct {
	desc *Conjecture
	succ [][][]int
}

func (e *explicit) AlphabetSize() int {
	return e.desc.AlphabetSize
}

// ReferenceBackend is a straightforward Backend over explicit automata
type ReferenceBackend struct{}

// NewReferenceBackend returns the reference backend
func NewReferenceBackend() *ReferenceBackend {
	return &ReferenceBackend{}
}

// Construct validates the description and indexes its transitions
func (b *ReferenceBackend) Construct(deterministic bool, alphabetSize, stateCount int, initial, final []int, transitions []Transition) (Automaton, error) {
	desc := &Conjecture{
		Deterministic: deterministic,
		AlphabetSize:  alphabetSize,
		StateCount:    stateCount,
		Initial:       append([]int(nil), initial...),
		Final:         append([]int(nil), final...),
		Transitions:   append([]Transition(nil), transitions...),
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &explicit{desc: desc, succ: desc.successors()}, nil
}

// FromConjecture is Construct fed from an existing description
func (b *ReferenceBackend) FromConjecture(c *Conjecture) (Automaton, error) {
	return b.Construct(c.Deterministic, c.AlphabetSize, c.StateCount, c.Initial, c.Final, c.Transitions)
}

func (b *ReferenceBackend) unwrap(a Automaton) (*explicit, error) {
	e, ok := a.(*explicit)
	if !ok || e == nil {
		return nil, fmt.Errorf("%w: automaton %T not built by the reference backend", ErrInvalidAutomaton, a)
	}
	return e, nil
}

// Contains reports whether a accepts w
func (b *ReferenceBackend) Contains(a Automaton, w alphabet.Word) bool {
	e, err := b.unwrap(a)
	if err != nil {
		return false
	}
	current := newStateSet(e.desc.StateCount, e.desc.Initial)
	for _, s := range w {
		if s < 0 || int(s) >= e.desc.AlphabetSize {
			return false
		}
		current = current.step(e.succ, s)
	}
	return current.intersects(e.desc.Final)
}

// Equivalence searches the product of both subset automata breadth first. The
// conjecture's alphabet may be smaller than the target's; missing symbols reject.
func (b *ReferenceBackend) Equivalence(a Automaton, c *Conjecture) (alphabet.Word, bool, error) {
	e, err := b.unwrap(a)
	if err != nil {
		return nil, false, err
	}
	if err := c.Validate(); err != nil {
		return nil, false, err
	}

	sigma := e.desc.AlphabetSize
	if c.AlphabetSize > sigma {
		sigma = c.AlphabetSize
	}
	csucc := c.successors()

	type pair struct {
		target, hyp stateSet
		word        alphabet.Word
	}
	start := pair{
		target: newStateSet(e.desc.StateCount, e.desc.Initial),
		hyp:    newStateSet(c.StateCount, c.Initial),
		word:   alphabet.Epsilon(),
	}
	seen := map[string]bool{start.target.key() + "|" + start.hyp.key(): true}
	queue := []pair{start}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if p.target.intersects(e.desc.Final) != p.hyp.intersects(c.Final) {
			return p.word, false, nil
		}
		for s := 0; s < sigma; s++ {
			sym := alphabet.Symbol(s)
			next := pair{word: p.word.Append(sym)}
			if s < e.desc.AlphabetSize {
				next.target = p.target.step(e.succ, sym)
			} else {
				next.target = newStateSet(e.desc.StateCount, nil)
			}
			if s < c.AlphabetSize {
				next.hyp = p.hyp.step(csucc, sym)
			} else {
				next.hyp = newStateSet(c.StateCount, nil)
			}
			k := next.target.key() + "|" + next.hyp.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			queue = append(queue, next)
		}
	}
	return nil, true, nil
}

// Describe returns the description an automaton was built from
func (b *ReferenceBackend) Describe(a Automaton) (*Conjecture, error) {
	e, err := b.unwrap(a)
	if err != nil {
		return nil, err
	}
	cp := *e.desc
	return &cp, nil
}

// stateSet is a set of states of one automaton, kept as a sorted bitmap
type stateSet []bool

func newStateSet(n int, members []int) stateSet {
	s := make(stateSet, n)
	for _, q := range members {
		if q >= 0 && q < n {
			s[q] = true
		}
	}
	return s
}

func (s stateSet) step(succ [][][]int, sym alphabet.Symbol) stateSet {
	next := make(stateSet, len(s))
	for q, in := range s {
		if !in || int(sym) >= len(succ[q]) {
			continue
		}
		for _, d := range succ[q][sym] {
			next[d] = true
		}
	}
	return next
}

func (s stateSet) empty() bool {
	for _, in := range s {
		if in {
			return false
		}
	}
	return true
}

func (s stateSet) intersects(states []int) bool {
	for _, q := range states {
		if q >= 0 && q < len(s) && s[q] {
			return true
		}
	}
	return false
}

func (s stateSet) key() string {
	var members []int
	for q, in := range s {
		if in {
			members = append(members, q)
		}
	}
	parts := make([]string, len(members))
	for i, q := range members {
		parts[i] = strconv.Itoa(q)
	}
	return strings.Join(parts, ",")
}
