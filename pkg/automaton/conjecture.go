/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: conjecture.go
Description: The abstract automaton description produced by learning algorithms. A
conjecture lists its alphabet size, state count, initial and final states and its
transition triples; it can be deterministic or not. Provides acceptance by subset
simulation, validation, isomorphism checks and graphviz export.
*/

package automaton

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kleascm/regular-learner/pkg/alphabet"
)

// ErrInvalidAutomaton reports an inconsistent automaton description
var ErrInvalidAutomaton = errors.New("invalid automaton")

// Transition is one (source, label, destination) triple
type Transition struct {
	Source      int             `json:"source" yaml:"source"`
	Label       alphabet.Symbol `json:"label" yaml:"label"`
	Destination int             `json:"destination" yaml:"destination"`
}

// Conjecture is a hypothesis automaton. Ownership passes to whoever receives it.
type Conjecture struct {
	Deterministic bool         `json:"deterministic" yaml:"deterministic"`
	AlphabetSize  int          `json:"alphabet_size" yaml:"alphabet_size"`
	StateCount    int          `json:"state_count" yaml:"state_count"`
	Initial       []int        `json:"initial" yaml:"initial"`
	Final         []int        `json:"final" yaml:"final"`
	Transitions   []Transition `json:"transitions" yaml:"transitions"`
}

// Validate checks that every referenced state and label is in range, and that
// deterministic automata really have one initial state and no branching
func (c *Conjecture) Validate() error {
	if c.AlphabetSize < 0 || c.StateCount < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidAutomaton)
	}
	inRange := func(q int) bool { return q >= 0 && q < c.StateCount }
	for _, q := range c.Initial {
		if !inRange(q) {
			return fmt.Errorf("%w: initial state %d out of range", ErrInvalidAutomaton, q)
		}
	}
	for _, q := range c.Final {
		if !inRange(q) {
			return fmt.Errorf("%w: final state %d out of range", ErrInvalidAutomaton, q)
		}
	}
	seen := make(map[[2]int]bool, len(c.Transitions))
	for _, t := range c.Transitions {
		if !inRange(t.Source) || !inRange(t.Destination) {
			return fmt.Errorf("%w: transition %d -%d-> %d out of range", ErrInvalidAutomaton, t.Source, t.Label, t.Destination)
		}
		if t.Label < 0 || int(t.Label) >= c.AlphabetSize {
			return fmt.Errorf("%w: label %d outside alphabet of size %d", ErrInvalidAutomaton, t.Label, c.AlphabetSize)
		}
		key := [2]int{t.Source, int(t.Label)}
		if c.Deterministic && seen[key] {
			return fmt.Errorf("%w: state %d branches on %d", ErrInvalidAutomaton, t.Source, t.Label)
		}
		seen[key] = true
	}
	if c.Deterministic && len(c.Initial) > 1 {
		return fmt.Errorf("%w: %d initial states in a deterministic automaton", ErrInvalidAutomaton, len(c.Initial))
	}
	return nil
}

// successors indexes the transition relation as [state][symbol] -> destinations
func (c *Conjecture) successors() [][][]int {
	succ := make([][][]int, c.StateCount)
	for q := range succ {
		succ[q] = make([][]int, c.AlphabetSize)
	}
	for _, t := range c.Transitions {
		if t.Source < c.StateCount && int(t.Label) < c.AlphabetSize && t.Label >= 0 {
			succ[t.Source][t.Label] = append(succ[t.Source][t.Label], t.Destination)
		}
	}
	return succ
}

// Accepts runs w through the automaton. Symbols outside the alphabet reject.
func (c *Conjecture) Accepts(w alphabet.Word) bool {
	succ := c.successors()
	current := newStateSet(c.StateCount, c.Initial)
	for _, s := range w {
		if s < 0 || int(s) >= c.AlphabetSize {
			return false
		}
		current = current.step(succ, s)
		if current.empty() {
			return false
		}
	}
	return current.intersects(c.Final)
}

// IsFinal reports whether q is a final state
func (c *Conjecture) IsFinal(q int) bool {
	for _, f := range c.Final {
		if f == q {
			return true
		}
	}
	return false
}

// Delta returns the single successor of q on s in a deterministic conjecture
func (c *Conjecture) Delta(q int, s alphabet.Symbol) (int, bool) {
	for _, t := range c.Transitions {
		if t.Source == q && t.Label == s {
			return t.Destination, true
		}
	}
	return 0, false
}

// Normalize sorts the state lists and transitions so equal automata compare equal
func (c *Conjecture) Normalize() {
	sort.Ints(c.Initial)
	sort.Ints(c.Final)
	sort.Slice(c.Transitions, func(i, j int) bool {
		a, b := c.Transitions[i], c.Transitions[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.Destination < b.Destination
	})
}

// Isomorphic reports whether two deterministic conjectures are equal up to
// renaming of states reachable from the initial state
func Isomorphic(a, b *Conjecture) bool {
	if a.AlphabetSize != b.AlphabetSize || len(a.Initial) != len(b.Initial) {
		return false
	}
	if len(a.Initial) == 0 {
		return true
	}
	if len(a.Initial) != 1 {
		return false
	}

	mapping := map[int]int{a.Initial[0]: b.Initial[0]}
	reverse := map[int]int{b.Initial[0]: a.Initial[0]}
	queue := []int{a.Initial[0]}
	for len(queue) > 0 {
		qa := queue[0]
		queue = queue[1:]
		qb := mapping[qa]
		if a.IsFinal(qa) != b.IsFinal(qb) {
			return false
		}
		for s := 0; s < a.AlphabetSize; s++ {
			na, okA := a.Delta(qa, alphabet.Symbol(s))
			nb, okB := b.Delta(qb, alphabet.Symbol(s))
			if okA != okB {
				return false
			}
			if !okA {
				continue
			}
			if m, seen := mapping[na]; seen {
				if m != nb {
					return false
				}
				continue
			}
			if _, taken := reverse[nb]; taken {
				return false
			}
			mapping[na] = nb
			reverse[nb] = na
			queue = append(queue, na)
		}
	}
	return true
}

// WriteDot renders the conjecture in graphviz format: final states are double
// circles, and each initial state gets an arrow from an invisible node
func (c *Conjecture) WriteDot(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph conjecture {\n")
	b.WriteString("\tgraph [fontsize=10]\n\tedge [fontsize=10]\n\trankdir=LR;\n")
	for q := 0; q < c.StateCount; q++ {
		shape := "circle"
		if c.IsFinal(q) {
			shape = "doublecircle"
		}
		fmt.Fprintf(&b, "\tq%d [shape=%s, label=\"q%d\"];\n", q, shape, q)
	}
	for i, q := range c.Initial {
		fmt.Fprintf(&b, "\tiq%d [shape=point, style=invis];\n\tiq%d -> q%d;\n", i, i, q)
	}

	// merge parallel edges into one labelled arrow
	labels := make(map[[2]int][]string)
	var order [][2]int
	for _, t := range c.Transitions {
		key := [2]int{t.Source, t.Destination}
		if _, ok := labels[key]; !ok {
			order = append(order, key)
		}
		labels[key] = append(labels[key], fmt.Sprint(t.Label))
	}
	for _, key := range order {
		fmt.Fprintf(&b, "\tq%d -> q%d [label=\"%s\"];\n", key[0], key[1], strings.Join(labels[key], ","))
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Dot returns the graphviz rendering as a string
func (c *Conjecture) Dot() string {
	var b strings.Builder
	_ = c.WriteDot(&b)
	return b.String()
}
