/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: derive.go
Description: Conjecture derivation. Angluin tables yield a DFA whose states are the
classes of equal upper rows; RFSA tables yield an NFA whose states are the prime upper
rows.
*/

package table

import (
	"fmt"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/automaton"
)

// Ready reports whether a conjecture can be derived right now. Lenient tables
// and tables that do not enqueue queries do not need every cell answered.
func (t *Table) Ready() bool {
	if t.needsAnswers() {
		return false
	}
	return t.IsClosed() && t.IsConsistent()
}

// needsAnswers reports whether open cells block derivation. A strict table that
// never enqueues queries treats Unknown as an answer of its own.
func (t *Table) needsAnswers() bool {
	return t.unknown == UnknownStrict && t.queries && !t.Complete()
}

// DeriveConjecture builds the hypothesis automaton described by the table
func (t *Table) DeriveConjecture() (*automaton.Conjecture, error) {
	if t.needsAnswers() {
		return nil, fmt.Errorf("%w: unanswered cells", ErrNotReady)
	}
	if !t.IsClosed() {
		return nil, fmt.Errorf("%w: not closed", ErrNotReady)
	}
	if !t.IsConsistent() {
		return nil, fmt.Errorf("%w: not consistent", ErrNotReady)
	}

	var c *automaton.Conjecture
	var err error
	if t.policy == PolicyRFSA {
		c, err = t.deriveRFSA()
	} else {
		c, err = t.deriveDFA()
	}
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (t *Table) deriveDFA() (*automaton.Conjecture, error) {
	var reps []*Row
	class := make(map[*Row]int, len(t.upper))
	for _, u := range t.upper {
		placed := false
		for i, rep := range reps {
			if t.RowsEqual(rep, u) {
				class[u] = i
				placed = true
				break
			}
		}
		if !placed {
			class[u] = len(reps)
			reps = append(reps, u)
		}
	}

	classOf := func(r *Row) (int, bool) {
		if q, ok := class[r]; ok {
			return q, true
		}
		for i, rep := range reps {
			if t.RowsEqual(rep, r) {
				return i, true
			}
		}
		// lenient equality is not transitive; fall back to the witness of closedness
		if u, ok := t.FindEqualUpper(r); ok {
			return class[u], true
		}
		return 0, false
	}

	eps, _ := t.Row(alphabet.Epsilon())
	c := &automaton.Conjecture{
		Deterministic: true,
		AlphabetSize:  t.alphabetSize,
		StateCount:    len(reps),
		Initial:       []int{class[eps]},
	}
	for q, rep := range reps {
		if t.kb.AnswerOf(rep.cells[0]) == answer.True {
			c.Final = append(c.Final, q)
		}
		for s := 0; s < t.alphabetSize; s++ {
			sym := alphabet.Symbol(s)
			ext, ok := t.extension(rep, sym)
			if !ok {
				return nil, fmt.Errorf("%w: missing row %s", ErrNotReady, rep.Word.Append(sym))
			}
			dest, ok := classOf(ext)
			if !ok {
				return nil, fmt.Errorf("%w: row %s has no upper class", ErrNotReady, ext.Word)
			}
			c.Transitions = append(c.Transitions, automaton.Transition{Source: q, Label: sym, Destination: dest})
		}
	}
	return c, nil
}

func (t *Table) deriveRFSA() (*automaton.Conjecture, error) {
	primes := t.PrimeUpperRows()
	vectors := make([]vector, len(primes))
	for i, p := range primes {
		vectors[i] = t.vectorOf(p)
	}

	eps, _ := t.Row(alphabet.Epsilon())
	epsVector := t.vectorOf(eps)

	c := &automaton.Conjecture{
		AlphabetSize: t.alphabetSize,
		StateCount:   len(primes),
	}
	for q, p := range primes {
		if vectors[q].coveredBy(epsVector) {
			c.Initial = append(c.Initial, q)
		}
		if t.kb.AnswerOf(p.cells[0]) == answer.True {
			c.Final = append(c.Final, q)
		}
		for s := 0; s < t.alphabetSize; s++ {
			sym := alphabet.Symbol(s)
			ext, ok := t.extension(p, sym)
			if !ok {
				return nil, fmt.Errorf("%w: missing row %s", ErrNotReady, p.Word.Append(sym))
			}
			target := t.vectorOf(ext)
			for dest, v := range vectors {
				if v.coveredBy(target) {
					c.Transitions = append(c.Transitions, automaton.Transition{Source: q, Label: sym, Destination: dest})
				}
			}
		}
	}
	return c, nil
}
