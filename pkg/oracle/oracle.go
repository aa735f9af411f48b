/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: oracle.go
Description: Teacher contracts connecting a learning session to the language being
learned. A membership oracle answers "is w in the language?"; an equivalence oracle
either confirms a conjecture or returns a counterexample. Includes adapters for plain
functions, pre-populated knowledgebases and automata built by a backend.
*/

package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
)

// ErrNeedsOracle is returned when progress requires an oracle that was not supplied.
// Callers recover by providing the oracle or a knowledgebase that already holds the answers.
var ErrNeedsOracle = errors.New("oracle required")

// MembershipOracle answers membership queries. Answers must be definite and
// deterministic for a fixed target language.
type MembershipOracle interface {
	MembershipQuery(ctx context.Context, w alphabet.Word) (answer.Answer, error)
}

// EquivalenceResult is the outcome of an equivalence query
type EquivalenceResult struct {
	Equal          bool
	Counterexample alphabet.Word
}

// Equal is the result confirming a conjecture
func Equal() EquivalenceResult {
	return EquivalenceResult{Equal: true}
}

// CounterExample is the result refuting a conjecture with w
func CounterExample(w alphabet.Word) EquivalenceResult {
	return EquivalenceResult{Counterexample: w}
}

func (r EquivalenceResult) String() string {
	if r.Equal {
		return "equal"
	}
	return "counterexample " + r.Counterexample.String()
}

// EquivalenceOracle checks a conjecture against the target language. Any word on
// which they disagree is an acceptable counterexample.
type EquivalenceOracle interface {
	EquivalenceQuery(ctx context.Context, c *automaton.Conjecture) (EquivalenceResult, error)
}

// Teacher bundles both capabilities
type Teacher interface {
	MembershipOracle
	EquivalenceOracle
}

// MembershipFunc adapts a predicate to MembershipOracle
type MembershipFunc func(w alphabet.Word) bool

// MembershipQuery calls the predicate
func (f MembershipFunc) MembershipQuery(ctx context.Context, w alphabet.Word) (answer.Answer, error) {
	if err := ctx.Err(); err != nil {
		return answer.Unknown, err
	}
	return answer.FromBool(f(w)), nil
}

// KnowledgebaseOracle answers from a knowledgebase that was filled beforehand.
// Words it does not know produce ErrNeedsOracle.
type KnowledgebaseOracle struct {
	kb *knowledgebase.Knowledgebase
}

// NewKnowledgebaseOracle wraps kb
func NewKnowledgebaseOracle(kb *knowledgebase.Knowledgebase) *KnowledgebaseOracle {
	return &KnowledgebaseOracle{kb: kb}
}

// MembershipQuery resolves w in the knowledgebase
func (o *KnowledgebaseOracle) MembershipQuery(ctx context.Context, w alphabet.Word) (answer.Answer, error) {
	a := o.kb.Resolve(w)
	if !a.Known() {
		return answer.Unknown, fmt.Errorf("%w: no knowledge about %s", ErrNeedsOracle, w)
	}
	return a, nil
}

// AutomatonTeacher answers both kinds of query from an automaton built by a backend
type AutomatonTeacher struct {
	backend automaton.Backend
	target  automaton.Automaton
}

// NewAutomatonTeacher creates a teacher for the language of target
func NewAutomatonTeacher(backend automaton.Backend, target automaton.Automaton) *AutomatonTeacher {
	return &AutomatonTeacher{backend: backend, target: target}
}

// NewReferenceTeacher builds the target from a description with the reference backend
func NewReferenceTeacher(desc *automaton.Conjecture) (*AutomatonTeacher, error) {
	backend := automaton.NewReferenceBackend()
	target, err := backend.FromConjecture(desc)
	if err != nil {
		return nil, fmt.Errorf("build target automaton: %w", err)
	}
	return NewAutomatonTeacher(backend, target), nil
}

// MembershipQuery reports whether the target accepts w
func (t *AutomatonTeacher) MembershipQuery(ctx context.Context, w alphabet.Word) (answer.Answer, error) {
	if err := ctx.Err(); err != nil {
		return answer.Unknown, err
	}
	return answer.FromBool(t.backend.Contains(t.target, w)), nil
}

// EquivalenceQuery compares the conjecture with the target
func (t *AutomatonTeacher) EquivalenceQuery(ctx context.Context, c *automaton.Conjecture) (EquivalenceResult, error) {
	if err := ctx.Err(); err != nil {
		return EquivalenceResult{}, err
	}
	cex, equal, err := t.backend.Equivalence(t.target, c)
	if err != nil {
		return EquivalenceResult{}, fmt.Errorf("equivalence query: %w", err)
	}
	if equal {
		return Equal(), nil
	}
	return CounterExample(cex), nil
}

// AlphabetSize returns the alphabet size of the target language
func (t *AutomatonTeacher) AlphabetSize() int {
	return t.target.AlphabetSize()
}
