/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: oracle_test.go
Description: Tests for the oracle adapters: predicate functions, pre-filled
knowledgebases and the automaton teacher.
*/

package oracle_test

import (
	"context"
	"testing"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oddOnes() *automaton.Conjecture {
	return &automaton.Conjecture{
		Deterministic: true, AlphabetSize: 2, StateCount: 2,
		Initial: []int{0}, Final: []int{1},
		Transitions: []automaton.Transition{
			{Source: 0, Label: 0, Destination: 0},
			{Source: 0, Label: 1, Destination: 1},
			{Source: 1, Label: 0, Destination: 1},
			{Source: 1, Label: 1, Destination: 0},
		},
	}
}

// TestMembershipFunc tests the predicate adapter and its cancellation check
func TestMembershipFunc(t *testing.T) {
	short := oracle.MembershipFunc(func(w alphabet.Word) bool { return w.Len() < 2 })

	a, err := short.MembershipQuery(context.Background(), alphabet.Of(1))
	require.NoError(t, err)
	assert.Equal(t, answer.True, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = short.MembershipQuery(ctx, alphabet.Of(1))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestKnowledgebaseOracle tests answering from stored knowledge only
func TestKnowledgebaseOracle(t *testing.T) {
	kb := knowledgebase.New(2)
	require.NoError(t, kb.AddKnowledge(alphabet.Of(0), answer.False))
	o := oracle.NewKnowledgebaseOracle(kb)

	a, err := o.MembershipQuery(context.Background(), alphabet.Of(0))
	require.NoError(t, err)
	assert.Equal(t, answer.False, a)

	_, err = o.MembershipQuery(context.Background(), alphabet.Of(1))
	assert.ErrorIs(t, err, oracle.ErrNeedsOracle)
}

// TestAutomatonTeacher tests membership and equivalence against a target
func TestAutomatonTeacher(t *testing.T) {
	teacher, err := oracle.NewReferenceTeacher(oddOnes())
	require.NoError(t, err)
	assert.Equal(t, 2, teacher.AlphabetSize())
	ctx := context.Background()

	a, err := teacher.MembershipQuery(ctx, alphabet.Of(0, 1))
	require.NoError(t, err)
	assert.Equal(t, answer.True, a)

	verdict, err := teacher.EquivalenceQuery(ctx, oddOnes())
	require.NoError(t, err)
	assert.True(t, verdict.Equal)
	assert.Equal(t, "equal", verdict.String())

	empty := &automaton.Conjecture{Deterministic: true, AlphabetSize: 2, StateCount: 1, Initial: []int{0}}
	verdict, err = teacher.EquivalenceQuery(ctx, empty)
	require.NoError(t, err)
	assert.False(t, verdict.Equal)
	assert.True(t, verdict.Counterexample.Equal(alphabet.Of(1)))
	assert.Equal(t, "counterexample .1.", verdict.String())

	_, err = oracle.NewReferenceTeacher(&automaton.Conjecture{StateCount: 1, Initial: []int{4}})
	assert.ErrorIs(t, err, automaton.ErrInvalidAutomaton)
}
