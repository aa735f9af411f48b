/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: automaton_test.go
Description: Tests for conjectures and the reference backend: validation, acceptance by
subset simulation, equivalence counterexamples, isomorphism, YAML and dot export.
*/

package automaton_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evenZeros accepts words over {0,1} with an even number of zeros
func evenZeros() *automaton.Conjecture {
	return &automaton.Conjecture{
		Deterministic: true,
		AlphabetSize:  2,
		StateCount:    2,
		Initial:       []int{0},
		Final:         []int{0},
		Transitions: []automaton.Transition{
			{Source: 0, Label: 0, Destination: 1},
			{Source: 0, Label: 1, Destination: 0},
			{Source: 1, Label: 0, Destination: 0},
			{Source: 1, Label: 1, Destination: 1},
		},
	}
}

// endsInOne is a nondeterministic automaton for words ending in 1
func endsInOne() *automaton.Conjecture {
	return &automaton.Conjecture{
		AlphabetSize: 2,
		StateCount:   2,
		Initial:      []int{0},
		Final:        []int{1},
		Transitions: []automaton.Transition{
			{Source: 0, Label: 0, Destination: 0},
			{Source: 0, Label: 1, Destination: 0},
			{Source: 0, Label: 1, Destination: 1},
		},
	}
}

// TestAccepts tests acceptance for deterministic and nondeterministic automata
func TestAccepts(t *testing.T) {
	even := evenZeros()
	assert.True(t, even.Accepts(alphabet.Epsilon()))
	assert.False(t, even.Accepts(alphabet.Of(0)))
	assert.True(t, even.Accepts(alphabet.Of(0, 1, 0)))
	assert.False(t, even.Accepts(alphabet.Of(2)))

	ends := endsInOne()
	assert.True(t, ends.Accepts(alphabet.Of(0, 0, 1)))
	assert.False(t, ends.Accepts(alphabet.Of(1, 0)))
	assert.False(t, ends.Accepts(alphabet.Epsilon()))
}

// TestValidate tests rejection of inconsistent descriptions
func TestValidate(t *testing.T) {
	require.NoError(t, evenZeros().Validate())
	require.NoError(t, endsInOne().Validate())

	c := evenZeros()
	c.Transitions = append(c.Transitions, automaton.Transition{Source: 0, Label: 0, Destination: 0})
	assert.ErrorIs(t, c.Validate(), automaton.ErrInvalidAutomaton)

	c = evenZeros()
	c.Final = []int{2}
	assert.ErrorIs(t, c.Validate(), automaton.ErrInvalidAutomaton)

	c = evenZeros()
	c.Transitions[0].Label = 2
	assert.ErrorIs(t, c.Validate(), automaton.ErrInvalidAutomaton)

	c = evenZeros()
	c.Initial = []int{0, 1}
	assert.ErrorIs(t, c.Validate(), automaton.ErrInvalidAutomaton)
}

// TestBackendEquivalence tests that the shortest disagreement is returned
func TestBackendEquivalence(t *testing.T) {
	backend := automaton.NewReferenceBackend()
	target, err := backend.FromConjecture(evenZeros())
	require.NoError(t, err)
	assert.Equal(t, 2, target.AlphabetSize())

	_, equal, err := backend.Equivalence(target, evenZeros())
	require.NoError(t, err)
	assert.True(t, equal)

	// accepts everything
	all := &automaton.Conjecture{
		Deterministic: true, AlphabetSize: 2, StateCount: 1,
		Initial: []int{0}, Final: []int{0},
		Transitions: []automaton.Transition{{0, 0, 0}, {0, 1, 0}},
	}
	cex, equal, err := backend.Equivalence(target, all)
	require.NoError(t, err)
	assert.False(t, equal)
	assert.Empty(t, cmp.Diff(alphabet.Of(0), cex))
	assert.NotEqual(t, backend.Contains(target, cex), all.Accepts(cex))

	// a smaller alphabet rejects the missing symbols
	onlyZeros := &automaton.Conjecture{
		Deterministic: true, AlphabetSize: 1, StateCount: 2,
		Initial: []int{0}, Final: []int{0},
		Transitions: []automaton.Transition{{0, 0, 1}, {1, 0, 0}},
	}
	cex, equal, err = backend.Equivalence(target, onlyZeros)
	require.NoError(t, err)
	assert.False(t, equal)
	assert.Empty(t, cmp.Diff(alphabet.Of(1), cex))
}

// TestBackendNondeterministic tests equivalence between an NFA and a DFA for the same language
func TestBackendNondeterministic(t *testing.T) {
	backend := automaton.NewReferenceBackend()
	target, err := backend.FromConjecture(endsInOne())
	require.NoError(t, err)

	dfa := &automaton.Conjecture{
		Deterministic: true, AlphabetSize: 2, StateCount: 2,
		Initial: []int{0}, Final: []int{1},
		Transitions: []automaton.Transition{{0, 0, 0}, {0, 1, 1}, {1, 0, 0}, {1, 1, 1}},
	}
	_, equal, err := backend.Equivalence(target, dfa)
	require.NoError(t, err)
	assert.True(t, equal)

	for _, w := range alphabet.Enumerate(2, 4) {
		assert.Equal(t, dfa.Accepts(w), backend.Contains(target, w), w.String())
	}

	desc, err := backend.Describe(target)
	require.NoError(t, err)
	assert.Equal(t, endsInOne(), desc)
}

// TestIsomorphic tests isomorphism up to state renaming
func TestIsomorphic(t *testing.T) {
	renamed := &automaton.Conjecture{
		Deterministic: true, AlphabetSize: 2, StateCount: 2,
		Initial: []int{1}, Final: []int{1},
		Transitions: []automaton.Transition{{1, 0, 0}, {1, 1, 1}, {0, 0, 1}, {0, 1, 0}},
	}
	assert.True(t, automaton.Isomorphic(evenZeros(), renamed))

	flipped := evenZeros()
	flipped.Final = []int{1}
	assert.False(t, automaton.Isomorphic(evenZeros(), flipped))
}

// TestNormalize tests canonical ordering of transitions
func TestNormalize(t *testing.T) {
	c := evenZeros()
	c.Transitions[0], c.Transitions[3] = c.Transitions[3], c.Transitions[0]
	c.Normalize()
	assert.Equal(t, evenZeros(), c)
}

// TestWriteDot tests the graphviz rendering
func TestWriteDot(t *testing.T) {
	dot := endsInOne().Dot()
	assert.True(t, strings.HasPrefix(dot, "digraph conjecture {"))
	assert.Contains(t, dot, "q1 [shape=doublecircle")
	assert.Contains(t, dot, "iq0 [shape=point, style=invis]")
	assert.Contains(t, dot, "q0 -> q0 [label=\"0,1\"]")
}

// TestYAMLRoundTrip tests writing and reading automaton documents
func TestYAMLRoundTrip(t *testing.T) {
	doc := &automaton.Document{Name: "even-zeros", Description: "even number of zeros", Conjecture: *evenZeros()}

	var buf bytes.Buffer
	require.NoError(t, doc.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "alphabet_size: 2")

	back, err := automaton.ReadYAML(&buf)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(doc, back))

	path := filepath.Join(t.TempDir(), "even.yaml")
	require.NoError(t, doc.SaveYAML(path))
	loaded, err := automaton.LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "even-zeros", loaded.Name)
}

// TestYAMLRejects tests unknown fields and invalid automata
func TestYAMLRejects(t *testing.T) {
	_, err := automaton.ReadYAML(strings.NewReader("alphabet_size: 2\nstates: 3\n"))
	assert.Error(t, err)

	bad := "deterministic: true\nalphabet_size: 1\nstate_count: 1\ninitial: [0]\nfinal: [3]\ntransitions: []\n"
	_, err = automaton.ReadYAML(strings.NewReader(bad))
	assert.ErrorIs(t, err, automaton.ErrInvalidAutomaton)

	_, err = automaton.LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
