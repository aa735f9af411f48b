/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: word_test.go
Description: Tests for words and word orders. Covers concatenation, prefix and suffix
relations, dotted rendering and parsing, and graded-lexicographic enumeration.
*/

package alphabet_test

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWordString tests the dotted rendering
func TestWordString(t *testing.T) {
	assert.Equal(t, ".", alphabet.Epsilon().String())
	assert.Equal(t, ".0.1.2.", alphabet.Of(0, 1, 2).String())
	assert.Equal(t, ".12.", alphabet.Of(12).String())
}

// TestParseWord tests parsing with and without outer dots
func TestParseWord(t *testing.T) {
	for _, s := range []string{"0.1", ".0.1.", "0.1.", " .0.1 "} {
		w, err := alphabet.ParseWord(s)
		require.NoError(t, err, s)
		assert.True(t, w.Equal(alphabet.Of(0, 1)), s)
	}

	for _, s := range []string{"", "."} {
		w, err := alphabet.ParseWord(s)
		require.NoError(t, err)
		assert.True(t, w.IsEpsilon())
	}

	for _, s := range []string{".a.", ".-1.", "0..1"} {
		_, err := alphabet.ParseWord(s)
		assert.ErrorIs(t, err, alphabet.ErrMalformedWord, s)
	}

	for _, s := range []string{".4294967296.", ".2147483648.", ".0.99999999999."} {
		_, err := alphabet.ParseWord(s)
		assert.ErrorIs(t, err, alphabet.ErrMalformedWord, s)
		assert.ErrorIs(t, err, strconv.ErrRange, s)
	}
	big, err := alphabet.ParseWord(".2147483647.")
	require.NoError(t, err)
	assert.True(t, big.Equal(alphabet.Of(2147483647)))

	w := alphabet.Of(3, 0, 7)
	back, err := alphabet.ParseWord(w.String())
	require.NoError(t, err)
	assert.True(t, w.Equal(back))
}

// TestWordRelations tests prefix, suffix and concatenation helpers
func TestWordRelations(t *testing.T) {
	w := alphabet.Of(0, 1, 1)

	assert.True(t, alphabet.Epsilon().IsPrefixOf(w))
	assert.True(t, alphabet.Of(0, 1).IsPrefixOf(w))
	assert.True(t, w.IsPrefixOf(w))
	assert.False(t, alphabet.Of(1).IsPrefixOf(w))
	assert.True(t, alphabet.Of(1, 1).IsSuffixOf(w))
	assert.False(t, alphabet.Of(0, 1, 1, 0).IsSuffixOf(w))

	want := []alphabet.Word{{}, {0}, {0, 1}, {0, 1, 1}}
	assert.Empty(t, cmp.Diff(want, w.Prefixes()))
	want = []alphabet.Word{{0, 1, 1}, {1, 1}, {1}, {}}
	assert.Empty(t, cmp.Diff(want, w.Suffixes()))

	assert.True(t, alphabet.Concat(alphabet.Of(0), alphabet.Of(1, 1)).Equal(w))
	assert.Equal(t, alphabet.Symbol(1), w.MaxSymbol())
	assert.Equal(t, alphabet.Symbol(-1), alphabet.Epsilon().MaxSymbol())
	assert.True(t, w.Valid(2))
	assert.False(t, w.Valid(1))
}

// TestAppendDoesNotAlias tests that Append never writes into the receiver's storage
func TestAppendDoesNotAlias(t *testing.T) {
	base := make(alphabet.Word, 1, 8)
	a := base.Append(0)
	b := base.Append(1)
	assert.True(t, a.Equal(alphabet.Of(0, 0)))
	assert.True(t, b.Equal(alphabet.Of(0, 1)))
}

// TestWordKey tests that keys separate distinct words
func TestWordKey(t *testing.T) {
	seen := map[string]alphabet.Word{}
	for _, w := range alphabet.Enumerate(3, 3) {
		k := w.Key()
		_, dup := seen[k]
		require.False(t, dup, "duplicate key for %s", w)
		seen[k] = w
	}
	assert.NotEqual(t, alphabet.Of(256).Key(), alphabet.Of(1, 0).Key())
}

// TestOrders tests lexicographic and graded-lexicographic comparison
func TestOrders(t *testing.T) {
	assert.Equal(t, -1, alphabet.LexCompare(alphabet.Of(0), alphabet.Of(0, 0)))
	assert.Equal(t, 1, alphabet.LexCompare(alphabet.Of(1), alphabet.Of(0, 0)))
	assert.Equal(t, 0, alphabet.LexCompare(alphabet.Of(1, 0), alphabet.Of(1, 0)))

	assert.Equal(t, -1, alphabet.GradedLexCompare(alphabet.Of(1), alphabet.Of(0, 0)))
	assert.Equal(t, -1, alphabet.GradedLexCompare(alphabet.Epsilon(), alphabet.Of(0)))

	words := []alphabet.Word{{1, 0}, {1}, {}, {0, 1}, {0}}
	alphabet.SortGradedLex(words)
	want := []alphabet.Word{{}, {0}, {1}, {0, 1}, {1, 0}}
	assert.Empty(t, cmp.Diff(want, words))
}

// TestEnumerate tests shortest-first enumeration
func TestEnumerate(t *testing.T) {
	words := alphabet.Enumerate(2, 2)
	want := []alphabet.Word{{}, {0}, {1}, {0, 0}, {0, 1}, {1, 0}, {1, 1}}
	assert.Empty(t, cmp.Diff(want, words))

	assert.Len(t, alphabet.Enumerate(0, 5), 1)
	assert.Len(t, alphabet.Enumerate(3, 3), 1+3+9+27)
}
