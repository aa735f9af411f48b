/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: answer_test.go
Description: Tests for ternary answers: ordering, compatibility, merging and wire values.
*/

package answer_test

import (
	"testing"

	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAnswerOrder tests False < Unknown < True
func TestAnswerOrder(t *testing.T) {
	assert.Equal(t, -1, answer.Compare(answer.False, answer.Unknown))
	assert.Equal(t, -1, answer.Compare(answer.Unknown, answer.True))
	assert.Equal(t, 1, answer.Compare(answer.True, answer.False))
	assert.Equal(t, 0, answer.Compare(answer.Unknown, answer.Unknown))
}

// TestMerge tests that unknown yields and definite answers conflict
func TestMerge(t *testing.T) {
	tests := []struct {
		a, b answer.Answer
		want answer.Answer
		err  bool
	}{
		{answer.Unknown, answer.True, answer.True, false},
		{answer.False, answer.Unknown, answer.False, false},
		{answer.True, answer.True, answer.True, false},
		{answer.Unknown, answer.Unknown, answer.Unknown, false},
		{answer.True, answer.False, answer.True, true},
	}
	for _, tt := range tests {
		got, err := answer.Merge(tt.a, tt.b)
		if tt.err {
			assert.ErrorIs(t, err, answer.ErrConflict)
			assert.False(t, answer.Compatible(tt.a, tt.b))
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.True(t, answer.Compatible(tt.a, tt.b))
	}
}

// TestBool tests conversion to and from booleans
func TestBool(t *testing.T) {
	v, ok := answer.FromBool(true).Bool()
	assert.True(t, v)
	assert.True(t, ok)
	v, ok = answer.FromBool(false).Bool()
	assert.False(t, v)
	assert.True(t, ok)
	_, ok = answer.Unknown.Bool()
	assert.False(t, ok)
	assert.False(t, answer.Unknown.Known())
}

// TestWireValues tests the serialized encoding 0=false 1=true 2=unknown
func TestWireValues(t *testing.T) {
	assert.Equal(t, uint32(0), answer.False.Encode())
	assert.Equal(t, uint32(1), answer.True.Encode())
	assert.Equal(t, uint32(2), answer.Unknown.Encode())

	for _, a := range []answer.Answer{answer.False, answer.Unknown, answer.True} {
		back, err := answer.Decode(a.Encode())
		require.NoError(t, err)
		assert.Equal(t, a, back)
	}
	_, err := answer.Decode(3)
	assert.Error(t, err)
}

// TestParse tests the textual forms
func TestParse(t *testing.T) {
	for s, want := range map[string]answer.Answer{
		"+": answer.True, "true": answer.True, "-": answer.False,
		"False": answer.False, "?": answer.Unknown, "unknown": answer.Unknown,
	} {
		got, err := answer.Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
	_, err := answer.Parse("maybe")
	assert.Error(t, err)
	assert.Equal(t, "true", answer.True.String())
}
