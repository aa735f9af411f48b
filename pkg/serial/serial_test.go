/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serial_test.go
Description: Tests for the big-endian integer stream codec.
*/

package serial_test

import (
	"testing"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWordLayout tests the exact byte layout of a word
func TestWordLayout(t *testing.T) {
	enc := serial.NewEncoder(4)
	enc.PutWord(alphabet.Of(1, 2))
	assert.Equal(t, []byte{0, 0, 0, 2, 0, 0, 0, 1, 0, 0, 0, 2}, enc.Bytes())
	assert.Equal(t, 3, enc.Len())
}

// TestFramedStream tests a framed stream of words and answers
func TestFramedStream(t *testing.T) {
	enc := serial.NewEncoder(16)
	enc.PutWords([]alphabet.Word{alphabet.Epsilon(), alphabet.Of(0, 1)})
	enc.PutAnswers([]answer.Answer{answer.True, answer.Unknown, answer.False})
	data := enc.Framed()

	dec, err := serial.NewDecoder(data)
	require.NoError(t, err)
	payload, err := dec.Framed()
	require.NoError(t, err)
	assert.Equal(t, 0, dec.Remaining())

	words, err := payload.Words()
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.True(t, words[0].IsEpsilon())
	assert.True(t, words[1].Equal(alphabet.Of(0, 1)))

	answers, err := payload.Answers()
	require.NoError(t, err)
	assert.Equal(t, []answer.Answer{answer.True, answer.Unknown, answer.False}, answers)
	assert.Equal(t, 0, payload.Remaining())
}

// TestTruncatedInput tests that short input is rejected instead of over-allocating
func TestTruncatedInput(t *testing.T) {
	_, err := serial.NewDecoder([]byte{0, 0, 1})
	assert.ErrorIs(t, err, serial.ErrShortBuffer)

	enc := serial.NewEncoder(2)
	enc.PutInt(1000)
	dec, err := serial.NewDecoder(enc.Bytes())
	require.NoError(t, err)
	_, err = dec.Word()
	assert.ErrorIs(t, err, serial.ErrShortBuffer)

	dec, err = serial.NewDecoder(nil)
	require.NoError(t, err)
	_, err = dec.Uint32()
	assert.ErrorIs(t, err, serial.ErrShortBuffer)
}
