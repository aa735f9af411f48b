/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serial.go
Description: Streaming codec for the learner's serialized formats. Everything is a
sequence of 32-bit big-endian integers; composite values are written as a count followed
by that many elements, so a reader can parse a stream without lookahead.
*/

package serial

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
)

// ErrShortBuffer is returned when the input ends before a value is complete
var ErrShortBuffer = errors.New("serialized data truncated")

// Encoder appends big-endian integers to an internal buffer
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with room for sizeHint integers
func NewEncoder(sizeHint int) *Encoder {
	return &Encoder{buf: make([]byte, 0, sizeHint*4)}
}

// PutUint32 appends one integer
func (e *Encoder) PutUint32(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

// PutInt appends a non-negative int
func (e *Encoder) PutInt(v int) {
	e.PutUint32(uint32(v))
}

// PutWord appends [len][symbols...]
func (e *Encoder) PutWord(w alphabet.Word) {
	e.PutInt(len(w))
	for _, s := range w {
		e.PutUint32(uint32(s))
	}
}

// PutWords appends [count][word...]
func (e *Encoder) PutWords(words []alphabet.Word) {
	e.PutInt(len(words))
	for _, w := range words {
		e.PutWord(w)
	}
}

// PutAnswer appends the wire value of an answer
func (e *Encoder) PutAnswer(a answer.Answer) {
	e.PutUint32(a.Encode())
}

// PutAnswers appends [count][answer...]
func (e *Encoder) PutAnswers(as []answer.Answer) {
	e.PutInt(len(as))
	for _, a := range as {
		e.PutAnswer(a)
	}
}

// Len returns the number of integers written so far
func (e *Encoder) Len() int {
	return len(e.buf) / 4
}

// Bytes returns the encoded stream
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Framed returns the stream prefixed with its own length in integers
func (e *Encoder) Framed() []byte {
	out := make([]byte, 0, len(e.buf)+4)
	out = binary.BigEndian.AppendUint32(out, uint32(e.Len()))
	return append(out, e.buf...)
}

// Decoder reads big-endian integers from a byte slice
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps data for reading. len(data) must be a multiple of four.
func NewDecoder(data []byte) (*Decoder, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrShortBuffer, len(data))
	}
	return &Decoder{buf: data}, nil
}

// Remaining returns how many integers are left
func (d *Decoder) Remaining() int {
	return (len(d.buf) - d.pos) / 4
}

// Uint32 reads one integer
func (d *Decoder) Uint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, ErrShortBuffer
	}
	v := binary.BigEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// Int reads one integer as a count or size
func (d *Decoder) Int() (int, error) {
	v, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Count reads a collection size and checks the remaining input can hold that many
// elements of at least minElem integers each
func (d *Decoder) Count(minElem int) (int, error) {
	n, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	if minElem > 0 && int64(n)*int64(minElem) > int64(d.Remaining()) {
		return 0, fmt.Errorf("%w: count %d exceeds remaining input", ErrShortBuffer, n)
	}
	return int(n), nil
}

// Word reads [len][symbols...]
func (d *Decoder) Word() (alphabet.Word, error) {
	n, err := d.Count(1)
	if err != nil {
		return nil, fmt.Errorf("word length: %w", err)
	}
	w := make(alphabet.Word, n)
	for i := 0; i < n; i++ {
		v, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		if int32(v) < 0 {
			return nil, fmt.Errorf("%w: negative symbol", alphabet.ErrMalformedWord)
		}
		w[i] = alphabet.Symbol(v)
	}
	return w, nil
}

// Words reads [count][word...]
func (d *Decoder) Words() ([]alphabet.Word, error) {
	n, err := d.Count(1)
	if err != nil {
		return nil, err
	}
	out := make([]alphabet.Word, 0, n)
	for i := 0; i < n; i++ {
		w, err := d.Word()
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// Answer reads one wire-encoded answer
func (d *Decoder) Answer() (answer.Answer, error) {
	v, err := d.Uint32()
	if err != nil {
		return answer.Unknown, err
	}
	return answer.Decode(v)
}

// Answers reads [count][answer...]
func (d *Decoder) Answers() ([]answer.Answer, error) {
	n, err := d.Count(1)
	if err != nil {
		return nil, err
	}
	out := make([]answer.Answer, n)
	for i := range out {
		if out[i], err = d.Answer(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Framed reads a length prefix and returns a decoder limited to that payload
func (d *Decoder) Framed() (*Decoder, error) {
	n, err := d.Count(1)
	if err != nil {
		return nil, fmt.Errorf("frame length: %w", err)
	}
	start := d.pos
	d.pos += n * 4
	return &Decoder{buf: d.buf[start:d.pos]}, nil
}
