/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: word.go
Description: Symbols and words over an integer alphabet. Provides concatenation,
prefix/suffix relations, the lexicographic and graded-lexicographic orders used for
canonical enumeration, and the dotted textual rendering (".0.1.2.") of words.
*/

package alphabet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Symbol is a letter of the alphabet. Valid symbols lie in [0, alphabet_size).
type Symbol int32

// Word is a finite sequence of symbols. The empty (or nil) word is epsilon.
type Word []Symbol

// ErrMalformedWord is returned when a textual word cannot be parsed
var ErrMalformedWord = errors.New("malformed word")

// Epsilon returns the empty word
func Epsilon() Word {
	return Word{}
}

// Of builds a word from plain ints, mostly for tests and literals
func Of(symbols ...int) Word {
	w := make(Word, len(symbols))
	for i, s := range symbols {
		w[i] = Symbol(s)
	}
	return w
}

// Len returns the number of symbols in the word
func (w Word) Len() int {
	return len(w)
}

// IsEpsilon reports whether w is the empty word
func (w Word) IsEpsilon() bool {
	return len(w) == 0
}

// Clone returns an independent copy of the word
func (w Word) Clone() Word {
	c := make(Word, len(w))
	copy(c, w)
	return c
}

// Append returns w·s as a fresh word. w itself is never modified.
func (w Word) Append(s Symbol) Word {
	c := make(Word, len(w), len(w)+1)
	copy(c, w)
	return append(c, s)
}

// Concat returns a·b as a fresh word
func Concat(a, b Word) Word {
	c := make(Word, 0, len(a)+len(b))
	c = append(c, a...)
	return append(c, b...)
}

// Equal reports whether both words hold the same symbols
func (w Word) Equal(o Word) bool {
	if len(w) != len(o) {
		return false
	}
	for i := range w {
		if w[i] != o[i] {
			return false
		}
	}
	return true
}

// IsPrefixOf reports whether w is a prefix of o (every word is a prefix of itself)
func (w Word) IsPrefixOf(o Word) bool {
	if len(w) > len(o) {
		return false
	}
	return w.Equal(o[:len(w)])
}

// IsSuffixOf reports whether w is a suffix of o
func (w Word) IsSuffixOf(o Word) bool {
	if len(w) > len(o) {
		return false
	}
	return w.Equal(o[len(o)-len(w):])
}

// Prefixes returns every prefix of w, from epsilon up to w itself
func (w Word) Prefixes() []Word {
	out := make([]Word, 0, len(w)+1)
	for i := 0; i <= len(w); i++ {
		out = append(out, w[:i].Clone())
	}
	return out
}

// Suffixes returns every suffix of w, from w itself down to epsilon
func (w Word) Suffixes() []Word {
	out := make([]Word, 0, len(w)+1)
	for i := 0; i <= len(w); i++ {
		out = append(out, w[i:].Clone())
	}
	return out
}

// MaxSymbol returns the largest symbol in w, or -1 for epsilon
func (w Word) MaxSymbol() Symbol {
	max := Symbol(-1)
	for _, s := range w {
		if s > max {
			max = s
		}
	}
	return max
}

// Valid reports whether every symbol of w lies in [0, alphabetSize)
func (w Word) Valid(alphabetSize int) bool {
	for _, s := range w {
		if s < 0 || int(s) >= alphabetSize {
			return false
		}
	}
	return true
}

// Key returns a compact string usable as a map key. Distinct words map to distinct keys.
func (w Word) Key() string {
	var b strings.Builder
	b.Grow(len(w) * 4)
	for _, s := range w {
		b.WriteByte(byte(s >> 24))
		b.WriteByte(byte(s >> 16))
		b.WriteByte(byte(s >> 8))
		b.WriteByte(byte(s))
	}
	return b.String()
}

// String renders the word with '.' as separator, e.g. [0,1,2] as ".0.1.2."
// and epsilon as "."
func (w Word) String() string {
	var b strings.Builder
	b.WriteByte('.')
	for _, s := range w {
		b.WriteString(strconv.Itoa(int(s)))
		b.WriteByte('.')
	}
	return b.String()
}

// ParseWord is the inverse of Word.String. The outer dots are optional, so
// "0.1", ".0.1." and "0.1." all parse to [0,1]; "" and "." parse to epsilon.
func ParseWord(s string) (Word, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ".")
	if s == "" {
		return Epsilon(), nil
	}

	parts := strings.Split(s, ".")
	w := make(Word, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedWord, s, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedWord, s)
		}
		w = append(w, Symbol(n))
	}
	return w, nil
}

// MustParseWord is ParseWord for literals known to be valid
func MustParseWord(s string) Word {
	w, err := ParseWord(s)
	if err != nil {
		panic(err)
	}
	return w
}
