/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: answer.go
Description: Three-valued answers for membership knowledge. An answer is False, Unknown
or True with the total order False < Unknown < True. Unknown is compatible with everything
and is replaced by a definite answer; a True/False collision is a conflict.
*/

package answer

import (
	"errors"
	"fmt"
	"strings"
)

// Answer is the ternary result of a membership query
type Answer int8

const (
	False   Answer = -1
	Unknown Answer = 0
	True    Answer = 1
)

// ErrConflict reports a True/False collision between two definite answers
var ErrConflict = errors.New("conflicting answers")

// FromBool converts a definite boolean into an Answer
func FromBool(b bool) Answer {
	if b {
		return True
	}
	return False
}

// Known reports whether the answer is definite
func (a Answer) Known() bool {
	return a == True || a == False
}

// Bool returns the boolean value of a definite answer. ok is false for Unknown.
func (a Answer) Bool() (value bool, ok bool) {
	switch a {
	case True:
		return true, true
	case False:
		return false, true
	}
	return false, false
}

// Valid reports whether a is one of the three defined values
func (a Answer) Valid() bool {
	return a == True || a == False || a == Unknown
}

func (a Answer) String() string {
	switch a {
	case True:
		return "true"
	case False:
		return "false"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("Answer(%d)", int8(a))
}

// Parse reads "true"/"false"/"unknown" (and the short forms +, -, ?)
func Parse(s string) (Answer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "+", "1", "accept":
		return True, nil
	case "false", "f", "-", "0", "reject":
		return False, nil
	case "unknown", "u", "?", "2":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("invalid answer %q", s)
}

// Compare returns -1, 0 or +1 following False < Unknown < True
func Compare(a, b Answer) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Compatible reports whether a and b do not contradict each other
func Compatible(a, b Answer) bool {
	return !a.Known() || !b.Known() || a == b
}

// Merge combines two answers. Unknown yields to the other side; equal answers
// merge to themselves; True and False produce ErrConflict.
func Merge(a, b Answer) (Answer, error) {
	if !Compatible(a, b) {
		return a, fmt.Errorf("%w: %s vs %s", ErrConflict, a, b)
	}
	if a.Known() {
		return a, nil
	}
	return b, nil
}

// Wire values used by the serialized formats
const (
	wireFalse   uint32 = 0
	wireTrue    uint32 = 1
	wireUnknown uint32 = 2
)

// Encode returns the wire value of the answer
func (a Answer) Encode() uint32 {
	switch a {
	case True:
		return wireTrue
	case False:
		return wireFalse
	}
	return wireUnknown
}

// Decode reads a wire value back into an Answer
func Decode(v uint32) (Answer, error) {
	switch v {
	case wireTrue:
		return True, nil
	case wireFalse:
		return False, nil
	case wireUnknown:
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("invalid encoded answer %d", v)
}
