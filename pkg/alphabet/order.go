/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: order.go
Description: Total orders on words. Lexicographic order compares symbol by symbol with
prefixes first; graded-lexicographic order compares lengths first and falls back to
lexicographic order, which gives the canonical shortest-first enumeration.
*/

package alphabet

import "sort"

// LexCompare returns -1, 0 or +1 as a is lexicographically before, equal to or after b.
// A proper prefix is always smaller than its extensions.
func LexCompare(a, b Word) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// GradedLexCompare orders by length first and lexicographically within a length
func GradedLexCompare(a, b Word) int {
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return LexCompare(a, b)
}

// SortGradedLex sorts words in place in graded-lexicographic order
func SortGradedLex(words []Word) {
	sort.SliceStable(words, func(i, j int) bool {
		return GradedLexCompare(words[i], words[j]) < 0
	})
}

// Enumerate returns all words over an alphabet of the given size up to maxLen,
// in graded-lexicographic order
func Enumerate(alphabetSize, maxLen int) []Word {
	out := []Word{Epsilon()}
	if alphabetSize <= 0 {
		return out
	}
	frontier := []Word{Epsilon()}
	for l := 1; l <= maxLen; l++ {
		next := make([]Word, 0, len(frontier)*alphabetSize)
		for _, w := range frontier {
			for s := 0; s < alphabetSize; s++ {
				next = append(next, w.Append(Symbol(s)))
			}
		}
		out = append(out, next...)
		frontier = next
	}
	return out
}
