/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: rfsa.go
Description: Row coverage, joins and prime rows for residual (RFSA) tables. A row
covers another when it accepts every suffix the other accepts; a row is prime when it
is not the join of the rows it strictly covers.
*/

package table

import (
	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
)

// vector is a row's answers as booleans; Unknown counts as not accepted
type vector []bool

func (t *Table) vectorOf(r *Row) vector {
	v := make(vector, len(r.cells))
	for i, h := range r.cells {
		v[i] = t.kb.AnswerOf(h) == answer.True
	}
	return v
}

// coveredBy reports v ⊑ w
func (v vector) coveredBy(w vector) bool {
	for i := range v {
		if v[i] && !w[i] {
			return false
		}
	}
	return true
}

func (v vector) equal(w vector) bool {
	for i := range v {
		if v[i] != w[i] {
			return false
		}
	}
	return true
}

func (v vector) empty() bool {
	for _, b := range v {
		if b {
			return false
		}
	}
	return true
}

// Covers reports whether sub ⊑ sup over all current columns
func (t *Table) Covers(sub, sup *Row) bool {
	return t.vectorOf(sub).coveredBy(t.vectorOf(sup))
}

// isPrime reports whether v is not the join of the candidates it strictly covers
func isPrime(v vector, candidates []vector) bool {
	if v.empty() {
		return false
	}
	join := make(vector, len(v))
	for _, c := range candidates {
		if c.coveredBy(v) && !c.equal(v) {
			for i := range join {
				join[i] = join[i] || c[i]
			}
		}
	}
	return !join.equal(v)
}

// PrimeUpperRows returns the upper rows with distinct prime vectors, first
// occurrence wins. Primality is judged against every row of the table.
func (t *Table) PrimeUpperRows() []*Row {
	all := t.allRows()
	vectors := make([]vector, len(all))
	for i, r := range all {
		vectors[i] = t.vectorOf(r)
	}

	var primes []*Row
	var seen []vector
	for i, r := range all {
		if !r.Upper {
			continue
		}
		v := vectors[i]
		duplicate := false
		for _, s := range seen {
			if s.equal(v) {
				duplicate = true
				break
			}
		}
		if duplicate || !isPrime(v, vectors) {
			continue
		}
		seen = append(seen, v)
		primes = append(primes, r)
	}
	return primes
}

// FindCombiningUppers returns the prime upper rows covered by r. It reports
// whether their join is exactly r.
func (t *Table) FindCombiningUppers(r *Row) ([]*Row, bool) {
	target := t.vectorOf(r)
	join := make(vector, len(target))
	var parts []*Row
	for _, p := range t.PrimeUpperRows() {
		v := t.vectorOf(p)
		if !v.coveredBy(target) {
			continue
		}
		parts = append(parts, p)
		for i := range join {
			join[i] = join[i] || v[i]
		}
	}
	return parts, join.equal(target)
}

// rfsaConsistencyViolation finds upper rows u2 ⊑ u1 whose extensions on some
// symbol a break coverage, and returns a·c for the first column c witnessing it
func (t *Table) rfsaConsistencyViolation() (alphabet.Word, bool) {
	vectors := make([]vector, len(t.upper))
	for i, u := range t.upper {
		vectors[i] = t.vectorOf(u)
	}
	for i, u1 := range t.upper {
		for j, u2 := range t.upper {
			if i == j || !vectors[j].coveredBy(vectors[i]) {
				continue
			}
			for s := 0; s < t.alphabetSize; s++ {
				sym := alphabet.Symbol(s)
				e1, ok1 := t.extension(u1, sym)
				e2, ok2 := t.extension(u2, sym)
				if !ok1 || !ok2 {
					continue
				}
				v1, v2 := t.vectorOf(e1), t.vectorOf(e2)
				for c := range t.columns {
					if v2[c] && !v1[c] {
						return separatingSuffix(sym, t.columns[c]), true
					}
				}
			}
		}
	}
	return nil, false
}

// rfsaClosednessViolation checks that every lower row is the join of the prime
// upper rows it covers, and picks the row to promote
func (t *Table) rfsaClosednessViolation() (*Row, bool) {
	all := t.allRows()
	vectors := make(map[*Row]vector, len(all))
	candidates := make([]vector, len(all))
	for i, r := range all {
		v := t.vectorOf(r)
		vectors[r] = v
		candidates[i] = v
	}

	var primes []vector
	for _, p := range t.PrimeUpperRows() {
		primes = append(primes, vectors[p])
	}

	var violation *Row
	for _, l := range t.lower {
		target := vectors[l]
		join := make(vector, len(target))
		for _, p := range primes {
			if !p.coveredBy(target) {
				continue
			}
			for i := range join {
				join[i] = join[i] || p[i]
			}
		}
		if join.equal(target) {
			continue
		}
		if isPrime(target, candidates) {
			return l, true
		}
		if violation == nil {
			violation = l
		}
	}
	return violation, violation != nil
}
