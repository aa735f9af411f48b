/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: biermann.go
Description: Biermann-style offline inference of a minimum DFA through SAT. For each
candidate size n, every prefix tree node is assigned exactly one of n states, transitions
are forced to be deterministic, accepted and rejected words pin the final-state flags,
and the gini solver searches for a model. The first satisfiable n gives the conjecture.
*/

package learner

import (
	"fmt"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/sirupsen/logrus"
)

// Biermann infers the smallest DFA consistent with the knowledgebase
type Biermann struct {
	offlineBase
}

// NewBiermann creates a SAT-based learner over kb. WithMaxStates bounds the search.
func NewBiermann(kb *knowledgebase.Knowledgebase, alphabetSize int, opts ...Option) (*Biermann, error) {
	base, err := newOfflineBase(NameBiermann, kb, alphabetSize, opts)
	if err != nil {
		return nil, err
	}
	b := &Biermann{offlineBase: base}
	b.infer = b.solve
	return b, nil
}

// DeriveConjecture runs the SAT search on the current knowledge without
// touching the learner state
func (b *Biermann) DeriveConjecture() (*automaton.Conjecture, error) {
	return b.solve(buildPTA(b.kb, b.alphabetSize))
}

func (b *Biermann) solve(p *pta) (*automaton.Conjecture, error) {
	limit := p.size()
	if b.maxStates > 0 && b.maxStates < limit {
		limit = b.maxStates
	}
	for n := 1; n <= limit; n++ {
		enc := newDFAEncoding(p, n)
		g := gini.New()
		enc.addClauses(g)
		result := g.Solve()
		b.logger.WithFields(logrus.Fields{
			"states":  n,
			"nodes":   p.size(),
			"result":  result,
			"clauses": enc.clauses,
		}).Debug("SAT search step")
		if result == 1 {
			return enc.decode(g), nil
		}
	}
	return nil, fmt.Errorf("%w: %d states", ErrNoSolution, limit)
}

// dfaEncoding numbers the variables of one SAT instance:
// x(v,q) node v sits in state q, d(q,a,r) state q moves to r on a, f(q) q is final
type dfaEncoding struct {
	p       *pta
	n       int
	sigma   int
	dBase   int
	fBase   int
	clauses int
	maxVar  z.Var
}

func newDFAEncoding(p *pta, n int) *dfaEncoding {
	e := &dfaEncoding{p: p, n: n, sigma: p.alphabetSize}
	e.dBase = p.size() * n
	e.fBase = e.dBase + n*e.sigma*n
	return e
}

func (e *dfaEncoding) x(v, q int) z.Lit {
	return z.Var(v*e.n + q + 1).Pos()
}

func (e *dfaEncoding) d(q, a, r int) z.Lit {
	return z.Var(e.dBase + (q*e.sigma+a)*e.n + r + 1).Pos()
}

func (e *dfaEncoding) f(q int) z.Lit {
	return z.Var(e.fBase + q + 1).Pos()
}

func (e *dfaEncoding) clause(g *gini.Gini, lits ...z.Lit) {
	for _, m := range lits {
		if m.Var() > e.maxVar {
			e.maxVar = m.Var()
		}
		g.Add(m)
	}
	g.Add(z.LitNull)
	e.clauses++
}

func (e *dfaEncoding) addClauses(g *gini.Gini) {
	nodes := e.p.size()

	// the root is state 0
	e.clause(g, e.x(0, 0))

	// every node in exactly one state
	for v := 0; v < nodes; v++ {
		some := make([]z.Lit, e.n)
		for q := 0; q < e.n; q++ {
			some[q] = e.x(v, q)
		}
		e.clause(g, some...)
		for q := 0; q < e.n; q++ {
			for r := q + 1; r < e.n; r++ {
				e.clause(g, e.x(v, q).Not(), e.x(v, r).Not())
			}
		}
	}

	// exactly one destination per state and symbol
	for q := 0; q < e.n; q++ {
		for a := 0; a < e.sigma; a++ {
			some := make([]z.Lit, e.n)
			for r := 0; r < e.n; r++ {
				some[r] = e.d(q, a, r)
			}
			e.clause(g, some...)
			for r := 0; r < e.n; r++ {
				for s := r + 1; s < e.n; s++ {
					e.clause(g, e.d(q, a, r).Not(), e.d(q, a, s).Not())
				}
			}
		}
	}

	// tree edges follow transitions
	for _, edge := range e.p.edges() {
		v, a, child := edge[0], edge[1], edge[2]
		for q := 0; q < e.n; q++ {
			for r := 0; r < e.n; r++ {
				e.clause(g, e.x(v, q).Not(), e.x(child, r).Not(), e.d(q, a, r))
			}
		}
	}

	// answers pin the final flags
	for v := 0; v < nodes; v++ {
		switch e.p.labels[v] {
		case answer.True:
			for q := 0; q < e.n; q++ {
				e.clause(g, e.x(v, q).Not(), e.f(q))
			}
		case answer.False:
			for q := 0; q < e.n; q++ {
				e.clause(g, e.x(v, q).Not(), e.f(q).Not())
			}
		}
	}
}

// value reads m from the model. Variables no clause mentions are false.
func (e *dfaEncoding) value(g *gini.Gini, m z.Lit) bool {
	if m.Var() > e.maxVar {
		return false
	}
	return g.Value(m)
}

// decode reads the automaton out of a satisfying model
func (e *dfaEncoding) decode(g *gini.Gini) *automaton.Conjecture {
	c := &automaton.Conjecture{
		Deterministic: true,
		AlphabetSize:  e.sigma,
		StateCount:    e.n,
		Initial:       []int{0},
	}
	for q := 0; q < e.n; q++ {
		if e.value(g, e.f(q)) {
			c.Final = append(c.Final, q)
		}
		for a := 0; a < e.sigma; a++ {
			for r := 0; r < e.n; r++ {
				if e.value(g, e.d(q, a, r)) {
					c.Transitions = append(c.Transitions, automaton.Transition{
						Source:      q,
						Label:       alphabet.Symbol(a),
						Destination: r,
					})
					break
				}
			}
		}
	}
	return c
}
