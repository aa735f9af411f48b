/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: rpni.go
Description: RPNI, the offline red/blue state-merging learner. Starts from the prefix
tree acceptor of the knowledgebase's definite answers and greedily merges each blue state
(in graded-lexicographic order of its access word) into the first red state that keeps the
automaton consistent with every known answer; blue states that merge nowhere turn red.
*/

package learner

import (
	"fmt"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/oracle"
	"github.com/sirupsen/logrus"
)

// RPNI learns from the knowledgebase alone
type RPNI struct {
	offlineBase
}

// NewRPNI creates an RPNI learner over kb
func NewRPNI(kb *knowledgebase.Knowledgebase, alphabetSize int, opts ...Option) (*RPNI, error) {
	base, err := newOfflineBase(NameRPNI, kb, alphabetSize, opts)
	if err != nil {
		return nil, err
	}
	r := &RPNI{offlineBase: base}
	r.infer = r.merge
	return r, nil
}

// offlineBase carries the bookkeeping shared by the offline learners
type offlineBase struct {
	name         string
	kb           *knowledgebase.Knowledgebase
	alphabetSize int
	logger       *logrus.Logger
	maxStates    int

	infer func(p *pta) (*automaton.Conjecture, error)
	state State
	last  *automaton.Conjecture
}

func newOfflineBase(name string, kb *knowledgebase.Knowledgebase, alphabetSize int, opts []Option) (offlineBase, error) {
	if alphabetSize < 0 {
		return offlineBase{}, fmt.Errorf("negative alphabet size %d", alphabetSize)
	}
	if kb.AlphabetSize() < alphabetSize {
		if err := kb.SetAlphabetSize(alphabetSize); err != nil {
			return offlineBase{}, err
		}
	}
	o := buildOptions(opts)
	return offlineBase{
		name:         name,
		kb:           kb,
		alphabetSize: alphabetSize,
		logger:       o.Logger,
		maxStates:    o.MaxStates,
	}, nil
}

func (b *offlineBase) Name() string                                { return b.name }
func (b *offlineBase) State() State                                { return b.state }
func (b *offlineBase) AlphabetSize() int                           { return b.alphabetSize }
func (b *offlineBase) Knowledgebase() *knowledgebase.Knowledgebase { return b.kb }

// ConjectureReady is always true: offline learners never wait for answers
func (b *offlineBase) ConjectureReady() bool { return true }

// Advance infers a conjecture from the current knowledge
func (b *offlineBase) Advance() (*automaton.Conjecture, error) {
	if b.state == StateReady && b.last != nil {
		return b.last, nil
	}
	p := buildPTA(b.kb, b.alphabetSize)
	c, err := b.infer(p)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	b.state = StateReady
	b.last = c
	b.logger.WithFields(logrus.Fields{
		"algorithm": b.name,
		"samples":   p.size(),
		"states":    c.StateCount,
	}).Debug("Conjecture inferred")
	return c, nil
}

// AddCounterexample always fails: there is no oracle to learn from
func (b *offlineBase) AddCounterexample(w alphabet.Word) error {
	return fmt.Errorf("%w: %s learns offline", oracle.ErrNeedsOracle, b.name)
}

// IncreaseAlphabetSize grows the alphabet used for inference
func (b *offlineBase) IncreaseAlphabetSize(n int) error {
	if n < b.alphabetSize {
		return fmt.Errorf("alphabet size can only grow: %d -> %d", b.alphabetSize, n)
	}
	if b.kb.AlphabetSize() < n {
		if err := b.kb.SetAlphabetSize(n); err != nil {
			return err
		}
	}
	b.alphabetSize = n
	b.state = StateGathering
	b.last = nil
	return nil
}

// mergeable is the working automaton of the red/blue search
type mergeable struct {
	labels []answer.Answer
	next   [][]int
}

func (m *mergeable) clone() *mergeable {
	c := &mergeable{
		labels: append([]answer.Answer(nil), m.labels...),
		next:   make([][]int, len(m.next)),
	}
	for i, row := range m.next {
		c.next[i] = append([]int(nil), row...)
	}
	return c
}

// fold merges the tree rooted at b into r, failing on a label conflict
func (m *mergeable) fold(r, b int) bool {
	merged, err := answer.Merge(m.labels[r], m.labels[b])
	if err != nil {
		return false
	}
	m.labels[r] = merged
	for s, bn := range m.next[b] {
		if bn == noNode {
			continue
		}
		rn := m.next[r][s]
		switch {
		case rn == noNode:
			m.next[r][s] = bn
		case rn == bn:
		default:
			if !m.fold(rn, bn) {
				return false
			}
		}
	}
	return true
}

func (r *RPNI) merge(p *pta) (*automaton.Conjecture, error) {
	cur := &mergeable{labels: p.labels, next: p.next}
	cur = cur.clone()

	red := []int{0}
	isRed := map[int]bool{0: true}

	for {
		blue := -1
		var parent, via int
		for _, q := range red {
			for s, c := range cur.next[q] {
				if c == noNode || isRed[c] {
					continue
				}
				if blue == -1 || alphabet.GradedLexCompare(p.words[c], p.words[blue]) < 0 {
					blue, parent, via = c, q, s
				}
			}
		}
		if blue == -1 {
			break
		}

		merged := false
		for _, q := range red {
			trial := cur.clone()
			trial.next[parent][via] = q
			if trial.fold(q, blue) {
				cur = trial
				merged = true
				break
			}
		}
		if !merged {
			red = append(red, blue)
			isRed[blue] = true
		}
	}

	index := make(map[int]int, len(red))
	for i, q := range red {
		index[q] = i
	}
	c := &automaton.Conjecture{
		Deterministic: true,
		AlphabetSize:  r.alphabetSize,
		StateCount:    len(red),
		Initial:       []int{0},
	}
	for i, q := range red {
		if cur.labels[q] == answer.True {
			c.Final = append(c.Final, i)
		}
		for s, d := range cur.next[q] {
			if d == noNode {
				continue
			}
			c.Transitions = append(c.Transitions, automaton.Transition{
				Source:      i,
				Label:       alphabet.Symbol(s),
				Destination: index[d],
			})
		}
	}
	return c, nil
}
