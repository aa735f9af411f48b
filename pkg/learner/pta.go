/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: pta.go
Description: Prefix tree acceptor over the definite knowledge in a knowledgebase. Offline
learners start from it: every prefix of a known word is a node, labelled with the word's
answer when the word itself is known.
*/

package learner

import (
	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
)

const noNode = -1

type pta struct {
	alphabetSize int
	words        []alphabet.Word
	labels       []answer.Answer
	next         [][]int // [node][symbol] -> node or noNode
}

func (p *pta) add(w alphabet.Word) int {
	q := 0
	for i, s := range w {
		if p.next[q][s] == noNode {
			p.next[q][s] = p.newNode(w[:i+1].Clone())
		}
		q = p.next[q][s]
	}
	return q
}

func (p *pta) newNode(w alphabet.Word) int {
	row := make([]int, p.alphabetSize)
	for i := range row {
		row[i] = noNode
	}
	p.words = append(p.words, w)
	p.labels = append(p.labels, answer.Unknown)
	p.next = append(p.next, row)
	return len(p.words) - 1
}

// buildPTA collects the known words of kb. Node ids follow graded-lexicographic
// order of first appearance, with the root (ε) as node 0.
func buildPTA(kb *knowledgebase.Knowledgebase, alphabetSize int) *pta {
	p := &pta{alphabetSize: alphabetSize}
	p.newNode(alphabet.Epsilon())
	for w, a := range kb.Knowledge() {
		if !w.Valid(alphabetSize) {
			continue
		}
		p.labels[p.add(w)] = a
	}
	return p
}

func (p *pta) size() int {
	return len(p.words)
}

// edges lists every tree edge as (parent, symbol, child)
func (p *pta) edges() [][3]int {
	var out [][3]int
	for q := range p.next {
		for s, c := range p.next[q] {
			if c != noNode {
				out = append(out, [3]int{q, s, c})
			}
		}
	}
	return out
}
