/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: knowledgebase.go
Description: Shared, deduplicated store of membership knowledge. Words are kept in a
prefix tree backed by an arena of nodes addressed by stable integer handles, so any number
of observation tables can reference the same word without owning it. Tracks which words
are still pending queries and in which order they were first requested.
*/

package knowledgebase

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
)

// Handle addresses one node of the knowledgebase. Handles stay valid for the
// lifetime of the knowledgebase they came from.
type Handle int32

// NoHandle marks an absent node
const NoHandle Handle = -1

// Root is the handle of the empty word
const Root Handle = 0

// MaxAlphabetSize bounds the alphabet. Children are indexed densely by symbol,
// so the bound also caps the width of every node.
const MaxAlphabetSize = 1 << 16

var (
	// ErrInvalidWord is returned for words containing negative symbols
	ErrInvalidWord = errors.New("invalid word")
	// ErrSymbolOutOfRange is returned for words using symbols outside the alphabet
	ErrSymbolOutOfRange = errors.New("symbol outside alphabet")
	// ErrInvalidAnswer is returned for answer values outside False, Unknown and True
	ErrInvalidAnswer = errors.New("invalid answer value")
	// ErrInvalidHandle is returned for handles that do not belong to the knowledgebase
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrAlphabetShrink is returned when asked to reduce the alphabet size
	ErrAlphabetShrink = errors.New("alphabet size can only grow")
	// ErrAlphabetTooLarge is returned for alphabet sizes above MaxAlphabetSize
	ErrAlphabetTooLarge = errors.New("alphabet size too large")
)

// node is one word in the prefix tree. The path of labels from the root spells the word.
type node struct {
	parent   Handle
	label    alphabet.Symbol
	depth    int32
	children []Handle // indexed by symbol, NoHandle where absent
	answer   answer.Answer
	required bool // live query still waiting for an answer
}

// Query is a pending membership query
type Query struct {
	Word   alphabet.Word
	Handle Handle
}

// Entry is one stored word with its current answer
type Entry struct {
	Word   alphabet.Word
	Answer answer.Answer
}

// Stats summarises the size of a knowledgebase
type Stats struct {
	AlphabetSize int `json:"alphabet_size" yaml:"alphabet_size"`
	Nodes        int `json:"nodes" yaml:"nodes"`
	Answered     int `json:"answered" yaml:"answered"`
	Pending      int `json:"pending" yaml:"pending"`
}

// Knowledgebase stores word→answer facts. Safe for concurrent use: writers are
// serialised by an exclusive lock, readers share a read lock.
type Knowledgebase struct {
	mu sync.RWMutex

	nodes        []node
	alphabetSize int

	queue    []Handle // pending handles in first-enqueue order; may hold answered entries
	answered int
	pending  int
}

// New creates an empty knowledgebase holding only the (unknown) empty word.
// The size is clamped to [0, MaxAlphabetSize].
func New(alphabetSize int) *Knowledgebase {
	alphabetSize = min(max(alphabetSize, 0), MaxAlphabetSize)
	kb := &Knowledgebase{alphabetSize: alphabetSize}
	kb.reset()
	return kb
}

func (kb *Knowledgebase) reset() {
	kb.nodes = kb.nodes[:0]
	kb.nodes = append(kb.nodes, node{parent: NoHandle, label: -1})
	kb.queue = nil
	kb.answered = 0
	kb.pending = 0
}

// AlphabetSize returns the current alphabet size
func (kb *Knowledgebase) AlphabetSize() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.alphabetSize
}

// SetAlphabetSize grows the alphabet. It is the only way the alphabet grows;
// shrinking is refused.
func (kb *Knowledgebase) SetAlphabetSize(n int) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.setAlphabetSize(n)
}

func (kb *Knowledgebase) setAlphabetSize(n int) error {
	if n > MaxAlphabetSize {
		return fmt.Errorf("%w: %d > %d", ErrAlphabetTooLarge, n, MaxAlphabetSize)
	}
	if n < kb.alphabetSize {
		return fmt.Errorf("%w: %d -> %d", ErrAlphabetShrink, kb.alphabetSize, n)
	}
	kb.alphabetSize = n
	return nil
}

// CountAnswered returns the number of words with a definite answer
func (kb *Knowledgebase) CountAnswered() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.answered
}

// CountPending returns the number of enqueued words still unanswered
func (kb *Knowledgebase) CountPending() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.pending
}

// CountNodes returns the number of words materialised in the tree
func (kb *Knowledgebase) CountNodes() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.nodes)
}

// Stats returns a snapshot of the knowledgebase counters
func (kb *Knowledgebase) Stats() Stats {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return Stats{
		AlphabetSize: kb.alphabetSize,
		Nodes:        len(kb.nodes),
		Answered:     kb.answered,
		Pending:      kb.pending,
	}
}

// child returns the child of h labelled s, or NoHandle
func (kb *Knowledgebase) child(h Handle, s alphabet.Symbol) Handle {
	ch := kb.nodes[h].children
	if int(s) < len(ch) {
		return ch[s]
	}
	return NoHandle
}

// walk follows w from the root without creating nodes
func (kb *Knowledgebase) walk(w alphabet.Word) (Handle, bool) {
	h := Root
	for _, s := range w {
		if s < 0 {
			return NoHandle, false
		}
		if h = kb.child(h, s); h == NoHandle {
			return NoHandle, false
		}
	}
	return h, true
}

// checkWord rejects negative symbols and symbols outside the alphabet. Caller holds a lock.
func (kb *Knowledgebase) checkWord(w alphabet.Word) error {
	for _, s := range w {
		if s < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidWord, w)
		}
		if int(s) >= kb.alphabetSize {
			return fmt.Errorf("%w: %s with alphabet size %d", ErrSymbolOutOfRange, w, kb.alphabetSize)
		}
	}
	return nil
}

// ensure follows w from the root, creating missing nodes. Caller holds the write lock.
func (kb *Knowledgebase) ensure(w alphabet.Word) (Handle, error) {
	if err := kb.checkWord(w); err != nil {
		return NoHandle, err
	}

	h := Root
	for _, s := range w {
		next := kb.child(h, s)
		if next == NoHandle {
			next = Handle(len(kb.nodes))
			kb.nodes = append(kb.nodes, node{
				parent: h,
				label:  s,
				depth:  kb.nodes[h].depth + 1,
			})
			n := &kb.nodes[h]
			for len(n.children) <= int(s) {
				n.children = append(n.children, NoHandle)
			}
			n.children[s] = next
		}
		h = next
	}
	return h, nil
}

// wordOf rebuilds the word of h. Caller holds a lock.
func (kb *Knowledgebase) wordOf(h Handle) alphabet.Word {
	w := make(alphabet.Word, kb.nodes[h].depth)
	for i := len(w) - 1; h != Root; i-- {
		w[i] = kb.nodes[h].label
		h = kb.nodes[h].parent
	}
	return w
}

func (kb *Knowledgebase) valid(h Handle) bool {
	return h >= 0 && int(h) < len(kb.nodes)
}

// set merges a into the answer of h. Caller holds the write lock.
func (kb *Knowledgebase) set(h Handle, a answer.Answer) error {
	if !a.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAnswer, int8(a))
	}
	n := &kb.nodes[h]
	merged, err := answer.Merge(n.answer, a)
	if err != nil {
		return fmt.Errorf("word %s: %w", kb.wordOf(h), err)
	}
	if merged == n.answer {
		return nil
	}
	n.answer = merged
	kb.answered++
	if n.required {
		n.required = false
		kb.pending--
	}
	return nil
}

// AddKnowledge records the answer for w. A contradicting definite answer is
// rejected with answer.ErrConflict and leaves the stored answer untouched.
func (kb *Knowledgebase) AddKnowledge(w alphabet.Word, a answer.Answer) error {
	if !a.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAnswer, int8(a))
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	h, err := kb.ensure(w)
	if err != nil {
		return err
	}
	return kb.set(h, a)
}

// Resolve returns the current answer for w, Unknown if the word was never answered
func (kb *Knowledgebase) Resolve(w alphabet.Word) answer.Answer {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if h, ok := kb.walk(w); ok {
		return kb.nodes[h].answer
	}
	return answer.Unknown
}

// Lookup returns the handle of w if the word is already stored
func (kb *Knowledgebase) Lookup(w alphabet.Word) (Handle, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.walk(w)
}

// Handle returns the handle of w, creating the node if needed, without marking it as a query
func (kb *Knowledgebase) Handle(w alphabet.Word) (Handle, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.ensure(w)
}

// EnqueueQuery marks w as a pending query unless its answer is already known.
// Idempotent; the returned handle can later be passed to AnswerQuery.
func (kb *Knowledgebase) EnqueueQuery(w alphabet.Word) (Handle, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	h, err := kb.ensure(w)
	if err != nil {
		return NoHandle, err
	}
	kb.require(h)
	return h, nil
}

// EnqueueHandle marks an existing node as a pending query
func (kb *Knowledgebase) EnqueueHandle(h Handle) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if !kb.valid(h) {
		return fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	kb.require(h)
	return nil
}

func (kb *Knowledgebase) require(h Handle) {
	n := &kb.nodes[h]
	if n.answer.Known() || n.required {
		return
	}
	n.required = true
	kb.pending++

	// Drop answered entries once they dominate the queue.
	if len(kb.queue) > 64 && len(kb.queue) > 2*kb.pending {
		live := kb.queue[:0]
		for _, q := range kb.queue {
			if kb.nodes[q].required {
				live = append(live, q)
			}
		}
		kb.queue = live
	}
	kb.queue = append(kb.queue, h)
}

// AnswerQuery supplies the answer for a handle obtained from EnqueueQuery
func (kb *Knowledgebase) AnswerQuery(h Handle, a answer.Answer) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if !kb.valid(h) {
		return fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return kb.set(h, a)
}

// AnswerOf returns the current answer stored at h
func (kb *Knowledgebase) AnswerOf(h Handle) answer.Answer {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if !kb.valid(h) {
		return answer.Unknown
	}
	return kb.nodes[h].answer
}

// IsPending reports whether h is an enqueued, still unanswered query
func (kb *Knowledgebase) IsPending(h Handle) bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.valid(h) && kb.nodes[h].required
}

// WordOf returns the word addressed by h
func (kb *Knowledgebase) WordOf(h Handle) (alphabet.Word, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if !kb.valid(h) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return kb.wordOf(h), nil
}

// Queries returns a snapshot of the pending queries in first-enqueue order
func (kb *Knowledgebase) Queries() []Query {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	out := make([]Query, 0, kb.pending)
	for _, h := range kb.queue {
		if kb.nodes[h].required {
			out = append(out, Query{Word: kb.wordOf(h), Handle: h})
		}
	}
	return out
}

// PendingQueries yields every pending query in first-enqueue order. Each range
// over the sequence takes a fresh snapshot, so re-running it after answers were
// supplied yields only what is still pending.
func (kb *Knowledgebase) PendingQueries() iter.Seq2[alphabet.Word, Handle] {
	return func(yield func(alphabet.Word, Handle) bool) {
		for _, q := range kb.Queries() {
			if !yield(q.Word, q.Handle) {
				return
			}
		}
	}
}

// ClearQueries forgets every pending mark without touching answers
func (kb *Knowledgebase) ClearQueries() {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	for _, h := range kb.queue {
		kb.nodes[h].required = false
	}
	kb.queue = nil
	kb.pending = 0
}

// Clear drops all knowledge. The alphabet size is kept. Handles handed out
// before the call become invalid.
func (kb *Knowledgebase) Clear() {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.reset()
}

// entries walks the tree breadth first with children in symbol order, which
// visits words in graded-lexicographic order. Caller holds a lock.
func (kb *Knowledgebase) entries(keep func(n *node) bool) []Entry {
	var out []Entry
	frontier := []Handle{Root}
	for len(frontier) > 0 {
		var next []Handle
		for _, h := range frontier {
			n := &kb.nodes[h]
			if keep(n) {
				out = append(out, Entry{Word: kb.wordOf(h), Answer: n.answer})
			}
			for _, c := range n.children {
				if c != NoHandle {
					next = append(next, c)
				}
			}
		}
		frontier = next
	}
	return out
}

// Entries returns every answered or pending word in graded-lexicographic order
func (kb *Knowledgebase) Entries() []Entry {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.entries(func(n *node) bool { return n.answer.Known() || n.required })
}

// Knowledge yields every word with a definite answer in graded-lexicographic order
func (kb *Knowledgebase) Knowledge() iter.Seq2[alphabet.Word, answer.Answer] {
	return func(yield func(alphabet.Word, answer.Answer) bool) {
		kb.mu.RLock()
		known := kb.entries(func(n *node) bool { return n.answer.Known() })
		kb.mu.RUnlock()

		for _, e := range known {
			if !yield(e.Word, e.Answer) {
				return
			}
		}
	}
}
