/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serialize.go
Description: Binary serialization and dot export of the knowledgebase. The binary form is
[payload_len][alphabet_size][entry_count] followed by one [word][answer] pair per stored
entry in graded-lexicographic order, so equal knowledgebases encode identically no matter
in which order their words were inserted.
*/

package knowledgebase

import (
	"fmt"
	"io"
	"strings"

	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/serial"
)

// MarshalBinary encodes every answered word and every pending query
func (kb *Knowledgebase) MarshalBinary() ([]byte, error) {
	kb.mu.RLock()
	alphabetSize := kb.alphabetSize
	entries := kb.entries(func(n *node) bool { return n.answer.Known() || n.required })
	kb.mu.RUnlock()

	enc := serial.NewEncoder(2 + len(entries)*4)
	enc.PutInt(alphabetSize)
	enc.PutInt(len(entries))
	for _, e := range entries {
		enc.PutWord(e.Word)
		enc.PutAnswer(e.Answer)
	}
	return enc.Framed(), nil
}

// UnmarshalBinary replaces the contents of kb with the encoded knowledgebase.
// Entries encoded as unknown come back as pending queries. Words must fit the
// encoded alphabet size.
func (kb *Knowledgebase) UnmarshalBinary(data []byte) error {
	dec, err := serial.NewDecoder(data)
	if err != nil {
		return err
	}
	payload, err := dec.Framed()
	if err != nil {
		return fmt.Errorf("knowledgebase frame: %w", err)
	}

	alphabetSize, err := payload.Int()
	if err != nil {
		return fmt.Errorf("alphabet size: %w", err)
	}
	if alphabetSize < 0 || alphabetSize > MaxAlphabetSize {
		return fmt.Errorf("%w: %d", ErrAlphabetTooLarge, alphabetSize)
	}
	count, err := payload.Count(2)
	if err != nil {
		return fmt.Errorf("entry count: %w", err)
	}

	fresh := New(alphabetSize)
	for i := 0; i < count; i++ {
		w, err := payload.Word()
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		a, err := payload.Answer()
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if a.Known() {
			if err := fresh.AddKnowledge(w, a); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
		} else if _, err := fresh.EnqueueQuery(w); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	if payload.Remaining() != 0 {
		return fmt.Errorf("%d trailing integers after knowledgebase", payload.Remaining())
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.nodes = fresh.nodes
	kb.alphabetSize = fresh.alphabetSize
	kb.queue = fresh.queue
	kb.answered = fresh.answered
	kb.pending = fresh.pending
	return nil
}

// Unmarshal decodes a knowledgebase produced by MarshalBinary
func Unmarshal(data []byte) (*Knowledgebase, error) {
	kb := New(0)
	if err := kb.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return kb, nil
}

// WriteDot renders the prefix tree in graphviz format. Accepted words are drawn
// as double circles, rejected words as boxes and pending queries dashed.
func (kb *Knowledgebase) WriteDot(w io.Writer) error {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	var b strings.Builder
	b.WriteString("digraph knowledgebase {\n")
	b.WriteString("\tgraph [fontsize=10]\n\tnode [fontsize=10]\n")
	for i := range kb.nodes {
		n := &kb.nodes[i]
		shape := "ellipse"
		style := "solid"
		switch n.answer {
		case answer.True:
			shape = "doublecircle"
		case answer.False:
			shape = "box"
		}
		if n.required {
			style = "dashed"
		}
		fmt.Fprintf(&b, "\tq%d [label=\"%s\", shape=%s, style=%s];\n", i, kb.wordOf(Handle(i)), shape, style)
	}
	for i := range kb.nodes {
		for s, c := range kb.nodes[i].children {
			if c != NoHandle {
				fmt.Fprintf(&b, "\tq%d -> q%d [label=\"%d\"];\n", i, c, s)
			}
		}
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
