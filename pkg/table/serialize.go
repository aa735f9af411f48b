/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serialize.go
Description: Binary snapshot of an observation table. Layout is
[payload_len][alphabet_size][columns][upper_count]{[word][answers]}[lower_count]{[word][answers]},
using the shared big-endian integer stream. Restoring a snapshot writes the stored
answers back into the knowledgebase and rebuilds the rows over it.
*/

package table

import (
	"fmt"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/serial"
)

// MarshalBinary encodes columns, rows and the answers currently in their cells
func (t *Table) MarshalBinary() ([]byte, error) {
	enc := serial.NewEncoder(4 + t.CellCount()*2)
	enc.PutInt(t.alphabetSize)
	enc.PutWords(t.columns)
	for _, rows := range [][]*Row{t.upper, t.lower} {
		enc.PutInt(len(rows))
		for _, r := range rows {
			enc.PutWord(r.Word)
			enc.PutAnswers(t.RowAnswers(r))
		}
	}
	return enc.Framed(), nil
}

type snapshotRow struct {
	word    alphabet.Word
	answers []answer.Answer
}

// Restore rebuilds a table from a snapshot over kb. Known answers in the snapshot
// are added to kb; a snapshot contradicting kb fails with answer.ErrConflict.
func Restore(kb *knowledgebase.Knowledgebase, data []byte, opts ...Option) (*Table, error) {
	dec, err := serial.NewDecoder(data)
	if err != nil {
		return nil, err
	}
	payload, err := dec.Framed()
	if err != nil {
		return nil, fmt.Errorf("table frame: %w", err)
	}
	if dec.Remaining() != 0 {
		return nil, fmt.Errorf("%w: trailing data after table", serial.ErrShortBuffer)
	}

	alphabetSize, err := payload.Int()
	if err != nil {
		return nil, fmt.Errorf("alphabet size: %w", err)
	}
	columns, err := payload.Words()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	if len(columns) == 0 || !columns[0].IsEpsilon() {
		return nil, fmt.Errorf("%w: first column must be ε", serial.ErrShortBuffer)
	}

	var sections [2][]snapshotRow
	for i := range sections {
		n, err := payload.Count(2)
		if err != nil {
			return nil, fmt.Errorf("row count: %w", err)
		}
		for j := 0; j < n; j++ {
			w, err := payload.Word()
			if err != nil {
				return nil, fmt.Errorf("row word: %w", err)
			}
			as, err := payload.Answers()
			if err != nil {
				return nil, fmt.Errorf("row answers: %w", err)
			}
			if len(as) != len(columns) {
				return nil, fmt.Errorf("%w: row %s has %d cells for %d columns", serial.ErrShortBuffer, w, len(as), len(columns))
			}
			sections[i] = append(sections[i], snapshotRow{word: w, answers: as})
		}
	}
	if payload.Remaining() != 0 {
		return nil, fmt.Errorf("%w: trailing data in table frame", serial.ErrShortBuffer)
	}

	for _, col := range columns {
		if !col.Valid(alphabetSize) {
			return nil, fmt.Errorf("%w: column %s with alphabet size %d", ErrSymbolOutOfRange, col, alphabetSize)
		}
	}
	if kb.AlphabetSize() < alphabetSize {
		if err := kb.SetAlphabetSize(alphabetSize); err != nil {
			return nil, err
		}
	}
	for _, rows := range sections {
		for _, r := range rows {
			if !r.word.Valid(alphabetSize) {
				return nil, fmt.Errorf("%w: row %s with alphabet size %d", ErrSymbolOutOfRange, r.word, alphabetSize)
			}
			for c, a := range r.answers {
				if !a.Known() {
					continue
				}
				if err := kb.AddKnowledge(alphabet.Concat(r.word, columns[c]), a); err != nil {
					return nil, err
				}
			}
		}
	}

	t, err := New(kb, alphabetSize, opts...)
	if err != nil {
		return nil, err
	}
	for _, col := range columns[1:] {
		if err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	for i, rows := range sections {
		for _, r := range rows {
			if err := t.checkWord(r.word); err != nil {
				return nil, err
			}
			if _, err := t.addRow(r.word, i == 0); err != nil {
				return nil, err
			}
		}
	}
	t.Fill()
	return t, nil
}
