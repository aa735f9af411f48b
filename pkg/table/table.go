/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: table.go
Description: Observation table engine. Maintains the upper table (a set of access
words), the lower table (their one-symbol extensions) and the shared suffix columns.
Every cell is a handle into the knowledgebase for row·column, so tables never own
answers. Implements filling, closedness and consistency checking with their fixes,
counterexample refinement, alphabet growth and conjecture derivation.
*/

package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/logging"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotReady is returned when a conjecture is requested from a table that
	// is incomplete, not closed or not consistent
	ErrNotReady = errors.New("table not closed and consistent")
	// ErrDuplicateColumn is returned when a suffix is already a column
	ErrDuplicateColumn = errors.New("column already present")
	// ErrSymbolOutOfRange is returned for words using symbols outside the alphabet
	ErrSymbolOutOfRange = errors.New("symbol outside alphabet")
	// ErrAlphabetShrink is returned when asked to reduce the alphabet size
	ErrAlphabetShrink = errors.New("alphabet size can only grow")
)

// Policy selects how rows are compared for closedness, consistency and derivation
type Policy int

const (
	// PolicyAngluin compares rows for equality and derives deterministic automata
	PolicyAngluin Policy = iota
	// PolicyRFSA compares rows by coverage and derives residual NFAs from prime rows
	PolicyRFSA
)

func (p Policy) String() string {
	switch p {
	case PolicyAngluin:
		return "angluin"
	case PolicyRFSA:
		return "rfsa"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// UnknownPolicy selects how Unknown cells compare
type UnknownPolicy int

const (
	// UnknownStrict treats Unknown as a value of its own: it only equals Unknown
	UnknownStrict UnknownPolicy = iota
	// UnknownLenient treats Unknown as a wildcard compatible with any answer
	UnknownLenient
)

// Row is one access word of the table. Cells hold knowledgebase handles in column order.
type Row struct {
	Word  alphabet.Word
	Upper bool
	cells []knowledgebase.Handle
}

// Table is an observation table. A table is driven by one goroutine at a time.
type Table struct {
	kb           *knowledgebase.Knowledgebase
	alphabetSize int
	policy       Policy
	unknown      UnknownPolicy
	queries      bool
	logger       *logrus.Logger

	columns    []alphabet.Word
	columnKeys map[string]int
	upper      []*Row
	lower      []*Row
	rows       map[string]*Row
}

// Option configures a Table
type Option func(*Table)

// WithPolicy selects the row comparison policy
func WithPolicy(p Policy) Option {
	return func(t *Table) { t.policy = p }
}

// WithUnknownPolicy selects how Unknown cells compare
func WithUnknownPolicy(u UnknownPolicy) Option {
	return func(t *Table) { t.unknown = u }
}

// WithQueries controls whether Fill enqueues unanswered cells. Offline tables
// built over a pre-populated knowledgebase turn this off.
func WithQueries(enabled bool) Option {
	return func(t *Table) { t.queries = enabled }
}

// WithLogger sets the logger used for table fixes
func WithLogger(logger *logrus.Logger) Option {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a table with upper row ε, one lower row per symbol and column ε
func New(kb *knowledgebase.Knowledgebase, alphabetSize int, opts ...Option) (*Table, error) {
	if alphabetSize < 0 {
		return nil, fmt.Errorf("%w: negative alphabet size %d", ErrSymbolOutOfRange, alphabetSize)
	}
	t := &Table{
		kb:           kb,
		alphabetSize: alphabetSize,
		queries:      true,
		logger:       logging.Discard(),
		columnKeys:   make(map[string]int),
		rows:         make(map[string]*Row),
	}
	for _, opt := range opts {
		opt(t)
	}
	if kb.AlphabetSize() < alphabetSize {
		if err := kb.SetAlphabetSize(alphabetSize); err != nil {
			return nil, err
		}
	}

	t.columns = append(t.columns, alphabet.Epsilon())
	t.columnKeys[alphabet.Epsilon().Key()] = 0
	if _, err := t.addRow(alphabet.Epsilon(), true); err != nil {
		return nil, err
	}
	return t, nil
}

// Knowledgebase returns the knowledgebase backing the cells
func (t *Table) Knowledgebase() *knowledgebase.Knowledgebase {
	return t.kb
}

// AlphabetSize returns the current alphabet size
func (t *Table) AlphabetSize() int {
	return t.alphabetSize
}

// Policy returns the row comparison policy
func (t *Table) Policy() Policy {
	return t.policy
}

// UnknownPolicy returns how Unknown cells compare
func (t *Table) UnknownPolicy() UnknownPolicy {
	return t.unknown
}

// SetUnknownPolicy changes how Unknown cells compare from now on
func (t *Table) SetUnknownPolicy(u UnknownPolicy) {
	t.unknown = u
}

// Columns returns a copy of the column suffixes in insertion order
func (t *Table) Columns() []alphabet.Word {
	out := make([]alphabet.Word, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Clone()
	}
	return out
}

// UpperRows returns the upper rows in insertion order
func (t *Table) UpperRows() []*Row {
	return append([]*Row(nil), t.upper...)
}

// LowerRows returns the lower rows in insertion order
func (t *Table) LowerRows() []*Row {
	return append([]*Row(nil), t.lower...)
}

// Row looks up the row for w
func (t *Table) Row(w alphabet.Word) (*Row, bool) {
	r, ok := t.rows[w.Key()]
	return r, ok
}

// CellCount returns the number of cells across both tables
func (t *Table) CellCount() int {
	return (len(t.upper) + len(t.lower)) * len(t.columns)
}

// RowAnswers returns the current answers of r in column order
func (t *Table) RowAnswers(r *Row) []answer.Answer {
	out := make([]answer.Answer, len(r.cells))
	for i, h := range r.cells {
		out[i] = t.kb.AnswerOf(h)
	}
	return out
}

func (t *Table) checkWord(w alphabet.Word) error {
	if !w.Valid(t.alphabetSize) {
		return fmt.Errorf("%w: %s with alphabet size %d", ErrSymbolOutOfRange, w, t.alphabetSize)
	}
	return nil
}

// cell creates (or finds) the knowledgebase node for row·column
func (t *Table) cell(row, column alphabet.Word) (knowledgebase.Handle, error) {
	return t.kb.Handle(alphabet.Concat(row, column))
}

// addRow inserts w, or promotes it if it is a lower row and upper is requested.
// Upper rows always have all their one-symbol extensions as rows.
func (t *Table) addRow(w alphabet.Word, upper bool) (*Row, error) {
	if r, ok := t.rows[w.Key()]; ok {
		if upper && !r.Upper {
			if err := t.promote(r); err != nil {
				return nil, err
			}
		}
		return r, nil
	}

	r := &Row{Word: w.Clone(), Upper: upper, cells: make([]knowledgebase.Handle, len(t.columns))}
	for i, c := range t.columns {
		h, err := t.cell(r.Word, c)
		if err != nil {
			return nil, err
		}
		r.cells[i] = h
	}
	t.rows[r.Word.Key()] = r
	if upper {
		t.upper = append(t.upper, r)
		if err := t.addExtensions(r, 0); err != nil {
			return nil, err
		}
	} else {
		t.lower = append(t.lower, r)
	}
	return r, nil
}

// addExtensions adds r·a as lower rows for every symbol a >= from not yet present
func (t *Table) addExtensions(r *Row, from int) error {
	for s := from; s < t.alphabetSize; s++ {
		if _, err := t.addRow(r.Word.Append(alphabet.Symbol(s)), false); err != nil {
			return err
		}
	}
	return nil
}

// promote moves a lower row into the upper table
func (t *Table) promote(r *Row) error {
	for i, l := range t.lower {
		if l == r {
			t.lower = append(t.lower[:i], t.lower[i+1:]...)
			break
		}
	}
	r.Upper = true
	t.upper = append(t.upper, r)
	return t.addExtensions(r, 0)
}

// AddRow adds w as a lower row, or as an upper row (with its extensions) when upper is set.
// An existing lower row is promoted when upper is set; nothing is ever demoted.
func (t *Table) AddRow(w alphabet.Word, upper bool) error {
	if err := t.checkWord(w); err != nil {
		return err
	}
	_, err := t.addRow(w, upper)
	if err == nil {
		t.Fill()
	}
	return err
}

// AddColumn tracks one more suffix in every row
func (t *Table) AddColumn(w alphabet.Word) error {
	if err := t.checkWord(w); err != nil {
		return err
	}
	key := w.Key()
	if _, dup := t.columnKeys[key]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateColumn, w)
	}

	// resolve every new cell before touching the table, so a failure leaves it unchanged
	all := t.allRows()
	handles := make([]knowledgebase.Handle, len(all))
	for i, r := range all {
		h, err := t.cell(r.Word, w)
		if err != nil {
			return err
		}
		handles[i] = h
	}

	t.columnKeys[key] = len(t.columns)
	t.columns = append(t.columns, w.Clone())
	for i, r := range all {
		r.cells = append(r.cells, handles[i])
	}
	t.Fill()
	return nil
}

// Rows returns every row, upper rows first
func (t *Table) Rows() []*Row {
	return t.allRows()
}

func (t *Table) allRows() []*Row {
	out := make([]*Row, 0, len(t.upper)+len(t.lower))
	out = append(out, t.upper...)
	return append(out, t.lower...)
}

// Fill enqueues every cell whose answer is not yet known and reports whether
// all cells are resolvable. Calling it again is harmless.
func (t *Table) Fill() bool {
	complete := true
	enqueued := 0
	for _, r := range t.allRows() {
		for _, h := range r.cells {
			if t.kb.AnswerOf(h).Known() {
				continue
			}
			complete = false
			if t.queries && !t.kb.IsPending(h) {
				if err := t.kb.EnqueueHandle(h); err == nil {
					enqueued++
				}
			}
		}
	}
	if enqueued > 0 {
		t.logger.WithFields(logrus.Fields{"enqueued": enqueued, "cells": t.CellCount()}).Debug("Table filled")
	}
	return complete
}

// Complete reports whether every cell has a definite answer, without enqueuing anything
func (t *Table) Complete() bool {
	for _, r := range t.allRows() {
		for _, h := range r.cells {
			if !t.kb.AnswerOf(h).Known() {
				return false
			}
		}
	}
	return true
}

// cellsEqual compares two answers under the unknown policy
func (t *Table) cellsEqual(a, b answer.Answer) bool {
	if t.unknown == UnknownLenient {
		return answer.Compatible(a, b)
	}
	return a == b
}

// RowsEqual compares two rows over all current columns
func (t *Table) RowsEqual(a, b *Row) bool {
	for i := range t.columns {
		if !t.cellsEqual(t.kb.AnswerOf(a.cells[i]), t.kb.AnswerOf(b.cells[i])) {
			return false
		}
	}
	return true
}

// extension returns the row of r·s
func (t *Table) extension(r *Row, s alphabet.Symbol) (*Row, bool) {
	return t.Row(r.Word.Append(s))
}

// FindEqualUpper returns the first upper row equal to r
func (t *Table) FindEqualUpper(r *Row) (*Row, bool) {
	for _, u := range t.upper {
		if t.RowsEqual(u, r) {
			return u, true
		}
	}
	return nil, false
}

// ClosednessViolation returns the first lower row the upper table cannot represent.
// Under the RFSA policy the returned row is a prime lower row when one exists, since
// promoting it is what repairs the defect.
func (t *Table) ClosednessViolation() (*Row, bool) {
	if t.policy == PolicyRFSA {
		return t.rfsaClosednessViolation()
	}
	for _, l := range t.lower {
		if _, ok := t.FindEqualUpper(l); !ok {
			return l, true
		}
	}
	return nil, false
}

// IsClosed reports whether every lower row is represented by the upper table
func (t *Table) IsClosed() bool {
	_, violated := t.ClosednessViolation()
	return !violated
}

// ConsistencyViolation returns the suffix a·c that separates two rows the table
// currently cannot tell apart. Pairs are visited in upper order, symbols in
// alphabet order and columns in column order; the first disagreement wins.
func (t *Table) ConsistencyViolation() (alphabet.Word, bool) {
	if t.policy == PolicyRFSA {
		return t.rfsaConsistencyViolation()
	}
	for i, u1 := range t.upper {
		for _, u2 := range t.upper[i+1:] {
			if !t.RowsEqual(u1, u2) {
				continue
			}
			for s := 0; s < t.alphabetSize; s++ {
				sym := alphabet.Symbol(s)
				e1, ok1 := t.extension(u1, sym)
				e2, ok2 := t.extension(u2, sym)
				if !ok1 || !ok2 {
					continue
				}
				for c := range t.columns {
					if !t.cellsEqual(t.kb.AnswerOf(e1.cells[c]), t.kb.AnswerOf(e2.cells[c])) {
						return separatingSuffix(sym, t.columns[c]), true
					}
				}
			}
		}
	}
	return nil, false
}

func separatingSuffix(s alphabet.Symbol, column alphabet.Word) alphabet.Word {
	return alphabet.Concat(alphabet.Word{s}, column)
}

// IsConsistent reports whether equal upper rows stay equal under every extension
func (t *Table) IsConsistent() bool {
	_, violated := t.ConsistencyViolation()
	return !violated
}

// Close promotes the first lower row violating closedness. It reports whether
// the table changed.
func (t *Table) Close() (bool, error) {
	r, violated := t.ClosednessViolation()
	if !violated {
		return false, nil
	}
	t.logger.WithFields(logrus.Fields{"row": r.Word.String()}).Debug("Promoting row to close table")
	if err := t.promote(r); err != nil {
		return false, err
	}
	t.Fill()
	return true, nil
}

// MakeConsistent adds the column fixing the first consistency violation. It
// reports whether the table changed.
func (t *Table) MakeConsistent() (bool, error) {
	suffix, violated := t.ConsistencyViolation()
	if !violated {
		return false, nil
	}
	t.logger.WithFields(logrus.Fields{"column": suffix.String()}).Debug("Adding column to restore consistency")
	if err := t.AddColumn(suffix); err != nil {
		return false, err
	}
	return true, nil
}

// AddCounterexample makes every prefix of w an upper row
func (t *Table) AddCounterexample(w alphabet.Word) (int, error) {
	if err := t.checkWord(w); err != nil {
		return 0, err
	}
	before := len(t.upper)
	for _, p := range w.Prefixes() {
		if _, err := t.addRow(p, true); err != nil {
			return len(t.upper) - before, err
		}
	}
	t.Fill()
	return len(t.upper) - before, nil
}

// AddCounterexampleSuffixes makes every non-empty suffix of w a column
func (t *Table) AddCounterexampleSuffixes(w alphabet.Word) (int, error) {
	if err := t.checkWord(w); err != nil {
		return 0, err
	}
	added := 0
	for _, s := range w.Suffixes() {
		if s.IsEpsilon() {
			continue
		}
		if _, dup := t.columnKeys[s.Key()]; dup {
			continue
		}
		if err := t.AddColumn(s); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// IncreaseAlphabetSize grows the alphabet, adding one lower row per upper row and new symbol
func (t *Table) IncreaseAlphabetSize(n int) error {
	if n < t.alphabetSize {
		return fmt.Errorf("%w: %d -> %d", ErrAlphabetShrink, t.alphabetSize, n)
	}
	if n == t.alphabetSize {
		return nil
	}
	if t.kb.AlphabetSize() < n {
		if err := t.kb.SetAlphabetSize(n); err != nil {
			return err
		}
	}
	old := t.alphabetSize
	t.alphabetSize = n
	for _, u := range append([]*Row(nil), t.upper...) {
		if err := t.addExtensions(u, old); err != nil {
			return err
		}
	}
	t.Fill()
	return nil
}

// EquivalenceClasses partitions all rows (upper first) by row equality. Under the
// lenient policy a row joins the first class whose representative it matches.
func (t *Table) EquivalenceClasses() [][]*Row {
	var classes [][]*Row
	for _, r := range t.allRows() {
		placed := false
		for i, class := range classes {
			if t.RowsEqual(class[0], r) {
				classes[i] = append(classes[i], r)
				placed = true
				break
			}
		}
		if !placed {
			classes = append(classes, []*Row{r})
		}
	}
	return classes
}

// String renders the table for debugging
func (t *Table) String() string {
	var b strings.Builder
	b.WriteString("rows\\cols")
	for _, c := range t.columns {
		b.WriteString("\t")
		b.WriteString(c.String())
	}
	b.WriteString("\n")
	write := func(r *Row) {
		b.WriteString(r.Word.String())
		for _, a := range t.RowAnswers(r) {
			b.WriteString("\t")
			switch a {
			case answer.True:
				b.WriteString("+")
			case answer.False:
				b.WriteString("-")
			default:
				b.WriteString("?")
			}
		}
		b.WriteString("\n")
	}
	for _, r := range t.upper {
		write(r)
	}
	b.WriteString("----\n")
	for _, r := range t.lower {
		write(r)
	}
	return b.String()
}
