/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: angluin.go
Description: Observation-table learners. One implementation covers classic L*
(counterexample prefixes become rows), the column variant that adds counterexample
suffixes as columns, and NL*, which runs the column variant over an RFSA table and emits
residual NFAs.
*/

package learner

import (
	"fmt"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/oracle"
	"github.com/kleascm/regular-learner/pkg/table"
	"github.com/sirupsen/logrus"
)

// Registered variant names
const (
	NameAngluin    = "angluin"
	NameAngluinCol = "angluin-col"
	NameNLStar     = "nlstar"
	NameRPNI       = "rpni"
	NameBiermann   = "biermann"
)

// TableLearner is an observation-table learner
type TableLearner struct {
	name     string
	kb       *knowledgebase.Knowledgebase
	table    *table.Table
	logger   *logrus.Logger
	opts     []table.Option
	offline  bool
	suffixes bool

	state   State
	last    *automaton.Conjecture
	round   int
	pending alphabet.Word // counterexample waiting for its own answer
}

func newTableLearner(name string, kb *knowledgebase.Knowledgebase, alphabetSize int, policy table.Policy, suffixes bool, opts []Option) (*TableLearner, error) {
	o := buildOptions(opts)
	tableOpts := []table.Option{
		table.WithPolicy(policy),
		table.WithLogger(o.Logger),
	}
	if o.Offline {
		tableOpts = append(tableOpts, table.WithUnknownPolicy(table.UnknownLenient), table.WithQueries(false))
	}
	t, err := table.New(kb, alphabetSize, tableOpts...)
	if err != nil {
		return nil, fmt.Errorf("create observation table: %w", err)
	}
	return &TableLearner{
		name:     name,
		kb:       kb,
		table:    t,
		opts:     tableOpts,
		logger:   o.Logger,
		offline:  o.Offline,
		suffixes: suffixes,
	}, nil
}

// NewAngluin creates an L* learner that adds counterexample prefixes as rows
func NewAngluin(kb *knowledgebase.Knowledgebase, alphabetSize int, opts ...Option) (*TableLearner, error) {
	return newTableLearner(NameAngluin, kb, alphabetSize, table.PolicyAngluin, false, opts)
}

// NewAngluinColumns creates an L* learner that adds counterexample suffixes as columns
func NewAngluinColumns(kb *knowledgebase.Knowledgebase, alphabetSize int, opts ...Option) (*TableLearner, error) {
	return newTableLearner(NameAngluinCol, kb, alphabetSize, table.PolicyAngluin, true, opts)
}

// NewNLStar creates an NL* learner producing residual NFAs
func NewNLStar(kb *knowledgebase.Knowledgebase, alphabetSize int, opts ...Option) (*TableLearner, error) {
	return newTableLearner(NameNLStar, kb, alphabetSize, table.PolicyRFSA, true, opts)
}

func (l *TableLearner) Name() string                                { return l.name }
func (l *TableLearner) State() State                                { return l.state }
func (l *TableLearner) AlphabetSize() int                           { return l.table.AlphabetSize() }
func (l *TableLearner) Knowledgebase() *knowledgebase.Knowledgebase { return l.kb }

// Table exposes the observation table for inspection
func (l *TableLearner) Table() *table.Table {
	return l.table
}

// Advance fills the table and applies closedness and consistency fixes until a
// conjecture can be derived or answers are missing. A counterexample whose answer
// was unknown when it arrived is checked and applied here once it is answered.
func (l *TableLearner) Advance() (*automaton.Conjecture, error) {
	if l.state == StateReady && l.last != nil {
		return l.last, nil
	}
	if l.pending != nil {
		if !l.kb.Resolve(l.pending).Known() {
			if _, err := l.kb.EnqueueQuery(l.pending); err != nil {
				return nil, fmt.Errorf("enqueue counterexample %s: %w", l.pending, err)
			}
			return nil, nil
		}
		w := l.pending
		l.pending = nil
		if err := checkCounterexample(l.kb, l.last, w); err != nil {
			l.state = StateReady
			return nil, err
		}
		if err := l.refine(w); err != nil {
			return nil, err
		}
	}
	l.state = StateGathering

	for {
		c, err := l.settle()
		if c == nil || err != nil {
			return nil, err
		}
		if !l.offline {
			return l.ready(c), nil
		}

		// offline conjectures must reproduce every known answer
		w, ok := disagreement(l.kb, c)
		if !ok {
			return l.ready(c), nil
		}
		if err := l.refineOffline(w); err != nil {
			return nil, err
		}
	}
}

// settle runs the table fixes and derives a conjecture. A nil conjecture with
// a nil error means answers are missing.
func (l *TableLearner) settle() (*automaton.Conjecture, error) {
	for {
		complete := l.table.Fill()
		if !complete && !l.offline {
			return nil, nil
		}

		changed, err := l.table.Close()
		if err != nil {
			return nil, fmt.Errorf("close table: %w", err)
		}
		if changed {
			continue
		}

		changed, err = l.table.MakeConsistent()
		if err != nil {
			return nil, fmt.Errorf("make table consistent: %w", err)
		}
		if !changed {
			break
		}
	}
	return l.table.DeriveConjecture()
}

func (l *TableLearner) ready(c *automaton.Conjecture) *automaton.Conjecture {
	l.round++
	l.state = StateReady
	l.last = c
	l.logger.WithFields(logrus.Fields{
		"algorithm": l.name,
		"round":     l.round,
		"states":    c.StateCount,
		"upper":     len(l.table.UpperRows()),
		"columns":   len(l.table.Columns()),
	}).Debug("Conjecture derived")
	return c
}

// disagreement returns the first known word c classifies against its answer
func disagreement(kb *knowledgebase.Knowledgebase, c *automaton.Conjecture) (alphabet.Word, bool) {
	for w, a := range kb.Knowledge() {
		if known, _ := a.Bool(); c.Accepts(w) != known {
			return w, true
		}
	}
	return nil, false
}

// refineOffline adds the prefixes and suffixes of a misclassified sample. When
// the table already holds them all, lenient cells have merged rows the samples
// separate, so Unknown stops matching anything.
func (l *TableLearner) refineOffline(w alphabet.Word) error {
	rows, err := l.table.AddCounterexample(w)
	if err != nil {
		return fmt.Errorf("refine with sample %s: %w", w, err)
	}
	columns, err := l.table.AddCounterexampleSuffixes(w)
	if err != nil {
		return fmt.Errorf("refine with sample %s: %w", w, err)
	}
	fields := logrus.Fields{"algorithm": l.name, "sample": w.String(), "rows": rows, "columns": columns}
	if rows+columns > 0 {
		l.logger.WithFields(fields).Debug("Conjecture disagrees with sample, refining")
		return nil
	}
	if l.table.UnknownPolicy() == table.UnknownLenient {
		l.logger.WithFields(fields).Debug("Switching to strict unknown cells")
		l.table.SetUnknownPolicy(table.UnknownStrict)
		return nil
	}
	return fmt.Errorf("%w: conjecture misclassifies sample %s", ErrNoSolution, w)
}

// AddCounterexample refines the table with w. A word with no known answer is
// enqueued and checked by the next Advance once it is answered.
func (l *TableLearner) AddCounterexample(w alphabet.Word) error {
	if l.offline {
		return fmt.Errorf("%w: %s learner runs offline", oracle.ErrNeedsOracle, l.name)
	}
	if l.state != StateReady || l.last == nil {
		return ErrNoConjecture
	}
	if !w.Valid(l.table.AlphabetSize()) {
		return fmt.Errorf("%w: %s", table.ErrSymbolOutOfRange, w)
	}
	if !l.kb.Resolve(w).Known() {
		if _, err := l.kb.EnqueueQuery(w); err != nil {
			return fmt.Errorf("enqueue counterexample %s: %w", w, err)
		}
		l.pending = w.Clone()
		l.state = StateRefining
		return nil
	}
	if err := checkCounterexample(l.kb, l.last, w); err != nil {
		return err
	}
	return l.refine(w)
}

func (l *TableLearner) refine(w alphabet.Word) error {
	// Each refinement falls back to the other when it cannot change the table,
	// so a genuine counterexample always makes progress.
	var added int
	var err error
	if l.suffixes {
		if added, err = l.table.AddCounterexampleSuffixes(w); err == nil && added == 0 {
			added, err = l.table.AddCounterexample(w)
		}
	} else {
		if added, err = l.table.AddCounterexample(w); err == nil && added == 0 {
			added, err = l.table.AddCounterexampleSuffixes(w)
		}
	}
	if err != nil {
		return fmt.Errorf("refine with %s: %w", w, err)
	}

	l.logger.WithFields(logrus.Fields{
		"algorithm":      l.name,
		"counterexample": w.String(),
		"added":          added,
	}).Debug("Counterexample added")
	l.state = StateRefining
	return nil
}

// ConjectureReady reports whether Advance can finish without new answers
func (l *TableLearner) ConjectureReady() bool {
	if l.offline || l.state == StateReady {
		return true
	}
	if l.pending != nil {
		return false
	}
	return l.table.Ready()
}

// IncreaseAlphabetSize grows the table's alphabet and forgets the last conjecture
func (l *TableLearner) IncreaseAlphabetSize(n int) error {
	if err := l.table.IncreaseAlphabetSize(n); err != nil {
		return err
	}
	l.state = StateGathering
	l.last = nil
	l.pending = nil
	return nil
}

// RestoreTable replaces the observation table with a snapshot taken by
// table.MarshalBinary. The snapshot's answers are merged into the knowledgebase
// and the learner starts over from the restored rows and columns.
func (l *TableLearner) RestoreTable(data []byte) error {
	t, err := table.Restore(l.kb, data, l.opts...)
	if err != nil {
		return fmt.Errorf("restore observation table: %w", err)
	}
	if t.AlphabetSize() > l.table.AlphabetSize() {
		return fmt.Errorf("%w: snapshot alphabet %d exceeds %d", table.ErrSymbolOutOfRange, t.AlphabetSize(), l.table.AlphabetSize())
	}
	if err := t.IncreaseAlphabetSize(l.table.AlphabetSize()); err != nil {
		return err
	}
	l.table = t
	l.state = StateGathering
	l.last = nil
	l.pending = nil
	l.logger.WithFields(logrus.Fields{
		"algorithm": l.name,
		"upper":     len(t.UpperRows()),
		"columns":   len(t.Columns()),
	}).Debug("Observation table restored")
	return nil
}
