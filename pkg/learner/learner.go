/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: learner.go
Description: The learning-algorithm protocol shared by every variant. An algorithm is
advanced until it either yields a conjecture or needs membership answers, and is refined
with counterexamples from the equivalence oracle. Variants are registered by name and
selected at construction time.
*/

package learner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/logging"
	"github.com/kleascm/regular-learner/pkg/table"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoConjecture is returned when a counterexample arrives before any conjecture
	ErrNoConjecture = errors.New("no conjecture to refute")
	// ErrInvalidCounterexample is returned for words the previous conjecture already classifies correctly
	ErrInvalidCounterexample = errors.New("word is not a counterexample")
	// ErrUnknownAlgorithm is returned by New for unregistered names
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	// ErrNoSolution is returned when an offline learner finds no automaton
	// consistent with its samples, e.g. when a search exhausts its state bound
	ErrNoSolution = errors.New("no consistent automaton within bound")
)

// State is the position of an algorithm in its learning cycle
type State int

const (
	// StateGathering means the table still needs answers or fixes
	StateGathering State = iota
	// StateReady means the last Advance returned a conjecture
	StateReady
	// StateRefining means a counterexample was just added
	StateRefining
)

func (s State) String() string {
	switch s {
	case StateGathering:
		return "gathering"
	case StateReady:
		return "ready"
	case StateRefining:
		return "refining"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Algorithm is one learning variant driving its own tables over a shared knowledgebase.
// An algorithm is driven by one goroutine at a time.
type Algorithm interface {
	// Name returns the registry name of the variant
	Name() string

	// Advance works on the tables until a conjecture can be derived. A nil
	// conjecture with a nil error means pending queries must be answered first.
	Advance() (*automaton.Conjecture, error)

	// AddCounterexample refines the algorithm with a word the last conjecture misclassifies
	AddCounterexample(w alphabet.Word) error

	// ConjectureReady reports whether the next Advance should yield a conjecture
	// without further oracle interaction
	ConjectureReady() bool

	// State returns the current position in the learning cycle
	State() State

	// IncreaseAlphabetSize grows the alphabet. Shrinking is an error.
	IncreaseAlphabetSize(n int) error

	// AlphabetSize returns the current alphabet size
	AlphabetSize() int

	// Knowledgebase returns the knowledgebase the algorithm queries
	Knowledgebase() *knowledgebase.Knowledgebase
}

// TableAlgorithm is an algorithm backed by an observation table that can be
// snapshotted and restored
type TableAlgorithm interface {
	Algorithm

	// Table returns the current observation table
	Table() *table.Table

	// RestoreTable replaces the table with a snapshot from table.MarshalBinary
	RestoreTable(data []byte) error
}

// Options collects construction settings for every variant
type Options struct {
	Logger    *logrus.Logger
	Offline   bool
	MaxStates int
}

// Option configures an algorithm
type Option func(*Options)

// WithLogger sets the logger for algorithm and table events
func WithLogger(logger *logrus.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithOffline builds a table variant that learns only from what the knowledgebase
// already holds. Unknown cells match anything and counterexamples are refused.
func WithOffline() Option {
	return func(o *Options) { o.Offline = true }
}

// WithMaxStates bounds the state count searched by the SAT variant
func WithMaxStates(n int) Option {
	return func(o *Options) { o.MaxStates = n }
}

func buildOptions(opts []Option) Options {
	o := Options{Logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	return o
}

// Constructor builds a registered variant
type Constructor func(kb *knowledgebase.Knowledgebase, alphabetSize int, opts ...Option) (Algorithm, error)

var registry = map[string]Constructor{
	NameAngluin:    func(kb *knowledgebase.Knowledgebase, n int, opts ...Option) (Algorithm, error) { return NewAngluin(kb, n, opts...) },
	NameAngluinCol: func(kb *knowledgebase.Knowledgebase, n int, opts ...Option) (Algorithm, error) { return NewAngluinColumns(kb, n, opts...) },
	NameNLStar:     func(kb *knowledgebase.Knowledgebase, n int, opts ...Option) (Algorithm, error) { return NewNLStar(kb, n, opts...) },
	NameRPNI:       func(kb *knowledgebase.Knowledgebase, n int, opts ...Option) (Algorithm, error) { return NewRPNI(kb, n, opts...) },
	NameBiermann:   func(kb *knowledgebase.Knowledgebase, n int, opts ...Option) (Algorithm, error) { return NewBiermann(kb, n, opts...) },
}

// New builds the variant registered under name
func New(name string, kb *knowledgebase.Knowledgebase, alphabetSize int, opts ...Option) (Algorithm, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return ctor(kb, alphabetSize, opts...)
}

// Names lists the registered variants
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Online reports whether the named variant consumes equivalence queries
func Online(name string) bool {
	return name != NameRPNI && name != NameBiermann
}

// checkCounterexample rejects words the previous conjecture already gets right,
// as far as the knowledgebase can tell
func checkCounterexample(kb *knowledgebase.Knowledgebase, last *automaton.Conjecture, w alphabet.Word) error {
	known, ok := kb.Resolve(w).Bool()
	if !ok {
		return nil
	}
	if last.Accepts(w) == known {
		return fmt.Errorf("%w: conjecture already classifies %s as %t", ErrInvalidCounterexample, w, known)
	}
	return nil
}
