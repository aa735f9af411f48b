/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the learning session engine. Defines the session
configuration, thread-safe session statistics with their binary encoding, the result of
answering one membership query and the outcome of a whole session.
*/

package core

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/serial"
)

var (
	// ErrRoundLimit is returned when a session hits MaxRounds without an equal conjecture
	ErrRoundLimit = errors.New("round limit reached")
	// ErrAlreadyRunning is returned when Run is called on a running engine
	ErrAlreadyRunning = errors.New("session already running")
	// ErrNotInitialized is returned when Run is called before Initialize
	ErrNotInitialized = errors.New("engine not initialized")
	// ErrStalled is returned when an algorithm asks for answers but enqueued nothing
	ErrStalled = errors.New("algorithm needs answers but has no pending queries")
	// ErrResumeMismatch is returned when a stored session does not fit the configured algorithm
	ErrResumeMismatch = errors.New("stored session does not fit algorithm")
)

// SessionConfig contains the parameters of one learning session
type SessionConfig struct {
	SessionID    string        `json:"session_id" mapstructure:"session_id"`       // generated when empty
	Algorithm    string        `json:"algorithm" mapstructure:"algorithm"`         // registered learner name
	AlphabetSize int           `json:"alphabet_size" mapstructure:"alphabet_size"` // initial alphabet size
	Workers      int           `json:"workers" mapstructure:"workers"`             // concurrent membership queries
	QueryTimeout time.Duration `json:"query_timeout" mapstructure:"query_timeout"` // per-query bound, 0 for none
	MaxRounds    int           `json:"max_rounds" mapstructure:"max_rounds"`       // equivalence queries, 0 for no limit
	MaxStates    int           `json:"max_states" mapstructure:"max_states"`       // SAT search bound
	Offline      bool          `json:"offline" mapstructure:"offline"`             // table learners without oracle
}

// Validate checks the configuration for invalid values
func (c *SessionConfig) Validate() error {
	if c.Algorithm == "" {
		return fmt.Errorf("algorithm must not be empty")
	}
	if c.AlphabetSize < 0 {
		return fmt.Errorf("alphabet_size must not be negative")
	}
	if c.AlphabetSize > knowledgebase.MaxAlphabetSize {
		return fmt.Errorf("alphabet_size must not exceed %d", knowledgebase.MaxAlphabetSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("query_timeout must not be negative")
	}
	if c.MaxRounds < 0 || c.MaxStates < 0 {
		return fmt.Errorf("max_rounds and max_states must not be negative")
	}
	return nil
}

// QueryResult is the answer to one membership query
type QueryResult struct {
	Handle   knowledgebase.Handle `json:"handle"`
	Word     alphabet.Word        `json:"word"`
	Answer   answer.Answer        `json:"answer"`
	Duration time.Duration        `json:"duration"`
	WorkerID int                  `json:"worker_id"`
}

// SessionResult is the outcome of a session
type SessionResult struct {
	SessionID  string                `json:"session_id"`
	Algorithm  string                `json:"algorithm"`
	Conjecture *automaton.Conjecture `json:"conjecture"`
	Equal      bool                  `json:"equal"` // confirmed by the equivalence oracle
	Rounds     int                   `json:"rounds"`
	Stats      SessionStats          `json:"stats"`
}

// SessionStats tracks session statistics. Uses atomic operations for thread-safe updates.
type SessionStats struct {
	MembershipQueries  int64     `json:"membership_queries"`
	EquivalenceQueries int64     `json:"equivalence_queries"`
	Counterexamples    int64     `json:"counterexamples"`
	Conjectures        int64     `json:"conjectures"`
	Batches            int64     `json:"batches"`
	Timeouts           int64     `json:"timeouts"`
	LastStateCount     int64     `json:"last_state_count"`
	StartTime          time.Time `json:"start_time"`
}

// IncrementMembership atomically adds n answered membership queries
func (s *SessionStats) IncrementMembership(n int) {
	atomic.AddInt64(&s.MembershipQueries, int64(n))
}

// IncrementEquivalence atomically increments the equivalence query counter
func (s *SessionStats) IncrementEquivalence() {
	atomic.AddInt64(&s.EquivalenceQueries, 1)
}

// IncrementCounterexamples atomically increments the counterexample counter
func (s *SessionStats) IncrementCounterexamples() {
	atomic.AddInt64(&s.Counterexamples, 1)
}

// IncrementConjectures atomically increments the conjecture counter
func (s *SessionStats) IncrementConjectures() {
	atomic.AddInt64(&s.Conjectures, 1)
}

// IncrementBatches atomically increments the batch counter
func (s *SessionStats) IncrementBatches() {
	atomic.AddInt64(&s.Batches, 1)
}

// IncrementTimeouts atomically increments the timeout counter
func (s *SessionStats) IncrementTimeouts() {
	atomic.AddInt64(&s.Timeouts, 1)
}

// SetLastStateCount records the size of the latest conjecture
func (s *SessionStats) SetLastStateCount(n int) {
	atomic.StoreInt64(&s.LastStateCount, int64(n))
}

// Snapshot returns a consistent copy of the counters
func (s *SessionStats) Snapshot() SessionStats {
	return SessionStats{
		MembershipQueries:  atomic.LoadInt64(&s.MembershipQueries),
		EquivalenceQueries: atomic.LoadInt64(&s.EquivalenceQueries),
		Counterexamples:    atomic.LoadInt64(&s.Counterexamples),
		Conjectures:        atomic.LoadInt64(&s.Conjectures),
		Batches:            atomic.LoadInt64(&s.Batches),
		Timeouts:           atomic.LoadInt64(&s.Timeouts),
		LastStateCount:     atomic.LoadInt64(&s.LastStateCount),
		StartTime:          s.StartTime,
	}
}

func (s *SessionStats) fields() []*int64 {
	return []*int64{
		&s.MembershipQueries,
		&s.EquivalenceQueries,
		&s.Counterexamples,
		&s.Conjectures,
		&s.Batches,
		&s.Timeouts,
		&s.LastStateCount,
	}
}

// MarshalBinary encodes the counters as [count][field...]. The start time is not encoded.
func (s *SessionStats) MarshalBinary() ([]byte, error) {
	snap := s.Snapshot()
	fields := snap.fields()
	enc := serial.NewEncoder(1 + len(fields))
	enc.PutInt(len(fields))
	for _, f := range fields {
		enc.PutUint32(uint32(*f))
	}
	return enc.Bytes(), nil
}

// UnmarshalBinary decodes counters written by MarshalBinary. Extra trailing
// fields from newer encoders are ignored; missing ones stay zero.
func (s *SessionStats) UnmarshalBinary(data []byte) error {
	dec, err := serial.NewDecoder(data)
	if err != nil {
		return err
	}
	n, err := dec.Count(1)
	if err != nil {
		return fmt.Errorf("statistics count: %w", err)
	}
	fields := s.fields()
	for i := 0; i < n; i++ {
		v, err := dec.Uint32()
		if err != nil {
			return fmt.Errorf("statistics field %d: %w", i, err)
		}
		if i < len(fields) {
			atomic.StoreInt64(fields[i], int64(v))
		}
	}
	return nil
}
