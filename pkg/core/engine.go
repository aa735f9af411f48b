/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Learning session engine. Drives one learning algorithm against its oracles:
pending membership queries are answered by a worker pool and committed to the
knowledgebase, conjectures are checked by the equivalence oracle and counterexamples are
fed back until the oracle reports equality, the round limit is hit or the context ends.
*/

package core

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/learner"
	"github.com/kleascm/regular-learner/pkg/logging"
	"github.com/kleascm/regular-learner/pkg/oracle"
	"github.com/kleascm/regular-learner/pkg/table"
	"github.com/sirupsen/logrus"
)

// Snapshotter persists session progress. Implemented by the badger store.
type Snapshotter interface {
	SaveKnowledgebase(sessionID string, kb *knowledgebase.Knowledgebase) error
	SaveConjecture(sessionID string, round int, c *automaton.Conjecture) error
	SaveTable(sessionID string, t *table.Table) error
	SaveStats(sessionID string, stats encoding.BinaryMarshaler) error
}

// Engine runs a learning session
type Engine struct {
	config *SessionConfig
	stats  *SessionStats
	logger *logrus.Logger

	kb          *knowledgebase.Knowledgebase
	algorithm   learner.Algorithm
	membership  oracle.MembershipOracle
	equivalence oracle.EquivalenceOracle
	pool        *WorkerPool
	snapshots   Snapshotter
	reporters   []Reporter
	resumeTable []byte

	initialized bool
	running     bool
	mu          sync.RWMutex
}

// NewEngine creates a new session engine. A nil logger discards output.
func NewEngine(config *SessionConfig, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		config: config,
		stats:  &SessionStats{StartTime: time.Now()},
		logger: logger,
	}
}

// SetKnowledgebase supplies the knowledgebase. Initialize creates one otherwise.
func (e *Engine) SetKnowledgebase(kb *knowledgebase.Knowledgebase) {
	e.kb = kb
}

// Resume continues a stored session. kb replaces the knowledgebase, a non-empty
// table snapshot is restored into the algorithm by Initialize and stats, when
// given, seed the counters so round numbers carry on.
func (e *Engine) Resume(kb *knowledgebase.Knowledgebase, tableData []byte, stats *SessionStats) {
	e.kb = kb
	e.resumeTable = tableData
	if stats != nil {
		restored := stats.Snapshot()
		restored.StartTime = time.Now()
		e.stats = &restored
	}
}

// SetAlgorithm supplies a ready-made algorithm instead of building one by name
func (e *Engine) SetAlgorithm(alg learner.Algorithm) {
	e.algorithm = alg
	e.kb = alg.Knowledgebase()
}

// SetMembershipOracle sets the oracle answering membership queries
func (e *Engine) SetMembershipOracle(o oracle.MembershipOracle) {
	e.membership = o
}

// SetEquivalenceOracle sets the oracle checking conjectures
func (e *Engine) SetEquivalenceOracle(o oracle.EquivalenceOracle) {
	e.equivalence = o
}

// SetTeacher sets both oracles
func (e *Engine) SetTeacher(t oracle.Teacher) {
	e.membership = t
	e.equivalence = t
}

// SetSnapshotter enables persistence of knowledge and conjectures
func (e *Engine) SetSnapshotter(s Snapshotter) {
	e.snapshots = s
}

// AddReporter registers a Reporter for telemetry and live reporting.
func (e *Engine) AddReporter(reporter Reporter) {
	e.reporters = append(e.reporters, reporter)
}

// Initialize validates the configuration and builds the missing components
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.config.Validate(); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}
	if e.config.SessionID == "" {
		e.config.SessionID = uuid.New().String()
	}
	if e.kb == nil {
		e.kb = knowledgebase.New(e.config.AlphabetSize)
	}

	if e.algorithm == nil {
		opts := []learner.Option{learner.WithLogger(e.logger)}
		if e.config.Offline {
			opts = append(opts, learner.WithOffline())
		}
		if e.config.MaxStates > 0 {
			opts = append(opts, learner.WithMaxStates(e.config.MaxStates))
		}
		alg, err := learner.New(e.config.Algorithm, e.kb, e.config.AlphabetSize, opts...)
		if err != nil {
			return fmt.Errorf("failed to create algorithm: %w", err)
		}
		e.algorithm = alg
	}
	if len(e.resumeTable) > 0 {
		ta, ok := e.algorithm.(learner.TableAlgorithm)
		if !ok {
			return fmt.Errorf("%w: %s keeps no observation table", ErrResumeMismatch, e.algorithm.Name())
		}
		if err := ta.RestoreTable(e.resumeTable); err != nil {
			return fmt.Errorf("%w: %w", ErrResumeMismatch, err)
		}
	}

	if e.membership != nil {
		e.pool = NewWorkerPool(e.config.Workers, e.membership, e.config.QueryTimeout, e.logger)
	}

	e.initialized = true
	e.logger.WithFields(logrus.Fields{
		"session_id": e.config.SessionID,
		"algorithm":  e.algorithm.Name(),
		"alphabet":   e.algorithm.AlphabetSize(),
	}).Info("Session engine initialized")
	return nil
}

// SessionID returns the session identifier
func (e *Engine) SessionID() string {
	return e.config.SessionID
}

// Knowledgebase returns the session knowledgebase
func (e *Engine) Knowledgebase() *knowledgebase.Knowledgebase {
	return e.kb
}

// Algorithm returns the algorithm being driven
func (e *Engine) Algorithm() learner.Algorithm {
	return e.algorithm
}

// Running reports whether Run is in progress
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Run drives the algorithm until its conjecture is confirmed. Offline sessions
// and sessions without an equivalence oracle end after the first conjecture
// with Equal unset.
func (e *Engine) Run(ctx context.Context) (*SessionResult, error) {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if e.running {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	sessionID := e.config.SessionID
	result := &SessionResult{SessionID: sessionID, Algorithm: e.algorithm.Name()}
	e.logger.WithFields(logrus.Fields{"session_id": sessionID}).Info("Session started")

	for {
		if err := ctx.Err(); err != nil {
			return e.finish(result), err
		}

		c, err := e.algorithm.Advance()
		if err != nil {
			return e.finish(result), fmt.Errorf("advance: %w", err)
		}
		if c == nil {
			if err := e.answerPending(ctx); err != nil {
				return e.finish(result), err
			}
			continue
		}

		result.Rounds++
		result.Conjecture = c
		e.stats.IncrementConjectures()
		e.stats.SetLastStateCount(c.StateCount)
		for _, r := range e.reporters {
			r.OnConjecture(sessionID, result.Rounds, c)
		}
		e.snapshot(int(e.stats.Snapshot().Conjectures), c)

		if e.equivalence == nil || !learner.Online(e.algorithm.Name()) || e.config.Offline {
			return e.finish(result), nil
		}

		verdict, err := e.checkConjecture(ctx, c)
		if err != nil {
			return e.finish(result), err
		}
		if verdict.Equal {
			result.Equal = true
			return e.finish(result), nil
		}

		e.stats.IncrementCounterexamples()
		for _, r := range e.reporters {
			r.OnCounterexample(sessionID, result.Rounds, verdict.Counterexample)
		}
		if e.config.MaxRounds > 0 && result.Rounds >= e.config.MaxRounds {
			return e.finish(result), fmt.Errorf("%w: %d rounds", ErrRoundLimit, result.Rounds)
		}
		if err := e.algorithm.AddCounterexample(verdict.Counterexample); err != nil {
			return e.finish(result), fmt.Errorf("counterexample %s: %w", verdict.Counterexample, err)
		}
	}
}

// answerPending answers every pending query and commits the answers
func (e *Engine) answerPending(ctx context.Context) error {
	queries := e.kb.Queries()
	if len(queries) == 0 {
		return ErrStalled
	}
	if e.pool == nil {
		return fmt.Errorf("%w: %d membership queries pending", oracle.ErrNeedsOracle, len(queries))
	}

	start := time.Now()
	results, err := e.pool.AnswerBatch(ctx, queries)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.stats.IncrementTimeouts()
		}
		return fmt.Errorf("answer membership queries: %w", err)
	}
	if err := commitAnswers(e.kb, results); err != nil {
		return err
	}
	elapsed := time.Since(start)

	e.stats.IncrementMembership(len(results))
	e.stats.IncrementBatches()
	for _, r := range e.reporters {
		r.OnQueriesAnswered(e.config.SessionID, results, elapsed)
	}
	return nil
}

// checkConjecture asks the equivalence oracle about c under the query timeout
func (e *Engine) checkConjecture(ctx context.Context, c *automaton.Conjecture) (oracle.EquivalenceResult, error) {
	if e.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.QueryTimeout)
		defer cancel()
	}
	e.stats.IncrementEquivalence()
	verdict, err := e.equivalence.EquivalenceQuery(ctx, c)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.stats.IncrementTimeouts()
		}
		return oracle.EquivalenceResult{}, fmt.Errorf("equivalence query: %w", err)
	}
	return verdict, nil
}

// snapshot persists progress; failures are logged, never fatal. round counts
// conjectures across resumed runs of the session.
func (e *Engine) snapshot(round int, c *automaton.Conjecture) {
	if e.snapshots == nil {
		return
	}
	id := e.config.SessionID
	if err := e.snapshots.SaveKnowledgebase(id, e.kb); err != nil {
		e.logger.WithError(err).Warn("Failed to save knowledgebase snapshot")
	}
	if err := e.snapshots.SaveConjecture(id, round, c); err != nil {
		e.logger.WithError(err).Warn("Failed to save conjecture snapshot")
	}
	if ta, ok := e.algorithm.(learner.TableAlgorithm); ok {
		if err := e.snapshots.SaveTable(id, ta.Table()); err != nil {
			e.logger.WithError(err).Warn("Failed to save observation table snapshot")
		}
	}
	if err := e.snapshots.SaveStats(id, e.stats); err != nil {
		e.logger.WithError(err).Warn("Failed to save statistics snapshot")
	}
}

func (e *Engine) finish(result *SessionResult) *SessionResult {
	result.Stats = e.stats.Snapshot()
	for _, r := range e.reporters {
		r.OnSessionFinished(result)
	}
	e.logger.WithFields(logrus.Fields{
		"session_id": result.SessionID,
		"rounds":     result.Rounds,
		"equal":      result.Equal,
	}).Info("Session finished")
	return result
}

// GetStats returns current session statistics
func (e *Engine) GetStats() SessionStats {
	return e.stats.Snapshot()
}
