/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine_test.go
Description: Tests for the session engine. Runs full online sessions against reference
teachers, offline inference over samples, round limits, cancellation and the error paths
of initialization.
*/

package core_test

import (
	"context"
	"encoding"
	"sync"
	"testing"
	"time"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/core"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/learner"
	"github.com/kleascm/regular-learner/pkg/oracle"
	"github.com/kleascm/regular-learner/pkg/store"
	"github.com/kleascm/regular-learner/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endsInOneOneTarget() *automaton.Conjecture {
	return &automaton.Conjecture{
		Deterministic: true,
		AlphabetSize:  2,
		StateCount:    3,
		Initial:       []int{0},
		Final:         []int{2},
		Transitions: []automaton.Transition{
			{Source: 0, Label: 0, Destination: 0},
			{Source: 0, Label: 1, Destination: 1},
			{Source: 1, Label: 0, Destination: 0},
			{Source: 1, Label: 1, Destination: 2},
			{Source: 2, Label: 0, Destination: 0},
			{Source: 2, Label: 1, Destination: 2},
		},
	}
}

func evenZeros(w alphabet.Word) bool {
	zeros := 0
	for _, s := range w {
		if s == 0 {
			zeros++
		}
	}
	return zeros%2 == 0
}

// recordingReporter counts reporter callbacks
type recordingReporter struct {
	mu              sync.Mutex
	answered        int
	conjectures     int
	counterexamples []alphabet.Word
	finished        []*core.SessionResult
}

func (r *recordingReporter) OnQueriesAnswered(sessionID string, results []core.QueryResult, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answered += len(results)
}

func (r *recordingReporter) OnConjecture(sessionID string, round int, c *automaton.Conjecture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conjectures++
}

func (r *recordingReporter) OnCounterexample(sessionID string, round int, w alphabet.Word) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counterexamples = append(r.counterexamples, w)
}

func (r *recordingReporter) OnSessionFinished(result *core.SessionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, result)
}

// recordingSnapshotter keeps the rounds it was asked to persist
type recordingSnapshotter struct {
	knowledge int
	tables    int
	stats     int
	rounds    []int
}

func (s *recordingSnapshotter) SaveKnowledgebase(sessionID string, kb *knowledgebase.Knowledgebase) error {
	s.knowledge++
	return nil
}

func (s *recordingSnapshotter) SaveConjecture(sessionID string, round int, c *automaton.Conjecture) error {
	s.rounds = append(s.rounds, round)
	return nil
}

func (s *recordingSnapshotter) SaveTable(sessionID string, t *table.Table) error {
	s.tables++
	return nil
}

func (s *recordingSnapshotter) SaveStats(sessionID string, stats encoding.BinaryMarshaler) error {
	s.stats++
	return nil
}

func newTeacher(t *testing.T) *oracle.AutomatonTeacher {
	t.Helper()
	teacher, err := oracle.NewReferenceTeacher(endsInOneOneTarget())
	require.NoError(t, err)
	return teacher
}

// TestEngineLearnsTarget tests a full online session
func TestEngineLearnsTarget(t *testing.T) {
	for _, name := range []string{learner.NameAngluin, learner.NameAngluinCol} {
		t.Run(name, func(t *testing.T) {
			engine := core.NewEngine(&core.SessionConfig{
				Algorithm:    name,
				AlphabetSize: 2,
				Workers:      3,
				QueryTimeout: time.Second,
			}, nil)
			engine.SetTeacher(newTeacher(t))
			reporter := &recordingReporter{}
			engine.AddReporter(reporter)
			snapshots := &recordingSnapshotter{}
			engine.SetSnapshotter(snapshots)

			require.NoError(t, engine.Initialize())
			assert.NotEmpty(t, engine.SessionID())

			result, err := engine.Run(context.Background())
			require.NoError(t, err)
			require.NotNil(t, result)

			assert.True(t, result.Equal)
			assert.Equal(t, name, result.Algorithm)
			assert.Equal(t, engine.SessionID(), result.SessionID)
			assert.Equal(t, 3, result.Conjecture.StateCount)
			assert.True(t, automaton.Isomorphic(endsInOneOneTarget(), result.Conjecture))
			assert.False(t, engine.Running())

			stats := result.Stats
			assert.Equal(t, int64(result.Rounds), stats.EquivalenceQueries)
			assert.Equal(t, int64(result.Rounds), stats.Conjectures)
			assert.Equal(t, int64(result.Rounds-1), stats.Counterexamples)
			assert.Equal(t, int64(engine.Knowledgebase().CountAnswered()), stats.MembershipQueries)
			assert.Equal(t, int64(3), stats.LastStateCount)
			assert.Zero(t, engine.Knowledgebase().CountPending())

			assert.Equal(t, result.Rounds, reporter.conjectures)
			assert.Len(t, reporter.counterexamples, result.Rounds-1)
			assert.Equal(t, int(stats.MembershipQueries), reporter.answered)
			require.Len(t, reporter.finished, 1)
			assert.Same(t, result, reporter.finished[0])

			assert.Equal(t, result.Rounds, snapshots.knowledge)
			assert.Equal(t, result.Rounds, snapshots.tables)
			assert.Equal(t, result.Rounds, snapshots.stats)
			assert.Len(t, snapshots.rounds, result.Rounds)
		})
	}
}

// TestEngineOfflineInference tests a session that only infers from samples
func TestEngineOfflineInference(t *testing.T) {
	kb := knowledgebase.New(2)
	for _, w := range alphabet.Enumerate(2, 3) {
		require.NoError(t, kb.AddKnowledge(w, answer.FromBool(evenZeros(w))))
	}

	for _, name := range []string{learner.NameRPNI, learner.NameBiermann, learner.NameAngluin} {
		t.Run(name, func(t *testing.T) {
			engine := core.NewEngine(&core.SessionConfig{
				Algorithm:    name,
				AlphabetSize: 2,
				Offline:      true,
			}, nil)
			engine.SetKnowledgebase(kb)
			require.NoError(t, engine.Initialize())

			result, err := engine.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, result.Rounds)
			assert.False(t, result.Equal)
			require.NotNil(t, result.Conjecture)
			assert.Zero(t, result.Stats.MembershipQueries)
			assert.Zero(t, result.Stats.EquivalenceQueries)
		})
	}
}

// TestEngineWithoutEquivalenceOracle tests that a session ends at the first conjecture
func TestEngineWithoutEquivalenceOracle(t *testing.T) {
	engine := core.NewEngine(&core.SessionConfig{Algorithm: learner.NameAngluin, AlphabetSize: 2}, nil)
	engine.SetMembershipOracle(oracle.MembershipFunc(evenZeros))
	require.NoError(t, engine.Initialize())

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rounds)
	assert.False(t, result.Equal)
	assert.Equal(t, 2, result.Conjecture.StateCount)
	assert.Positive(t, result.Stats.MembershipQueries)
}

// TestEngineNeedsMembershipOracle tests an online session with nothing to answer queries
func TestEngineNeedsMembershipOracle(t *testing.T) {
	engine := core.NewEngine(&core.SessionConfig{Algorithm: learner.NameAngluin, AlphabetSize: 2}, nil)
	require.NoError(t, engine.Initialize())

	result, err := engine.Run(context.Background())
	assert.ErrorIs(t, err, oracle.ErrNeedsOracle)
	require.NotNil(t, result)
	assert.Zero(t, result.Rounds)
}

// TestEngineRoundLimit tests that MaxRounds stops a session before convergence
func TestEngineRoundLimit(t *testing.T) {
	engine := core.NewEngine(&core.SessionConfig{
		Algorithm:    learner.NameAngluin,
		AlphabetSize: 2,
		MaxRounds:    1,
	}, nil)
	engine.SetTeacher(newTeacher(t))
	require.NoError(t, engine.Initialize())

	result, err := engine.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrRoundLimit)
	assert.Equal(t, 1, result.Rounds)
	assert.False(t, result.Equal)
	assert.Equal(t, int64(1), result.Stats.Counterexamples)
}

// TestEngineCancelled tests that a cancelled context ends the session
func TestEngineCancelled(t *testing.T) {
	engine := core.NewEngine(&core.SessionConfig{Algorithm: learner.NameAngluin, AlphabetSize: 2}, nil)
	engine.SetTeacher(newTeacher(t))
	require.NoError(t, engine.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := engine.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Rounds)
}

// TestEngineInitializeErrors tests the failures of Initialize and Run
func TestEngineInitializeErrors(t *testing.T) {
	engine := core.NewEngine(&core.SessionConfig{Algorithm: learner.NameAngluin}, nil)
	_, err := engine.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrNotInitialized)

	engine = core.NewEngine(&core.SessionConfig{}, nil)
	assert.Error(t, engine.Initialize())

	engine = core.NewEngine(&core.SessionConfig{Algorithm: "gold"}, nil)
	assert.ErrorIs(t, engine.Initialize(), learner.ErrUnknownAlgorithm)

	engine = core.NewEngine(&core.SessionConfig{Algorithm: learner.NameAngluin, Workers: -1}, nil)
	assert.Error(t, engine.Initialize())
}

// TestEngineSetAlgorithm tests driving a ready-made algorithm
func TestEngineSetAlgorithm(t *testing.T) {
	kb := knowledgebase.New(2)
	alg, err := learner.NewNLStar(kb, 2)
	require.NoError(t, err)

	engine := core.NewEngine(&core.SessionConfig{Algorithm: alg.Name(), SessionID: "fixed"}, nil)
	engine.SetAlgorithm(alg)
	engine.SetMembershipOracle(oracle.MembershipFunc(evenZeros))
	require.NoError(t, engine.Initialize())

	assert.Equal(t, "fixed", engine.SessionID())
	assert.Same(t, kb, engine.Knowledgebase())
	assert.Same(t, learner.Algorithm(alg), engine.Algorithm())

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Conjecture)
	assert.False(t, result.Conjecture.Deterministic)
}

// TestEngineResume tests continuing a stored session where a round limit stopped it
func TestEngineResume(t *testing.T) {
	s, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	first := core.NewEngine(&core.SessionConfig{
		SessionID:    "resumed",
		Algorithm:    learner.NameAngluin,
		AlphabetSize: 2,
		MaxRounds:    1,
	}, nil)
	first.SetTeacher(newTeacher(t))
	first.SetSnapshotter(s)
	require.NoError(t, first.Initialize())
	_, err = first.Run(context.Background())
	require.ErrorIs(t, err, core.ErrRoundLimit)

	kb, err := s.LoadKnowledgebase("resumed")
	require.NoError(t, err)
	tableData, err := s.LoadTable("resumed")
	require.NoError(t, err)
	var stats core.SessionStats
	require.NoError(t, s.LoadStats("resumed", &stats))
	assert.Equal(t, int64(1), stats.Conjectures)
	assert.Equal(t, int64(kb.CountAnswered()), stats.MembershipQueries)

	second := core.NewEngine(&core.SessionConfig{
		SessionID:    "resumed",
		Algorithm:    learner.NameAngluin,
		AlphabetSize: 2,
	}, nil)
	second.SetTeacher(newTeacher(t))
	second.SetSnapshotter(s)
	second.Resume(kb, tableData, &stats)
	require.NoError(t, second.Initialize())
	assert.Same(t, kb, second.Knowledgebase())

	result, err := second.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Equal)
	assert.True(t, automaton.Isomorphic(endsInOneOneTarget(), result.Conjecture))
	assert.Equal(t, int64(result.Rounds+1), result.Stats.Conjectures)
	assert.Equal(t, int64(kb.CountAnswered()), result.Stats.MembershipQueries)

	_, round, err := s.LatestConjecture("resumed")
	require.NoError(t, err)
	assert.Equal(t, result.Rounds+1, round)

	var saved core.SessionStats
	require.NoError(t, s.LoadStats("resumed", &saved))
	assert.Equal(t, result.Stats.Conjectures, saved.Conjectures)
}

// TestEngineResumeMismatch tests that a table snapshot needs a table learner
func TestEngineResumeMismatch(t *testing.T) {
	tbl, err := table.New(knowledgebase.New(2), 2)
	require.NoError(t, err)
	data, err := tbl.MarshalBinary()
	require.NoError(t, err)

	engine := core.NewEngine(&core.SessionConfig{Algorithm: learner.NameRPNI, AlphabetSize: 2}, nil)
	engine.Resume(knowledgebase.New(2), data, nil)
	assert.ErrorIs(t, engine.Initialize(), core.ErrResumeMismatch)

	engine = core.NewEngine(&core.SessionConfig{Algorithm: learner.NameAngluin, AlphabetSize: 2}, nil)
	engine.Resume(knowledgebase.New(2), data[:8], nil)
	assert.ErrorIs(t, engine.Initialize(), core.ErrResumeMismatch)
}
