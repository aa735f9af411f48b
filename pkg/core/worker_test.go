/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: worker_test.go
Description: Tests for membership query workers and the worker pool, plus the binary
encoding of session statistics.
*/

package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/core"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/logging"
	"github.com/kleascm/regular-learner/pkg/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unknownOracle never commits to an answer
type unknownOracle struct{}

func (unknownOracle) MembershipQuery(ctx context.Context, w alphabet.Word) (answer.Answer, error) {
	return answer.Unknown, nil
}

// blockingOracle waits until its context ends
type blockingOracle struct{}

func (blockingOracle) MembershipQuery(ctx context.Context, w alphabet.Word) (answer.Answer, error) {
	<-ctx.Done()
	return answer.Unknown, ctx.Err()
}

func pendingQueries(t *testing.T, words ...alphabet.Word) []knowledgebase.Query {
	t.Helper()
	kb := knowledgebase.New(2)
	for _, w := range words {
		_, err := kb.EnqueueQuery(w)
		require.NoError(t, err)
	}
	return kb.Queries()
}

// TestWorkerPoolAnswerBatch tests that answers come back in batch order
func TestWorkerPoolAnswerBatch(t *testing.T) {
	words := alphabet.Enumerate(2, 4)
	queries := pendingQueries(t, words...)
	require.Len(t, queries, len(words))

	pool := core.NewWorkerPool(4, oracle.MembershipFunc(evenZeros), time.Second, logging.Discard())
	assert.Equal(t, 4, pool.Size())

	results, err := pool.AnswerBatch(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, len(queries))
	for i, r := range results {
		assert.Equal(t, queries[i].Handle, r.Handle)
		if diff := cmp.Diff(queries[i].Word, r.Word); diff != "" {
			t.Errorf("result %d word mismatch (-want +got):\n%s", i, diff)
		}
		assert.Equal(t, answer.FromBool(evenZeros(r.Word)), r.Answer)
	}

	var answered int64
	for _, w := range pool.Workers() {
		a, failures := w.GetStats()
		answered += a
		assert.Zero(t, failures)
	}
	assert.Equal(t, int64(len(queries)), answered)
}

// TestWorkerPoolMinimumSize tests that a pool always has a worker
func TestWorkerPoolMinimumSize(t *testing.T) {
	pool := core.NewWorkerPool(0, oracle.MembershipFunc(evenZeros), 0, logging.Discard())
	assert.Equal(t, 1, pool.Size())

	results, err := pool.AnswerBatch(context.Background(), pendingQueries(t, alphabet.Of(0), alphabet.Of(1)))
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// TestWorkerIndefiniteAnswer tests that Unknown from an oracle is an error
func TestWorkerIndefiniteAnswer(t *testing.T) {
	pool := core.NewWorkerPool(2, unknownOracle{}, 0, logging.Discard())
	_, err := pool.AnswerBatch(context.Background(), pendingQueries(t, alphabet.Of(0), alphabet.Of(1)))
	assert.ErrorIs(t, err, core.ErrIndefiniteAnswer)
}

// TestWorkerTimeout tests the per-query timeout
func TestWorkerTimeout(t *testing.T) {
	w := core.NewWorker(7, blockingOracle{}, 10*time.Millisecond, logging.Discard())
	queries := pendingQueries(t, alphabet.Of(1))

	result, err := w.Answer(context.Background(), queries[0])
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 7, result.WorkerID)

	answered, failures := w.GetStats()
	assert.Zero(t, answered)
	assert.Equal(t, int64(1), failures)
}

// TestSessionStatsBinary tests the counter encoding
func TestSessionStatsBinary(t *testing.T) {
	var stats core.SessionStats
	stats.IncrementMembership(41)
	stats.IncrementEquivalence()
	stats.IncrementEquivalence()
	stats.IncrementCounterexamples()
	stats.IncrementConjectures()
	stats.IncrementBatches()
	stats.IncrementTimeouts()
	stats.SetLastStateCount(5)

	data, err := stats.MarshalBinary()
	require.NoError(t, err)

	var decoded core.SessionStats
	require.NoError(t, decoded.UnmarshalBinary(data))
	if diff := cmp.Diff(stats.Snapshot(), decoded.Snapshot()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	assert.Error(t, decoded.UnmarshalBinary(data[:len(data)-2]))
}

// TestSessionConfigValidate tests the configuration checks
func TestSessionConfigValidate(t *testing.T) {
	valid := core.SessionConfig{Algorithm: "angluin", AlphabetSize: 2, Workers: 1}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		modify func(c *core.SessionConfig)
	}{
		{"no algorithm", func(c *core.SessionConfig) { c.Algorithm = "" }},
		{"negative alphabet", func(c *core.SessionConfig) { c.AlphabetSize = -1 }},
		{"huge alphabet", func(c *core.SessionConfig) { c.AlphabetSize = knowledgebase.MaxAlphabetSize + 1 }},
		{"negative workers", func(c *core.SessionConfig) { c.Workers = -1 }},
		{"negative timeout", func(c *core.SessionConfig) { c.QueryTimeout = -time.Second }},
		{"negative rounds", func(c *core.SessionConfig) { c.MaxRounds = -1 }},
		{"negative states", func(c *core.SessionConfig) { c.MaxStates = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.modify(&c)
			assert.Error(t, c.Validate())
		})
	}
}
