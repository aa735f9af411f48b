/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter_test.go
Description: Tests for the Prometheus reporter.
*/

package core

import (
	"testing"
	"time"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPrometheusReporter tests that callbacks reach the registered metrics
func TestPrometheusReporter(t *testing.T) {
	_, err := NewPrometheusReporter(nil)
	assert.Error(t, err)

	reg := prometheus.NewRegistry()
	r, err := NewPrometheusReporter(reg)
	require.NoError(t, err)

	r.OnQueriesAnswered("s1", make([]QueryResult, 5), 20*time.Millisecond)
	r.OnQueriesAnswered("s1", make([]QueryResult, 2), 10*time.Millisecond)
	r.OnConjecture("s1", 1, &automaton.Conjecture{StateCount: 1})
	r.OnCounterexample("s1", 1, alphabet.Of(1, 1))
	r.OnConjecture("s1", 2, &automaton.Conjecture{StateCount: 3})
	r.OnSessionFinished(&SessionResult{Algorithm: "angluin", Equal: true})
	r.OnSessionFinished(&SessionResult{Algorithm: "rpni"})

	assert.Equal(t, 7.0, testutil.ToFloat64(r.queries.WithLabelValues("s1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.conjectures.WithLabelValues("s1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.counterexamples.WithLabelValues("s1")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.states.WithLabelValues("s1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessions.WithLabelValues("angluin", "equal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessions.WithLabelValues("rpni", "unverified")))

	count, err := testutil.GatherAndCount(reg, "learner_query_batch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
