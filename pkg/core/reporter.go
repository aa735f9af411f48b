/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter interface and implementations for learning session telemetry.
Reporters observe query batches, conjectures, counterexamples and session outcomes; they
never influence the session. Ships a logging reporter and a Prometheus reporter.
*/

package core

import (
	"fmt"
	"time"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// Reporter defines the interface for telemetry and reporting hooks.
type Reporter interface {
	// OnQueriesAnswered is called after a batch of membership answers was committed
	OnQueriesAnswered(sessionID string, results []QueryResult, elapsed time.Duration)
	// OnConjecture is called for every conjecture an algorithm emits
	OnConjecture(sessionID string, round int, c *automaton.Conjecture)
	// OnCounterexample is called when the equivalence oracle refutes a conjecture
	OnCounterexample(sessionID string, round int, w alphabet.Word)
	// OnSessionFinished is called once when Run returns a result
	OnSessionFinished(result *SessionResult)
}

// LoggerReporter logs session events through the learner logger.
type LoggerReporter struct {
	logger *logging.Logger
}

// NewLoggerReporter creates a new LoggerReporter.
func NewLoggerReporter(logger *logging.Logger) *LoggerReporter {
	return &LoggerReporter{logger: logger}
}

// OnQueriesAnswered logs the batch size and duration.
func (r *LoggerReporter) OnQueriesAnswered(sessionID string, results []QueryResult, elapsed time.Duration) {
	r.logger.LogQueryBatch(sessionID, len(results), elapsed, nil)
}

// OnConjecture logs the conjecture size.
func (r *LoggerReporter) OnConjecture(sessionID string, round int, c *automaton.Conjecture) {
	r.logger.LogConjecture(sessionID, round, c.StateCount, logrus.Fields{
		"deterministic": c.Deterministic,
		"transitions":   len(c.Transitions),
	})
}

// OnCounterexample logs the counterexample word.
func (r *LoggerReporter) OnCounterexample(sessionID string, round int, w alphabet.Word) {
	r.logger.LogCounterexample(sessionID, round, w.String(), nil)
}

// OnSessionFinished logs the final statistics.
func (r *LoggerReporter) OnSessionFinished(result *SessionResult) {
	r.logger.LogStats(result.SessionID, result.Stats.MembershipQueries, result.Stats.EquivalenceQueries, logrus.Fields{
		"algorithm": result.Algorithm,
		"equal":     result.Equal,
		"rounds":    result.Rounds,
	})
}

// PrometheusReporter exports session metrics to a Prometheus registry.
type PrometheusReporter struct {
	queries         *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
	conjectures     *prometheus.CounterVec
	counterexamples *prometheus.CounterVec
	states          *prometheus.GaugeVec
	sessions        *prometheus.CounterVec
}

// NewPrometheusReporter registers the learner metrics with reg. Passing a fresh
// registry per engine keeps repeated construction from colliding.
func NewPrometheusReporter(reg prometheus.Registerer) (*PrometheusReporter, error) {
	if reg == nil {
		return nil, fmt.Errorf("prometheus registerer must not be nil")
	}
	factory := promauto.With(reg)
	return &PrometheusReporter{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learner",
			Name:      "membership_queries_total",
			Help:      "Membership queries answered by the oracle.",
		}, []string{"session"}),
		batchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "learner",
			Name:      "query_batch_duration_seconds",
			Help:      "Time spent answering one batch of membership queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"session"}),
		conjectures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learner",
			Name:      "conjectures_total",
			Help:      "Conjectures emitted by the learning algorithm.",
		}, []string{"session"}),
		counterexamples: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learner",
			Name:      "counterexamples_total",
			Help:      "Counterexamples returned by the equivalence oracle.",
		}, []string{"session"}),
		states: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "learner",
			Name:      "conjecture_states",
			Help:      "State count of the latest conjecture.",
		}, []string{"session"}),
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learner",
			Name:      "sessions_finished_total",
			Help:      "Finished sessions by algorithm and outcome.",
		}, []string{"algorithm", "outcome"}),
	}, nil
}

// OnQueriesAnswered counts the batch.
func (r *PrometheusReporter) OnQueriesAnswered(sessionID string, results []QueryResult, elapsed time.Duration) {
	r.queries.WithLabelValues(sessionID).Add(float64(len(results)))
	r.batchDuration.WithLabelValues(sessionID).Observe(elapsed.Seconds())
}

// OnConjecture counts the conjecture and records its size.
func (r *PrometheusReporter) OnConjecture(sessionID string, round int, c *automaton.Conjecture) {
	r.conjectures.WithLabelValues(sessionID).Inc()
	r.states.WithLabelValues(sessionID).Set(float64(c.StateCount))
}

// OnCounterexample counts the counterexample.
func (r *PrometheusReporter) OnCounterexample(sessionID string, round int, w alphabet.Word) {
	r.counterexamples.WithLabelValues(sessionID).Inc()
}

// OnSessionFinished counts the session by outcome.
func (r *PrometheusReporter) OnSessionFinished(result *SessionResult) {
	outcome := "unverified"
	if result.Equal {
		outcome = "equal"
	}
	r.sessions.WithLabelValues(result.Algorithm, outcome).Inc()
}
