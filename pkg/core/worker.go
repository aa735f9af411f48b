/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: worker.go
Description: Workers answering membership queries for the session engine. Each query
runs under its own timeout; a pool hands out workers over a channel and answers a whole
batch concurrently with an errgroup, returning the answers in batch order so the engine
can commit them sequentially.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kleascm/regular-learner/pkg/answer"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/oracle"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrIndefiniteAnswer is returned when an oracle answers Unknown
var ErrIndefiniteAnswer = errors.New("membership oracle returned unknown")

// Worker answers membership queries against one oracle
type Worker struct {
	ID      int
	oracle  oracle.MembershipOracle
	logger  *logrus.Logger
	timeout time.Duration

	answered int64
	failures int64
}

// NewWorker creates a new worker instance
func NewWorker(id int, o oracle.MembershipOracle, timeout time.Duration, logger *logrus.Logger) *Worker {
	return &Worker{
		ID:      id,
		oracle:  o,
		logger:  logger,
		timeout: timeout,
	}
}

// Answer asks the oracle about one query. The answer must be definite.
func (w *Worker) Answer(ctx context.Context, q knowledgebase.Query) (QueryResult, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	a, err := w.oracle.MembershipQuery(ctx, q.Word)
	result := QueryResult{
		Handle:   q.Handle,
		Word:     q.Word,
		Answer:   a,
		Duration: time.Since(start),
		WorkerID: w.ID,
	}
	if err == nil && !a.Known() {
		err = fmt.Errorf("%w: %s", ErrIndefiniteAnswer, q.Word)
	}
	if err != nil {
		atomic.AddInt64(&w.failures, 1)
		w.logger.WithFields(logrus.Fields{
			"worker": w.ID,
			"word":   q.Word.String(),
		}).WithError(err).Debug("Membership query failed")
		return result, fmt.Errorf("membership query %s: %w", q.Word, err)
	}
	atomic.AddInt64(&w.answered, 1)
	return result, nil
}

// GetStats returns how many queries this worker answered and failed
func (w *Worker) GetStats() (answered, failures int64) {
	return atomic.LoadInt64(&w.answered), atomic.LoadInt64(&w.failures)
}

// WorkerPool answers batches of queries with a fixed set of workers
type WorkerPool struct {
	workers []*Worker
	idle    chan *Worker
}

// NewWorkerPool creates n workers sharing one oracle
func NewWorkerPool(n int, o oracle.MembershipOracle, timeout time.Duration, logger *logrus.Logger) *WorkerPool {
	if n <= 0 {
		n = 1
	}
	p := &WorkerPool{
		workers: make([]*Worker, n),
		idle:    make(chan *Worker, n),
	}
	for i := 0; i < n; i++ {
		p.workers[i] = NewWorker(i, o, timeout, logger)
		p.idle <- p.workers[i]
	}
	return p
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// Workers returns the pool's workers
func (p *WorkerPool) Workers() []*Worker {
	return append([]*Worker(nil), p.workers...)
}

// AnswerBatch answers every query, at most Size at a time. Results are in batch
// order. The first failure cancels the rest of the batch.
func (p *WorkerPool) AnswerBatch(ctx context.Context, queries []knowledgebase.Query) ([]QueryResult, error) {
	results := make([]QueryResult, len(queries))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(len(p.workers))

	for i, q := range queries {
		g.Go(func() error {
			var w *Worker
			select {
			case w = <-p.idle:
			case <-gCtx.Done():
				return gCtx.Err()
			}
			defer func() { p.idle <- w }()

			r, err := w.Answer(gCtx, q)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// commitAnswers writes answers into the knowledgebase one at a time
func commitAnswers(kb *knowledgebase.Knowledgebase, results []QueryResult) error {
	for _, r := range results {
		if err := kb.AnswerQuery(r.Handle, r.Answer); err != nil {
			if errors.Is(err, answer.ErrConflict) {
				return fmt.Errorf("oracle contradicted earlier knowledge: %w", err)
			}
			return err
		}
	}
	return nil
}
