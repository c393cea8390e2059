// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// BatchResult pairs a request with how its run ended.
type BatchResult struct {
	Request Request
	Outcome *Outcome
	Err     error
}

// BatchOption configures Batch.
type BatchOption func(*batchConfig)

type batchConfig struct {
	concurrency int
	logger      logrus.FieldLogger
	onResult    func(int, BatchResult)
}

// WithConcurrency sets how many runs execute at once (default 2).
func WithConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithBatchLogger sets the logger for batch-level messages.
func WithBatchLogger(logger logrus.FieldLogger) BatchOption {
	return func(c *batchConfig) {
		c.logger = logger
	}
}

// WithResultHandler registers fn to be called as each run finishes, with
// the request's index. Calls may come from several goroutines.
func WithResultHandler(fn func(int, BatchResult)) BatchOption {
	return func(c *batchConfig) {
		c.onResult = fn
	}
}

// Batch runs every request on its own orchestrator from newOrchestrator.
// A failed run never stops the others. Results are returned in request
// order; requests not started before ctx ended carry ctx's error.
func Batch(ctx context.Context, newOrchestrator func() *Orchestrator, reqs []Request, opts ...BatchOption) []BatchResult {
	cfg := batchConfig{concurrency: 2, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.logger.WithFields(logrus.Fields{
		"queries":     len(reqs),
		"concurrency": cfg.concurrency,
	}).Info("starting batch")
	start := time.Now()

	results := make([]BatchResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(cfg.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			res := BatchResult{Request: req}
			if err := ctx.Err(); err != nil {
				res.Err = err
			} else {
				res.Outcome, res.Err = newOrchestrator().Run(ctx, req.Topic, req.Audience)
			}
			results[i] = res
			if cfg.onResult != nil {
				cfg.onResult(i, res)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	cfg.logger.WithFields(logrus.Fields{
		"queries":  len(reqs),
		"failed":   failed,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("batch finished")
	return results
}
