// Package batch runs homogeneous remote operations in fixed-size batches
// with bounded retries and pacing delays, so bulk provisioning neither
// hammers the remote API nor dies on a transient fault.
package batch

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

// Defaults tuned against the remote API's throttling behavior.
const (
	DefaultBatchSize      = 10
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 5 * time.Second
	DefaultItemDelay      = 2 * time.Second
	DefaultBatchDelay     = 2 * time.Second
	DefaultAttemptTimeout = 5 * time.Minute
)

// Status of a single item after the runner is done with it.
type Status string

const (
	// Succeeded means some attempt returned without error.
	Succeeded Status = "succeeded"
	// Failed means every attempt errored; Err holds the last one.
	Failed Status = "failed"
	// Canceled means the run's context ended before the item succeeded.
	Canceled Status = "canceled"
)

// Outcome records what happened to one input item. The runner reports every
// item, success or not; callers decide what a partial run means.
type Outcome[T, R any] struct {
	Item   T
	Result R
	Status Status
	// Attempts counts the batch attempts in which this item was invoked.
	Attempts int
	Err      error
}

// Runner executes fn once per item, BatchSize items per batch. Retries are
// batch-scoped: any item failure voids the whole batch attempt and the batch
// restarts from its first item, up to MaxRetries attempts with RetryDelay in
// between. Items within an attempt are paced by ItemDelay and batches by
// BatchDelay. Each batch attempt gets its own AttemptTimeout-bounded context.
type Runner[T, R any] struct {
	BatchSize      int
	MaxRetries     int
	RetryDelay     time.Duration
	ItemDelay      time.Duration
	BatchDelay     time.Duration
	AttemptTimeout time.Duration
	Log            *logrus.Entry
}

// New returns a runner with the default tuning.
func New[T, R any](log *logrus.Entry) *Runner[T, R] {
	return &Runner[T, R]{
		BatchSize:      DefaultBatchSize,
		MaxRetries:     DefaultMaxRetries,
		RetryDelay:     DefaultRetryDelay,
		ItemDelay:      DefaultItemDelay,
		BatchDelay:     DefaultBatchDelay,
		AttemptTimeout: DefaultAttemptTimeout,
		Log:            log,
	}
}

// Run processes every item and returns one outcome per input, in input
// order. Cancellation stops the run between attempts; items not yet
// succeeded are reported as Canceled, never silently dropped.
func (r *Runner[T, R]) Run(ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error)) []Outcome[T, R] {
	outcomes := make([]Outcome[T, R], len(items))
	for i, item := range items {
		outcomes[i] = Outcome[T, R]{Item: item, Status: Canceled}
	}

	size := r.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		if r.Log != nil {
			r.Log.WithFields(logrus.Fields{
				"batch": start/size + 1,
				"from":  start,
				"to":    end,
			}).Info("processing batch")
		}
		if !r.runBatch(ctx, items, outcomes, start, end, fn) {
			return outcomes
		}
		if end < len(items) {
			if !sleep(ctx, r.BatchDelay) {
				return outcomes
			}
		}
	}
	return outcomes
}

// runBatch drives one batch to a terminal state. A failed item voids the
// whole attempt: its results are discarded and the batch restarts from its
// first item. The outcomes of the last attempt stand. Reports false when the
// run's context ended and the caller must stop.
func (r *Runner[T, R]) runBatch(ctx context.Context, items []T, outcomes []Outcome[T, R], start, end int, fn func(ctx context.Context, item T) (R, error)) bool {
	retries := r.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	for attempt := 1; attempt <= retries; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if r.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.AttemptTimeout)
		}
		failed := r.runAttempt(ctx, attemptCtx, items, outcomes, start, end, attempt, fn)
		timedOut := attemptCtx.Err() != nil && ctx.Err() == nil
		cancel()

		if ctx.Err() != nil {
			return false
		}
		if !failed && !timedOut {
			return true
		}
		if r.Log != nil {
			r.Log.WithFields(logrus.Fields{
				"from":    start,
				"to":      end,
				"attempt": attempt,
			}).Warn("batch attempt failed, retrying from the first item")
		}
		if attempt < retries {
			if !sleep(ctx, r.RetryDelay) {
				return false
			}
			continue
		}
		if timedOut {
			for i := start; i < end; i++ {
				if outcomes[i].Status == Canceled {
					outcomes[i].Status = Failed
					outcomes[i].Err = errors.Wrap(context.DeadlineExceeded, "batch attempt timed out")
				}
			}
		}
	}
	return true
}

// runAttempt runs every item of the batch once, overwriting whatever a
// previous attempt recorded. Reports whether any item failed.
func (r *Runner[T, R]) runAttempt(ctx, attemptCtx context.Context, items []T, outcomes []Outcome[T, R], start, end, attempt int, fn func(ctx context.Context, item T) (R, error)) bool {
	for i := start; i < end; i++ {
		outcomes[i] = Outcome[T, R]{Item: items[i], Status: Canceled, Attempts: attempt - 1}
	}

	failed := false
	for i := start; i < end; i++ {
		if attemptCtx.Err() != nil {
			return failed
		}
		outcomes[i].Attempts = attempt
		result, err := fn(attemptCtx, items[i])
		if err != nil {
			if ctx.Err() != nil {
				outcomes[i].Err = errors.Wrap(ctx.Err(), "run canceled")
				return failed
			}
			outcomes[i].Status = Failed
			outcomes[i].Err = err
			failed = true
			if r.Log != nil {
				r.Log.WithError(err).WithFields(logrus.Fields{
					"item":    i,
					"attempt": attempt,
				}).Warn("item failed")
			}
		} else {
			outcomes[i].Result = result
			outcomes[i].Status = Succeeded
		}
		if i < end-1 {
			if !sleep(attemptCtx, r.ItemDelay) {
				return failed
			}
		}
	}
	return failed
}

// Results filters the outcomes down to successful results, in input order.
func Results[T, R any](outcomes []Outcome[T, R]) []R {
	results := make([]R, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == Succeeded {
			results = append(results, o.Result)
		}
	}
	return results
}

// Failures filters the outcomes down to items that did not succeed.
func Failures[T, R any](outcomes []Outcome[T, R]) []Outcome[T, R] {
	failed := make([]Outcome[T, R], 0)
	for _, o := range outcomes {
		if o.Status != Succeeded {
			failed = append(failed, o)
		}
	}
	return failed
}

// sleep waits for d unless the context ends first; a non-positive d returns
// immediately. Reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
