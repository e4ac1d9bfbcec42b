// Package poller waits for an externally observed status to reach a terminal state.
// It backs both the relay bundle confirmation and the transaction receipt waits.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/metrics"
	"github.com/dualexec/executor/pkg/models"
)

const (
	// DefaultInterval is the time between two status fetches
	DefaultInterval = time.Second

	// DefaultDeadline is the total time allowed to observe a terminal status
	DefaultDeadline = 10 * time.Second
)

// ErrTimeout is returned when the deadline passes without a terminal status
var ErrTimeout = models.ErrPollTimeout

// Options configures one wait
type Options struct {
	Interval time.Duration
	Deadline time.Duration

	// Chain and Kind label logs and metrics, e.g. "sol"/"bundle" or "bsc"/"receipt"
	Chain string
	Kind  string
}

// Fetcher returns the current statuses for an id. An empty result means "not known yet".
type Fetcher[ID, S any] func(ctx context.Context, id ID) ([]S, error)

// Terminal reports whether the fetched statuses end the wait
type Terminal[S any] func(statuses []S) bool

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a fetch error as fatal. Poll stops and returns the wrapped error.
// Any other fetch error is logged and the wait continues.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Poll fetches immediately and then once per interval until done reports true, a
// permanent error occurs, or the deadline passes. The deadline is measured from the
// call, so a terminal status seen on fetch N (at (N-1)*interval) succeeds as long as
// that is before the deadline.
func Poll[ID, S any](
	ctx context.Context,
	log logger.Logger,
	opts Options,
	id ID,
	fetch Fetcher[ID, S],
	done Terminal[S],
) ([]S, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}

	pollCtx, cancel := context.WithTimeout(ctx, opts.Deadline)
	defer cancel()

	ticker := backoff.NewTicker(backoff.NewConstantBackOff(opts.Interval))
	defer ticker.Stop()

	attempt := 0
	for {
		select {
		case <-pollCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			metrics.PollTimeouts.WithLabelValues(opts.Chain, opts.Kind).Inc()
			log.ErrorWithChain(opts.Chain, "%s %v: no terminal status after %d attempts in %s",
				opts.Kind, id, attempt, opts.Deadline)
			return nil, fmt.Errorf("%s %v: %w", opts.Kind, id, ErrTimeout)
		case <-ticker.C:
		}

		// a tick racing the deadline must not produce a late fetch
		if pollCtx.Err() != nil {
			continue
		}

		attempt++
		metrics.PollAttempts.WithLabelValues(opts.Chain, opts.Kind).Inc()

		statuses, err := fetch(pollCtx, id)
		if err != nil {
			var perm *permanentError
			if errors.As(err, &perm) {
				return nil, perm.err
			}
			if pollCtx.Err() != nil {
				continue
			}
			metrics.PollFetchErrors.WithLabelValues(opts.Chain, opts.Kind).Inc()
			log.ErrorWithChain(opts.Chain, "%s %v: status fetch attempt %d failed: %v", opts.Kind, id, attempt, err)
			continue
		}

		if done(statuses) {
			log.DebugWithChain(opts.Chain, "%s %v: terminal status after %d attempts", opts.Kind, id, attempt)
			return statuses, nil
		}
		log.DebugWithChain(opts.Chain, "%s %v: not terminal yet (attempt %d)", opts.Kind, id, attempt)
	}
}
