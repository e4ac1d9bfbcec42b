// Package executor is the inbound boundary: it validates buy requests, runs them through
// the chain's plan and submit pipeline and serves the HTTP API.
package executor

import (
	"context"
	"errors"

	"github.com/dualexec/executor/pkg/circuitbreaker"
	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/metrics"
	"github.com/dualexec/executor/pkg/models"
	"github.com/dualexec/executor/pkg/submit"
)

// Executor runs one trade intent to a submission result
type Executor interface {
	Chain() string
	Execute(ctx context.Context, intent *models.TradeIntent) (*models.SubmissionResult, error)
}

// Planner builds a single-use plan from an intent
type Planner[P submit.Plan] interface {
	Plan(ctx context.Context, intent *models.TradeIntent) (P, error)
}

// Pipeline plans and submits trades for one chain behind a circuit breaker
type Pipeline[P submit.Plan] struct {
	chain     string
	planner   Planner[P]
	submitter submit.Submitter[P]
	breaker   *circuitbreaker.CircuitBreaker
	logger    logger.Logger
}

var _ Executor = (*Pipeline[submit.Plan])(nil)

// NewPipeline creates a pipeline. breaker may be nil.
func NewPipeline[P submit.Plan](
	chain string,
	planner Planner[P],
	submitter submit.Submitter[P],
	breaker *circuitbreaker.CircuitBreaker,
	log logger.Logger,
) *Pipeline[P] {
	return &Pipeline[P]{
		chain:     chain,
		planner:   planner,
		submitter: submitter,
		breaker:   breaker,
		logger:    log,
	}
}

func (p *Pipeline[P]) Chain() string { return p.chain }

// Execute plans the trade and submits it once. Failures not caused by the caller count
// towards the circuit breaker.
func (p *Pipeline[P]) Execute(ctx context.Context, intent *models.TradeIntent) (*models.SubmissionResult, error) {
	if p.breaker != nil && p.breaker.IsOpen() {
		p.logger.NoticeWithChain(p.chain, "Rejecting trade for %s: circuit breaker open", intent.Target)
		return nil, models.ErrCircuitOpen
	}

	plan, err := p.planner.Plan(ctx, intent)
	if err != nil {
		p.recordError(err, "plan")
		return nil, err
	}

	result, err := p.submitter.Submit(ctx, plan)
	if err != nil {
		p.recordError(err, "submit")
		return nil, err
	}

	if p.breaker != nil {
		p.breaker.RecordSuccess()
	}
	primary := result.Primary()
	metrics.TradesSubmitted.WithLabelValues(p.chain, result.Mode, string(primary.Status)).Inc()
	metrics.SubmissionTime.WithLabelValues(p.chain, result.Mode).Observe(result.Elapsed.Seconds())

	return result, nil
}

func (p *Pipeline[P]) recordError(err error, stage string) {
	retryable, errorType := models.ClassifyError(err)
	metrics.SubmissionErrors.WithLabelValues(p.chain, errorType).Inc()

	if models.IsCallerFault(err) {
		p.logger.InfoWithChain(p.chain, "Trade rejected at %s: %v", stage, err)
		return
	}
	p.logger.ErrorWithChain(p.chain, "Trade failed at %s (%s, retryable: %v): %v", stage, errorType, retryable, err)

	if p.breaker != nil && !errors.Is(err, models.ErrPlanConsumed) {
		p.breaker.RecordFailure()
	}
}

// disabled rejects every trade with the error that disabled the chain
type disabled struct {
	chain string
	err   error
}

// Disabled returns an executor for a chain that is not usable, e.g. because its
// configuration section failed validation. No network call is ever made.
func Disabled(chain string, err error) Executor {
	return &disabled{chain: chain, err: err}
}

func (d *disabled) Chain() string { return d.chain }

func (d *disabled) Execute(_ context.Context, _ *models.TradeIntent) (*models.SubmissionResult, error) {
	return nil, d.err
}
