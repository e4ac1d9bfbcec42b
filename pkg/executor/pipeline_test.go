package executor

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualexec/executor/pkg/circuitbreaker"
	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/models"
)

type testPlan struct {
	relay  bool
	intent *models.TradeIntent
}

func (p *testPlan) UseRelay() bool { return p.relay }

type fakePlanner struct {
	err   error
	calls int
}

func (f *fakePlanner) Plan(_ context.Context, intent *models.TradeIntent) (*testPlan, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &testPlan{intent: intent}, nil
}

type fakeSubmitter struct {
	err   error
	calls int
}

func (f *fakeSubmitter) Submit(_ context.Context, p *testPlan) (*models.SubmissionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.SubmissionResult{
		Chain:        "bsc-testnet",
		Mode:         models.ModeDirect,
		Transactions: []models.Transaction{{ID: "0xabc", Status: models.StatusSuccess}},
		MinOutput:    big.NewInt(500),
		Elapsed:      time.Second,
	}, nil
}

func intent(t *testing.T) *models.TradeIntent {
	t.Helper()
	i, err := models.NewTradeIntent("0x000000000000000000000000000000000000dEaD", "0.02", 0.5, 60)
	require.NoError(t, err)
	return i
}

func TestPipeline_Execute(t *testing.T) {
	planner := &fakePlanner{}
	submitter := &fakeSubmitter{}
	p := NewPipeline[*testPlan]("bsc-testnet", planner, submitter, nil, &logger.EmptyLogger{})

	res, err := p.Execute(context.Background(), intent(t))
	require.NoError(t, err)
	assert.Equal(t, "0xabc", res.Primary().ID)
	assert.Equal(t, "bsc-testnet", p.Chain())
	assert.Equal(t, 1, planner.calls)
	assert.Equal(t, 1, submitter.calls)
}

func TestPipeline_CircuitBreaker(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker("bsc-testnet", true, 2, time.Minute, time.Minute, &logger.EmptyLogger{})
	planner := &fakePlanner{}
	submitter := &fakeSubmitter{err: &models.BroadcastError{Chain: "bsc-testnet", Err: errors.New("connection refused")}}
	p := NewPipeline[*testPlan]("bsc-testnet", planner, submitter, breaker, &logger.EmptyLogger{})

	for i := 0; i < 2; i++ {
		_, err := p.Execute(context.Background(), intent(t))
		var bErr *models.BroadcastError
		require.ErrorAs(t, err, &bErr)
	}

	_, err := p.Execute(context.Background(), intent(t))
	assert.ErrorIs(t, err, models.ErrCircuitOpen)
	assert.Equal(t, 2, planner.calls, "an open circuit rejects before planning")

	breaker.Reset()
	submitter.err = nil
	_, err = p.Execute(context.Background(), intent(t))
	assert.NoError(t, err)
}

func TestPipeline_CallerFaultsDoNotTrip(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker("sol", true, 1, time.Minute, time.Minute, &logger.EmptyLogger{})
	planner := &fakePlanner{err: &models.ValidationError{Field: "target_token", Reason: "bad"}}
	p := NewPipeline[*testPlan]("sol", planner, &fakeSubmitter{}, breaker, &logger.EmptyLogger{})

	for i := 0; i < 3; i++ {
		_, err := p.Execute(context.Background(), intent(t))
		var valErr *models.ValidationError
		require.ErrorAs(t, err, &valErr)
	}
	assert.False(t, breaker.IsOpen())
}

func TestDisabled(t *testing.T) {
	cfgErr := &models.ConfigError{Field: "ROUTER_ADDRESS", Reason: "invalid"}
	d := Disabled("bsc", cfgErr)

	_, err := d.Execute(context.Background(), intent(t))
	assert.Same(t, cfgErr, err)
	assert.Equal(t, "bsc", d.Chain())
}
