package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubExecutor returns a fixed outcome and records the intent it was given
type stubExecutor struct {
	chain  string
	result *models.SubmissionResult
	err    error
	got    *models.TradeIntent
}

func (s *stubExecutor) Chain() string { return s.chain }

func (s *stubExecutor) Execute(_ context.Context, intent *models.TradeIntent) (*models.SubmissionResult, error) {
	s.got = intent
	return s.result, s.err
}

// recordingLogger keeps the chain labels errors were logged under
type recordingLogger struct {
	logger.EmptyLogger
	errorChains []string
}

func (l *recordingLogger) ErrorWithChain(chain string, _ string, _ ...interface{}) {
	l.errorChains = append(l.errorChains, chain)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_BuyEVM(t *testing.T) {
	evm := &stubExecutor{chain: "bsc-testnet", result: &models.SubmissionResult{
		Chain:        "bsc-testnet",
		Mode:         models.ModeDirect,
		Transactions: []models.Transaction{{ID: "0xfeed", Status: models.StatusPending}},
		MinOutput:    big.NewInt(500),
	}}
	h := NewHTTPHandler(NewService(evm, nil, &logger.EmptyLogger{}), HTTPConfig{}, &logger.EmptyLogger{})

	for _, path := range []string{"/buy", "/api/v1/evm/buy"} {
		t.Run(path, func(t *testing.T) {
			w := post(t, h, path, `{"target_token":"0x000000000000000000000000000000000000dEaD","amount_in":"0.02","slippage":0.5,"deadline_secs":30}`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp BuyResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "0xfeed", resp.TxHash)
			assert.Equal(t, models.StatusPending, resp.Status)
			assert.Equal(t, "500", resp.MinOutput)
			assert.Empty(t, resp.BundleID)

			assert.Equal(t, "0.02", evm.got.InputAmount.String())
			assert.Equal(t, 0.5, evm.got.Slippage)
			assert.Equal(t, 30*time.Second, evm.got.DeadlineOffset)
		})
	}
}

func TestHandler_BuyAmountBNB(t *testing.T) {
	evm := &stubExecutor{chain: "bsc", result: &models.SubmissionResult{
		Chain:        "bsc",
		Mode:         models.ModeDirect,
		Transactions: []models.Transaction{{ID: "0xbeef", Status: models.StatusSuccess}},
	}}
	h := NewHTTPHandler(NewService(evm, nil, &logger.EmptyLogger{}), HTTPConfig{}, &logger.EmptyLogger{})

	w := post(t, h, "/buy", `{"target_token":"0x000000000000000000000000000000000000dEaD","buy_amount_bnb":"0.02","slippage":0.3,"deadline_secs":60}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, evm.got)
	assert.Equal(t, "0.02", evm.got.InputAmount.String())
	assert.Equal(t, 0.3, evm.got.Slippage)
	assert.Equal(t, time.Minute, evm.got.DeadlineOffset)

	// amount_in takes precedence when both are sent
	w = post(t, h, "/buy", `{"target_token":"0x000000000000000000000000000000000000dEaD","amount_in":"0.5","buy_amount_bnb":"0.02"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "0.5", evm.got.InputAmount.String())
}

func TestHandler_FailureLoggedUnderExecutorChain(t *testing.T) {
	log := &recordingLogger{}
	sol := &stubExecutor{chain: "solana-mainnet", err: errors.New("rpc down")}
	h := NewHTTPHandler(NewService(nil, sol, log), HTTPConfig{}, log)

	w := post(t, h, "/api/v1/solana/buy", `{"target_token":"mint","amount_in":"1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, log.errorChains, "solana-mainnet")
	assert.NotContains(t, log.errorChains, "sol")
}

func TestHandler_BuySolanaBundle(t *testing.T) {
	sol := &stubExecutor{chain: "sol", result: &models.SubmissionResult{
		Chain: "sol",
		Mode:  models.ModeRelay,
		Transactions: []models.Transaction{
			{ID: "trade-sig", Status: models.StatusSuccess},
			{ID: "tip-sig", Status: models.StatusSuccess},
		},
		Bundle: &models.BundleHandle{ID: "bundle-1"},
	}}
	h := NewHTTPHandler(NewService(nil, sol, &logger.EmptyLogger{}), HTTPConfig{}, &logger.EmptyLogger{})

	w := post(t, h, "/api/v1/solana/buy", `{"target_token":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","amount_in":"0.05","slippage":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BuyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "trade-sig", resp.TxHash)
	assert.Equal(t, "bundle-1", resp.BundleID)
	assert.Len(t, resp.Transactions, 2)
	assert.Equal(t, "0", resp.MinOutput)

	assert.Equal(t, 0.99, sol.got.Slippage, "slippage is clamped")
	assert.Equal(t, DefaultDeadlineSecs*time.Second, sol.got.DeadlineOffset)
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"config", &models.ConfigError{Field: "ROUTER_ADDRESS", Reason: "invalid"}, http.StatusBadRequest},
		{"validation", &models.ValidationError{Field: "target_token", Reason: "bad"}, http.StatusBadRequest},
		{"circuit", models.ErrCircuitOpen, http.StatusServiceUnavailable},
		{"quote", &models.QuoteError{Err: errors.New("no route")}, http.StatusBadGateway},
		{"poll timeout", fmt.Errorf("bundle abc: %w", models.ErrPollTimeout), http.StatusGatewayTimeout},
		{"broadcast", &models.BroadcastError{Chain: "bsc", Err: errors.New("insufficient funds")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evm := &stubExecutor{chain: "bsc", err: tt.err}
			h := NewHTTPHandler(NewService(evm, nil, &logger.EmptyLogger{}), HTTPConfig{}, &logger.EmptyLogger{})

			w := post(t, h, "/buy", `{"target_token":"0x000000000000000000000000000000000000dEaD","amount_in":"1"}`)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.err.Error(), w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
		})
	}
}

func TestHandler_RejectsBeforeExecution(t *testing.T) {
	evm := &stubExecutor{chain: "bsc"}
	h := NewHTTPHandler(NewService(evm, nil, &logger.EmptyLogger{}), HTTPConfig{}, &logger.EmptyLogger{})

	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed json", "/buy", `{"target_token":`},
		{"bad amount", "/buy", `{"target_token":"0xdead","amount_in":"abc"}`},
		{"zero amount", "/buy", `{"target_token":"0xdead","amount_in":"0"}`},
		{"missing target", "/buy", `{"amount_in":"1"}`},
		{"deadline beyond a day", "/buy", `{"target_token":"0xdead","amount_in":"1","deadline_secs":10000000000}`},
		{"deadline max uint64", "/buy", `{"target_token":"0x000000000000000000000000000000000000dEaD","amount_in":"1","deadline_secs":18446744073709551615}`},
		{"solana disabled", "/api/v1/solana/buy", `{"target_token":"mint","amount_in":"1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Nil(t, evm.got)
		})
	}
}

func TestHandler_RateLimit(t *testing.T) {
	evm := &stubExecutor{chain: "bsc", err: models.ErrCircuitOpen}
	h := NewHTTPHandler(NewService(evm, nil, &logger.EmptyLogger{}), HTTPConfig{RateLimit: 0.001, RateBurst: 2}, &logger.EmptyLogger{})

	body := `{"target_token":"0x000000000000000000000000000000000000dEaD","amount_in":"1"}`
	assert.Equal(t, http.StatusServiceUnavailable, post(t, h, "/buy", body).Code)
	assert.Equal(t, http.StatusServiceUnavailable, post(t, h, "/buy", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(t, h, "/buy", body).Code)
}
