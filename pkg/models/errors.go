package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPollTimeout is returned when a confirmation deadline passes without a terminal status
	ErrPollTimeout = errors.New("confirmation deadline exceeded")

	// ErrPlanConsumed is returned when a submission plan is submitted a second time
	ErrPlanConsumed = errors.New("submission plan already consumed")

	// ErrCircuitOpen is returned while a chain's circuit breaker is tripped
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// ConfigError reports missing or malformed configuration. Never retryable.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// ValidationError reports malformed input from the caller. Never retryable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BroadcastError reports that the node or relay rejected a submission.
type BroadcastError struct {
	Chain string
	Err   error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast on %s failed: %v", e.Chain, e.Err)
}

func (e *BroadcastError) Unwrap() error { return e.Err }

// QuoteError reports that a quote required to build a trade was unavailable.
type QuoteError struct {
	Err error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote unavailable: %v", e.Err)
}

func (e *QuoteError) Unwrap() error { return e.Err }

// IsCallerFault returns true for errors caused by the request or the configuration
func IsCallerFault(err error) bool {
	var cfgErr *ConfigError
	var valErr *ValidationError
	return errors.As(err, &cfgErr) || errors.As(err, &valErr)
}

// ClassifyError labels an error for logs and metrics and reports whether a caller
// could reasonably retry. Submissions are never retried internally.
func ClassifyError(err error) (bool, string) {
	if err == nil {
		return false, "none"
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return false, "config_error"
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return false, "validation_error"
	}
	if errors.Is(err, ErrPollTimeout) {
		return true, "poll_timeout"
	}
	if errors.Is(err, ErrCircuitOpen) {
		return true, "circuit_open"
	}
	if errors.Is(err, ErrPlanConsumed) {
		return false, "plan_consumed"
	}

	errStr := err.Error()

	// Network/RPC errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "no response") ||
		strings.Contains(errStr, "EOF") {
		return true, "network_error"
	}

	// Stale blockhash or node state
	if strings.Contains(errStr, "Blockhash not found") ||
		strings.Contains(errStr, "block height exceeded") ||
		strings.Contains(errStr, "missing trie node") ||
		strings.Contains(errStr, "header not found") {
		return true, "node_state_error"
	}

	if strings.Contains(errStr, "gas required exceeds allowance") ||
		strings.Contains(errStr, "gas price too low") ||
		strings.Contains(errStr, "max fee per gas less than block base fee") {
		return true, "gas_error"
	}

	if strings.Contains(errStr, "nonce too low") ||
		strings.Contains(errStr, "nonce too high") ||
		strings.Contains(errStr, "replacement transaction underpriced") ||
		strings.Contains(errStr, "already known") {
		return true, "nonce_error"
	}

	// Balance-related errors - permanent failures
	if strings.Contains(errStr, "insufficient funds") ||
		strings.Contains(errStr, "insufficient balance") ||
		strings.Contains(errStr, "insufficient lamports") {
		return false, "insufficient_balance"
	}

	if strings.Contains(errStr, "execution reverted") ||
		strings.Contains(errStr, "INSUFFICIENT_OUTPUT_AMOUNT") ||
		strings.Contains(errStr, "EXPIRED") ||
		strings.Contains(errStr, "custom program error") {
		return false, "contract_error"
	}

	var quoteErr *QuoteError
	if errors.As(err, &quoteErr) {
		return true, "quote_error"
	}

	return true, "unknown_error"
}
