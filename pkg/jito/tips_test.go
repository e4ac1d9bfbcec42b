package jito

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualexec/executor/pkg/logger"
)

const tipFloorBody = `[{
	"time": "2024-09-01T12:58:00Z",
	"landed_tips_25th_percentile": 6.001e-06,
	"landed_tips_50th_percentile": 1e-05,
	"landed_tips_75th_percentile": 3.6196500000000005e-05,
	"landed_tips_95th_percentile": 0.0014479055000000002,
	"landed_tips_99th_percentile": 0.010007999,
	"ema_landed_tips_50th_percentile": 1.3e-05
}]`

func TestFixedTip(t *testing.T) {
	tip, err := FixedTip{Value: decimal.RequireFromString("0.002")}.TipValue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.002", tip.String())
}

func TestTipFloor_TipValue(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(tipFloorBody))
	}))
	defer server.Close()

	tests := []struct {
		percentile int
		want       string
	}{
		{50, "0.00001"},
		{99, "0.010007999"},
	}
	for _, tt := range tests {
		source := NewTipFloor(server.URL, tt.percentile, server.Client(), &logger.EmptyLogger{})
		tip, err := source.TipValue(context.Background())
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(tip), "p%d got %s", tt.percentile, tip)

		// served from cache
		_, err = source.TipValue(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestTipFloor_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, "bad gateway"},
		{"empty feed", http.StatusOK, "[]"},
		{"malformed", http.StatusOK, "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewTipFloor(server.URL, 50, server.Client(), &logger.EmptyLogger{}).TipValue(context.Background())
			require.Error(t, err)
		})
	}
}
