package jito

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/dualexec/executor/pkg/logger"
)

// TipSource suggests a relay tip in SOL
type TipSource interface {
	TipValue(ctx context.Context) (decimal.Decimal, error)
}

// FixedTip always suggests the same tip
type FixedTip struct {
	Value decimal.Decimal
}

func (f FixedTip) TipValue(_ context.Context) (decimal.Decimal, error) {
	return f.Value, nil
}

const tipFloorTTL = 10 * time.Second

// tipFloorEntry is one element of the tip floor feed; values are in SOL
type tipFloorEntry struct {
	Time              string  `json:"time"`
	LandedTips25th    float64 `json:"landed_tips_25th_percentile"`
	LandedTips50th    float64 `json:"landed_tips_50th_percentile"`
	LandedTips75th    float64 `json:"landed_tips_75th_percentile"`
	LandedTips95th    float64 `json:"landed_tips_95th_percentile"`
	LandedTips99th    float64 `json:"landed_tips_99th_percentile"`
	EMALandedTips50th float64 `json:"ema_landed_tips_50th_percentile"`
}

func (e tipFloorEntry) percentile(p int) (float64, error) {
	switch p {
	case 25:
		return e.LandedTips25th, nil
	case 50:
		return e.LandedTips50th, nil
	case 75:
		return e.LandedTips75th, nil
	case 95:
		return e.LandedTips95th, nil
	case 99:
		return e.LandedTips99th, nil
	}
	return 0, fmt.Errorf("unsupported tip percentile %d", p)
}

// TipFloor reads the landed-tip percentiles published by the block engine operator
// and suggests the configured percentile. Results are cached briefly.
type TipFloor struct {
	url        string
	percentile int
	httpClient *http.Client
	cache      *cache.Cache
	logger     logger.Logger
}

// NewTipFloor creates a tip source for the given feed URL and percentile (25, 50, 75, 95 or 99)
func NewTipFloor(url string, percentile int, httpClient *http.Client, log logger.Logger) *TipFloor {
	if httpClient == nil {
		httpClient = createHTTPClient()
	}
	return &TipFloor{
		url:        url,
		percentile: percentile,
		httpClient: httpClient,
		cache:      cache.New(tipFloorTTL, time.Minute),
		logger:     log,
	}
}

// TipValue returns the configured percentile of recently landed tips
func (t *TipFloor) TipValue(ctx context.Context) (decimal.Decimal, error) {
	if cached, ok := t.cache.Get(t.url); ok {
		return cached.(decimal.Decimal), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch tip floor: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			t.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var entries []tipFloorEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse tip floor: %w", err)
	}
	if len(entries) == 0 {
		return decimal.Zero, fmt.Errorf("tip floor feed is empty")
	}

	value, err := entries[0].percentile(t.percentile)
	if err != nil {
		return decimal.Zero, err
	}

	tip := decimal.NewFromFloat(value)
	t.cache.SetDefault(t.url, tip)
	return tip, nil
}
