package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"notice", NoticeLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStdLogger_LevelFilteringAndPrefixes(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(false, NoticeLevel).WithOutput(log.New(&buf, "", 0))

	l.Info("hidden %d", 1)
	l.DebugWithChain("sol", "hidden too")
	l.NoticeWithChain("bsc", "bundle %s", "abc")
	l.ErrorWithChain("sol", "poll failed")
	l.Error("plain")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[NOTICE] [BSC]  bundle abc")
	assert.Contains(t, out, "[ERROR]  [SOL]  poll failed")
	assert.Contains(t, out, "[ERROR]  plain")
}

func TestStdLogger_UnknownChainPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(false, DebugLevel).WithOutput(log.New(&buf, "", 0))

	l.InfoWithChain("chain-31337", "hello")
	assert.Contains(t, buf.String(), "[CHAIN-31337] hello")
}
