package logger

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

// ParseLevel converts a textual level into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "notice":
		return NoticeLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// chain labels are produced by pkg/chains; unknown labels get a generic prefix
var chainPrefixes = map[string]string{
	"":            "",
	"eth":         "[ETH]  ",
	"bsc":         "[BSC]  ",
	"bsc-testnet": "[BSCT] ",
	"base":        "[BASE] ",
	"arb":         "[ARB]  ",
	"pol":         "[POL]  ",
	"sol":         "[SOL]  ",
}

var colors = map[string]color.Attribute{
	"":            color.FgWhite,
	"eth":         color.FgHiGreen,
	"bsc":         color.FgYellow,
	"bsc-testnet": color.FgHiYellow,
	"base":        color.FgBlue,
	"arb":         color.FgHiBlue,
	"pol":         color.FgMagenta,
	"sol":         color.FgHiMagenta,
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithChain(chain string, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithChain(chain string, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithChain(chain string, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithChain(chain string, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                      {}
func (l *EmptyLogger) InfoWithChain(_ string, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                     {}
func (l *EmptyLogger) ErrorWithChain(_ string, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                     {}
func (l *EmptyLogger) DebugWithChain(_ string, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                    {}
func (l *EmptyLogger) NoticeWithChain(_ string, _ string, _ ...interface{}) {}

// StdLogger writes leveled, chain-prefixed messages through the standard log package.
type StdLogger struct {
	enableColoring bool
	level          Level
	out            *log.Logger
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
		out:            log.Default(),
	}
}

// WithOutput redirects the logger, mainly for tests.
func (l *StdLogger) WithOutput(out *log.Logger) *StdLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = out
	return l
}

func prefixFor(chain string) string {
	if p, ok := chainPrefixes[chain]; ok {
		return p
	}
	return fmt.Sprintf("[%s] ", strings.ToUpper(chain))
}

// formatMessage formats the log message with the level, the chain prefix and coloring if enabled.
func (l *StdLogger) formatMessage(level Level, chain string, format string) string {
	chainPrefix := prefixFor(chain)
	if l.enableColoring && chainPrefix != "" {
		attr, ok := colors[chain]
		if !ok {
			attr = color.FgCyan
		}
		chainPrefix = color.New(attr).Sprint(chainPrefix)
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
	}

	return levelStr + chainPrefix + format
}

func (l *StdLogger) logf(level Level, chain string, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= level {
		l.out.Printf(l.formatMessage(level, chain, format), args...)
	}
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.logf(InfoLevel, "", format, args...)
}

func (l *StdLogger) InfoWithChain(chain string, format string, args ...interface{}) {
	l.logf(InfoLevel, chain, format, args...)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.logf(ErrorLevel, "", format, args...)
}

func (l *StdLogger) ErrorWithChain(chain string, format string, args ...interface{}) {
	l.logf(ErrorLevel, chain, format, args...)
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.logf(DebugLevel, "", format, args...)
}

func (l *StdLogger) DebugWithChain(chain string, format string, args ...interface{}) {
	l.logf(DebugLevel, chain, format, args...)
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.logf(NoticeLevel, "", format, args...)
}

func (l *StdLogger) NoticeWithChain(chain string, format string, args ...interface{}) {
	l.logf(NoticeLevel, chain, format, args...)
}
